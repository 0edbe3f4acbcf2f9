package model

import "time"

const (
	EventNewSubmission              = "new_submission"
	EventSubmissionUpdatedUser      = "submission_updated_user"
	EventSubmissionUpdatedOrganizer = "submission_updated_organizer"
	EventSubmissionDeleted          = "submission_deleted"
	EventIngredientAdded            = "ingredient_added"
	EventIngredientUpdated          = "ingredient_updated"
	EventIngredientRemoved          = "ingredient_removed"
	EventGroceryChecked             = "grocery_checked"
	EventGroceryItemAdded           = "grocery_item_added"
)

type Notification struct {
	ID        int64     `json:"id"`
	EventType string    `json:"event_type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
