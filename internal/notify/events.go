package notify

import (
	"fmt"
	"strings"

	"github.com/dukerupert/potluck/internal/model"
	"github.com/dukerupert/potluck/internal/reconcile"
)

// EditorOrganizer labels edits made with an organizer token.
const EditorOrganizer = "Organizer"

func membersLabel(members []string) string {
	if len(members) == 0 {
		return "Unknown"
	}
	return strings.Join(members, ", ")
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func SubmissionCreated(sub *model.Submission) Event {
	return Event{
		Type:    model.EventNewSubmission,
		Title:   "SUBMISSION — " + sub.DishName,
		Message: fmt.Sprintf("by %s · %s", membersLabel(sub.Members), plural(len(sub.Items), "ingredient")),
	}
}

// SubmissionUpdated describes a full update. byOrganizer selects the editor
// label; participants are named by their first listed member.
func SubmissionUpdated(sub *model.Submission, plan reconcile.Plan, byOrganizer bool) Event {
	ev := Event{
		Type:  model.EventSubmissionUpdatedUser,
		Title: "EDIT — " + sub.DishName,
	}
	editor := "User"
	if len(sub.Members) > 0 {
		editor = sub.Members[0]
	}
	if byOrganizer {
		ev.Type = model.EventSubmissionUpdatedOrganizer
		editor = EditorOrganizer
	}
	ev.Message = fmt.Sprintf("by %s · %s", editor, reconcile.Summary(plan.Added(), plan.Removed()))
	return ev
}

func SubmissionDeleted(sub *model.Submission) Event {
	return Event{
		Type:    model.EventSubmissionDeleted,
		Title:   "DELETION — " + sub.DishName,
		Message: "by " + membersLabel(sub.Members),
	}
}

func IngredientAdded(sub *model.Submission, ing *model.Ingredient) Event {
	return Event{
		Type:    model.EventIngredientAdded,
		Title:   "EDIT — " + sub.DishName,
		Message: "1 item added · " + ing.Name,
	}
}

// IngredientQuantitySet describes an incremental quantity change; removed
// is true when the line item was deleted.
func IngredientQuantitySet(sub *model.Submission, ing *model.Ingredient, removed bool) Event {
	if removed {
		return Event{
			Type:    model.EventIngredientRemoved,
			Title:   "EDIT — " + sub.DishName,
			Message: "1 item removed · " + ing.Name,
		}
	}
	return Event{
		Type:    model.EventIngredientUpdated,
		Title:   "EDIT — " + sub.DishName,
		Message: "Qty updated · " + ing.Name,
	}
}

// GroceryChecked describes an override change made by an organizer.
func GroceryChecked(ing *model.Ingredient, c model.GroceryCheckin, upd model.CheckinUpdate, by string) Event {
	var parts []string
	if upd.Checked != nil {
		if c.Checked {
			parts = append(parts, "Checked")
		} else {
			parts = append(parts, "Unchecked")
		}
	}
	if upd.Quantity != nil {
		parts = append(parts, fmt.Sprintf("Qty set to %d", *upd.Quantity))
	}
	if len(parts) == 0 {
		parts = append(parts, "Updated")
	}
	return Event{
		Type:    model.EventGroceryChecked,
		Title:   "GROCERY — " + ing.Name,
		Message: fmt.Sprintf("%s · by %s", strings.Join(parts, ", "), by),
	}
}

// OverrideCleared describes dropping a quantity override.
func OverrideCleared(ing *model.Ingredient, by string) Event {
	return Event{
		Type:    model.EventGroceryChecked,
		Title:   "GROCERY — " + ing.Name,
		Message: "Qty override cleared · by " + by,
	}
}

func GroceryItemAdded(ing *model.Ingredient, qty int, by string) Event {
	return Event{
		Type:    model.EventGroceryItemAdded,
		Title:   "GROCERY — " + ing.Name,
		Message: fmt.Sprintf("%s added · by %s", plural(qty, "item"), by),
	}
}
