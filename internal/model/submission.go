package model

import "time"

// OrganizerReservedKey identifies the submission that holds items organizers
// add directly to the grocery list.
const OrganizerReservedKey = "organizer"

const (
	OrganizerTeamName = "Organizer"
	OrganizerDishName = "Organizer additions"
)

type Submission struct {
	ID          int64  `json:"id"`
	ReservedKey string `json:"-"`
	SubmissionFields
	CreatedAt time.Time  `json:"submitted_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Items     []LineItem `json:"-"`
}

// IsOrganizerBucket reports whether this is the reserved organizer submission.
func (s Submission) IsOrganizerBucket() bool {
	return s.ReservedKey == OrganizerReservedKey
}

// SubmissionFields are the scalar, user-editable fields of a submission.
type SubmissionFields struct {
	TeamName            string   `json:"team_name"`
	DishName            string   `json:"dish_name"`
	Notes               string   `json:"notes"`
	CountryCode         string   `json:"country_code"`
	Members             []string `json:"members"`
	PhoneNumber         string   `json:"phone_number"`
	HasCookingPlace     string   `json:"has_cooking_place"`
	CookingLocation     string   `json:"cooking_location"`
	FoundAllIngredients string   `json:"found_all_ingredients"`
	NeedsUtensils       string   `json:"needs_utensils"`
	NeedsFridgeSpace    string   `json:"needs_fridge_space"`
	UtensilsNotes       string   `json:"utensils_notes"`
	OtherIngredients    string   `json:"other_ingredients"`
	EquipmentAllocated  string   `json:"equipment_allocated"`
	HelperDriverNeeded  string   `json:"helper_driver_needed"`
}

// LineItem is one (submission, ingredient, quantity) record. Quantity is
// always positive once stored.
type LineItem struct {
	ID           int64      `json:"id"`
	SubmissionID int64      `json:"submission_id"`
	IngredientID int64      `json:"ingredient_id"`
	Quantity     int        `json:"quantity"`
	Ingredient   Ingredient `json:"-"`
}

// DesiredItem is a requested (ingredient, quantity) pair.
type DesiredItem struct {
	IngredientID int64
	Quantity     int
}

type SubmissionView struct {
	ID int64 `json:"id"`
	SubmissionFields
	SubmittedAt time.Time      `json:"submitted_at"`
	Ingredients []LineItemView `json:"ingredients"`
}

type LineItemView struct {
	Ingredient IngredientView `json:"ingredient"`
	Quantity   int            `json:"quantity"`
}

// View renders the submission with its line items in summary form.
func (s Submission) View() SubmissionView {
	v := SubmissionView{
		ID:               s.ID,
		SubmissionFields: s.SubmissionFields,
		SubmittedAt:      s.CreatedAt,
		Ingredients:      make([]LineItemView, 0, len(s.Items)),
	}
	if v.Members == nil {
		v.Members = []string{}
	}
	for _, li := range s.Items {
		v.Ingredients = append(v.Ingredients, LineItemView{
			Ingredient: li.Ingredient.View(VariantSummary),
			Quantity:   li.Quantity,
		})
	}
	return v
}
