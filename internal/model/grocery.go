package model

import (
	"bytes"
	"encoding/json"
	"time"
)

// GroceryCheckin is the organizer override for one ingredient.
type GroceryCheckin struct {
	ID               int64      `json:"id"`
	IngredientID     int64      `json:"ingredient_id"`
	Checked          bool       `json:"checked"`
	CheckedBy        *string    `json:"checked_by"`
	CheckedAt        *time.Time `json:"checked_at"`
	QuantityOverride *int       `json:"quantity_override"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// CheckinUpdate is a partial override mutation. Nil fields are left untouched.
type CheckinUpdate struct {
	Checked  *bool
	Quantity *int
}

// AggregateRow is the summed demand for one ingredient across all submissions.
type AggregateRow struct {
	Ingredient         Ingredient
	AggregatedQuantity int
	Teams              []string
}

type GroceryListItem struct {
	Ingredient         IngredientView `json:"ingredient"`
	TotalQuantity      int            `json:"total_quantity"`
	AggregatedQuantity int            `json:"aggregated_quantity"`
	QuantityOverride   *int           `json:"quantity_override"`
	LineTotalCents     int64          `json:"line_total_cents"`
	Teams              []string       `json:"teams"`
	Checked            bool           `json:"checked"`
	CheckedBy          *string        `json:"checked_by"`
	CheckedAt          *time.Time     `json:"checked_at"`
}

type AisleGroup struct {
	Aisle string
	Items []GroceryListItem
}

// GroceryList is the aggregated shopping list, aisles already in display order.
type GroceryList struct {
	Aisles     []AisleGroup
	TotalCents int64
}

// MarshalJSON encodes aisles as an object whose keys keep display order.
// aisle_order repeats that order for decoders that do not preserve keys.
func (g GroceryList) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"aisles":{`)
	order := make([]string, 0, len(g.Aisles))
	for i, a := range g.Aisles {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(a.Aisle)
		if err != nil {
			return nil, err
		}
		items := a.Items
		if items == nil {
			items = []GroceryListItem{}
		}
		val, err := json.Marshal(items)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
		order = append(order, a.Aisle)
	}
	buf.WriteString(`},"aisle_order":`)
	o, err := json.Marshal(order)
	if err != nil {
		return nil, err
	}
	buf.Write(o)
	buf.WriteString(`,"total_cents":`)
	t, _ := json.Marshal(g.TotalCents)
	buf.Write(t)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON rebuilds aisle order from aisle_order.
func (g *GroceryList) UnmarshalJSON(data []byte) error {
	var raw struct {
		Aisles     map[string][]GroceryListItem `json:"aisles"`
		AisleOrder []string                     `json:"aisle_order"`
		TotalCents int64                        `json:"total_cents"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	g.TotalCents = raw.TotalCents
	g.Aisles = make([]AisleGroup, 0, len(raw.AisleOrder))
	for _, name := range raw.AisleOrder {
		g.Aisles = append(g.Aisles, AisleGroup{Aisle: name, Items: raw.Aisles[name]})
	}
	return nil
}

// Item returns the list entry for an ingredient, if present.
func (g GroceryList) Item(ingredientID int64) (GroceryListItem, bool) {
	for _, a := range g.Aisles {
		for _, it := range a.Items {
			if it.Ingredient.ID == ingredientID {
				return it, true
			}
		}
	}
	return GroceryListItem{}, false
}
