// Package reconcile diffs a submission's stored line items against the
// ingredient set a caller wants it to have.
package reconcile

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dukerupert/potluck/internal/model"
)

// Plan lists the line item operations that turn current into desired.
// Create and Update keep the order ingredients first appeared in the
// request; Delete is ordered by ingredient id.
type Plan struct {
	Create    []model.DesiredItem
	Update    []model.DesiredItem
	Delete    []int64
	Unchanged []int64
}

// Added is the number of ingredients new to the submission.
func (p Plan) Added() int { return len(p.Create) }

// Removed is the number of ingredients dropped from the submission.
func (p Plan) Removed() int { return len(p.Delete) }

// Empty reports whether applying the plan would change nothing.
func (p Plan) Empty() bool {
	return len(p.Create) == 0 && len(p.Update) == 0 && len(p.Delete) == 0
}

// Desired collapses requested items into one quantity per ingredient.
// When an ingredient repeats, its last quantity wins but it keeps the
// position of its first appearance.
func Desired(items []model.DesiredItem) []model.DesiredItem {
	index := make(map[int64]int, len(items))
	var out []model.DesiredItem
	for _, it := range items {
		if i, ok := index[it.IngredientID]; ok {
			out[i].Quantity = it.Quantity
			continue
		}
		index[it.IngredientID] = len(out)
		out = append(out, it)
	}
	return out
}

// Diff compares current (ingredient id -> stored quantity) with the desired
// items and classifies every ingredient id.
func Diff(current map[int64]int, desired []model.DesiredItem) Plan {
	var p Plan
	want := Desired(desired)
	wanted := make(map[int64]bool, len(want))
	for _, it := range want {
		wanted[it.IngredientID] = true
		qty, ok := current[it.IngredientID]
		switch {
		case !ok:
			p.Create = append(p.Create, it)
		case qty != it.Quantity:
			p.Update = append(p.Update, it)
		default:
			p.Unchanged = append(p.Unchanged, it.IngredientID)
		}
	}
	for id := range current {
		if !wanted[id] {
			p.Delete = append(p.Delete, id)
		}
	}
	slices.Sort(p.Delete)
	return p
}

// Summary renders added/removed counts for the change notification,
// e.g. "2 items added, 1 item removed" or "Details updated".
func Summary(added, removed int) string {
	var parts []string
	if added > 0 {
		parts = append(parts, fmt.Sprintf("%d %s added", added, plural(added, "item")))
	}
	if removed > 0 {
		parts = append(parts, fmt.Sprintf("%d %s removed", removed, plural(removed, "item")))
	}
	if len(parts) == 0 {
		return "Details updated"
	}
	return strings.Join(parts, ", ")
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
