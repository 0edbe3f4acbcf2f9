// Package grocery turns per-submission demand and organizer overrides into
// the consolidated shopping list.
package grocery

import (
	"cmp"
	"slices"
	"strings"

	"github.com/dukerupert/potluck/internal/model"
)

// Build joins aggregated demand with override records and groups the result
// by aisle. The override quantity, when set, replaces the aggregated sum as
// the effective total; both are reported.
func Build(rows []model.AggregateRow, checkins map[int64]model.GroceryCheckin) model.GroceryList {
	groups := map[string][]model.GroceryListItem{}
	var total int64

	for _, row := range rows {
		c, ok := checkins[row.Ingredient.ID]
		item := Item(row, c, ok)
		total += item.LineTotalCents
		label := AisleLabel(row.Ingredient.Aisle)
		groups[label] = append(groups[label], item)
	}

	labels := make([]string, 0, len(groups))
	for label := range groups {
		labels = append(labels, label)
	}
	SortAisles(labels)

	list := model.GroceryList{
		Aisles:     make([]model.AisleGroup, 0, len(labels)),
		TotalCents: total,
	}
	for _, label := range labels {
		items := groups[label]
		slices.SortStableFunc(items, func(a, b model.GroceryListItem) int {
			return cmp.Or(
				strings.Compare(strings.ToLower(a.Ingredient.Name), strings.ToLower(b.Ingredient.Name)),
				cmp.Compare(a.Ingredient.ID, b.Ingredient.ID),
			)
		})
		list.Aisles = append(list.Aisles, model.AisleGroup{Aisle: label, Items: items})
	}
	return list
}

// Item builds a single list entry. ok reports whether an override record
// exists for the ingredient.
func Item(row model.AggregateRow, c model.GroceryCheckin, ok bool) model.GroceryListItem {
	item := model.GroceryListItem{
		Ingredient:         row.Ingredient.View(model.VariantGroceryList),
		AggregatedQuantity: row.AggregatedQuantity,
		TotalQuantity:      row.AggregatedQuantity,
		Teams:              Teams(row.Teams),
	}
	if ok {
		item.Checked = c.Checked
		item.CheckedBy = c.CheckedBy
		item.CheckedAt = c.CheckedAt
		if c.QuantityOverride != nil {
			q := *c.QuantityOverride
			item.QuantityOverride = &q
			item.TotalQuantity = q
		}
	}
	item.LineTotalCents = row.Ingredient.PriceCents * int64(item.TotalQuantity)
	return item
}

// Teams returns the distinct non-empty team names, sorted.
func Teams(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n != "" {
			out = append(out, n)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
