package reconcile

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/dukerupert/potluck/internal/model"
)

func items(pairs ...int) []model.DesiredItem {
	var out []model.DesiredItem
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, model.DesiredItem{IngredientID: int64(pairs[i]), Quantity: pairs[i+1]})
	}
	return out
}

func TestDiffClassifiesEveryIngredient(t *testing.T) {
	current := map[int64]int{1: 2, 2: 1}
	got := Diff(current, items(1, 2, 3, 4))

	want := Plan{
		Create:    items(3, 4),
		Delete:    []int64{2},
		Unchanged: []int64{1},
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}
	if got.Added() != 1 || got.Removed() != 1 {
		t.Errorf("added/removed = %d/%d, want 1/1", got.Added(), got.Removed())
	}
}

func TestDiffQuantityChange(t *testing.T) {
	got := Diff(map[int64]int{1: 2}, items(1, 5))
	if diff := cmp.Diff(items(1, 5), got.Update); diff != "" {
		t.Errorf("update mismatch:\n%s", diff)
	}
	if got.Added() != 0 || got.Removed() != 0 {
		t.Error("quantity changes are neither added nor removed")
	}
}

func TestDiffLastOccurrenceWins(t *testing.T) {
	got := Diff(map[int64]int{}, items(7, 1, 8, 2, 7, 3))
	if diff := cmp.Diff(items(7, 3, 8, 2), got.Create); diff != "" {
		t.Errorf("create mismatch:\n%s", diff)
	}
}

func TestDiffIdempotent(t *testing.T) {
	current := map[int64]int{1: 2, 3: 4}
	got := Diff(current, items(3, 4, 1, 2))
	if !got.Empty() {
		t.Errorf("expected empty plan, got %+v", got)
	}
}

func TestDiffEmptyDesiredDeletesAll(t *testing.T) {
	got := Diff(map[int64]int{9: 1, 4: 2, 6: 1}, nil)
	if diff := cmp.Diff([]int64{4, 6, 9}, got.Delete); diff != "" {
		t.Errorf("delete mismatch:\n%s", diff)
	}
}

func TestSummary(t *testing.T) {
	tests := []struct {
		added, removed int
		want           string
	}{
		{0, 0, "Details updated"},
		{1, 0, "1 item added"},
		{2, 0, "2 items added"},
		{0, 1, "1 item removed"},
		{3, 2, "3 items added, 2 items removed"},
	}
	for _, tt := range tests {
		if got := Summary(tt.added, tt.removed); got != tt.want {
			t.Errorf("Summary(%d, %d) = %q, want %q", tt.added, tt.removed, got, tt.want)
		}
	}
}
