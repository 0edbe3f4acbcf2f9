package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/dukerupert/potluck/internal/model"
	"github.com/dukerupert/potluck/internal/search"
)

func names(ings []model.Ingredient) []string {
	out := make([]string, len(ings))
	for i, ing := range ings {
		out[i] = ing.Name
	}
	return out
}

func TestIngredientUpsertAndGet(t *testing.T) {
	db := setupTestDB(t)
	is := NewIngredientStore(db)
	ctx := context.Background()
	scraped := time.Date(2026, 2, 22, 0, 0, 0, 0, time.UTC)

	milk := ingredient("G1", "Whole Milk", "Dairy", 349)
	milk.Dietary = model.Dietary{Dairy: true, Vegetarian: true}
	milk.ScrapedAt = &scraped
	if n, err := is.Upsert(ctx, []model.Ingredient{milk, ingredient("G2", "Limes", "", 33)}); err != nil || n != 2 {
		t.Fatalf("upsert = %d, %v", n, err)
	}

	got, err := is.GetByProductID(ctx, "G1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Whole Milk" || got.PriceCents != 349 || got.Aisle != "Dairy" {
		t.Errorf("got %+v", got)
	}
	if !got.Dietary.Dairy || !got.Dietary.Vegetarian || got.Dietary.Vegan {
		t.Errorf("dietary = %+v", got.Dietary)
	}
	if got.ScrapedAt == nil || !got.ScrapedAt.Equal(scraped) {
		t.Errorf("scraped_at = %v", got.ScrapedAt)
	}

	limes, _ := is.GetByProductID(ctx, "G2")
	if limes.Aisle != "" {
		t.Errorf("aisle = %q, want empty", limes.Aisle)
	}

	// Re-import updates in place.
	milk.PriceCents = 399
	if _, err := is.Upsert(ctx, []model.Ingredient{milk}); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	again, _ := is.Get(ctx, got.ID)
	if again.PriceCents != 399 {
		t.Errorf("price after re-import = %d", again.PriceCents)
	}
	if n, _ := is.Count(ctx); n != 2 {
		t.Errorf("count = %d, want 2", n)
	}

	missing, err := is.Get(ctx, 9999)
	if err != nil || missing != nil {
		t.Errorf("missing = %v, %v", missing, err)
	}
}

func TestIngredientAllOrderedByName(t *testing.T) {
	db := setupTestDB(t)
	seedCatalog(t, db,
		ingredient("3", "Zucchini", "Produce", 100),
		ingredient("1", "Apples", "Produce", 100),
		ingredient("2", "Milk", "Dairy", 100),
	)
	all, err := NewIngredientStore(db).All(context.Background())
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if diff := cmp.Diff([]string{"Apples", "Milk", "Zucchini"}, names(all)); diff != "" {
		t.Errorf("order (-want +got):\n%s", diff)
	}
}

func TestIngredientSearchMatchesInMemoryRanking(t *testing.T) {
	db := setupTestDB(t)
	catalog := []model.Ingredient{
		ingredient("1", "Chocolate Milk", "", 1),
		ingredient("2", "Milk", "", 1),
		ingredient("3", "Buttermilk", "", 1),
		ingredient("4", "Milk 2%", "", 1),
		ingredient("5", "Philadelphia Cream Cheese", "", 1),
		ingredient("6", "Cheese Cream Sauce", "", 1),
		ingredient("7", "Crème Fraîche", "", 1),
		ingredient("8", "Oat_Milk Blend", "", 1),
		ingredient("9", "Eggs", "", 1),
	}
	seedCatalog(t, db, catalog...)
	is := NewIngredientStore(db)
	ctx := context.Background()

	all, err := is.All(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	name := func(ing model.Ingredient) string { return ing.Name }

	for _, q := range []string{"milk", "MILK", "cream cheese", "crème", "CRÈME fr", "_milk", "2%", "m", " ", "zzz"} {
		got, err := is.Search(ctx, q, 500)
		if err != nil {
			t.Fatalf("search %q: %v", q, err)
		}
		want := search.Rank(q, all, name, 500)
		if diff := cmp.Diff(names(want), names(got)); diff != "" {
			t.Errorf("search %q differs from mirror (-mirror +db):\n%s", q, diff)
		}
	}

	got, _ := is.Search(ctx, "milk", 500)
	want := []string{"Milk", "Milk 2%", "Oat_Milk Blend", "Buttermilk", "Chocolate Milk"}
	if diff := cmp.Diff(want, names(got)); diff != "" {
		t.Errorf("milk ranking (-want +got):\n%s", diff)
	}

	capped, _ := is.Search(ctx, "milk", 2)
	if len(capped) != 2 {
		t.Errorf("capped len = %d, want 2", len(capped))
	}

	short, _ := is.Search(ctx, " m ", 500)
	if short == nil || len(short) != 0 {
		t.Errorf("short query = %v, want empty non-nil", short)
	}
}
