package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dukerupert/potluck/internal/database"
	"github.com/dukerupert/potluck/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// seedCatalog inserts ingredients and returns them keyed by product id.
func seedCatalog(t *testing.T, db *sql.DB, ings ...model.Ingredient) map[string]model.Ingredient {
	t.Helper()
	ctx := context.Background()
	is := NewIngredientStore(db)
	if _, err := is.Upsert(ctx, ings); err != nil {
		t.Fatalf("upsert catalog: %v", err)
	}
	out := make(map[string]model.Ingredient, len(ings))
	for _, in := range ings {
		got, err := is.GetByProductID(ctx, in.ProductID)
		if err != nil || got == nil {
			t.Fatalf("get %s: %v", in.ProductID, err)
		}
		out[in.ProductID] = *got
	}
	return out
}

func ingredient(productID, name, aisle string, priceCents int64) model.Ingredient {
	return model.Ingredient{ProductID: productID, Name: name, Aisle: aisle, PriceCents: priceCents}
}

func quantities(sub *model.Submission) map[int64]int {
	out := map[int64]int{}
	for _, li := range sub.Items {
		out[li.IngredientID] = li.Quantity
	}
	return out
}
