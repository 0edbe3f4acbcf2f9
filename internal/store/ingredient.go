package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dukerupert/potluck/internal/model"
	"github.com/dukerupert/potluck/internal/search"
)

type IngredientStore struct {
	db *sql.DB
}

func NewIngredientStore(db *sql.DB) *IngredientStore {
	return &IngredientStore{db: db}
}

// ingredientCols expects the ingredients table aliased as i.
const ingredientCols = `i.id, i.product_id, i.name, i.size, i.aisle, i.category, i.image_url, i.price_cents,
	i.is_alcohol, i.gluten, i.dairy, i.egg, i.peanut, i.kosher, i.vegan, i.vegetarian,
	i.lactose_free, i.wheat_free, i.pork, i.shellfish, i.scraped_at, i.created_at, i.updated_at`

// ingredientDests returns scan destinations for ingredientCols. finish must
// be called after a successful scan.
func ingredientDests(ing *model.Ingredient) (dests []any, finish func()) {
	var aisle sql.NullString
	var scraped sql.NullTime
	var flags [12]int
	dests = []any{
		&ing.ID, &ing.ProductID, &ing.Name, &ing.Size, &aisle, &ing.Category, &ing.ImageURL, &ing.PriceCents,
	}
	for i := range flags {
		dests = append(dests, &flags[i])
	}
	dests = append(dests, &scraped, &ing.CreatedAt, &ing.UpdatedAt)
	finish = func() {
		ing.Aisle = aisle.String
		ing.ScrapedAt = timePtr(scraped)
		d := &ing.Dietary
		for i, f := range []*bool{
			&d.IsAlcohol, &d.Gluten, &d.Dairy, &d.Egg, &d.Peanut, &d.Kosher,
			&d.Vegan, &d.Vegetarian, &d.LactoseFree, &d.WheatFree, &d.Pork, &d.Shellfish,
		} {
			*f = flags[i] != 0
		}
	}
	return dests, finish
}

func scanIngredient(sc scanner) (*model.Ingredient, error) {
	var ing model.Ingredient
	dests, finish := ingredientDests(&ing)
	if err := sc.Scan(dests...); err != nil {
		return nil, err
	}
	finish()
	return &ing, nil
}

func (s *IngredientStore) queryIngredients(ctx context.Context, query string, args ...any) ([]model.Ingredient, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ingredients := []model.Ingredient{}
	for rows.Next() {
		ing, err := scanIngredient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ingredient: %w", err)
		}
		ingredients = append(ingredients, *ing)
	}
	return ingredients, rows.Err()
}

func (s *IngredientStore) Get(ctx context.Context, id int64) (*model.Ingredient, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+ingredientCols+` FROM ingredients i WHERE i.id = ?`, id)
	ing, err := scanIngredient(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ingredient: %w", err)
	}
	return ing, nil
}

func (s *IngredientStore) GetByProductID(ctx context.Context, productID string) (*model.Ingredient, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+ingredientCols+` FROM ingredients i WHERE i.product_id = ?`, productID)
	ing, err := scanIngredient(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ingredient by product id: %w", err)
	}
	return ing, nil
}

// All returns the whole catalog ordered by name.
func (s *IngredientStore) All(ctx context.Context) ([]model.Ingredient, error) {
	ingredients, err := s.queryIngredients(ctx, `SELECT `+ingredientCols+` FROM ingredients i ORDER BY i.name, i.id`)
	if err != nil {
		return nil, fmt.Errorf("list ingredients: %w", err)
	}
	return ingredients, nil
}

// Count returns the number of catalog entries.
func (s *IngredientStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ingredients`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count ingredients: %w", err)
	}
	return n, nil
}

// Search returns catalog entries matching every term of query, ranked the
// same way search.Rank ranks an in-memory catalog. limit <= 0 means no cap.
//
// SQLite LIKE only folds ASCII, so it is used as a prefilter when every term
// is ASCII; names containing other characters are always kept as candidates
// and the final decision is made by search.Rank.
func (s *IngredientStore) Search(ctx context.Context, query string, limit int) ([]model.Ingredient, error) {
	terms := search.Terms(query)
	if len(terms) == 0 {
		return []model.Ingredient{}, nil
	}

	q := `SELECT ` + ingredientCols + ` FROM ingredients i`
	var args []any
	if asciiOnly(terms) {
		conds := make([]string, len(terms))
		for i, t := range terms {
			conds[i] = `i.name LIKE ? ESCAPE '\'`
			args = append(args, "%"+escapeLike(t)+"%")
		}
		q += ` WHERE (` + strings.Join(conds, ` AND `) + `) OR i.name GLOB '*[^ -~]*'`
	}

	candidates, err := s.queryIngredients(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("search ingredients: %w", err)
	}
	return search.Rank(query, candidates, func(ing model.Ingredient) string { return ing.Name }, limit), nil
}

func asciiOnly(terms []string) bool {
	for _, t := range terms {
		for i := 0; i < len(t); i++ {
			if t[i] >= utf8.RuneSelf {
				return false
			}
		}
	}
	return true
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// Upsert inserts or refreshes catalog entries keyed by product_id in one
// transaction. It returns the number of rows written.
func (s *IngredientStore) Upsert(ctx context.Context, ingredients []model.Ingredient) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ingredients (product_id, name, size, aisle, category, image_url, price_cents,
			is_alcohol, gluten, dairy, egg, peanut, kosher, vegan, vegetarian,
			lactose_free, wheat_free, pork, shellfish, scraped_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(product_id) DO UPDATE SET
			name = excluded.name, size = excluded.size, aisle = excluded.aisle,
			category = excluded.category, image_url = excluded.image_url,
			price_cents = excluded.price_cents,
			is_alcohol = excluded.is_alcohol, gluten = excluded.gluten, dairy = excluded.dairy,
			egg = excluded.egg, peanut = excluded.peanut, kosher = excluded.kosher,
			vegan = excluded.vegan, vegetarian = excluded.vegetarian,
			lactose_free = excluded.lactose_free, wheat_free = excluded.wheat_free,
			pork = excluded.pork, shellfish = excluded.shellfish,
			scraped_at = excluded.scraped_at, updated_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, ing := range ingredients {
		d := ing.Dietary
		var scraped sql.NullTime
		if ing.ScrapedAt != nil {
			scraped = sql.NullTime{Time: *ing.ScrapedAt, Valid: true}
		}
		_, err := stmt.ExecContext(ctx,
			ing.ProductID, ing.Name, ing.Size, nullString(presence(ing.Aisle)), ing.Category, ing.ImageURL, ing.PriceCents,
			boolInt(d.IsAlcohol), boolInt(d.Gluten), boolInt(d.Dairy), boolInt(d.Egg), boolInt(d.Peanut), boolInt(d.Kosher),
			boolInt(d.Vegan), boolInt(d.Vegetarian), boolInt(d.LactoseFree), boolInt(d.WheatFree), boolInt(d.Pork), boolInt(d.Shellfish),
			scraped,
		)
		if err != nil {
			return 0, fmt.Errorf("upsert ingredient %s: %w", ing.ProductID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(ingredients), nil
}
