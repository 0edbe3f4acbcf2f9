package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/potluck/internal/apperr"
	"github.com/dukerupert/potluck/internal/grocery"
	"github.com/dukerupert/potluck/internal/model"
)

type GroceryStore struct {
	db *sql.DB
}

func NewGroceryStore(db *sql.DB) *GroceryStore {
	return &GroceryStore{db: db}
}

const checkinCols = `c.id, c.ingredient_id, c.checked, c.checked_by, c.checked_at, c.quantity_override, c.created_at, c.updated_at`

// teamSeparator joins team names inside the aggregate query.
const teamSeparator = "\x1f"

func scanCheckin(sc scanner) (*model.GroceryCheckin, error) {
	var c model.GroceryCheckin
	var checked int
	var checkedBy sql.NullString
	var checkedAt sql.NullTime
	var override sql.NullInt64
	err := sc.Scan(&c.ID, &c.IngredientID, &checked, &checkedBy, &checkedAt, &override, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.Checked = checked != 0
	c.CheckedBy = stringPtr(checkedBy)
	c.CheckedAt = timePtr(checkedAt)
	if override.Valid {
		q := int(override.Int64)
		c.QuantityOverride = &q
	}
	return &c, nil
}

// Aggregate sums line item quantities per ingredient across all submissions
// and returns the override records of those ingredients. It reads both in a
// single statement so the two always agree.
func (s *GroceryStore) Aggregate(ctx context.Context) ([]model.AggregateRow, map[int64]model.GroceryCheckin, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+ingredientCols+`, SUM(li.quantity), GROUP_CONCAT(s.team_name, ?),
			c.id, c.checked, c.checked_by, c.checked_at, c.quantity_override, c.created_at, c.updated_at
		FROM submission_ingredients li
		JOIN submissions s ON s.id = li.submission_id
		JOIN ingredients i ON i.id = li.ingredient_id
		LEFT JOIN grocery_checkins c ON c.ingredient_id = i.id
		GROUP BY i.id
		ORDER BY i.id`, teamSeparator)
	if err != nil {
		return nil, nil, fmt.Errorf("aggregate line items: %w", err)
	}
	defer rows.Close()

	var out []model.AggregateRow
	checkins := map[int64]model.GroceryCheckin{}
	for rows.Next() {
		var row model.AggregateRow
		var teams sql.NullString
		var (
			cID        sql.NullInt64
			cChecked   sql.NullInt64
			cBy        sql.NullString
			cAt        sql.NullTime
			cOverride  sql.NullInt64
			cCreatedAt sql.NullTime
			cUpdatedAt sql.NullTime
		)
		dests, finish := ingredientDests(&row.Ingredient)
		dests = append(dests, &row.AggregatedQuantity, &teams,
			&cID, &cChecked, &cBy, &cAt, &cOverride, &cCreatedAt, &cUpdatedAt)
		if err := rows.Scan(dests...); err != nil {
			return nil, nil, fmt.Errorf("scan aggregate row: %w", err)
		}
		finish()
		if teams.Valid {
			row.Teams = strings.Split(teams.String, teamSeparator)
		}
		out = append(out, row)

		if cID.Valid {
			c := model.GroceryCheckin{
				ID:           cID.Int64,
				IngredientID: row.Ingredient.ID,
				Checked:      cChecked.Int64 != 0,
				CheckedBy:    stringPtr(cBy),
				CheckedAt:    timePtr(cAt),
				CreatedAt:    cCreatedAt.Time,
				UpdatedAt:    cUpdatedAt.Time,
			}
			if cOverride.Valid {
				q := int(cOverride.Int64)
				c.QuantityOverride = &q
			}
			checkins[row.Ingredient.ID] = c
		}
	}
	return out, checkins, rows.Err()
}

// ShoppingList recomputes the aggregated shopping list from current state.
func (s *GroceryStore) ShoppingList(ctx context.Context) (model.GroceryList, error) {
	rows, checkins, err := s.Aggregate(ctx)
	if err != nil {
		return model.GroceryList{}, err
	}
	return grocery.Build(rows, checkins), nil
}

func getCheckin(ctx context.Context, q querier, ingredientID int64) (*model.GroceryCheckin, error) {
	row := q.QueryRowContext(ctx, `SELECT `+checkinCols+` FROM grocery_checkins c WHERE c.ingredient_id = ?`, ingredientID)
	c, err := scanCheckin(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get checkin: %w", err)
	}
	return c, nil
}

// UpdateCheckin finds or creates the override record of an ingredient and
// applies the fields present in upd. checked_by and checked_at are set
// together when the item becomes checked and cleared together when it is
// unchecked; checking an already checked item keeps the original stamp.
func (s *GroceryStore) UpdateCheckin(ctx context.Context, ingredientID int64, upd model.CheckinUpdate, by string) (*model.GroceryCheckin, error) {
	if upd.Quantity != nil && *upd.Quantity < 0 {
		return nil, apperr.Validation("Quantity override must be greater than or equal to 0").
			WithDetails(map[string]any{"field": "quantity"})
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := ingredientExists(ctx, tx, ingredientID); err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO grocery_checkins (ingredient_id) VALUES (?) ON CONFLICT(ingredient_id) DO NOTHING`,
		ingredientID,
	)
	if err != nil {
		return nil, fmt.Errorf("create checkin: %w", err)
	}
	c, err := getCheckin(ctx, tx, ingredientID)
	if err != nil {
		return nil, err
	}

	if upd.Checked != nil {
		switch {
		case *upd.Checked && !c.Checked:
			_, err = tx.ExecContext(ctx,
				`UPDATE grocery_checkins SET checked = 1, checked_by = ?, checked_at = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
				by, time.Now().UTC(), c.ID,
			)
		case !*upd.Checked:
			_, err = tx.ExecContext(ctx,
				`UPDATE grocery_checkins SET checked = 0, checked_by = NULL, checked_at = NULL, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
				c.ID,
			)
		}
		if err != nil {
			return nil, fmt.Errorf("update checked: %w", err)
		}
	}
	if upd.Quantity != nil {
		_, err = tx.ExecContext(ctx,
			`UPDATE grocery_checkins SET quantity_override = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			*upd.Quantity, c.ID,
		)
		if err != nil {
			return nil, fmt.Errorf("update quantity override: %w", err)
		}
	}

	c, err = getCheckin(ctx, tx, ingredientID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return c, nil
}

// ClearOverride drops the quantity override of an ingredient so its total
// falls back to aggregated demand. It returns the override record, or nil
// when the ingredient never had one.
func (s *GroceryStore) ClearOverride(ctx context.Context, ingredientID int64) (*model.GroceryCheckin, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := ingredientExists(ctx, tx, ingredientID); err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE grocery_checkins SET quantity_override = NULL, updated_at = CURRENT_TIMESTAMP WHERE ingredient_id = ?`,
		ingredientID,
	)
	if err != nil {
		return nil, fmt.Errorf("clear quantity override: %w", err)
	}
	c, err := getCheckin(ctx, tx, ingredientID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return c, nil
}

// organizerBucket returns the id of the reserved organizer submission,
// creating it on first use. The unique reserved_key makes concurrent first
// use converge on one row.
func organizerBucket(ctx context.Context, q querier) (int64, error) {
	_, err := q.ExecContext(ctx, `
		INSERT INTO submissions (reserved_key, team_name, dish_name) VALUES (?, ?, ?)
		ON CONFLICT(reserved_key) DO NOTHING`,
		model.OrganizerReservedKey, model.OrganizerTeamName, model.OrganizerDishName,
	)
	if err != nil {
		return 0, fmt.Errorf("create organizer submission: %w", err)
	}
	var id int64
	err = q.QueryRowContext(ctx, `SELECT id FROM submissions WHERE reserved_key = ?`, model.OrganizerReservedKey).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("get organizer submission: %w", err)
	}
	return id, nil
}

// AddItem puts an ingredient on the shopping list without a participant
// submission by adding it to the reserved organizer submission. qty below
// 1 counts as 1.
func (s *GroceryStore) AddItem(ctx context.Context, ingredientID int64, qty int) (*model.Ingredient, error) {
	if qty < 1 {
		qty = 1
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	bucket, err := organizerBucket(ctx, tx)
	if err != nil {
		return nil, err
	}
	if err := addLineItem(ctx, tx, bucket, ingredientID, qty); err != nil {
		return nil, err
	}
	row := tx.QueryRowContext(ctx, `SELECT `+ingredientCols+` FROM ingredients i WHERE i.id = ?`, ingredientID)
	ing, err := scanIngredient(row)
	if err != nil {
		return nil, fmt.Errorf("get ingredient: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return ing, nil
}
