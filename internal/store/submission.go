package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dukerupert/potluck/internal/apperr"
	"github.com/dukerupert/potluck/internal/model"
	"github.com/dukerupert/potluck/internal/phone"
	"github.com/dukerupert/potluck/internal/reconcile"
)

type SubmissionStore struct {
	db           *sql.DB
	uniquePhones bool
}

// NewSubmissionStore returns a store for submissions and their line items.
// When uniquePhones is set, a submission may not share a phone tail with
// any other submission.
func NewSubmissionStore(db *sql.DB, uniquePhones bool) *SubmissionStore {
	return &SubmissionStore{db: db, uniquePhones: uniquePhones}
}

const submissionCols = `s.id, s.reserved_key, s.team_name, s.dish_name, s.notes, s.country_code, s.members,
	s.phone_number, s.has_cooking_place, s.cooking_location, s.found_all_ingredients, s.needs_utensils,
	s.needs_fridge_space, s.utensils_notes, s.other_ingredients, s.equipment_allocated,
	s.helper_driver_needed, s.created_at, s.updated_at`

func scanSubmission(sc scanner) (*model.Submission, error) {
	var sub model.Submission
	var reserved sql.NullString
	var members string
	f := &sub.SubmissionFields
	err := sc.Scan(
		&sub.ID, &reserved, &f.TeamName, &f.DishName, &f.Notes, &f.CountryCode, &members,
		&f.PhoneNumber, &f.HasCookingPlace, &f.CookingLocation, &f.FoundAllIngredients, &f.NeedsUtensils,
		&f.NeedsFridgeSpace, &f.UtensilsNotes, &f.OtherIngredients, &f.EquipmentAllocated,
		&f.HelperDriverNeeded, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	sub.ReservedKey = reserved.String
	if err := json.Unmarshal([]byte(members), &f.Members); err != nil {
		return nil, fmt.Errorf("decode members of submission %d: %w", sub.ID, err)
	}
	return &sub, nil
}

const lineItemCols = `li.id, li.submission_id, li.ingredient_id, li.quantity, ` + ingredientCols

func scanLineItem(sc scanner) (*model.LineItem, error) {
	var li model.LineItem
	dests, finish := ingredientDests(&li.Ingredient)
	dests = append([]any{&li.ID, &li.SubmissionID, &li.IngredientID, &li.Quantity}, dests...)
	if err := sc.Scan(dests...); err != nil {
		return nil, err
	}
	finish()
	return &li, nil
}

// normalizeFields trims identity fields and drops blank member names.
func normalizeFields(f model.SubmissionFields) model.SubmissionFields {
	f.TeamName = strings.TrimSpace(f.TeamName)
	f.DishName = strings.TrimSpace(f.DishName)
	f.PhoneNumber = strings.TrimSpace(f.PhoneNumber)
	members := make([]string, 0, len(f.Members))
	for _, m := range f.Members {
		if m = strings.TrimSpace(m); m != "" {
			members = append(members, m)
		}
	}
	f.Members = members
	return f
}

func validateFields(f model.SubmissionFields) error {
	if f.DishName == "" {
		return apperr.Validation("Dish name can't be blank").WithDetails(map[string]any{"field": "dish_name"})
	}
	return nil
}

func validateItems(items []model.DesiredItem) error {
	for _, it := range items {
		if it.Quantity < 1 {
			return apperr.Validation("Quantity must be greater than 0").
				WithDetails(map[string]any{"field": "quantity", "ingredient_id": it.IngredientID})
		}
	}
	return nil
}

// checkPhone rejects a phone number whose tail is already used by another
// submission. exclude is the id of the submission being edited.
func (s *SubmissionStore) checkPhone(ctx context.Context, q querier, number string, exclude int64) error {
	if !s.uniquePhones || len(phone.Tails(number)) == 0 {
		return nil
	}
	rows, err := q.QueryContext(ctx, `SELECT id, phone_number FROM submissions WHERE phone_number != '' AND id != ?`, exclude)
	if err != nil {
		return fmt.Errorf("list phone numbers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var other string
		if err := rows.Scan(&id, &other); err != nil {
			return fmt.Errorf("scan phone number: %w", err)
		}
		if _, ok := phone.Overlap(number, other); ok {
			return apperr.Newf(apperr.CodeValidation, "Phone number %s is already used by another submission", other).
				WithDetails(map[string]any{"field": "phone_number", "submission_id": id})
		}
	}
	return rows.Err()
}

func ingredientExists(ctx context.Context, q querier, id int64) error {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM ingredients WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return fmt.Errorf("check ingredient: %w", err)
	}
	if n == 0 {
		return apperr.NotFound("Ingredient %d not found", id)
	}
	return nil
}

func encodeMembers(members []string) (string, error) {
	if members == nil {
		members = []string{}
	}
	b, err := json.Marshal(members)
	if err != nil {
		return "", fmt.Errorf("encode members: %w", err)
	}
	return string(b), nil
}

// Create stores a submission with its line items in one transaction.
// Repeated ingredients are summed into a single line item.
func (s *SubmissionStore) Create(ctx context.Context, fields model.SubmissionFields, items []model.DesiredItem) (*model.Submission, error) {
	fields = normalizeFields(fields)
	if err := validateFields(fields); err != nil {
		return nil, err
	}
	if err := validateItems(items); err != nil {
		return nil, err
	}
	members, err := encodeMembers(fields.Members)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := s.checkPhone(ctx, tx, fields.PhoneNumber, 0); err != nil {
		return nil, err
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO submissions (team_name, dish_name, notes, country_code, members, phone_number,
			has_cooking_place, cooking_location, found_all_ingredients, needs_utensils, needs_fridge_space,
			utensils_notes, other_ingredients, equipment_allocated, helper_driver_needed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fields.TeamName, fields.DishName, fields.Notes, fields.CountryCode, members, fields.PhoneNumber,
		fields.HasCookingPlace, fields.CookingLocation, fields.FoundAllIngredients, fields.NeedsUtensils,
		fields.NeedsFridgeSpace, fields.UtensilsNotes, fields.OtherIngredients, fields.EquipmentAllocated,
		fields.HelperDriverNeeded,
	)
	if err != nil {
		return nil, fmt.Errorf("insert submission: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	for _, it := range items {
		if err := addLineItem(ctx, tx, id, it.IngredientID, it.Quantity); err != nil {
			return nil, err
		}
	}

	sub, err := getSubmission(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return sub, nil
}

// addLineItem creates the line item or increments its quantity.
func addLineItem(ctx context.Context, q querier, submissionID, ingredientID int64, qty int) error {
	if err := ingredientExists(ctx, q, ingredientID); err != nil {
		return err
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO submission_ingredients (submission_id, ingredient_id, quantity) VALUES (?, ?, ?)
		ON CONFLICT(submission_id, ingredient_id) DO UPDATE SET
			quantity = quantity + excluded.quantity, updated_at = CURRENT_TIMESTAMP`,
		submissionID, ingredientID, qty,
	)
	if err != nil {
		return fmt.Errorf("add line item: %w", err)
	}
	return nil
}

func getSubmission(ctx context.Context, q querier, id int64) (*model.Submission, error) {
	row := q.QueryRowContext(ctx, `SELECT `+submissionCols+` FROM submissions s WHERE s.id = ?`, id)
	sub, err := scanSubmission(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	items, err := lineItems(ctx, q, `WHERE li.submission_id = ?`, id)
	if err != nil {
		return nil, err
	}
	sub.Items = items[id]
	return sub, nil
}

// lineItems loads line items with their ingredients, grouped by submission.
func lineItems(ctx context.Context, q querier, where string, args ...any) (map[int64][]model.LineItem, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+lineItemCols+`
		FROM submission_ingredients li JOIN ingredients i ON i.id = li.ingredient_id `+where+`
		ORDER BY li.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list line items: %w", err)
	}
	defer rows.Close()

	items := map[int64][]model.LineItem{}
	for rows.Next() {
		li, err := scanLineItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan line item: %w", err)
		}
		items[li.SubmissionID] = append(items[li.SubmissionID], *li)
	}
	return items, rows.Err()
}

func (s *SubmissionStore) Get(ctx context.Context, id int64) (*model.Submission, error) {
	return getSubmission(ctx, s.db, id)
}

func (s *SubmissionStore) listWhere(ctx context.Context, where string, args ...any) ([]model.Submission, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+submissionCols+` FROM submissions s `+where+`
		ORDER BY s.created_at DESC, s.id DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	var subs []model.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		subs = append(subs, *sub)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return subs, nil
}

// List returns every submission with its line items, newest first.
func (s *SubmissionStore) List(ctx context.Context) ([]model.Submission, error) {
	subs, err := s.listWhere(ctx, "")
	if err != nil {
		return nil, err
	}
	items, err := lineItems(ctx, s.db, "")
	if err != nil {
		return nil, err
	}
	for i := range subs {
		subs[i].Items = items[subs[i].ID]
	}
	if subs == nil {
		subs = []model.Submission{}
	}
	return subs, nil
}

// FindByPhone returns the newest submission with a stored number whose tail
// equals the tail of raw, or nil when none matches.
func (s *SubmissionStore) FindByPhone(ctx context.Context, raw string) (*model.Submission, error) {
	tail, ok := phone.Tail(raw)
	if !ok {
		return nil, apperr.Validation("Phone required").WithDetails(map[string]any{"field": "phone"})
	}
	subs, err := s.listWhere(ctx, `WHERE s.phone_number != ''`)
	if err != nil {
		return nil, err
	}
	for _, sub := range subs {
		if phone.Matches(sub.PhoneNumber, tail) {
			return s.Get(ctx, sub.ID)
		}
	}
	return nil, nil
}

// Update replaces the scalar fields of a submission and, when items is not
// nil, reconciles its line items against items. Both happen in a single
// transaction; on any error the submission is left as it was. The returned
// plan describes the line item changes that were applied.
func (s *SubmissionStore) Update(ctx context.Context, id int64, fields model.SubmissionFields, items []model.DesiredItem) (*model.Submission, reconcile.Plan, error) {
	var plan reconcile.Plan
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, plan, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	current, err := getSubmission(ctx, tx, id)
	if err != nil {
		return nil, plan, err
	}
	if current == nil {
		return nil, plan, apperr.NotFound("Submission %d not found", id)
	}

	fields = normalizeFields(fields)
	if err := validateFields(fields); err != nil {
		return nil, plan, err
	}
	desired := reconcile.Desired(items)
	if err := validateItems(desired); err != nil {
		return nil, plan, err
	}
	members, err := encodeMembers(fields.Members)
	if err != nil {
		return nil, plan, err
	}
	if err := s.checkPhone(ctx, tx, fields.PhoneNumber, id); err != nil {
		return nil, plan, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE submissions SET team_name = ?, dish_name = ?, notes = ?, country_code = ?, members = ?,
			phone_number = ?, has_cooking_place = ?, cooking_location = ?, found_all_ingredients = ?,
			needs_utensils = ?, needs_fridge_space = ?, utensils_notes = ?, other_ingredients = ?,
			equipment_allocated = ?, helper_driver_needed = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		fields.TeamName, fields.DishName, fields.Notes, fields.CountryCode, members,
		fields.PhoneNumber, fields.HasCookingPlace, fields.CookingLocation, fields.FoundAllIngredients,
		fields.NeedsUtensils, fields.NeedsFridgeSpace, fields.UtensilsNotes, fields.OtherIngredients,
		fields.EquipmentAllocated, fields.HelperDriverNeeded, id,
	)
	if err != nil {
		return nil, plan, fmt.Errorf("update submission: %w", err)
	}

	if items != nil {
		have := make(map[int64]int, len(current.Items))
		for _, li := range current.Items {
			have[li.IngredientID] = li.Quantity
		}
		plan = reconcile.Diff(have, desired)
		if err := applyPlan(ctx, tx, id, plan); err != nil {
			return nil, reconcile.Plan{}, err
		}
	}

	sub, err := getSubmission(ctx, tx, id)
	if err != nil {
		return nil, reconcile.Plan{}, err
	}
	if err := tx.Commit(); err != nil {
		return nil, reconcile.Plan{}, fmt.Errorf("commit: %w", err)
	}
	return sub, plan, nil
}

func applyPlan(ctx context.Context, tx *sql.Tx, submissionID int64, plan reconcile.Plan) error {
	for _, ingredientID := range plan.Delete {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM submission_ingredients WHERE submission_id = ? AND ingredient_id = ?`,
			submissionID, ingredientID,
		)
		if err != nil {
			return fmt.Errorf("delete line item: %w", err)
		}
	}
	for _, it := range plan.Update {
		_, err := tx.ExecContext(ctx,
			`UPDATE submission_ingredients SET quantity = ?, updated_at = CURRENT_TIMESTAMP WHERE submission_id = ? AND ingredient_id = ?`,
			it.Quantity, submissionID, it.IngredientID,
		)
		if err != nil {
			return fmt.Errorf("update line item: %w", err)
		}
	}
	for _, it := range plan.Create {
		if err := ingredientExists(ctx, tx, it.IngredientID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO submission_ingredients (submission_id, ingredient_id, quantity) VALUES (?, ?, ?)`,
			submissionID, it.IngredientID, it.Quantity,
		)
		if err != nil {
			return fmt.Errorf("create line item: %w", err)
		}
	}
	return nil
}

// Delete removes a submission and its line items and returns what was
// deleted.
func (s *SubmissionStore) Delete(ctx context.Context, id int64) (*model.Submission, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	sub, err := getSubmission(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, apperr.NotFound("Submission %d not found", id)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM submissions WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("delete submission: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return sub, nil
}

// AddIngredient adds qty (at least 1) of an ingredient to a submission,
// incrementing an existing line item. It returns the updated submission and
// the affected ingredient.
func (s *SubmissionStore) AddIngredient(ctx context.Context, submissionID, ingredientID int64, qty int) (*model.Submission, *model.Ingredient, error) {
	if qty < 1 {
		qty = 1
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := submissionExists(ctx, tx, submissionID); err != nil {
		return nil, nil, err
	}
	if err := addLineItem(ctx, tx, submissionID, ingredientID, qty); err != nil {
		return nil, nil, err
	}
	sub, ing, err := submissionWithIngredient(ctx, tx, submissionID, ingredientID)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit: %w", err)
	}
	return sub, ing, nil
}

// SetIngredientQuantity sets the quantity of an existing line item. A
// quantity below 1 deletes the line item; removed reports that case.
func (s *SubmissionStore) SetIngredientQuantity(ctx context.Context, submissionID, ingredientID int64, qty int) (sub *model.Submission, ing *model.Ingredient, removed bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := submissionExists(ctx, tx, submissionID); err != nil {
		return nil, nil, false, err
	}
	var result sql.Result
	if qty < 1 {
		removed = true
		result, err = tx.ExecContext(ctx,
			`DELETE FROM submission_ingredients WHERE submission_id = ? AND ingredient_id = ?`,
			submissionID, ingredientID,
		)
	} else {
		result, err = tx.ExecContext(ctx,
			`UPDATE submission_ingredients SET quantity = ?, updated_at = CURRENT_TIMESTAMP WHERE submission_id = ? AND ingredient_id = ?`,
			qty, submissionID, ingredientID,
		)
	}
	if err != nil {
		return nil, nil, false, fmt.Errorf("set line item quantity: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, nil, false, fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return nil, nil, false, apperr.NotFound("Ingredient %d is not part of submission %d", ingredientID, submissionID)
	}

	sub, ing, err = submissionWithIngredient(ctx, tx, submissionID, ingredientID)
	if err != nil {
		return nil, nil, false, err
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, false, fmt.Errorf("commit: %w", err)
	}
	return sub, ing, removed, nil
}

func submissionExists(ctx context.Context, q querier, id int64) error {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM submissions WHERE id = ?`, id).Scan(&n); err != nil {
		return fmt.Errorf("check submission: %w", err)
	}
	if n == 0 {
		return apperr.NotFound("Submission %d not found", id)
	}
	return nil
}

func submissionWithIngredient(ctx context.Context, q querier, submissionID, ingredientID int64) (*model.Submission, *model.Ingredient, error) {
	sub, err := getSubmission(ctx, q, submissionID)
	if err != nil {
		return nil, nil, err
	}
	row := q.QueryRowContext(ctx, `SELECT `+ingredientCols+` FROM ingredients i WHERE i.id = ?`, ingredientID)
	ing, err := scanIngredient(row)
	if err != nil {
		return nil, nil, fmt.Errorf("get ingredient: %w", err)
	}
	return sub, ing, nil
}
