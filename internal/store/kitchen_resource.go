package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dukerupert/potluck/internal/apperr"
	"github.com/dukerupert/potluck/internal/model"
)

type KitchenResourceStore struct {
	db *sql.DB
}

func NewKitchenResourceStore(db *sql.DB) *KitchenResourceStore {
	return &KitchenResourceStore{db: db}
}

const resourceCols = `id, kind, name, position, point_person, phone, is_driver, created_at, updated_at`

func scanResource(sc scanner) (*model.KitchenResource, error) {
	var r model.KitchenResource
	var pointPerson, phone string
	var isDriver int
	err := sc.Scan(&r.ID, &r.Kind, &r.Name, &r.Position, &pointPerson, &phone, &isDriver, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.PointPerson = presence(pointPerson)
	r.Phone = presence(phone)
	r.IsDriver = isDriver != 0
	return &r, nil
}

// List returns all resources ordered by kind, position and id.
func (s *KitchenResourceStore) List(ctx context.Context) ([]model.KitchenResource, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+resourceCols+` FROM kitchen_resources ORDER BY kind, position, id`)
	if err != nil {
		return nil, fmt.Errorf("list kitchen resources: %w", err)
	}
	defer rows.Close()

	resources := []model.KitchenResource{}
	for rows.Next() {
		r, err := scanResource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan kitchen resource: %w", err)
		}
		resources = append(resources, *r)
	}
	return resources, rows.Err()
}

func (s *KitchenResourceStore) Get(ctx context.Context, id int64) (*model.KitchenResource, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+resourceCols+` FROM kitchen_resources WHERE id = ?`, id)
	r, err := scanResource(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get kitchen resource: %w", err)
	}
	return r, nil
}

// Create adds a resource. Without an explicit position it is appended after
// the highest position of its kind.
func (s *KitchenResourceStore) Create(ctx context.Context, in model.KitchenResourceInput) (*model.KitchenResource, error) {
	if !in.Kind.Valid() {
		return nil, apperr.Validation("Kind is not included in the list").WithDetails(map[string]any{"field": "kind"})
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, apperr.Validation("Name can't be blank").WithDetails(map[string]any{"field": "name"})
	}

	var position sql.NullInt64
	if in.Position != nil {
		position = sql.NullInt64{Int64: int64(*in.Position), Valid: true}
	}
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO kitchen_resources (kind, name, position, point_person, phone, is_driver)
		VALUES (?, ?, COALESCE(?, (SELECT COALESCE(MAX(position), 0) + 1 FROM kitchen_resources WHERE kind = ?)), ?, ?, ?)`,
		in.Kind, in.Name, position, in.Kind, in.PointPerson, in.Phone, boolInt(in.IsDriver),
	)
	if err != nil {
		return nil, fmt.Errorf("insert kitchen resource: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.Get(ctx, id)
}

// Update applies the non-nil fields of upd. It returns nil when the
// resource does not exist.
func (s *KitchenResourceStore) Update(ctx context.Context, id int64, upd model.KitchenResourceUpdate) (*model.KitchenResource, error) {
	var sets []string
	var args []any
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, apperr.Validation("Name can't be blank").WithDetails(map[string]any{"field": "name"})
		}
		sets = append(sets, "name = ?")
		args = append(args, name)
	}
	if upd.Position != nil {
		sets = append(sets, "position = ?")
		args = append(args, *upd.Position)
	}
	if upd.PointPerson != nil {
		sets = append(sets, "point_person = ?")
		args = append(args, *upd.PointPerson)
	}
	if upd.Phone != nil {
		sets = append(sets, "phone = ?")
		args = append(args, *upd.Phone)
	}
	if upd.IsDriver != nil {
		sets = append(sets, "is_driver = ?")
		args = append(args, boolInt(*upd.IsDriver))
	}
	if len(sets) > 0 {
		sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
		args = append(args, id)
		_, err := s.db.ExecContext(ctx, `UPDATE kitchen_resources SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
		if err != nil {
			return nil, fmt.Errorf("update kitchen resource: %w", err)
		}
	}
	return s.Get(ctx, id)
}

// Delete removes a resource. Sibling positions are not renumbered.
func (s *KitchenResourceStore) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM kitchen_resources WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete kitchen resource: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
