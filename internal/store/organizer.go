package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/potluck/internal/apperr"
	"github.com/dukerupert/potluck/internal/model"
)

type OrganizerStore struct {
	db *sql.DB
}

func NewOrganizerStore(db *sql.DB) *OrganizerStore {
	return &OrganizerStore{db: db}
}

const organizerCols = `id, username, password_digest, token, created_at, updated_at`

func scanOrganizer(sc scanner) (*model.Organizer, error) {
	var o model.Organizer
	var token sql.NullString
	if err := sc.Scan(&o.ID, &o.Username, &o.PasswordDigest, &token, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Token = stringPtr(token)
	return &o, nil
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Create adds an organizer with a bcrypt digest of password.
func (s *OrganizerStore) Create(ctx context.Context, username, password string) (*model.Organizer, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperr.Validation("Username can't be blank")
	}
	if password == "" {
		return nil, apperr.Validation("Password can't be blank")
	}
	existing, err := s.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Newf(apperr.CodeConflict, "Username %s has already been taken", username)
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO organizers (username, password_digest) VALUES (?, ?) RETURNING `+organizerCols,
		username, string(digest),
	)
	o, err := scanOrganizer(row)
	if err != nil {
		return nil, fmt.Errorf("insert organizer: %w", err)
	}
	return o, nil
}

func (s *OrganizerStore) GetByUsername(ctx context.Context, username string) (*model.Organizer, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+organizerCols+` FROM organizers WHERE username = ?`, username)
	o, err := scanOrganizer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get organizer: %w", err)
	}
	return o, nil
}

// GetByToken resolves a bearer token. An empty token never matches.
func (s *OrganizerStore) GetByToken(ctx context.Context, token string) (*model.Organizer, error) {
	if token == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+organizerCols+` FROM organizers WHERE token = ?`, token)
	o, err := scanOrganizer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get organizer by token: %w", err)
	}
	return o, nil
}

// Login checks the password and issues a fresh token, replacing any token
// from an earlier login.
func (s *OrganizerStore) Login(ctx context.Context, username, password string) (*model.Organizer, error) {
	o, err := s.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, apperr.New(apperr.CodeUnauthorized, "Invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(o.PasswordDigest), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, apperr.New(apperr.CodeUnauthorized, "Invalid credentials")
		}
		return nil, fmt.Errorf("compare password: %w", err)
	}

	token, err := generateToken()
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE organizers SET token = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		token, o.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}
	o.Token = &token
	return o, nil
}

// Logout invalidates the organizer's token.
func (s *OrganizerStore) Logout(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE organizers SET token = NULL, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

// Ensure creates the organizer unless one with that username exists.
// created reports whether a new row was written.
func (s *OrganizerStore) Ensure(ctx context.Context, username, password string) (o *model.Organizer, created bool, err error) {
	o, err = s.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil || o != nil {
		return o, false, err
	}
	o, err = s.Create(ctx, username, password)
	if err != nil {
		return nil, false, err
	}
	return o, true, nil
}
