// Package profiles stores the salon-side profile that accompanies every
// identity: contact details and the admin flag.
package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrProfileNotFound = errors.New("profiles: profile not found")
	ErrProfileExists   = errors.New("profiles: profile already exists")
	ErrFullNameTooLong = errors.New("full name must be at most 120 characters")
	ErrPhoneTooLong    = errors.New("phone must be at most 32 characters")
)

// Profile is one row of user_profiles.
type Profile struct {
	ID        string    `json:"id"`
	FullName  *string   `json:"full_name"`
	Phone     *string   `json:"phone"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

// Input is the editable part of a profile.
type Input struct {
	FullName *string `json:"full_name"`
	Phone    *string `json:"phone"`
}

// Validate trims the fields and turns blanks into nulls.
func (in *Input) Validate() error {
	in.FullName = blankToNil(in.FullName)
	in.Phone = blankToNil(in.Phone)
	if in.FullName != nil && len(*in.FullName) > 120 {
		return ErrFullNameTooLong
	}
	if in.Phone != nil && len(*in.Phone) > 32 {
		return ErrPhoneTooLong
	}
	return nil
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository reads and writes user_profiles.
type Repository struct {
	db querier
}

func NewRepository(db querier) *Repository {
	if db == nil {
		panic("profiles: pgx pool required")
	}
	return &Repository{db: db}
}

const profileColumns = `id::text, full_name, phone, is_admin, created_at`

// Get returns the profile for userID.
func (r *Repository) Get(ctx context.Context, userID string) (*Profile, error) {
	p, err := scanProfile(r.db.QueryRow(ctx, `SELECT `+profileColumns+` FROM user_profiles WHERE id::text = $1`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &p, nil
}

// CreateProfile inserts the non-admin profile written at sign-up.
func (r *Repository) CreateProfile(ctx context.Context, userID, fullName, phone string) error {
	in := Input{FullName: &fullName, Phone: &phone}
	if err := in.Validate(); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO user_profiles (id, full_name, phone, is_admin)
		VALUES ($1::uuid, $2, $3, FALSE)`, userID, in.FullName, in.Phone)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrProfileExists
		}
		return fmt.Errorf("profiles: create: %w", err)
	}
	return nil
}

// Upsert writes the editable fields, creating the row when it is missing.
// The admin flag is never changed here.
func (r *Repository) Upsert(ctx context.Context, userID string, in Input) (*Profile, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	query := `
		INSERT INTO user_profiles (id, full_name, phone, is_admin)
		VALUES ($1::uuid, $2, $3, FALSE)
		ON CONFLICT (id) DO UPDATE SET full_name = EXCLUDED.full_name, phone = EXCLUDED.phone
		RETURNING ` + profileColumns
	p, err := scanProfile(r.db.QueryRow(ctx, query, userID, in.FullName, in.Phone))
	if err != nil {
		return nil, fmt.Errorf("profiles: upsert: %w", err)
	}
	return &p, nil
}

// IsAdmin asks the database function that backs the admin flag. A missing
// profile is not an admin.
func (r *Repository) IsAdmin(ctx context.Context, userID string) (bool, error) {
	var ok bool
	if err := r.db.QueryRow(ctx, `SELECT check_if_user_is_admin($1::uuid)`, userID).Scan(&ok); err != nil {
		return false, fmt.Errorf("profiles: admin check: %w", err)
	}
	return ok, nil
}

// List returns every profile, newest first.
func (r *Repository) List(ctx context.Context) ([]Profile, error) {
	rows, err := r.db.Query(ctx, `SELECT `+profileColumns+` FROM user_profiles ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("profiles: list: %w", err)
	}
	defer rows.Close()

	var out []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("profiles: list: %w", err)
	}
	return out, nil
}

func scanProfile(row pgx.Row) (Profile, error) {
	var p Profile
	if err := row.Scan(&p.ID, &p.FullName, &p.Phone, &p.IsAdmin, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, err
		}
		return Profile{}, fmt.Errorf("profiles: scan: %w", err)
	}
	return p, nil
}
