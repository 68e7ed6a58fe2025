package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository stores services in Postgres.
type Repository struct {
	db querier
}

// NewRepository accepts a *pgxpool.Pool or anything with the same query methods.
func NewRepository(db querier) *Repository {
	if db == nil {
		panic("catalog: pgx pool required")
	}
	return &Repository{db: db}
}

const serviceColumns = `id::text, name, description, price, duration, image_url, is_active, created_at`

// ListActive returns active services ordered by name.
func (r *Repository) ListActive(ctx context.Context) ([]Service, error) {
	return r.list(ctx, `SELECT `+serviceColumns+` FROM services WHERE is_active ORDER BY name`)
}

// ListAll returns every service for the admin screen.
func (r *Repository) ListAll(ctx context.Context) ([]Service, error) {
	return r.list(ctx, `SELECT `+serviceColumns+` FROM services ORDER BY name`)
}

// GetMany loads the given ids, skipping inactive or unknown services.
func (r *Repository) GetMany(ctx context.Context, ids []string) ([]Service, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.list(ctx, `SELECT `+serviceColumns+` FROM services WHERE is_active AND id::text = ANY($1) ORDER BY name`, ids)
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]Service, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: list services: %w", err)
	}
	defer rows.Close()

	var out []Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: list services: %w", err)
	}
	return out, nil
}

func (r *Repository) Get(ctx context.Context, id string) (*Service, error) {
	row := r.db.QueryRow(ctx, `SELECT `+serviceColumns+` FROM services WHERE id::text = $1`, id)
	svc, err := scanService(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}
	return &svc, nil
}

func (r *Repository) Create(ctx context.Context, in ServiceInput) (*Service, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	query := `
		INSERT INTO services (name, description, price, duration, image_url, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + serviceColumns
	svc, err := scanService(r.db.QueryRow(ctx, query, in.Name, in.Description, in.Price, in.DurationMinutes, in.ImageURL, in.active()))
	if err != nil {
		return nil, fmt.Errorf("catalog: insert service: %w", err)
	}
	return &svc, nil
}

func (r *Repository) Update(ctx context.Context, id string, in ServiceInput) (*Service, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	query := `
		UPDATE services
		SET name = $2, description = $3, price = $4, duration = $5, image_url = $6, is_active = $7
		WHERE id::text = $1
		RETURNING ` + serviceColumns
	svc, err := scanService(r.db.QueryRow(ctx, query, id, in.Name, in.Description, in.Price, in.DurationMinutes, in.ImageURL, in.active()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, fmt.Errorf("catalog: update service: %w", err)
	}
	return &svc, nil
}

// SetImage stores the public URL of an uploaded image.
func (r *Repository) SetImage(ctx context.Context, id, url string) error {
	ct, err := r.db.Exec(ctx, `UPDATE services SET image_url = $2 WHERE id::text = $1`, id, url)
	if err != nil {
		return fmt.Errorf("catalog: set image: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrServiceNotFound
	}
	return nil
}

// Delete removes a service. Services referenced by appointments are kept;
// deactivate those instead.
func (r *Repository) Delete(ctx context.Context, id string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM services WHERE id::text = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrServiceInUse
		}
		return fmt.Errorf("catalog: delete service: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrServiceNotFound
	}
	return nil
}

func scanService(row pgx.Row) (Service, error) {
	var svc Service
	if err := row.Scan(
		&svc.ID,
		&svc.Name,
		&svc.Description,
		&svc.Price,
		&svc.DurationMinutes,
		&svc.ImageURL,
		&svc.IsActive,
		&svc.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Service{}, err
		}
		return Service{}, fmt.Errorf("catalog: scan service: %w", err)
	}
	return svc, nil
}
