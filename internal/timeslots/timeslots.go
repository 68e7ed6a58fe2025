// Package timeslots stores the weekly 30 minute grid the salon opens for
// booking.
package timeslots

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wolfman30/salon-booking/internal/slots"
)

var (
	ErrInvalidRange   = errors.New("end time must be after start time")
	ErrInvalidWeekday = errors.New("day of week must be between 0 (Sunday) and 6 (Saturday)")
	ErrSlotNotFound   = errors.New("time slot not found")
	ErrSlotExists     = errors.New("a time slot already starts at that time on that day")
	ErrSlotInUse      = errors.New("time slot is referenced by appointments; mark it unavailable instead")
)

// Input is the admin create/update payload.
type Input struct {
	StartTime   slots.Clock `json:"start_time"`
	EndTime     slots.Clock `json:"end_time"`
	DayOfWeek   int         `json:"day_of_week"`
	IsAvailable *bool       `json:"is_available"`
}

func (in Input) Validate() error {
	if in.DayOfWeek < 0 || in.DayOfWeek > 6 {
		return ErrInvalidWeekday
	}
	if in.StartTime >= in.EndTime {
		return ErrInvalidRange
	}
	return nil
}

func (in Input) available() bool {
	return in.IsAvailable == nil || *in.IsAvailable
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository stores time slots in Postgres.
type Repository struct {
	db querier
}

func NewRepository(db querier) *Repository {
	if db == nil {
		panic("timeslots: pgx pool required")
	}
	return &Repository{db: db}
}

const slotColumns = `id::text, to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'), day_of_week, is_available`

// ListAvailable returns every slot open for booking, all weekdays.
func (r *Repository) ListAvailable(ctx context.Context) ([]slots.TimeSlot, error) {
	return r.list(ctx, `SELECT `+slotColumns+` FROM time_slots WHERE is_available ORDER BY day_of_week, start_time`)
}

// ListAll returns the full grid for the admin screen.
func (r *Repository) ListAll(ctx context.Context) ([]slots.TimeSlot, error) {
	return r.list(ctx, `SELECT `+slotColumns+` FROM time_slots ORDER BY day_of_week, start_time`)
}

// ListByDay returns one weekday's grid.
func (r *Repository) ListByDay(ctx context.Context, day int) ([]slots.TimeSlot, error) {
	return r.list(ctx, `SELECT `+slotColumns+` FROM time_slots WHERE day_of_week = $1 ORDER BY start_time`, day)
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]slots.TimeSlot, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("timeslots: list: %w", err)
	}
	defer rows.Close()

	var out []slots.TimeSlot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("timeslots: list: %w", err)
	}
	return out, nil
}

func (r *Repository) Create(ctx context.Context, in Input) (*slots.TimeSlot, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	query := `
		INSERT INTO time_slots (start_time, end_time, day_of_week, is_available)
		VALUES ($1::time, $2::time, $3, $4)
		RETURNING ` + slotColumns
	s, err := scanSlot(r.db.QueryRow(ctx, query, in.StartTime.String(), in.EndTime.String(), in.DayOfWeek, in.available()))
	if err != nil {
		return nil, mapWriteErr("create", err)
	}
	return &s, nil
}

func (r *Repository) Update(ctx context.Context, id string, in Input) (*slots.TimeSlot, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	query := `
		UPDATE time_slots
		SET start_time = $2::time, end_time = $3::time, day_of_week = $4, is_available = $5
		WHERE id::text = $1
		RETURNING ` + slotColumns
	s, err := scanSlot(r.db.QueryRow(ctx, query, id, in.StartTime.String(), in.EndTime.String(), in.DayOfWeek, in.available()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, mapWriteErr("update", err)
	}
	return &s, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM time_slots WHERE id::text = $1`, id)
	if err != nil {
		return mapWriteErr("delete", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrSlotNotFound
	}
	return nil
}

// GenerateDay fills a weekday with 30 minute cells from open until closeAt.
// Cells that already exist are left alone. It returns how many were added.
func (r *Repository) GenerateDay(ctx context.Context, day int, open, closeAt slots.Clock) (int, error) {
	if err := (Input{DayOfWeek: day, StartTime: open, EndTime: closeAt}).Validate(); err != nil {
		return 0, err
	}
	query := `
		INSERT INTO time_slots (start_time, end_time, day_of_week, is_available)
		VALUES ($1::time, $2::time, $3, TRUE)
		ON CONFLICT (day_of_week, start_time) DO NOTHING
	`
	added := 0
	for start := open; start+slots.Minutes <= closeAt; start += slots.Minutes {
		ct, err := r.db.Exec(ctx, query, start.String(), (start + slots.Minutes).String(), day)
		if err != nil {
			return added, mapWriteErr("generate", err)
		}
		added += int(ct.RowsAffected())
	}
	return added, nil
}

func scanSlot(row pgx.Row) (slots.TimeSlot, error) {
	var (
		s          slots.TimeSlot
		start, end string
	)
	if err := row.Scan(&s.ID, &start, &end, &s.DayOfWeek, &s.IsAvailable); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s, err
		}
		return s, fmt.Errorf("timeslots: scan: %w", err)
	}
	var err error
	if s.StartTime, err = slots.ParseClock(start); err != nil {
		return s, fmt.Errorf("timeslots: %w", err)
	}
	if s.EndTime, err = slots.ParseClock(end); err != nil {
		return s, fmt.Errorf("timeslots: %w", err)
	}
	return s, nil
}

func mapWriteErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return ErrSlotExists
		case "23503":
			return ErrSlotInUse
		case "23514":
			return ErrInvalidRange
		}
	}
	return fmt.Errorf("timeslots: %s: %w", op, err)
}
