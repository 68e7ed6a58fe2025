package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wolfman30/salon-booking/internal/events"
	"github.com/wolfman30/salon-booking/internal/slots"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txBeginner interface {
	querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repository reads and writes appointments, appointment_services and
// blocked_slots.
type Repository struct {
	db  txBeginner
	loc *time.Location
	now func() time.Time
}

func NewRepository(db txBeginner) *Repository {
	if db == nil {
		panic("appointments: pgx pool required")
	}
	return &Repository{db: db, loc: time.UTC, now: time.Now}
}

// WithLocation sets the salon time zone used to decide whether an
// appointment date has passed. It must match the zone the customer's
// upcoming list is computed in.
func (r *Repository) WithLocation(loc *time.Location) *Repository {
	if loc != nil {
		r.loc = loc
	}
	return r
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Reserve writes the appointment, its services, one blocked slot per slot of
// the run and the booked event in a single transaction. Nothing is kept when
// any step fails.
func (r *Repository) Reserve(ctx context.Context, res Reservation) (*Appointment, error) {
	if !res.valid() {
		return nil, ErrInvalidReservation
	}
	date := res.Date.Format(time.DateOnly)
	var notes *string
	if n := strings.TrimSpace(res.Notes); n != "" {
		notes = &n
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("appointments: begin reserve: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT time_slot_id::text FROM blocked_slots
		WHERE date = $1::date AND time_slot_id::text = ANY($2) AND status <> 'cancelled'
		FOR UPDATE`, date, res.Run.RequiredSlotIDs)
	if err != nil {
		return nil, fmt.Errorf("appointments: lock slots: %w", err)
	}
	taken := false
	for rows.Next() {
		taken = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: lock slots: %w", err)
	}
	if taken {
		return nil, ErrSlotTaken
	}

	appt := &Appointment{
		UserID:     res.UserID,
		Date:       date,
		TimeSlotID: res.Run.StartSlotID,
		StartTime:  res.Run.StartTime.String(),
		EndTime:    res.Run.EndTime.String(),
		Status:     StatusPending,
		Notes:      notes,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO appointments (user_id, date, time_slot_id, status, notes)
		VALUES ($1::uuid, $2::date, $3::uuid, 'pending', $4)
		RETURNING id::text, created_at`, res.UserID, date, res.Run.StartSlotID, notes).Scan(&appt.ID, &appt.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("appointments: insert appointment: %w", err)
	}

	names := make([]string, 0, len(res.Services))
	for _, svc := range res.Services {
		if _, err := tx.Exec(ctx, `
			INSERT INTO appointment_services (appointment_id, service_id)
			VALUES ($1::uuid, $2::uuid)`, appt.ID, svc.ID); err != nil {
			return nil, fmt.Errorf("appointments: insert service: %w", err)
		}
		names = append(names, svc.Name)
		appt.Services = append(appt.Services, ServiceLine{ID: svc.ID, Name: svc.Name, Price: svc.Price})
	}

	for _, slotID := range res.Run.RequiredSlotIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO blocked_slots (appointment_id, date, time_slot_id, status)
			VALUES ($1::uuid, $2::date, $3::uuid, 'pending')`, appt.ID, date, slotID); err != nil {
			if isUniqueViolation(err) {
				return nil, ErrSlotTaken
			}
			return nil, fmt.Errorf("appointments: block slot: %w", err)
		}
	}

	appt.total()
	evt := events.AppointmentBookedV1{
		AppointmentID:   appt.ID,
		UserID:          appt.UserID,
		Date:            date,
		StartTime:       appt.StartTime,
		EndTime:         appt.EndTime,
		TimeSlotIDs:     res.Run.RequiredSlotIDs,
		ServiceNames:    names,
		TotalPrice:      appt.TotalPrice,
		DurationMinutes: slots.TotalDuration(res.Services),
		Notes:           strings.TrimSpace(res.Notes),
		BookedAt:        appt.CreatedAt,
	}
	if _, err := events.Append(ctx, tx, evt); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("appointments: commit reserve: %w", err)
	}
	return appt, nil
}

// BookedSlotIDs lists the slots held by non-cancelled appointments on date.
func (r *Repository) BookedSlotIDs(ctx context.Context, date time.Time) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT time_slot_id::text FROM blocked_slots
		WHERE date = $1::date AND status <> 'cancelled'`, date.Format(time.DateOnly))
	if err != nil {
		return nil, fmt.Errorf("appointments: booked slots: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("appointments: scan booked slot: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const appointmentSelect = `
	SELECT a.id::text, a.user_id::text, a.date::text, a.time_slot_id::text, a.status, a.notes, a.created_at,
		to_char(ts.start_time, 'HH24:MI'),
		COALESCE((
			SELECT to_char(MAX(t2.end_time), 'HH24:MI')
			FROM blocked_slots b JOIN time_slots t2 ON t2.id = b.time_slot_id
			WHERE b.appointment_id = a.id
		), to_char(ts.end_time, 'HH24:MI')),
		p.full_name, p.phone
	FROM appointments a
	JOIN time_slots ts ON ts.id = a.time_slot_id
	LEFT JOIN user_profiles p ON p.id = a.user_id`

func scanAppointment(row pgx.Row) (Appointment, error) {
	var (
		a        Appointment
		status   string
		fullName *string
		phone    *string
	)
	if err := row.Scan(&a.ID, &a.UserID, &a.Date, &a.TimeSlotID, &status, &a.Notes, &a.CreatedAt,
		&a.StartTime, &a.EndTime, &fullName, &phone); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Appointment{}, err
		}
		return Appointment{}, fmt.Errorf("appointments: scan: %w", err)
	}
	a.Status = Status(status)
	a.Customer = &Customer{ID: a.UserID, FullName: fullName, Phone: phone}
	return a, nil
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("appointments: list: %w", err)
	}
	var out []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: list: %w", err)
	}
	if err := r.attachServices(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) attachServices(ctx context.Context, appts []Appointment) error {
	if len(appts) == 0 {
		return nil
	}
	ids := make([]string, len(appts))
	index := make(map[string]int, len(appts))
	for i, a := range appts {
		ids[i] = a.ID
		index[a.ID] = i
	}
	rows, err := r.db.Query(ctx, `
		SELECT aps.appointment_id::text, s.id::text, s.name, s.price
		FROM appointment_services aps
		JOIN services s ON s.id = aps.service_id
		WHERE aps.appointment_id::text = ANY($1)
		ORDER BY s.name`, ids)
	if err != nil {
		return fmt.Errorf("appointments: load services: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var apptID string
		var line ServiceLine
		if err := rows.Scan(&apptID, &line.ID, &line.Name, &line.Price); err != nil {
			return fmt.Errorf("appointments: scan service: %w", err)
		}
		if i, ok := index[apptID]; ok {
			appts[i].Services = append(appts[i].Services, line)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("appointments: load services: %w", err)
	}
	for i := range appts {
		appts[i].total()
	}
	return nil
}

// ListForUser returns a customer's appointments by date.
func (r *Repository) ListForUser(ctx context.Context, userID string) ([]Appointment, error) {
	out, err := r.list(ctx, appointmentSelect+` WHERE a.user_id::text = $1 ORDER BY a.date ASC, ts.start_time ASC`, userID)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Customer = nil
	}
	return out, nil
}

// ListAll returns appointments newest date first for the admin screen.
func (r *Repository) ListAll(ctx context.Context, f Filter) ([]Appointment, error) {
	query := appointmentSelect
	var args []any
	if f.Status != "" {
		args = append(args, string(f.Status))
		query += fmt.Sprintf(` WHERE a.status = $%d`, len(args))
	}
	query += ` ORDER BY a.date DESC, ts.start_time ASC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	return r.list(ctx, query, args...)
}

func (r *Repository) Get(ctx context.Context, id string) (*Appointment, error) {
	a, err := scanAppointment(r.db.QueryRow(ctx, appointmentSelect+` WHERE a.id::text = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	list := []Appointment{a}
	if err := r.attachServices(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// Cancel lets a customer cancel one of their own upcoming appointments.
func (r *Repository) Cancel(ctx context.Context, userID, appointmentID string) error {
	return r.transition(ctx, appointmentID, userID, StatusCancelled, userID)
}

// UpdateStatus applies an admin status change.
func (r *Repository) UpdateStatus(ctx context.Context, appointmentID string, to Status, changedBy string) error {
	if _, err := ParseStatus(string(to)); err != nil {
		return err
	}
	return r.transition(ctx, appointmentID, "", to, changedBy)
}

// transition changes the appointment status and mirrors it on its blocked
// slots. A non-empty owner restricts the change to that user's appointment
// and to dates that have not passed.
func (r *Repository) transition(ctx context.Context, appointmentID, owner string, to Status, changedBy string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("appointments: begin status change: %w", err)
	}
	defer tx.Rollback(ctx)

	var userID, date, current string
	err = tx.QueryRow(ctx, `
		SELECT user_id::text, date::text, status FROM appointments
		WHERE id::text = $1
		FOR UPDATE`, appointmentID).Scan(&userID, &date, &current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("appointments: load status: %w", err)
	}
	if owner != "" {
		if owner != userID {
			return ErrNotFound
		}
		d, err := slots.ParseDate(date)
		if err == nil && d.Before(slots.Day(r.now(), r.loc)) {
			return ErrNotCancellable
		}
	}

	from := Status(current)
	if from == to {
		return nil
	}
	if !canMove(from, to) {
		return ErrInvalidTransition
	}

	if _, err := tx.Exec(ctx, `UPDATE appointments SET status = $2 WHERE id::text = $1`, appointmentID, string(to)); err != nil {
		return fmt.Errorf("appointments: update status: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE blocked_slots SET status = $2 WHERE appointment_id::text = $1`, appointmentID, string(to)); err != nil {
		return fmt.Errorf("appointments: mirror blocked slots: %w", err)
	}
	evt := events.AppointmentStatusChangedV1{
		AppointmentID: appointmentID,
		UserID:        userID,
		Date:          date,
		From:          string(from),
		To:            string(to),
		ChangedBy:     changedBy,
		ChangedAt:     r.now().UTC(),
	}
	if _, err := events.Append(ctx, tx, evt); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("appointments: commit status change: %w", err)
	}
	return nil
}
