package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestOutboxStoreFlow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := NewOutboxStore(mock)

	id := uuid.New()
	env, err := json.Marshal(Envelope{EventID: id, EventType: TypeAppointmentBooked, Payload: json.RawMessage(`{"appointment_id":"a1"}`)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{"id", "aggregate", "event_type", "payload", "created_at", "attempts"}).
		AddRow(id, "appointment:a1", TypeAppointmentBooked, env, now, 2)
	mock.ExpectQuery("SELECT id, aggregate").WithArgs(int32(10), DefaultMaxAttempts).WillReturnRows(rows)

	entries, err := store.FetchPending(context.Background(), 10)
	if err != nil {
		t.Fatalf("fetch pending failed: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != id || entries[0].Attempts != 2 {
		t.Fatalf("unexpected entries: %#v", entries)
	}
	var booked AppointmentBookedV1
	if err := entries[0].Envelope.Decode(&booked); err != nil || booked.AppointmentID != "a1" {
		t.Fatalf("unexpected payload %+v (%v)", booked, err)
	}

	mock.ExpectExec("UPDATE outbox SET attempts").
		WithArgs(id, "smtp down").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	if err := store.MarkFailed(context.Background(), id, errors.New("smtp down")); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	mock.ExpectExec("UPDATE outbox SET delivered_at").WithArgs(id).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	ok, err := store.MarkDelivered(context.Background(), id)
	if err != nil {
		t.Fatalf("mark delivered failed: %v", err)
	}
	if !ok {
		t.Fatal("expected mark delivered to report success")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestOutboxStoreMaxAttempts(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := NewOutboxStore(mock).WithMaxAttempts(3).WithMaxAttempts(0)
	mock.ExpectQuery("attempts < \\$2").
		WithArgs(int32(5), 3).
		WillReturnRows(pgxmock.NewRows([]string{"id", "aggregate", "event_type", "payload", "created_at", "attempts"}))

	entries, err := store.FetchPending(context.Background(), 5)
	if err != nil {
		t.Fatalf("fetch pending failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdef", 3); got != "abc" {
		t.Fatalf("got %q", got)
	}
	if got := truncate("ab", 3); got != "ab" {
		t.Fatalf("got %q", got)
	}
}

type memoryPending struct {
	entries     []OutboxEntry
	delivered   map[uuid.UUID]bool
	attempts    map[uuid.UUID]int
	maxAttempts int
}

func newMemoryPending(max int, entries ...OutboxEntry) *memoryPending {
	return &memoryPending{
		entries:     entries,
		delivered:   map[uuid.UUID]bool{},
		attempts:    map[uuid.UUID]int{},
		maxAttempts: max,
	}
}

func (m *memoryPending) FetchPending(ctx context.Context, limit int32) ([]OutboxEntry, error) {
	var out []OutboxEntry
	for _, e := range m.entries {
		if m.delivered[e.ID] || m.attempts[e.ID] >= m.maxAttempts {
			continue
		}
		e.Attempts = m.attempts[e.ID]
		out = append(out, e)
	}
	return out, nil
}

func (m *memoryPending) MarkFailed(ctx context.Context, id uuid.UUID, cause error) error {
	m.attempts[id]++
	return nil
}

func (m *memoryPending) MarkDelivered(ctx context.Context, id uuid.UUID) (bool, error) {
	if m.delivered[id] {
		return false, nil
	}
	m.delivered[id] = true
	return true, nil
}

func TestDelivererDrainRetriesFailures(t *testing.T) {
	good, bad := uuid.New(), uuid.New()
	store := newMemoryPending(DefaultMaxAttempts,
		OutboxEntry{ID: good, Type: TypeAppointmentBooked},
		OutboxEntry{ID: bad, Type: TypeAppointmentBooked},
	)
	fail := true
	handler := DeliveryHandlerFunc(func(ctx context.Context, entry OutboxEntry) error {
		if entry.ID == bad && fail {
			return errors.New("smtp down")
		}
		return nil
	})
	d := NewDeliverer(store, handler, nil).WithBatchSize(5).WithInterval(time.Millisecond)

	if n := d.Drain(context.Background()); n != 1 {
		t.Fatalf("expected 1 delivered, got %d", n)
	}
	if store.delivered[bad] {
		t.Fatal("failed entry should stay pending")
	}
	if store.attempts[bad] != 1 {
		t.Fatalf("expected failure to be recorded, got %d attempts", store.attempts[bad])
	}

	fail = false
	if n := d.Drain(context.Background()); n != 1 {
		t.Fatalf("expected retry to deliver 1, got %d", n)
	}
}

func TestDelivererParksAfterMaxAttempts(t *testing.T) {
	id := uuid.New()
	store := newMemoryPending(2, OutboxEntry{ID: id, Type: TypeAppointmentStatusChanged})
	calls := 0
	handler := DeliveryHandlerFunc(func(ctx context.Context, entry OutboxEntry) error {
		calls++
		return errors.New("provider down")
	})
	d := NewDeliverer(store, handler, nil)

	for i := 0; i < 4; i++ {
		d.Drain(context.Background())
	}
	if calls != 2 {
		t.Fatalf("expected 2 attempts before parking, got %d", calls)
	}
	if store.delivered[id] {
		t.Fatal("parked entry must not be marked delivered")
	}
}

func TestDelivererStartStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	store := newMemoryPending(DefaultMaxAttempts)
	d := NewDeliverer(store, DeliveryHandlerFunc(func(context.Context, OutboxEntry) error { return nil }), nil).
		WithInterval(time.Millisecond)
	go func() {
		d.Start(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("deliverer did not stop")
	}
}
