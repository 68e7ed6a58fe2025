package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

type stubExec struct {
	sql  string
	args []any
	err  error
}

func (s *stubExec) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	s.sql = sql
	s.args = args
	return pgconn.NewCommandTag("INSERT 0 1"), s.err
}

type untypedEvent struct{ AppointmentStatusChangedV1 }

func (untypedEvent) EventType() string { return "" }

func TestSealUsesEventFields(t *testing.T) {
	id := uuid.MustParse("9a20d7d1-bf6a-4d33-bd55-5d25a816f1a8")
	prevID := newID
	newID = func() uuid.UUID { return id }
	defer func() { newID = prevID }()

	bookedAt := time.Date(2026, 3, 2, 14, 30, 0, 0, time.FixedZone("EST", -5*3600))
	env, err := Seal(AppointmentBookedV1{
		AppointmentID: "appt-1",
		UserID:        "user-1",
		Date:          "2026-03-02",
		StartTime:     "09:00",
		TimeSlotIDs:   []string{"s1", "s2"},
		BookedAt:      bookedAt,
	})
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}
	if env.EventID != id {
		t.Fatalf("unexpected event id %s", env.EventID)
	}
	if env.EventType != TypeAppointmentBooked || env.Aggregate != "appointment:appt-1" {
		t.Fatalf("unexpected envelope %+v", env)
	}
	if !env.OccurredAt.Equal(bookedAt) || env.OccurredAt.Location() != time.UTC {
		t.Fatalf("expected booked_at in UTC, got %v", env.OccurredAt)
	}

	var decoded AppointmentBookedV1
	if err := env.Decode(&decoded); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(decoded.TimeSlotIDs) != 2 {
		t.Fatalf("unexpected slot ids %v", decoded.TimeSlotIDs)
	}
}

func TestSealStampsMissingTime(t *testing.T) {
	fixedNow := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	prevNow := nowFunc
	nowFunc = func() time.Time { return fixedNow }
	defer func() { nowFunc = prevNow }()

	env, err := Seal(AppointmentStatusChangedV1{AppointmentID: "a1", From: "pending", To: "confirmed"})
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}
	if !env.OccurredAt.Equal(fixedNow) {
		t.Fatalf("expected now, got %v", env.OccurredAt)
	}
}

func TestSealRejectsInvalidEvents(t *testing.T) {
	tests := []struct {
		name string
		evt  Event
	}{
		{"nil", nil},
		{"no appointment", AppointmentBookedV1{}},
		{"no type", untypedEvent{AppointmentStatusChangedV1{AppointmentID: "a1"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Seal(tt.evt); !errors.Is(err, ErrInvalidEvent) {
				t.Fatalf("expected ErrInvalidEvent, got %v", err)
			}
		})
	}
}

func TestAppend(t *testing.T) {
	exec := &stubExec{}
	env, err := Append(context.Background(), exec, AppointmentStatusChangedV1{
		AppointmentID: "appt-9",
		From:          "pending",
		To:            "confirmed",
		ChangedAt:     time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if env.EventID == uuid.Nil {
		t.Fatal("expected generated event id")
	}
	if len(exec.args) != 4 {
		t.Fatalf("expected 4 exec args, got %#v", exec.args)
	}
	if exec.args[0] != env.EventID || exec.args[1] != "appointment:appt-9" || exec.args[2] != TypeAppointmentStatusChanged {
		t.Fatalf("unexpected args %#v", exec.args)
	}

	var stored Envelope
	if err := json.Unmarshal(exec.args[3].([]byte), &stored); err != nil {
		t.Fatalf("stored payload is not an envelope: %v", err)
	}
	var changed AppointmentStatusChangedV1
	if err := stored.Decode(&changed); err != nil || changed.To != "confirmed" {
		t.Fatalf("unexpected stored payload %+v (%v)", changed, err)
	}
}

func TestAppendErrors(t *testing.T) {
	evt := AppointmentBookedV1{AppointmentID: "a1"}
	if _, err := Append(context.Background(), &stubExec{err: errors.New("boom")}, evt); err == nil {
		t.Fatal("expected exec error to propagate")
	}
	if _, err := Append(context.Background(), nil, evt); err == nil {
		t.Fatal("expected nil exec error")
	}
	exec := &stubExec{}
	if _, err := Append(context.Background(), exec, AppointmentBookedV1{}); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
	if exec.sql != "" {
		t.Fatal("invalid event must not reach the database")
	}
}
