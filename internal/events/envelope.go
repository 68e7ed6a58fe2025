package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// Event is a versioned appointment event.
type Event interface {
	EventType() string
	// AggregateID is the outbox aggregate key, e.g. "appointment:<id>".
	AggregateID() string
	// OccurredAt may be zero; Seal then stamps the current time.
	OccurredAt() time.Time
}

// Envelope is the JSON stored in the outbox payload column.
type Envelope struct {
	EventID    uuid.UUID       `json:"event_id"`
	EventType  string          `json:"event_type"`
	Aggregate  string          `json:"aggregate"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// Decode unmarshals the event payload into dst.
func (e Envelope) Decode(dst any) error {
	if err := json.Unmarshal(e.Payload, dst); err != nil {
		return fmt.Errorf("events: decode %s: %w", e.EventType, err)
	}
	return nil
}

var (
	ErrInvalidEvent = errors.New("events: invalid event")

	nowFunc = time.Now
	newID   = uuid.New
)

func appointmentAggregate(appointmentID string) string {
	return "appointment:" + appointmentID
}

// Seal wraps evt in a fresh envelope.
func Seal(evt Event) (Envelope, error) {
	if evt == nil {
		return Envelope{}, fmt.Errorf("%w: nil event", ErrInvalidEvent)
	}
	env := Envelope{
		EventID:    newID(),
		EventType:  evt.EventType(),
		Aggregate:  evt.AggregateID(),
		OccurredAt: evt.OccurredAt().UTC(),
	}
	switch {
	case env.EventType == "":
		return Envelope{}, fmt.Errorf("%w: missing type", ErrInvalidEvent)
	case env.Aggregate == "" || env.Aggregate == appointmentAggregate(""):
		return Envelope{}, fmt.Errorf("%w: %s has no aggregate", ErrInvalidEvent, env.EventType)
	}
	if env.OccurredAt.IsZero() {
		env.OccurredAt = nowFunc().UTC()
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return Envelope{}, fmt.Errorf("events: marshal %s: %w", env.EventType, err)
	}
	env.Payload = payload
	return env, nil
}

// Execer is satisfied by pgx pools, connections and transactions.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Append seals evt and inserts it into the outbox through exec. Callers pass
// their open transaction so the event commits or rolls back with the write
// that produced it.
func Append(ctx context.Context, exec Execer, evt Event) (Envelope, error) {
	if exec == nil {
		return Envelope{}, errors.New("events: exec required")
	}
	env, err := Seal(evt)
	if err != nil {
		return Envelope{}, err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return Envelope{}, fmt.Errorf("events: marshal envelope: %w", err)
	}
	if _, err := exec.Exec(ctx,
		`INSERT INTO outbox (id, aggregate, event_type, payload) VALUES ($1, $2, $3, $4)`,
		env.EventID, env.Aggregate, env.EventType, data,
	); err != nil {
		return Envelope{}, fmt.Errorf("events: append %s: %w", env.EventType, err)
	}
	return env, nil
}
