package events

import "time"

const (
	TypeAppointmentBooked        = "appointment.booked.v1"
	TypeAppointmentStatusChanged = "appointment.status_changed.v1"
)

// AppointmentBookedV1 is recorded when a customer reserves a run of slots.
type AppointmentBookedV1 struct {
	AppointmentID   string    `json:"appointment_id"`
	UserID          string    `json:"user_id"`
	Date            string    `json:"date"`
	StartTime       string    `json:"start_time"`
	EndTime         string    `json:"end_time"`
	TimeSlotIDs     []string  `json:"time_slot_ids"`
	ServiceNames    []string  `json:"service_names"`
	TotalPrice      float64   `json:"total_price"`
	DurationMinutes int       `json:"duration_minutes"`
	Notes           string    `json:"notes,omitempty"`
	BookedAt        time.Time `json:"booked_at"`
}

func (AppointmentBookedV1) EventType() string { return TypeAppointmentBooked }

func (e AppointmentBookedV1) AggregateID() string { return appointmentAggregate(e.AppointmentID) }

func (e AppointmentBookedV1) OccurredAt() time.Time { return e.BookedAt }

// AppointmentStatusChangedV1 is recorded on confirm or cancel.
type AppointmentStatusChangedV1 struct {
	AppointmentID string    `json:"appointment_id"`
	UserID        string    `json:"user_id"`
	Date          string    `json:"date"`
	From          string    `json:"from"`
	To            string    `json:"to"`
	ChangedBy     string    `json:"changed_by"`
	ChangedAt     time.Time `json:"changed_at"`
}

func (AppointmentStatusChangedV1) EventType() string { return TypeAppointmentStatusChanged }

func (e AppointmentStatusChangedV1) AggregateID() string { return appointmentAggregate(e.AppointmentID) }

func (e AppointmentStatusChangedV1) OccurredAt() time.Time { return e.ChangedAt }
