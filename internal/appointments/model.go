// Package appointments stores booked appointments together with the slot
// blocks that keep two bookings from sharing a (date, slot) pair.
package appointments

import (
	"errors"
	"strings"
	"time"

	"github.com/wolfman30/salon-booking/internal/slots"
)

var (
	ErrSlotTaken          = errors.New("appointments: one of the chosen time slots was just booked")
	ErrNotFound           = errors.New("appointments: appointment not found")
	ErrInvalidStatus      = errors.New("appointments: unknown status")
	ErrInvalidTransition  = errors.New("appointments: status change not allowed")
	ErrNotCancellable     = errors.New("appointments: past appointments cannot be cancelled")
	ErrInvalidReservation = errors.New("appointments: reservation is incomplete")
)

// Status of an appointment. Blocked slots carry the same value.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return st, nil
	}
	return "", ErrInvalidStatus
}

// canMove reports whether from may change to to. Cancelled is final: reviving
// it would need the slots checked again.
func canMove(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusConfirmed || to == StatusCancelled
	case StatusConfirmed:
		return to == StatusCancelled
	}
	return false
}

// ServiceLine is a service as booked on an appointment.
type ServiceLine struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Customer is the profile attached to an appointment in admin listings.
type Customer struct {
	ID       string  `json:"id"`
	FullName *string `json:"full_name"`
	Phone    *string `json:"phone"`
	Email    string  `json:"email,omitempty"`
}

type Appointment struct {
	ID         string        `json:"id"`
	UserID     string        `json:"user_id"`
	Date       string        `json:"date"`
	TimeSlotID string        `json:"time_slot_id"`
	StartTime  string        `json:"start_time"`
	EndTime    string        `json:"end_time"`
	Status     Status        `json:"status"`
	Notes      *string       `json:"notes"`
	CreatedAt  time.Time     `json:"created_at"`
	Services   []ServiceLine `json:"services"`
	TotalPrice float64       `json:"total_price"`
	Customer   *Customer     `json:"customer,omitempty"`
}

// Upcoming reports whether the appointment is on or after today.
func (a Appointment) Upcoming(today time.Time) bool {
	d, err := slots.ParseDate(a.Date)
	if err != nil {
		return false
	}
	return !d.Before(today)
}

func (a *Appointment) total() {
	a.TotalPrice = 0
	for _, s := range a.Services {
		a.TotalPrice += s.Price
	}
}

// Reservation is everything needed to write one booking.
type Reservation struct {
	UserID   string
	Date     time.Time
	Run      slots.Run
	Services []slots.Service
	Notes    string
}

func (r Reservation) valid() bool {
	return r.UserID != "" && len(r.Run.RequiredSlotIDs) > 0 && len(r.Services) > 0 && !r.Date.IsZero()
}

// Filter narrows the admin listing.
type Filter struct {
	Status Status
	Limit  int
}
