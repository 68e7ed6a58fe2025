package slots

import (
	"errors"
	"fmt"
)

var (
	ErrDateNotFuture  = errors.New("slots: date must be after today")
	ErrDateClosed     = errors.New("slots: salon is closed on that day")
	ErrDateBeyondSpan = errors.New("slots: date is outside the booking window")
)

// Reason classifies why a start slot was rejected.
type Reason string

const (
	ReasonUnknownSlot    Reason = "unknown_slot"
	ReasonNotEnoughTime  Reason = "not_enough_time"
	ReasonBooked         Reason = "booked"
	ReasonNotConsecutive Reason = "not_consecutive"
	ReasonNoServices     Reason = "no_services"
)

// Rejection is returned by Validate when a start slot cannot be used.
// Message is shown to the customer as is.
type Rejection struct {
	Reason  Reason
	SlotID  string
	Message string
}

func (r *Rejection) Error() string {
	return r.Message
}

func reject(reason Reason, slotID string, required int) *Rejection {
	var msg string
	switch reason {
	case ReasonUnknownSlot:
		msg = "That time slot is not available on the selected date."
	case ReasonNotEnoughTime:
		msg = fmt.Sprintf("This service requires %d minutes. Please select a time slot with enough available time.", required*Minutes)
	case ReasonBooked:
		msg = fmt.Sprintf("This service requires %d minutes and part of that time is already booked. Please select another time slot.", required*Minutes)
	case ReasonNotConsecutive:
		msg = fmt.Sprintf("This service requires %d minutes of consecutive time. Please select another time slot.", required*Minutes)
	case ReasonNoServices:
		msg = "Please select at least one service"
	}
	return &Rejection{Reason: reason, SlotID: slotID, Message: msg}
}

// IsRejection reports whether err carries a *Rejection.
func IsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}
