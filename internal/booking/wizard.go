// Package booking drives the multi-step booking wizard: pick services, pick
// a date and start slot, confirm, submit.
package booking

import (
	"errors"
	"strings"
	"time"

	"github.com/wolfman30/salon-booking/internal/slots"
)

// Messages in these errors are shown to the customer.
var (
	ErrNoServices        = errors.New("Please select at least one service")
	ErrNoSlot            = errors.New("Please select a time slot")
	ErrNoDate            = errors.New("Please select a date")
	ErrStaleAvailability = errors.New("Availability has changed. Please select a time slot again.")
	ErrProfileRequired   = errors.New("Please complete your profile before booking an appointment. Go to My Account to update your profile.")
	ErrWrongStep         = errors.New("booking: action not allowed at this step")
	ErrNotesTooLong      = errors.New("Notes must be at most 500 characters")
)

// Step is a wizard state.
type Step string

const (
	StepSelectingServices Step = "selecting_services"
	StepSelectingDateTime Step = "selecting_datetime"
	StepConfirming        Step = "confirming"
	StepSubmitting        Step = "submitting"
	StepSucceeded         Step = "succeeded"
)

const maxNotes = 500

// Draft is one customer's wizard state. A failed submission returns the
// draft to StepConfirming with Error set.
type Draft struct {
	UserID        string     `json:"user_id"`
	Step          Step       `json:"step"`
	ServiceIDs    []string   `json:"service_ids"`
	Date          string     `json:"date,omitempty"`
	Run           *slots.Run `json:"run,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	Revision      int        `json:"revision"`
	Error         string     `json:"error,omitempty"`
	AppointmentID string     `json:"appointment_id,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func NewDraft(userID string) *Draft {
	return &Draft{UserID: userID, Step: StepSelectingServices, ServiceIDs: []string{}}
}

// SelectServices replaces the selection. The chosen slot is dropped because
// the number of required slots may have changed.
func (d *Draft) SelectServices(ids []string) error {
	if d.Step != StepSelectingServices {
		return ErrWrongStep
	}
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	d.ServiceIDs = out
	d.resetSlot()
	return nil
}

// SelectDate sets the date and drops the chosen slot.
func (d *Draft) SelectDate(date string) error {
	if d.Step != StepSelectingDateTime {
		return ErrWrongStep
	}
	d.Date = date
	d.resetSlot()
	return nil
}

// ChooseSlot stores a run accepted by slots.Validate. revision is the draft
// revision the customer's availability list was computed for; an older one
// means the list is stale.
func (d *Draft) ChooseSlot(run slots.Run, revision int) error {
	if d.Step != StepSelectingDateTime {
		return ErrWrongStep
	}
	if d.Date == "" {
		return ErrNoDate
	}
	if revision != d.Revision {
		return ErrStaleAvailability
	}
	d.Run = &run
	d.Error = ""
	return nil
}

func (d *Draft) resetSlot() {
	d.Run = nil
	d.Error = ""
	d.Revision++
}

func (d *Draft) Next() error {
	switch d.Step {
	case StepSelectingServices:
		if len(d.ServiceIDs) == 0 {
			return ErrNoServices
		}
		d.Step = StepSelectingDateTime
	case StepSelectingDateTime:
		if d.Run == nil {
			return ErrNoSlot
		}
		d.Step = StepConfirming
	default:
		return ErrWrongStep
	}
	d.Error = ""
	return nil
}

// Back moves one step towards the start without touching the selection.
func (d *Draft) Back() error {
	switch d.Step {
	case StepConfirming:
		d.Step = StepSelectingDateTime
	case StepSelectingDateTime:
		d.Step = StepSelectingServices
	default:
		return ErrWrongStep
	}
	d.Error = ""
	return nil
}

func (d *Draft) SetNotes(text string) error {
	switch d.Step {
	case StepSubmitting, StepSucceeded:
		return ErrWrongStep
	}
	text = strings.TrimSpace(text)
	if len(text) > maxNotes {
		return ErrNotesTooLong
	}
	d.Notes = text
	return nil
}

func (d *Draft) BeginSubmit() error {
	if d.Step != StepConfirming {
		return ErrWrongStep
	}
	if len(d.ServiceIDs) == 0 {
		return ErrNoServices
	}
	if d.Run == nil {
		return ErrNoSlot
	}
	d.Step = StepSubmitting
	d.Error = ""
	return nil
}

func (d *Draft) Succeed(appointmentID string) error {
	if d.Step != StepSubmitting {
		return ErrWrongStep
	}
	d.Step = StepSucceeded
	d.AppointmentID = appointmentID
	return nil
}

// Reschedule sends a confirming draft back to slot selection with msg
// because the chosen run no longer holds. clearDate also drops the date.
func (d *Draft) Reschedule(msg string, clearDate bool) error {
	if d.Step != StepConfirming {
		return ErrWrongStep
	}
	d.Step = StepSelectingDateTime
	if clearDate {
		d.Date = ""
	}
	d.resetSlot()
	d.Error = msg
	return nil
}

// Fail returns a submitting draft to confirmation with msg. The write was
// transactional so nothing needs undoing.
func (d *Draft) Fail(msg string) error {
	if d.Step != StepSubmitting {
		return ErrWrongStep
	}
	d.Step = StepConfirming
	d.Error = msg
	return nil
}
