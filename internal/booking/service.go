package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/salon-booking/internal/appointments"
	"github.com/wolfman30/salon-booking/internal/catalog"
	"github.com/wolfman30/salon-booking/internal/observability/metrics"
	"github.com/wolfman30/salon-booking/internal/profiles"
	"github.com/wolfman30/salon-booking/internal/slots"
	"github.com/wolfman30/salon-booking/pkg/logging"
)

var bookingTracer = otel.Tracer("salon.internal.booking")

// SuccessRedirect is where the customer lands after a booking.
const SuccessRedirect = "/my-appointments?new_booking=1"

// msgDateExpired is shown when a confirmed draft's date stopped being
// bookable, usually because the draft sat until that day arrived.
const msgDateExpired = "That date can no longer be booked. Please choose another date."

var (
	ErrUnknownService = errors.New("One or more selected services are no longer available.")
	ErrInvalidDate    = errors.New("Please select a valid date")
)

type serviceCatalog interface {
	ListActive(ctx context.Context) ([]catalog.Service, error)
}

type slotGrid interface {
	ListAvailable(ctx context.Context) ([]slots.TimeSlot, error)
}

type reserver interface {
	BookedSlotIDs(ctx context.Context, date time.Time) ([]string, error)
	Reserve(ctx context.Context, res appointments.Reservation) (*appointments.Appointment, error)
}

type profileLookup interface {
	Get(ctx context.Context, userID string) (*profiles.Profile, error)
}

// Service runs wizard actions against reference data and persists drafts.
type Service struct {
	catalog  serviceCatalog
	grid     slotGrid
	appts    reserver
	profiles profileLookup
	drafts   DraftStore
	policy   slots.Policy
	metrics  *metrics.BookingMetrics
	logger   *logging.Logger
	now      func() time.Time
}

// Deps groups the collaborators of Service.
type Deps struct {
	Catalog  serviceCatalog
	Grid     slotGrid
	Appts    reserver
	Profiles profileLookup
	Drafts   DraftStore
	Policy   slots.Policy
	Metrics  *metrics.BookingMetrics
	Logger   *logging.Logger
}

func NewService(d Deps) *Service {
	if d.Catalog == nil || d.Grid == nil || d.Appts == nil || d.Profiles == nil || d.Drafts == nil {
		panic("booking: missing dependency")
	}
	if d.Logger == nil {
		d.Logger = logging.Default()
	}
	return &Service{
		catalog:  d.Catalog,
		grid:     d.Grid,
		appts:    d.Appts,
		profiles: d.Profiles,
		drafts:   d.Drafts,
		policy:   d.Policy,
		metrics:  d.Metrics,
		logger:   d.Logger,
		now:      time.Now,
	}
}

// View is everything the wizard page renders for the current draft.
type View struct {
	Draft         *Draft                    `json:"draft"`
	Services      []catalog.Service         `json:"services"`
	Selected      []slots.Service           `json:"selected"`
	TotalDuration int                       `json:"total_duration"`
	TotalPrice    float64                   `json:"total_price"`
	RequiredSlots int                       `json:"required_slots"`
	Dates         []string                  `json:"dates,omitempty"`
	Candidates    []slots.Candidate         `json:"candidates,omitempty"`
	Redirect      string                    `json:"redirect,omitempty"`
	Appointment   *appointments.Appointment `json:"appointment,omitempty"`
}

func (s *Service) load(ctx context.Context, userID string) (*Draft, error) {
	d, err := s.drafts.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if d == nil || d.Step == StepSucceeded {
		d = NewDraft(userID)
	}
	return d, nil
}

// selected resolves the draft's service ids against the active catalog.
func selected(all []catalog.Service, ids []string) ([]slots.Service, error) {
	byID := make(map[string]catalog.Service, len(all))
	for _, svc := range all {
		byID[svc.ID] = svc
	}
	out := make([]slots.Service, 0, len(ids))
	for _, id := range ids {
		svc, ok := byID[id]
		if !ok {
			return nil, ErrUnknownService
		}
		out = append(out, svc.SlotService())
	}
	return out, nil
}

// available is the lenient form of selected used for rendering: services
// withdrawn since they were picked are left out.
func available(all []catalog.Service, ids []string) []slots.Service {
	byID := make(map[string]catalog.Service, len(all))
	for _, svc := range all {
		byID[svc.ID] = svc
	}
	out := make([]slots.Service, 0, len(ids))
	for _, id := range ids {
		if svc, ok := byID[id]; ok {
			out = append(out, svc.SlotService())
		}
	}
	return out
}

// dayContext loads the weekday grid and booked set for date.
func (s *Service) dayContext(ctx context.Context, date time.Time) ([]slots.TimeSlot, map[string]bool, error) {
	all, err := s.grid.ListAvailable(ctx)
	if err != nil {
		return nil, nil, err
	}
	booked, err := s.appts.BookedSlotIDs(ctx, date)
	if err != nil {
		return nil, nil, err
	}
	return all, slots.BookedSet(booked), nil
}

func (s *Service) view(ctx context.Context, d *Draft) (*View, error) {
	all, err := s.catalog.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("booking: load services: %w", err)
	}
	if all == nil {
		all = []catalog.Service{}
	}
	sel := available(all, d.ServiceIDs)
	v := &View{
		Draft:         d,
		Services:      all,
		Selected:      sel,
		TotalDuration: slots.TotalDuration(sel),
		TotalPrice:    slots.TotalPrice(sel),
		RequiredSlots: slots.RequiredSlots(sel),
	}
	if d.Step != StepSelectingDateTime {
		return v, nil
	}

	now := s.now()
	for _, day := range slots.BookableDates(now, s.policy) {
		v.Dates = append(v.Dates, day.Format(time.DateOnly))
	}
	if d.Date == "" {
		return v, nil
	}
	date, err := slots.ParseDate(d.Date)
	if err != nil {
		return v, nil
	}
	grid, booked, err := s.dayContext(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("booking: load availability: %w", err)
	}
	v.Candidates = slots.Availability(grid, booked, sel, date, now, s.policy)
	return v, nil
}

func (s *Service) apply(ctx context.Context, userID, op string, fn func(d *Draft) error) (*View, error) {
	ctx, span := bookingTracer.Start(ctx, "booking."+op)
	defer span.End()
	span.SetAttributes(attribute.String("salon.user_id", userID))

	d, err := s.load(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := fn(d); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if err := s.drafts.Save(ctx, d); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return s.view(ctx, d)
}

// Current returns the view for the user's draft, starting a new one if
// needed.
func (s *Service) Current(ctx context.Context, userID string) (*View, error) {
	d, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, d)
}

func (s *Service) SelectServices(ctx context.Context, userID string, ids []string) (*View, error) {
	return s.apply(ctx, userID, "select_services", func(d *Draft) error {
		all, err := s.catalog.ListActive(ctx)
		if err != nil {
			return fmt.Errorf("booking: load services: %w", err)
		}
		if _, err := selected(all, ids); err != nil {
			return err
		}
		return d.SelectServices(ids)
	})
}

func (s *Service) SelectDate(ctx context.Context, userID, date string) (*View, error) {
	return s.apply(ctx, userID, "select_date", func(d *Draft) error {
		parsed, err := slots.ParseDate(date)
		if err != nil {
			return ErrInvalidDate
		}
		if err := slots.BookableDate(parsed, s.now(), s.policy); err != nil {
			return err
		}
		return d.SelectDate(parsed.Format(time.DateOnly))
	})
}

// ChooseSlot validates startSlotID against fresh availability for the
// draft's date. revision must match the draft the customer was looking at.
func (s *Service) ChooseSlot(ctx context.Context, userID, startSlotID string, revision int) (*View, error) {
	return s.apply(ctx, userID, "choose_slot", func(d *Draft) error {
		if d.Step != StepSelectingDateTime {
			return ErrWrongStep
		}
		if d.Date == "" {
			return ErrNoDate
		}
		if revision != d.Revision {
			return ErrStaleAvailability
		}
		date, err := slots.ParseDate(d.Date)
		if err != nil {
			return ErrInvalidDate
		}
		if err := slots.BookableDate(date, s.now(), s.policy); err != nil {
			return err
		}
		all, err := s.catalog.ListActive(ctx)
		if err != nil {
			return fmt.Errorf("booking: load services: %w", err)
		}
		sel, err := selected(all, d.ServiceIDs)
		if err != nil {
			return err
		}
		grid, booked, err := s.dayContext(ctx, date)
		if err != nil {
			return fmt.Errorf("booking: load availability: %w", err)
		}
		run, err := slots.Validate(slots.DaySlots(grid, date), booked, slots.RequiredSlots(sel), startSlotID)
		if err != nil {
			if rej, ok := slots.IsRejection(err); ok {
				s.metrics.ObserveRejection(string(rej.Reason))
			}
			return err
		}
		return d.ChooseSlot(run, revision)
	})
}

func (s *Service) SetNotes(ctx context.Context, userID, notes string) (*View, error) {
	return s.apply(ctx, userID, "set_notes", func(d *Draft) error {
		return d.SetNotes(notes)
	})
}

func (s *Service) Next(ctx context.Context, userID string) (*View, error) {
	return s.apply(ctx, userID, "next", func(d *Draft) error {
		return d.Next()
	})
}

func (s *Service) Back(ctx context.Context, userID string) (*View, error) {
	return s.apply(ctx, userID, "back", func(d *Draft) error {
		return d.Back()
	})
}

// Submit reserves the confirmed draft. A customer without a profile is sent
// to complete it first. On a failed write the draft goes back to
// confirmation with a message; on success it is removed.
func (s *Service) Submit(ctx context.Context, userID string) (*View, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.submit")
	defer span.End()
	span.SetAttributes(attribute.String("salon.user_id", userID))

	d, err := s.load(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if d.Step != StepConfirming {
		return nil, ErrWrongStep
	}

	if _, err := s.profiles.Get(ctx, userID); err != nil {
		if errors.Is(err, profiles.ErrProfileNotFound) {
			s.metrics.ObserveSubmission("profile_missing")
			return nil, ErrProfileRequired
		}
		span.RecordError(err)
		return nil, fmt.Errorf("booking: load profile: %w", err)
	}

	all, err := s.catalog.ListActive(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("booking: load services: %w", err)
	}
	sel, err := selected(all, d.ServiceIDs)
	if err != nil {
		return nil, err
	}
	date, err := slots.ParseDate(d.Date)
	if err != nil {
		return nil, ErrInvalidDate
	}
	if d.Run == nil {
		return nil, ErrNoSlot
	}

	// The draft may be hours old: the date can have become today and the
	// services or grid can have changed since the run was chosen.
	if err := slots.BookableDate(date, s.now(), s.policy); err != nil {
		s.metrics.ObserveSubmission("date_expired")
		return s.reschedule(ctx, d, msgDateExpired, true)
	}
	grid, booked, err := s.dayContext(ctx, date)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("booking: load availability: %w", err)
	}
	run, err := slots.Validate(slots.DaySlots(grid, date), booked, slots.RequiredSlots(sel), d.Run.StartSlotID)
	if err != nil {
		rej, ok := slots.IsRejection(err)
		if !ok {
			return nil, err
		}
		s.metrics.ObserveRejection(string(rej.Reason))
		s.metrics.ObserveSubmission("run_invalid")
		return s.reschedule(ctx, d, rej.Message, false)
	}
	d.Run = &run

	if err := d.BeginSubmit(); err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("salon.date", d.Date),
		attribute.Int("salon.required_slots", len(d.Run.RequiredSlotIDs)),
	)

	started := s.now()
	appt, err := s.appts.Reserve(ctx, appointments.Reservation{
		UserID:   userID,
		Date:     date,
		Run:      *d.Run,
		Services: sel,
		Notes:    d.Notes,
	})
	s.metrics.ObserveReserveLatency(s.now().Sub(started).Seconds())
	if err != nil {
		msg := "Failed to book appointment. Please try again."
		outcome := "failed"
		if errors.Is(err, appointments.ErrSlotTaken) {
			msg = "Sorry, that time was just booked by someone else. Please go back and choose another time."
			outcome = "slot_taken"
		} else {
			s.logger.Error("reservation failed", "error", err, "user_id", userID, "date", d.Date)
		}
		span.SetStatus(codes.Error, outcome)
		s.metrics.ObserveSubmission(outcome)
		_ = d.Fail(msg)
		if saveErr := s.drafts.Save(ctx, d); saveErr != nil {
			s.logger.Error("failed to save booking draft", "error", saveErr, "user_id", userID)
		}
		return s.view(ctx, d)
	}

	_ = d.Succeed(appt.ID)
	s.metrics.ObserveSubmission("succeeded")
	if err := s.drafts.Delete(ctx, userID); err != nil {
		s.logger.Warn("failed to clear booking draft", "error", err, "user_id", userID)
	}
	s.logger.Info("appointment booked", "appointment_id", appt.ID, "user_id", userID, "date", d.Date)
	return &View{
		Draft:         d,
		Selected:      sel,
		TotalDuration: slots.TotalDuration(sel),
		TotalPrice:    slots.TotalPrice(sel),
		RequiredSlots: slots.RequiredSlots(sel),
		Redirect:      SuccessRedirect,
		Appointment:   appt,
	}, nil
}

func (s *Service) reschedule(ctx context.Context, d *Draft, msg string, clearDate bool) (*View, error) {
	if err := d.Reschedule(msg, clearDate); err != nil {
		return nil, err
	}
	if err := s.drafts.Save(ctx, d); err != nil {
		return nil, err
	}
	return s.view(ctx, d)
}
