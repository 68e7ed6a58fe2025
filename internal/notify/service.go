package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/salon-booking/internal/events"
	"github.com/wolfman30/salon-booking/internal/identity"
	"github.com/wolfman30/salon-booking/internal/observability/metrics"
	"github.com/wolfman30/salon-booking/internal/profiles"
	"github.com/wolfman30/salon-booking/pkg/logging"
)

type userDirectory interface {
	ListUsers(ctx context.Context) ([]identity.User, error)
}

type profileLookup interface {
	Get(ctx context.Context, userID string) (*profiles.Profile, error)
}

// Config names the salon in outgoing mail.
type Config struct {
	SalonName   string
	NotifyEmail string
}

// Service turns outbox entries into customer and salon emails. It is used
// as the outbox DeliveryHandler.
type Service struct {
	email    EmailSender
	users    userDirectory
	profiles profileLookup
	cfg      Config
	metrics  *metrics.BookingMetrics
	logger   *logging.Logger
}

func NewService(email EmailSender, users userDirectory, profiles profileLookup, cfg Config, m *metrics.BookingMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if email == nil {
		email = NewStubEmailSender(logger)
	}
	if strings.TrimSpace(cfg.SalonName) == "" {
		cfg.SalonName = "Nail Salon"
	}
	return &Service{email: email, users: users, profiles: profiles, cfg: cfg, metrics: m, logger: logger}
}

// Handle implements events.DeliveryHandler. Unknown event types are
// acknowledged without sending anything. An error leaves the entry pending
// for the next delivery pass.
func (s *Service) Handle(ctx context.Context, entry events.OutboxEntry) error {
	var err error
	switch entry.Type {
	case events.TypeAppointmentBooked:
		var evt events.AppointmentBookedV1
		if err = entry.Envelope.Decode(&evt); err == nil {
			err = s.NotifyBooked(ctx, evt)
		}
	case events.TypeAppointmentStatusChanged:
		var evt events.AppointmentStatusChangedV1
		if err = entry.Envelope.Decode(&evt); err == nil {
			err = s.NotifyStatusChanged(ctx, evt)
		}
	default:
		s.logger.Debug("notify: ignoring event", "event_type", entry.Type, "id", entry.ID)
		return nil
	}

	status := "sent"
	switch {
	case errors.Is(err, ErrRejected):
		// The provider will never accept it; acknowledge so the entry is not
		// retried forever.
		s.logger.Error("notify: message rejected", "error", err, "event_type", entry.Type, "id", entry.ID)
		s.metrics.ObserveNotification(entry.Type, "rejected")
		return nil
	case err != nil:
		status = "failed"
	}
	s.metrics.ObserveNotification(entry.Type, status)
	return err
}

type recipient struct {
	email string
	name  string
}

func (s *Service) customer(ctx context.Context, userID string) (recipient, error) {
	var rc recipient
	if s.profiles != nil {
		if p, err := s.profiles.Get(ctx, userID); err == nil && p.FullName != nil {
			rc.name = *p.FullName
		}
	}
	if s.users == nil {
		return rc, fmt.Errorf("notify: no user directory configured")
	}
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return rc, fmt.Errorf("notify: list users: %w", err)
	}
	for _, u := range users {
		if u.ID == userID {
			rc.email = u.Email
			if rc.name == "" {
				rc.name = u.FullName
			}
			return rc, nil
		}
	}
	return rc, identity.ErrUserNotFound
}

// NotifyBooked sends the booking confirmation to the customer, then a copy
// to the salon. Only the customer email is required to succeed.
func (s *Service) NotifyBooked(ctx context.Context, evt events.AppointmentBookedV1) error {
	rc, err := s.customer(ctx, evt.UserID)
	if err != nil {
		s.logger.Error("notify: customer lookup failed", "error", err, "appointment_id", evt.AppointmentID)
		return err
	}

	services := strings.Join(evt.ServiceNames, ", ")
	if err := s.email.Send(ctx, EmailMessage{
		To:       rc.email,
		ToName:   rc.name,
		ReplyTo:  s.cfg.NotifyEmail,
		Subject:  fmt.Sprintf("Your %s appointment on %s", s.cfg.SalonName, evt.Date),
		Body:     customerBody(s.cfg.SalonName, rc.name, services, evt),
		Category: CategoryConfirmation,
		RefID:    evt.AppointmentID,
	}); err != nil {
		return fmt.Errorf("notify: customer confirmation: %w", err)
	}

	if s.cfg.NotifyEmail == "" {
		return nil
	}
	err = s.email.Send(ctx, EmailMessage{
		To:       s.cfg.NotifyEmail,
		ToName:   s.cfg.SalonName,
		ReplyTo:  rc.email,
		Subject:  fmt.Sprintf("New booking: %s %s", evt.Date, evt.StartTime),
		Body:     salonBody(rc, services, evt),
		Category: CategorySalonCopy,
		RefID:    evt.AppointmentID,
	})
	if err != nil {
		s.logger.Warn("notify: salon copy failed", "error", err, "appointment_id", evt.AppointmentID)
	}
	return nil
}

// NotifyStatusChanged tells the customer when an appointment is confirmed or
// cancelled by the salon. Changes made by the customer are not mailed.
func (s *Service) NotifyStatusChanged(ctx context.Context, evt events.AppointmentStatusChangedV1) error {
	if evt.ChangedBy == evt.UserID {
		return nil
	}
	var verb string
	switch evt.To {
	case "confirmed":
		verb = "confirmed"
	case "cancelled":
		verb = "cancelled"
	default:
		return nil
	}
	rc, err := s.customer(ctx, evt.UserID)
	if err != nil {
		return err
	}
	greeting := "Hi"
	if rc.name != "" {
		greeting = "Hi " + rc.name
	}
	return s.email.Send(ctx, EmailMessage{
		To:       rc.email,
		ToName:   rc.name,
		ReplyTo:  s.cfg.NotifyEmail,
		Subject:  fmt.Sprintf("Your %s appointment was %s", s.cfg.SalonName, verb),
		Body:     fmt.Sprintf("%s,\n\nYour appointment on %s has been %s.\n\n%s", greeting, evt.Date, verb, s.cfg.SalonName),
		Category: CategoryStatus,
		RefID:    evt.AppointmentID,
	})
}

func customerBody(salon, name, services string, evt events.AppointmentBookedV1) string {
	var b strings.Builder
	if name != "" {
		fmt.Fprintf(&b, "Hi %s,\n\n", name)
	} else {
		b.WriteString("Hi,\n\n")
	}
	fmt.Fprintf(&b, "Thanks for booking with %s. Your request is pending confirmation.\n\n", salon)
	fmt.Fprintf(&b, "Date: %s\nTime: %s - %s\nServices: %s\nTotal: $%.2f\n", evt.Date, evt.StartTime, evt.EndTime, services, evt.TotalPrice)
	if evt.Notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", evt.Notes)
	}
	b.WriteString("\nYou can view or cancel it under My Appointments.\n")
	return b.String()
}

func salonBody(rc recipient, services string, evt events.AppointmentBookedV1) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Customer: %s <%s>\n", rc.name, rc.email)
	fmt.Fprintf(&b, "Date: %s %s - %s (%d min)\n", evt.Date, evt.StartTime, evt.EndTime, evt.DurationMinutes)
	fmt.Fprintf(&b, "Services: %s\nTotal: $%.2f\n", services, evt.TotalPrice)
	if evt.Notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", evt.Notes)
	}
	fmt.Fprintf(&b, "Appointment: %s\n", evt.AppointmentID)
	return b.String()
}
