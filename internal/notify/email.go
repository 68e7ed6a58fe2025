package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/wolfman30/salon-booking/pkg/logging"
)

// ErrRejected marks a message the provider refused outright (bad address,
// malformed request). Retrying will not help.
var ErrRejected = errors.New("notify: message rejected by provider")

// Mail categories, used for provider-side reporting.
const (
	CategoryConfirmation = "booking_confirmation"
	CategorySalonCopy    = "salon_copy"
	CategoryStatus       = "status_update"
)

// EmailSender delivers one message.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage is a plain-text notification.
type EmailMessage struct {
	To       string
	ToName   string
	ReplyTo  string
	Subject  string
	Body     string
	Category string
	// RefID ties the mail to an appointment in provider logs.
	RefID string
}

// SendGridSender sends mail through the SendGrid v3 API.
type SendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	logger    *logging.Logger
}

type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// NewSendGridSender returns nil when no API key is configured.
func NewSendGridSender(cfg SendGridConfig, logger *logging.Logger) *SendGridSender {
	if cfg.APIKey == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = "Nail Salon"
	}
	return &SendGridSender{
		client:    sendgrid.NewSendClient(cfg.APIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		logger:    logger,
	}
}

func (s *SendGridSender) build(msg EmailMessage) *mail.SGMailV3 {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(msg.ToName, msg.To)
	message := mail.NewSingleEmailPlainText(from, msg.Subject, to, msg.Body)
	if msg.ReplyTo != "" {
		message.SetReplyTo(mail.NewEmail("", msg.ReplyTo))
	}
	if msg.Category != "" {
		message.AddCategories(msg.Category)
	}
	if msg.RefID != "" {
		message.SetHeader("X-Entity-Ref-ID", msg.RefID)
	}
	return message
}

// Send delivers msg. 4xx answers other than 429 wrap ErrRejected; transport
// failures, 429 and 5xx are plain errors.
func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	if s.client == nil {
		return fmt.Errorf("notify: sendgrid client not configured")
	}
	if msg.To == "" {
		return fmt.Errorf("%w: empty recipient", ErrRejected)
	}

	response, err := s.client.SendWithContext(ctx, s.build(msg))
	if err != nil {
		s.logger.Error("sendgrid send failed", "error", err, "category", msg.Category, "ref", msg.RefID)
		return fmt.Errorf("notify: sendgrid send: %w", err)
	}

	switch {
	case response.StatusCode == http.StatusTooManyRequests || response.StatusCode >= 500:
		s.logger.Warn("sendgrid unavailable", "status", response.StatusCode, "ref", msg.RefID)
		return fmt.Errorf("notify: sendgrid status %d", response.StatusCode)
	case response.StatusCode >= 400:
		s.logger.Error("sendgrid rejected message", "status", response.StatusCode, "body", response.Body, "ref", msg.RefID)
		return fmt.Errorf("%w: status %d", ErrRejected, response.StatusCode)
	}

	s.logger.Info("email sent", "category", msg.Category, "ref", msg.RefID, "status", response.StatusCode)
	return nil
}

// StubEmailSender logs messages instead of sending them.
type StubEmailSender struct {
	logger *logging.Logger
}

func NewStubEmailSender(logger *logging.Logger) *StubEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubEmailSender{logger: logger}
}

func (s *StubEmailSender) Send(ctx context.Context, msg EmailMessage) error {
	s.logger.Info("email not sent (no provider configured)",
		"to", msg.To,
		"subject", msg.Subject,
		"category", msg.Category,
		"ref", msg.RefID,
	)
	return nil
}
