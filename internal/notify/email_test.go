package notify

import (
	"context"
	"errors"
	"testing"
)

func TestNewSendGridSender(t *testing.T) {
	if s := NewSendGridSender(SendGridConfig{FromEmail: "bookings@salon.example"}, nil); s != nil {
		t.Fatal("expected nil sender when API key is empty")
	}

	s := NewSendGridSender(SendGridConfig{APIKey: "test-key", FromEmail: "bookings@salon.example"}, nil)
	if s == nil {
		t.Fatal("expected non-nil sender")
	}
	if s.fromName != "Nail Salon" {
		t.Errorf("expected default from name, got %q", s.fromName)
	}

	s = NewSendGridSender(SendGridConfig{APIKey: "test-key", FromName: "Polished Studio"}, nil)
	if s.fromName != "Polished Studio" {
		t.Errorf("expected custom from name, got %q", s.fromName)
	}
}

func TestSendGridBuild(t *testing.T) {
	s := NewSendGridSender(SendGridConfig{APIKey: "test-key", FromEmail: "bookings@salon.example", FromName: "Polished"}, nil)

	m := s.build(EmailMessage{
		To:       "ana@example.com",
		ToName:   "Ana Silva",
		ReplyTo:  "desk@polished.example",
		Subject:  "Your Polished appointment",
		Body:     "See you soon",
		Category: CategoryConfirmation,
		RefID:    "a1",
	})

	if m.From.Address != "bookings@salon.example" || m.From.Name != "Polished" {
		t.Fatalf("unexpected from: %+v", m.From)
	}
	if len(m.Personalizations) != 1 || m.Personalizations[0].To[0].Address != "ana@example.com" {
		t.Fatalf("unexpected recipients: %+v", m.Personalizations)
	}
	if len(m.Content) != 1 || m.Content[0].Type != "text/plain" || m.Content[0].Value != "See you soon" {
		t.Fatalf("expected a single plain-text part, got %+v", m.Content)
	}
	if m.ReplyTo == nil || m.ReplyTo.Address != "desk@polished.example" {
		t.Fatalf("expected reply-to, got %+v", m.ReplyTo)
	}
	if len(m.Categories) != 1 || m.Categories[0] != CategoryConfirmation {
		t.Fatalf("expected category, got %v", m.Categories)
	}
	if m.Headers["X-Entity-Ref-ID"] != "a1" {
		t.Fatalf("expected ref header, got %v", m.Headers)
	}
}

func TestSendGridBuildMinimal(t *testing.T) {
	s := NewSendGridSender(SendGridConfig{APIKey: "test-key"}, nil)
	m := s.build(EmailMessage{To: "ana@example.com", Subject: "Hi", Body: "x"})
	if m.ReplyTo != nil || len(m.Categories) != 0 || len(m.Headers) != 0 {
		t.Fatalf("expected no optional fields, got %+v", m)
	}
}

func TestSendGridSendGuards(t *testing.T) {
	err := (&SendGridSender{}).Send(context.Background(), EmailMessage{To: "ana@example.com"})
	if err == nil {
		t.Fatal("expected error when client is nil")
	}

	s := NewSendGridSender(SendGridConfig{APIKey: "test-key"}, nil)
	err = s.Send(context.Background(), EmailMessage{Subject: "no recipient"})
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected for empty recipient, got %v", err)
	}
}

func TestStubEmailSender(t *testing.T) {
	if err := NewStubEmailSender(nil).Send(context.Background(), EmailMessage{To: "ana@example.com", Subject: "Hi"}); err != nil {
		t.Fatalf("stub sender should not fail, got %v", err)
	}
}
