package identity

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRegisterCreatesProfileAndSession(t *testing.T) {
	ctx := context.Background()
	h := startHolder(t, nil)
	tokens := tokensFor("u1", time.Now().Add(time.Hour))
	provider := &fakeProvider{signUpUser: &tokens.User, signUpTok: tokens}
	profiles := &fakeProfiles{}

	a := NewAccounts(provider, profiles, h, nil)
	a.newID = func() string { return "sess-1" }

	res, err := a.Register(ctx, SignUpRequest{Email: " jane@example.com ", Password: "secret1", FullName: " Jane "})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if res.SessionID != "sess-1" || res.ConfirmationRequired {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(profiles.created) != 1 || profiles.created[0] != "u1" {
		t.Fatalf("expected profile for u1, got %v", profiles.created)
	}
	st, _ := h.Snapshot(ctx, "sess-1")
	if st.User == nil || st.User.ID != "u1" {
		t.Fatalf("expected signed-in session, got %+v", st)
	}
}

func TestRegisterConfirmationRequired(t *testing.T) {
	h := startHolder(t, nil)
	provider := &fakeProvider{signUpUser: &User{ID: "u1", Email: "jane@example.com"}}
	a := NewAccounts(provider, &fakeProfiles{}, h, nil)

	res, err := a.Register(context.Background(), SignUpRequest{Email: "jane@example.com", Password: "secret1", FullName: "Jane"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !res.ConfirmationRequired || res.SessionID != "" {
		t.Fatalf("expected confirmation required, got %+v", res)
	}
}

func TestRegisterProfileFailureSignsOut(t *testing.T) {
	ctx := context.Background()
	h := startHolder(t, nil)
	tokens := tokensFor("u1", time.Now().Add(time.Hour))
	provider := &fakeProvider{signUpUser: &tokens.User, signUpTok: tokens}
	a := NewAccounts(provider, &fakeProfiles{err: errors.New("insert failed")}, h, nil)
	a.newID = func() string { return "sess-1" }

	_, err := a.Register(ctx, SignUpRequest{Email: "jane@example.com", Password: "secret1", FullName: "Jane"})
	if !errors.Is(err, ErrProfileSetup) {
		t.Fatalf("expected ErrProfileSetup, got %v", err)
	}
	if err.Error() != "Account created but profile setup failed. Please try again." {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if len(provider.signedOut) != 1 || provider.signedOut[0] != tokens.AccessToken {
		t.Fatalf("expected remote sign out, got %v", provider.signedOut)
	}
	if st, _ := h.Snapshot(ctx, "sess-1"); st.User != nil {
		t.Fatalf("no session should exist, got %+v", st)
	}
}

func TestRegisterValidation(t *testing.T) {
	a := NewAccounts(&fakeProvider{}, &fakeProfiles{}, nil, nil)
	tests := []struct {
		name string
		req  SignUpRequest
		want error
	}{
		{"bad email", SignUpRequest{Email: "nope", Password: "secret1", FullName: "Jane"}, ErrInvalidEmail},
		{"short password", SignUpRequest{Email: "jane@example.com", Password: "123", FullName: "Jane"}, ErrPasswordTooWeak},
		{"missing name", SignUpRequest{Email: "jane@example.com", Password: "secret1", FullName: "  "}, ErrFullNameMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := a.Register(context.Background(), tt.req); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestLoginAndLogout(t *testing.T) {
	ctx := context.Background()
	h := startHolder(t, nil)
	tokens := tokensFor("u1", time.Now().Add(time.Hour))
	provider := &fakeProvider{signInTok: tokens}
	a := NewAccounts(provider, nil, h, nil)
	a.newID = func() string { return "sess-1" }

	id, user, err := a.Login(ctx, "u1@example.com", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if id != "sess-1" || user.ID != "u1" {
		t.Fatalf("unexpected login result %s %+v", id, user)
	}

	if err := a.Logout(ctx, id); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(provider.signedOut) != 1 {
		t.Fatalf("expected remote sign out, got %v", provider.signedOut)
	}
	if st, _ := h.Snapshot(ctx, id); st.User != nil {
		t.Fatalf("expected cleared session, got %+v", st)
	}
}

func TestLoginRejectsBlankCredentials(t *testing.T) {
	a := NewAccounts(&fakeProvider{}, nil, nil, nil)
	if _, _, err := a.Login(context.Background(), " ", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}
