// Package identity holds the per-browser session state backed by the hosted
// identity service.
package identity

import (
	"errors"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("identity: invalid email or password")
	ErrSessionExpired     = errors.New("identity: session expired")
	ErrUserNotFound       = errors.New("identity: user not found")
	ErrEmailTaken         = errors.New("identity: email already registered")
	ErrProfileSetup       = errors.New("Account created but profile setup failed. Please try again.")
	ErrHolderClosed       = errors.New("identity: holder stopped")
)

// User is the identity as reported by the identity service.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
}

// Tokens are the credentials issued for a signed-in user.
type Tokens struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// ExpiresWithin reports whether the access token expires before now+d.
func (t *Tokens) ExpiresWithin(now time.Time, d time.Duration) bool {
	if t == nil || t.ExpiresAt.IsZero() {
		return false
	}
	return !t.ExpiresAt.After(now.Add(d))
}

// State is what the rest of the service sees of a session.
type State struct {
	SessionID string  `json:"-"`
	User      *User   `json:"user"`
	Tokens    *Tokens `json:"-"`
	IsAdmin   bool    `json:"is_admin"`
	Loading   bool    `json:"loading"`
}

// Authenticated reports whether an identity is present.
func (s State) Authenticated() bool {
	return s.User != nil
}
