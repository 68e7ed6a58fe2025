package identity

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/wolfman30/salon-booking/pkg/logging"
)

var (
	ErrInvalidEmail    = errors.New("a valid email address is required")
	ErrPasswordTooWeak = errors.New("password must be at least 6 characters")
	ErrFullNameMissing = errors.New("full name is required")
)

// Accounts runs the sign-up, sign-in and sign-out flows and reports the
// outcome to the holder.
type Accounts struct {
	provider Provider
	profiles ProfileCreator
	holder   *Holder
	logger   *logging.Logger
	newID    func() string
}

func NewAccounts(provider Provider, profiles ProfileCreator, holder *Holder, logger *logging.Logger) *Accounts {
	if logger == nil {
		logger = logging.Default()
	}
	return &Accounts{
		provider: provider,
		profiles: profiles,
		holder:   holder,
		logger:   logger,
		newID:    uuid.NewString,
	}
}

// RegisterResult describes a completed sign-up. SessionID is empty when the
// identity service wants the address confirmed first.
type RegisterResult struct {
	SessionID            string `json:"-"`
	User                 User   `json:"user"`
	ConfirmationRequired bool   `json:"confirmation_required"`
}

func (req *SignUpRequest) validate() error {
	req.Email = strings.TrimSpace(req.Email)
	req.FullName = strings.TrimSpace(req.FullName)
	req.Phone = strings.TrimSpace(req.Phone)
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return ErrInvalidEmail
	}
	if len(req.Password) < 6 {
		return ErrPasswordTooWeak
	}
	if req.FullName == "" {
		return ErrFullNameMissing
	}
	return nil
}

// Register creates the account and its profile. If the profile cannot be
// written the new session is signed out again and ErrProfileSetup returned.
func (a *Accounts) Register(ctx context.Context, req SignUpRequest) (*RegisterResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	user, tokens, err := a.provider.SignUp(ctx, req)
	if err != nil {
		return nil, err
	}
	if user == nil || user.ID == "" {
		return nil, fmt.Errorf("identity: sign up returned no user")
	}

	if err := a.profiles.CreateProfile(ctx, user.ID, req.FullName, req.Phone); err != nil {
		a.logger.Error("profile setup failed after sign up", "error", err, "user_id", user.ID)
		if tokens != nil {
			if signOutErr := a.provider.SignOut(ctx, tokens.AccessToken); signOutErr != nil {
				a.logger.Error("sign out after failed profile setup", "error", signOutErr, "user_id", user.ID)
			}
		}
		return nil, ErrProfileSetup
	}

	res := &RegisterResult{User: *user, ConfirmationRequired: tokens == nil}
	if tokens == nil {
		return res, nil
	}
	res.SessionID = a.newID()
	if err := a.holder.Dispatch(ctx, Event{Kind: EventSignedIn, SessionID: res.SessionID, Tokens: tokens}); err != nil {
		return nil, err
	}
	a.logger.Info("account registered", "user_id", user.ID)
	return res, nil
}

// Login signs in and returns the new session id.
func (a *Accounts) Login(ctx context.Context, email, password string) (string, *User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return "", nil, ErrInvalidCredentials
	}
	tokens, err := a.provider.SignIn(ctx, email, password)
	if err != nil {
		return "", nil, err
	}
	sessionID := a.newID()
	if err := a.holder.Dispatch(ctx, Event{Kind: EventSignedIn, SessionID: sessionID, Tokens: tokens}); err != nil {
		return "", nil, err
	}
	a.logger.Info("signed in", "user_id", tokens.User.ID)
	user := tokens.User
	return sessionID, &user, nil
}

// Logout revokes the tokens remotely and clears the session locally. The
// local session is cleared even when the remote call fails.
func (a *Accounts) Logout(ctx context.Context, sessionID string) error {
	st, err := a.holder.Snapshot(ctx, sessionID)
	if err != nil {
		return err
	}
	if st.Tokens != nil {
		if err := a.provider.SignOut(ctx, st.Tokens.AccessToken); err != nil {
			a.logger.Warn("remote sign out failed", "error", err)
		}
	}
	return a.holder.Dispatch(ctx, Event{Kind: EventSignedOut, SessionID: sessionID})
}
