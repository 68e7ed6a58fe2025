package identity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeChecker struct {
	mu     sync.Mutex
	admins map[string]bool
	calls  int
	gate   chan struct{}
	err    error
}

func (f *fakeChecker) IsAdmin(ctx context.Context, userID string) (bool, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.admins[userID], f.err
}

func (f *fakeChecker) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeProvider struct {
	mu         sync.Mutex
	signUpUser *User
	signUpTok  *Tokens
	signUpErr  error
	signInTok  *Tokens
	signInErr  error
	refreshTok *Tokens
	refreshErr error
	signedOut  []string
	users      []User
}

func (f *fakeProvider) SignUp(ctx context.Context, req SignUpRequest) (*User, *Tokens, error) {
	return f.signUpUser, f.signUpTok, f.signUpErr
}

func (f *fakeProvider) SignIn(ctx context.Context, email, password string) (*Tokens, error) {
	return f.signInTok, f.signInErr
}

func (f *fakeProvider) SignOut(ctx context.Context, accessToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signedOut = append(f.signedOut, accessToken)
	return nil
}

func (f *fakeProvider) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	return f.refreshTok, f.refreshErr
}

func (f *fakeProvider) GetUser(ctx context.Context, accessToken string) (*User, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeProvider) ListUsers(ctx context.Context) ([]User, error) {
	return f.users, nil
}

type fakeProfiles struct {
	err     error
	created []string
}

func (f *fakeProfiles) CreateProfile(ctx context.Context, userID, fullName, phone string) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, userID)
	return nil
}

func startHolder(t *testing.T, checker AdminChecker) *Holder {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h := NewHolder(checker, nil)
	go h.Run(ctx)
	t.Cleanup(cancel)
	return h
}

func tokensFor(userID string, expiresAt time.Time) *Tokens {
	return &Tokens{
		AccessToken:  "access-" + userID,
		RefreshToken: "refresh-" + userID,
		ExpiresAt:    expiresAt,
		User:         User{ID: userID, Email: userID + "@example.com"},
	}
}

func waitFor(t *testing.T, changes <-chan Change, kind EventKind) Change {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case c, ok := <-changes:
			if !ok {
				t.Fatalf("change stream closed while waiting for %s", kind)
			}
			if c.Kind == kind {
				return c
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", kind)
		}
	}
}
