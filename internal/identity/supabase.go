package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/gotrue-go/types"
	supa "github.com/supabase-community/supabase-go"
)

// SupabaseProvider talks to Supabase Auth.
type SupabaseProvider struct {
	auth  gotrue.Client
	admin gotrue.Client
}

// NewSupabaseProvider builds the auth client from the project URL and anon
// key. serviceRoleKey enables ListUsers; without it ListUsers fails.
func NewSupabaseProvider(url, anonKey, serviceRoleKey string, timeout time.Duration) (*SupabaseProvider, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	httpClient := http.Client{Timeout: timeout}

	client, err := supa.NewClient(url, anonKey, nil)
	if err != nil {
		return nil, fmt.Errorf("identity: supabase client: %w", err)
	}
	p := &SupabaseProvider{auth: client.Auth.WithClient(httpClient)}

	if strings.TrimSpace(serviceRoleKey) != "" {
		adminClient, err := supa.NewClient(url, serviceRoleKey, nil)
		if err != nil {
			return nil, fmt.Errorf("identity: supabase admin client: %w", err)
		}
		p.admin = adminClient.Auth.WithClient(httpClient).WithToken(serviceRoleKey)
	}
	return p, nil
}

func (p *SupabaseProvider) SignUp(ctx context.Context, req SignUpRequest) (*User, *Tokens, error) {
	resp, err := call(ctx, func() (*types.SignupResponse, error) {
		return p.auth.Signup(types.SignupRequest{
			Email:    req.Email,
			Password: req.Password,
			Data: map[string]interface{}{
				"full_name": req.FullName,
				"phone":     req.Phone,
			},
		})
	})
	if err != nil {
		if status(err) == http.StatusUnprocessableEntity || strings.Contains(err.Error(), "already registered") {
			return nil, nil, ErrEmailTaken
		}
		return nil, nil, fmt.Errorf("identity: sign up: %w", err)
	}

	// With auto-confirm on the service answers with a session instead of a
	// bare user.
	if resp.AccessToken != "" {
		tokens := toTokens(resp.Session)
		return &tokens.User, tokens, nil
	}
	u := toUser(resp.User)
	return &u, nil, nil
}

func (p *SupabaseProvider) SignIn(ctx context.Context, email, password string) (*Tokens, error) {
	resp, err := call(ctx, func() (*types.TokenResponse, error) {
		return p.auth.SignInWithEmailPassword(email, password)
	})
	if err != nil {
		if s := status(err); s == http.StatusBadRequest || s == http.StatusUnauthorized || errors.Is(err, types.ErrInvalidTokenRequest) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("identity: sign in: %w", err)
	}
	return toTokens(resp.Session), nil
}

func (p *SupabaseProvider) SignOut(ctx context.Context, accessToken string) error {
	_, err := call(ctx, func() (struct{}, error) {
		return struct{}{}, p.auth.WithToken(accessToken).Logout()
	})
	if err != nil && status(err) != http.StatusUnauthorized {
		return fmt.Errorf("identity: sign out: %w", err)
	}
	return nil
}

func (p *SupabaseProvider) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	resp, err := call(ctx, func() (*types.TokenResponse, error) {
		return p.auth.RefreshToken(refreshToken)
	})
	if err != nil {
		switch status(err) {
		case http.StatusBadRequest, http.StatusUnauthorized:
			return nil, ErrSessionExpired
		case http.StatusNotFound:
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("identity: refresh: %w", err)
	}
	return toTokens(resp.Session), nil
}

func (p *SupabaseProvider) GetUser(ctx context.Context, accessToken string) (*User, error) {
	resp, err := call(ctx, func() (*types.UserResponse, error) {
		return p.auth.WithToken(accessToken).GetUser()
	})
	if err != nil {
		switch status(err) {
		case http.StatusUnauthorized, http.StatusForbidden:
			return nil, ErrSessionExpired
		case http.StatusNotFound:
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("identity: get user: %w", err)
	}
	u := toUser(resp.User)
	return &u, nil
}

func (p *SupabaseProvider) ListUsers(ctx context.Context) ([]User, error) {
	if p.admin == nil {
		return nil, errors.New("identity: list users requires SUPABASE_SERVICE_ROLE_KEY")
	}
	resp, err := call(ctx, func() (*types.AdminListUsersResponse, error) {
		return p.admin.AdminListUsers()
	})
	if err != nil {
		return nil, fmt.Errorf("identity: list users: %w", err)
	}
	out := make([]User, 0, len(resp.Users))
	for _, u := range resp.Users {
		out = append(out, toUser(u))
	}
	return out, nil
}

// call runs a blocking gotrue request and gives up when ctx is done. The
// request itself is bounded by the http client timeout.
func call[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{v, err}
	}()
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case r := <-done:
		return r.val, r.err
	}
}

var statusPattern = regexp.MustCompile(`response status code (\d{3})`)

func status(err error) int {
	if err == nil {
		return 0
	}
	m := statusPattern.FindStringSubmatch(err.Error())
	if m == nil {
		return 0
	}
	code, _ := strconv.Atoi(m[1])
	return code
}

func toUser(u types.User) User {
	out := User{Email: u.Email}
	if u.ID != uuid.Nil {
		out.ID = u.ID.String()
	}
	if name, ok := u.UserMetadata["full_name"].(string); ok {
		out.FullName = name
	}
	return out
}

func toTokens(s types.Session) *Tokens {
	t := &Tokens{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		User:         toUser(s.User),
	}
	switch {
	case s.ExpiresAt > 0:
		t.ExpiresAt = time.Unix(s.ExpiresAt, 0).UTC()
	case s.ExpiresIn > 0:
		t.ExpiresAt = time.Now().UTC().Add(time.Duration(s.ExpiresIn) * time.Second)
	}
	return t
}
