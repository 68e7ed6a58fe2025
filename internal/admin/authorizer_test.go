package admin

import (
	"context"
	"errors"
	"testing"
)

type fakeChecker struct {
	admins map[string]bool
	err    error
}

func (f fakeChecker) IsAdmin(ctx context.Context, userID string) (bool, error) {
	return f.admins[userID], f.err
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name    string
		checker fakeChecker
		userID  string
		want    error
	}{
		{"admin", fakeChecker{admins: map[string]bool{"boss": true}}, "boss", nil},
		{"customer", fakeChecker{admins: map[string]bool{"boss": true}}, "u1", ErrNotAdmin},
		{"empty id", fakeChecker{}, "", ErrNotAdmin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewAuthorizer(tt.checker, nil).RequireAdmin(context.Background(), tt.userID)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestRequireAdminCheckFailure(t *testing.T) {
	boom := errors.New("db down")
	err := NewAuthorizer(fakeChecker{err: boom}, nil).RequireAdmin(context.Background(), "u1")
	if !errors.Is(err, boom) || errors.Is(err, ErrNotAdmin) {
		t.Fatalf("expected wrapped check error, got %v", err)
	}
}
