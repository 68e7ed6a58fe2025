// Package admin serves the salon back office: the dashboard, catalog and
// time slot management, and the privileged appointment and user listings.
package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/wolfman30/salon-booking/internal/identity"
	"github.com/wolfman30/salon-booking/pkg/logging"
)

// ErrNotAdmin is returned for callers without the admin flag.
var ErrNotAdmin = errors.New("User is not an admin")

// Authorizer is the one admin check used by the admin route guard and by
// every privileged read.
type Authorizer struct {
	checker identity.AdminChecker
	logger  *logging.Logger
}

func NewAuthorizer(checker identity.AdminChecker, logger *logging.Logger) *Authorizer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Authorizer{checker: checker, logger: logger}
}

// RequireAdmin returns nil when userID carries the admin flag, ErrNotAdmin
// when it does not, and a wrapped error when the flag cannot be read.
func (a *Authorizer) RequireAdmin(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrNotAdmin
	}
	ok, err := a.checker.IsAdmin(ctx, userID)
	if err != nil {
		a.logger.Error("admin check failed", "error", err, "user_id", userID)
		return fmt.Errorf("admin: check: %w", err)
	}
	if !ok {
		a.logger.Warn("admin access denied", "user_id", userID)
		return ErrNotAdmin
	}
	return nil
}
