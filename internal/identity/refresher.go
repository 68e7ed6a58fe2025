package identity

import (
	"context"
	"errors"
	"time"

	"github.com/wolfman30/salon-booking/pkg/logging"
)

// Refresher renews access tokens shortly before they expire.
type Refresher struct {
	holder   *Holder
	provider Provider
	logger   *logging.Logger
	interval time.Duration
	leeway   time.Duration
	now      func() time.Time
}

func NewRefresher(holder *Holder, provider Provider, interval time.Duration, logger *logging.Logger) *Refresher {
	if logger == nil {
		logger = logging.Default()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Refresher{
		holder:   holder,
		provider: provider,
		logger:   logger,
		interval: interval,
		leeway:   2 * interval,
		now:      time.Now,
	}
}

// Start blocks until ctx is done.
func (r *Refresher) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RefreshDue(ctx)
		}
	}
}

// RefreshDue refreshes every session close to expiry and returns how many
// were renewed.
func (r *Refresher) RefreshDue(ctx context.Context) int {
	due, err := r.holder.Expiring(ctx, r.now(), r.leeway)
	if err != nil {
		r.logger.Error("failed to list expiring sessions", "error", err)
		return 0
	}
	renewed := 0
	for _, st := range due {
		tokens, err := r.provider.Refresh(ctx, st.Tokens.RefreshToken)
		ev := Event{SessionID: st.SessionID}
		switch {
		case err == nil:
			ev.Kind = EventTokenRefreshed
			ev.Tokens = tokens
			renewed++
		case errors.Is(err, ErrUserNotFound):
			ev.Kind = EventUserDeleted
			ev.UserID = st.User.ID
		case errors.Is(err, ErrSessionExpired):
			ev.Kind = EventTokenRefreshFailed
		default:
			// transient; try again next tick unless the token is already dead
			r.logger.Warn("token refresh failed", "error", err, "user_id", st.User.ID)
			if st.Tokens.ExpiresWithin(r.now(), 0) {
				ev.Kind = EventTokenRefreshFailed
			} else {
				continue
			}
		}
		if err := r.holder.Dispatch(ctx, ev); err != nil {
			r.logger.Error("failed to dispatch refresh result", "error", err)
		}
	}
	return renewed
}
