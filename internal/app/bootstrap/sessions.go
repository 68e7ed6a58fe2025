package bootstrap

import (
	"context"
	"fmt"

	"github.com/wolfman30/salon-booking/internal/booking"
	"github.com/wolfman30/salon-booking/internal/identity"
	"github.com/wolfman30/salon-booking/internal/observability/metrics"
	"github.com/wolfman30/salon-booking/pkg/logging"
)

type adminCache interface {
	Forget(ctx context.Context, userID string) error
}

// Sessions names what StartSessions hangs off the holder. Store, Drafts and
// AdminCache are optional.
type Sessions struct {
	Holder     *identity.Holder
	Store      identity.SessionStore
	Drafts     booking.DraftStore
	AdminCache adminCache
	Metrics    *metrics.BookingMetrics
}

// StartSessions runs the holder, attaches its subscribers and replays stored
// sessions. The holder reports loading until the replay completes.
func StartSessions(ctx context.Context, bg *Background, s Sessions, logger *logging.Logger) error {
	if s.Holder == nil {
		return fmt.Errorf("bootstrap: session holder is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	bg.Go(ctx, "session-holder", s.Holder.Run)

	subscribe := func(name string, consume func(<-chan identity.Change)) error {
		changes, _, err := s.Holder.Subscribe(ctx, 0)
		if err != nil {
			return fmt.Errorf("bootstrap: subscribe %s: %w", name, err)
		}
		bg.Go(ctx, name, func(context.Context) { consume(changes) })
		return nil
	}

	if s.Store != nil {
		if err := subscribe("session-persist", func(ch <-chan identity.Change) {
			identity.Persist(ctx, ch, s.Store, logger)
		}); err != nil {
			return err
		}
	}
	if s.Drafts != nil {
		if err := subscribe("draft-discard", func(ch <-chan identity.Change) {
			booking.DiscardOnSignOut(ctx, ch, s.Drafts, logger)
		}); err != nil {
			return err
		}
	}
	if s.AdminCache != nil {
		// A cleared session drops the cached admin flag so the next sign-in
		// reads the profile again.
		if err := subscribe("admin-cache", func(ch <-chan identity.Change) {
			for c := range ch {
				if !c.Cleared || c.UserID == "" {
					continue
				}
				if err := s.AdminCache.Forget(ctx, c.UserID); err != nil {
					logger.Warn("failed to forget admin flag", "error", err, "user_id", c.UserID)
				}
			}
		}); err != nil {
			return err
		}
	}
	if err := subscribe("session-metrics", func(ch <-chan identity.Change) {
		for c := range ch {
			s.Metrics.ObserveSessionEvent(string(c.Kind))
		}
	}); err != nil {
		return err
	}

	if err := identity.Restore(ctx, s.Holder, s.Store, logger); err != nil {
		logger.Error("failed to restore sessions", "error", err)
	}
	return nil
}
