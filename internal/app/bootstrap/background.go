package bootstrap

import (
	"context"
	"sync"
	"time"

	"github.com/wolfman30/salon-booking/pkg/logging"
)

// Background runs the long-lived loops of a process (session holder, token
// refresher, outbox deliverer) and waits for them on shutdown.
type Background struct {
	logger *logging.Logger
	wg     sync.WaitGroup
}

func NewBackground(logger *logging.Logger) *Background {
	if logger == nil {
		logger = logging.Default()
	}
	return &Background{logger: logger}
}

// Go starts run in its own goroutine. run must return once ctx is done.
func (b *Background) Go(ctx context.Context, name string, run func(ctx context.Context)) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("background loop panicked", "loop", name, "panic", r)
			}
		}()
		b.logger.Debug("background loop started", "loop", name)
		run(ctx)
		b.logger.Debug("background loop stopped", "loop", name)
	}()
}

// Wait blocks until every loop has returned or timeout elapses. It reports
// whether all loops finished.
func (b *Background) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		b.logger.Warn("background loops still running after timeout", "timeout", timeout)
		return false
	}
}
