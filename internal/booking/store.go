package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/salon-booking/internal/identity"
	"github.com/wolfman30/salon-booking/pkg/logging"
)

// DraftStore persists wizard drafts per identity.
type DraftStore interface {
	// Load returns nil without error when the user has no draft.
	Load(ctx context.Context, userID string) (*Draft, error)
	Save(ctx context.Context, d *Draft) error
	Delete(ctx context.Context, userID string) error
}

const draftKeyPrefix = "booking:draft:"

// RedisDraftStore keeps one JSON draft per user with a TTL refreshed on
// every save.
type RedisDraftStore struct {
	redis *redis.Client
	ttl   time.Duration
	now   func() time.Time
}

func NewRedisDraftStore(client *redis.Client, ttl time.Duration) *RedisDraftStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisDraftStore{redis: client, ttl: ttl, now: time.Now}
}

func (s *RedisDraftStore) Load(ctx context.Context, userID string) (*Draft, error) {
	data, err := s.redis.Get(ctx, draftKeyPrefix+userID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("booking: load draft: %w", err)
	}
	var d Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("booking: decode draft: %w", err)
	}
	return &d, nil
}

func (s *RedisDraftStore) Save(ctx context.Context, d *Draft) error {
	d.UpdatedAt = s.now().UTC()
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("booking: encode draft: %w", err)
	}
	if err := s.redis.Set(ctx, draftKeyPrefix+d.UserID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("booking: save draft: %w", err)
	}
	return nil
}

func (s *RedisDraftStore) Delete(ctx context.Context, userID string) error {
	if err := s.redis.Del(ctx, draftKeyPrefix+userID).Err(); err != nil {
		return fmt.Errorf("booking: delete draft: %w", err)
	}
	return nil
}

// DiscardOnSignOut deletes a user's draft whenever the holder reports that
// one of their sessions was lost. It returns when changes is closed.
func DiscardOnSignOut(ctx context.Context, changes <-chan identity.Change, store DraftStore, logger *logging.Logger) {
	if logger == nil {
		logger = logging.Default()
	}
	for c := range changes {
		if !c.Cleared || c.UserID == "" {
			continue
		}
		if err := store.Delete(ctx, c.UserID); err != nil {
			logger.Error("failed to discard booking draft", "error", err, "user_id", c.UserID)
		}
	}
}
