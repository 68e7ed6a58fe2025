package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/salon-booking/pkg/logging"
)

// SessionStore keeps session tokens across restarts.
type SessionStore interface {
	Save(ctx context.Context, sessionID string, tokens Tokens) error
	Delete(ctx context.Context, sessionID string) error
	LoadAll(ctx context.Context) (map[string]Tokens, error)
}

// RedisSessionStore stores one key per session with a sliding TTL.
type RedisSessionStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &RedisSessionStore{redis: client, ttl: ttl}
}

const sessionKeyPrefix = "session:"

func (s *RedisSessionStore) key(sessionID string) string {
	return sessionKeyPrefix + sessionID
}

func (s *RedisSessionStore) Save(ctx context.Context, sessionID string, tokens Tokens) error {
	data, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("identity: marshal session: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("identity: save session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.redis.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("identity: delete session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) LoadAll(ctx context.Context) (map[string]Tokens, error) {
	out := make(map[string]Tokens)
	iter := s.redis.Scan(ctx, 0, sessionKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		data, err := s.redis.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("identity: load session: %w", err)
		}
		var tokens Tokens
		if err := json.Unmarshal(data, &tokens); err != nil {
			continue
		}
		out[strings.TrimPrefix(key, sessionKeyPrefix)] = tokens
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("identity: scan sessions: %w", err)
	}
	return out, nil
}

// Restore replays stored sessions into the holder and then marks it ready.
func Restore(ctx context.Context, h *Holder, store SessionStore, logger *logging.Logger) error {
	if logger == nil {
		logger = logging.Default()
	}
	defer func() {
		if err := h.Dispatch(ctx, Event{Kind: EventReady}); err != nil {
			logger.Error("failed to mark sessions ready", "error", err)
		}
	}()
	if store == nil {
		return nil
	}
	sessions, err := store.LoadAll(ctx)
	if err != nil {
		return err
	}
	for id, tokens := range sessions {
		t := tokens
		if err := h.Dispatch(ctx, Event{Kind: EventRestored, SessionID: id, Tokens: &t}); err != nil {
			return err
		}
	}
	logger.Info("sessions restored", "count", len(sessions))
	return nil
}

// Persist mirrors holder changes into store until changes is closed.
func Persist(ctx context.Context, changes <-chan Change, store SessionStore, logger *logging.Logger) {
	if logger == nil {
		logger = logging.Default()
	}
	for c := range changes {
		var err error
		switch {
		case c.Cleared:
			err = store.Delete(ctx, c.SessionID)
		case c.Kind == EventSignedIn || c.Kind == EventTokenRefreshed:
			if c.State.Tokens != nil {
				err = store.Save(ctx, c.SessionID, *c.State.Tokens)
			}
		}
		if err != nil {
			logger.Error("failed to persist session change", "error", err, "event", string(c.Kind))
		}
	}
}
