package identity

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestSessionStore(t *testing.T) (*RedisSessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisSessionStore(client, time.Hour), mr
}

func TestRedisSessionStoreRoundTrip(t *testing.T) {
	store, mr := newTestSessionStore(t)
	ctx := context.Background()
	expires := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := store.Save(ctx, "s1", *tokensFor("u1", expires)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if ttl := mr.TTL("session:s1"); ttl != time.Hour {
		t.Fatalf("expected 1h ttl, got %s", ttl)
	}

	all, err := store.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	got, ok := all["s1"]
	if !ok || got.User.ID != "u1" || !got.ExpiresAt.Equal(expires) {
		t.Fatalf("unexpected sessions %+v", all)
	}

	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mr.Exists("session:s1") {
		t.Fatal("expected session key removed")
	}
}

func TestLoadAllSkipsCorruptEntries(t *testing.T) {
	store, mr := newTestSessionStore(t)
	if err := mr.Set("session:bad", "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	all, err := store.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected corrupt entry skipped, got %+v", all)
	}
}

func TestRestoreAndPersist(t *testing.T) {
	store, mr := newTestSessionStore(t)
	ctx := context.Background()
	if err := store.Save(ctx, "kept", *tokensFor("u1", time.Time{})); err != nil {
		t.Fatalf("seed: %v", err)
	}

	h := startHolder(t, nil)
	changes, cancel, err := h.Subscribe(ctx, 16)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	persisted := make(chan struct{})
	go func() {
		Persist(ctx, changes, store, nil)
		close(persisted)
	}()

	if st, _ := h.Snapshot(ctx, "kept"); !st.Loading || st.Authenticated() {
		t.Fatalf("expected loading before restore, got %+v", st)
	}
	if err := Restore(ctx, h, store, nil); err != nil {
		t.Fatalf("restore: %v", err)
	}
	st, _ := h.Snapshot(ctx, "kept")
	if st.User == nil || st.User.ID != "u1" {
		t.Fatalf("expected restored session, got %+v", st)
	}
	if st, _ := h.Snapshot(ctx, "missing"); st.Loading {
		t.Fatal("expected ready after restore")
	}

	if err := h.Dispatch(ctx, Event{Kind: EventSignedIn, SessionID: "fresh", Tokens: tokensFor("u2", time.Time{})}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if err := h.Dispatch(ctx, Event{Kind: EventSignedOut, SessionID: "kept"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	cancel()
	<-persisted

	if !mr.Exists("session:fresh") {
		t.Fatal("expected new session persisted")
	}
	if mr.Exists("session:kept") {
		t.Fatal("expected signed-out session removed")
	}
}
