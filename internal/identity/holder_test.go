package identity

import (
	"context"
	"testing"
	"time"
)

func TestReduceSignInThenSignOut(t *testing.T) {
	sessions := map[string]State{}
	changes := reduce(sessions, Event{Kind: EventSignedIn, SessionID: "s1", Tokens: tokensFor("u1", time.Time{})})
	if len(changes) != 1 || !changes[0].State.Loading || changes[0].State.User.ID != "u1" {
		t.Fatalf("unexpected sign-in change %+v", changes)
	}

	changes = reduce(sessions, Event{Kind: EventSignedOut, SessionID: "s1"})
	if len(changes) != 1 || !changes[0].Cleared || !changes[0].RedirectToLogin || changes[0].UserID != "u1" {
		t.Fatalf("unexpected sign-out change %+v", changes)
	}
	if len(sessions) != 0 {
		t.Fatalf("expected session removed, got %v", sessions)
	}

	if changes := reduce(sessions, Event{Kind: EventSignedOut, SessionID: "s1"}); changes != nil {
		t.Fatalf("signing out twice should be a no-op, got %+v", changes)
	}
}

func TestReduceIgnoresStaleAdminResult(t *testing.T) {
	sessions := map[string]State{}
	reduce(sessions, Event{Kind: EventSignedIn, SessionID: "s1", Tokens: tokensFor("u1", time.Time{})})

	if changes := reduce(sessions, Event{Kind: EventAdminResolved, SessionID: "s1", UserID: "other", IsAdmin: true}); changes != nil {
		t.Fatalf("admin result for another user applied: %+v", changes)
	}
	if sessions["s1"].IsAdmin {
		t.Fatal("admin flag leaked across users")
	}
}

func TestReduceUserDeletedClearsEverySession(t *testing.T) {
	sessions := map[string]State{}
	reduce(sessions, Event{Kind: EventSignedIn, SessionID: "phone", Tokens: tokensFor("u1", time.Time{})})
	reduce(sessions, Event{Kind: EventSignedIn, SessionID: "laptop", Tokens: tokensFor("u1", time.Time{})})
	reduce(sessions, Event{Kind: EventSignedIn, SessionID: "other", Tokens: tokensFor("u2", time.Time{})})

	changes := reduce(sessions, Event{Kind: EventUserDeleted, UserID: "u1"})
	if len(changes) != 2 {
		t.Fatalf("expected 2 cleared sessions, got %d", len(changes))
	}
	if _, ok := sessions["other"]; !ok || len(sessions) != 1 {
		t.Fatalf("unexpected remaining sessions %v", sessions)
	}
}

func TestHolderResolvesAdminFlag(t *testing.T) {
	checker := &fakeChecker{admins: map[string]bool{"boss": true}}
	h := startHolder(t, checker)
	ctx := context.Background()

	changes, cancel, err := h.Subscribe(ctx, 8)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	if err := h.Dispatch(ctx, Event{Kind: EventSignedIn, SessionID: "s1", Tokens: tokensFor("boss", time.Time{})}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	c := waitFor(t, changes, EventAdminResolved)
	if !c.State.IsAdmin || c.State.Loading {
		t.Fatalf("expected resolved admin state, got %+v", c.State)
	}

	st, err := h.Snapshot(ctx, "s1")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !st.IsAdmin || st.Loading || st.User.ID != "boss" {
		t.Fatalf("unexpected snapshot %+v", st)
	}
}

func TestHolderSignedOutMidSession(t *testing.T) {
	checker := &fakeChecker{admins: map[string]bool{"u1": true}, gate: make(chan struct{})}
	h := startHolder(t, checker)
	ctx := context.Background()

	changes, cancel, err := h.Subscribe(ctx, 8)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	if err := h.Dispatch(ctx, Event{Kind: EventSignedIn, SessionID: "s1", Tokens: tokensFor("u1", time.Time{})}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if st, _ := h.Snapshot(ctx, "s1"); !st.Loading {
		t.Fatalf("expected loading while admin check runs, got %+v", st)
	}

	if err := h.Dispatch(ctx, Event{Kind: EventSignedOut, SessionID: "s1"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	c := waitFor(t, changes, EventSignedOut)
	if !c.Cleared || !c.RedirectToLogin {
		t.Fatalf("expected cleared change with redirect, got %+v", c)
	}

	// let the in-flight admin check finish; its answer must not revive the session
	close(checker.gate)
	time.Sleep(20 * time.Millisecond)

	st, err := h.Snapshot(ctx, "s1")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if st.User != nil || st.IsAdmin || st.Tokens != nil {
		t.Fatalf("expected cleared state, got %+v", st)
	}
	if checker.Calls() != 1 {
		t.Fatalf("expected exactly one admin check, got %d", checker.Calls())
	}
}

func TestHolderLoadingUntilReady(t *testing.T) {
	h := startHolder(t, nil)
	ctx := context.Background()

	st, err := h.Snapshot(ctx, "unknown")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !st.Loading {
		t.Fatal("expected loading before sessions are restored")
	}

	if err := h.Dispatch(ctx, Event{Kind: EventReady}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	st, _ = h.Snapshot(ctx, "unknown")
	if st.Loading || st.Authenticated() {
		t.Fatalf("expected anonymous state after ready, got %+v", st)
	}
}

func TestHolderStopped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := NewHolder(nil, nil)
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	if _, err := h.Snapshot(context.Background(), "x"); err != ErrHolderClosed {
		t.Fatalf("expected ErrHolderClosed, got %v", err)
	}
}

func TestHolderExpiring(t *testing.T) {
	h := startHolder(t, nil)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_ = h.Dispatch(ctx, Event{Kind: EventSignedIn, SessionID: "soon", Tokens: tokensFor("a", now.Add(time.Minute))})
	_ = h.Dispatch(ctx, Event{Kind: EventSignedIn, SessionID: "later", Tokens: tokensFor("b", now.Add(time.Hour))})

	due, err := h.Expiring(ctx, now, 2*time.Minute)
	if err != nil {
		t.Fatalf("expiring: %v", err)
	}
	if len(due) != 1 || due[0].SessionID != "soon" {
		t.Fatalf("unexpected due sessions %+v", due)
	}
}
