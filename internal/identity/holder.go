package identity

import (
	"context"
	"time"

	"github.com/wolfman30/salon-booking/pkg/logging"
)

// EventKind names a session change reported by the identity service or by
// this process.
type EventKind string

const (
	EventSignedIn           EventKind = "signed_in"
	EventRestored           EventKind = "session_restored"
	EventAdminResolved      EventKind = "admin_resolved"
	EventTokenRefreshed     EventKind = "token_refreshed"
	EventSignedOut          EventKind = "signed_out"
	EventTokenRefreshFailed EventKind = "token_refresh_failed"
	EventUserDeleted        EventKind = "user_deleted"
	EventReady              EventKind = "ready"
)

// lost reports whether the event ends the session.
func (k EventKind) lost() bool {
	switch k {
	case EventSignedOut, EventTokenRefreshFailed, EventUserDeleted:
		return true
	}
	return false
}

// Event is the only input to the holder's state.
type Event struct {
	Kind      EventKind
	SessionID string
	// UserID scopes user_deleted and admin_resolved.
	UserID  string
	Tokens  *Tokens
	IsAdmin bool
}

// Change is published to subscribers after every state transition. UserID
// is set even when the session was cleared.
type Change struct {
	Kind            EventKind
	SessionID       string
	UserID          string
	State           State
	Cleared         bool
	RedirectToLogin bool
}

// reduce applies ev to sessions and reports what changed.
func reduce(sessions map[string]State, ev Event) []Change {
	switch ev.Kind {
	case EventSignedIn, EventRestored:
		if ev.Tokens == nil || ev.SessionID == "" {
			return nil
		}
		user := ev.Tokens.User
		st := State{SessionID: ev.SessionID, User: &user, Tokens: ev.Tokens, Loading: true}
		sessions[ev.SessionID] = st
		return []Change{{Kind: ev.Kind, SessionID: ev.SessionID, UserID: user.ID, State: st}}

	case EventAdminResolved:
		st, ok := sessions[ev.SessionID]
		if !ok || st.User == nil || st.User.ID != ev.UserID {
			return nil
		}
		st.IsAdmin = ev.IsAdmin
		st.Loading = false
		sessions[ev.SessionID] = st
		return []Change{{Kind: ev.Kind, SessionID: ev.SessionID, UserID: ev.UserID, State: st}}

	case EventTokenRefreshed:
		st, ok := sessions[ev.SessionID]
		if !ok || ev.Tokens == nil {
			return nil
		}
		st.Tokens = ev.Tokens
		if ev.Tokens.User.ID != "" {
			user := ev.Tokens.User
			st.User = &user
		}
		sessions[ev.SessionID] = st
		return []Change{{Kind: ev.Kind, SessionID: ev.SessionID, UserID: st.User.ID, State: st}}

	case EventSignedOut, EventTokenRefreshFailed:
		st, ok := sessions[ev.SessionID]
		if !ok {
			return nil
		}
		delete(sessions, ev.SessionID)
		return []Change{{Kind: ev.Kind, SessionID: ev.SessionID, UserID: st.User.ID, Cleared: true, RedirectToLogin: true}}

	case EventUserDeleted:
		var changes []Change
		for id, st := range sessions {
			if st.User != nil && st.User.ID == ev.UserID {
				delete(sessions, id)
				changes = append(changes, Change{Kind: ev.Kind, SessionID: id, UserID: ev.UserID, Cleared: true, RedirectToLogin: true})
			}
		}
		return changes
	}
	return nil
}

// Holder owns every live session. All reads and writes run on one goroutine;
// Dispatch is the only way to change state.
type Holder struct {
	requests     chan func(*holderState)
	done         chan struct{}
	admin        AdminChecker
	logger       *logging.Logger
	adminTimeout time.Duration
}

type holderState struct {
	sessions    map[string]State
	ready       bool
	subscribers map[int]chan Change
	nextSub     int
	ctx         context.Context
}

func NewHolder(admin AdminChecker, logger *logging.Logger) *Holder {
	if logger == nil {
		logger = logging.Default()
	}
	return &Holder{
		requests:     make(chan func(*holderState)),
		done:         make(chan struct{}),
		admin:        admin,
		logger:       logger,
		adminTimeout: 10 * time.Second,
	}
}

// Run serves requests until ctx is cancelled.
func (h *Holder) Run(ctx context.Context) {
	st := &holderState{
		sessions:    make(map[string]State),
		subscribers: make(map[int]chan Change),
		ctx:         ctx,
	}
	defer func() {
		for _, ch := range st.subscribers {
			close(ch)
		}
		close(h.done)
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-h.requests:
			fn(st)
		}
	}
}

func (h *Holder) submit(ctx context.Context, fn func(*holderState)) error {
	finished := make(chan struct{})
	wrapped := func(st *holderState) {
		defer close(finished)
		fn(st)
	}
	select {
	case h.requests <- wrapped:
	case <-h.done:
		return ErrHolderClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-finished
	return nil
}

// Dispatch applies ev and returns once subscribers have been notified.
func (h *Holder) Dispatch(ctx context.Context, ev Event) error {
	return h.submit(ctx, func(st *holderState) {
		if ev.Kind == EventReady {
			st.ready = true
			return
		}
		changes := reduce(st.sessions, ev)
		for _, c := range changes {
			h.publish(st, c)
			if (c.Kind == EventSignedIn || c.Kind == EventRestored) && c.State.User != nil {
				go h.resolveAdmin(st.ctx, c.SessionID, c.State.User.ID)
			}
		}
	})
}

func (h *Holder) publish(st *holderState, c Change) {
	if c.Kind.lost() {
		h.logger.Info("session cleared", "event", string(c.Kind), "redirect", "/login")
	}
	for id, ch := range st.subscribers {
		select {
		case ch <- c:
		default:
			h.logger.Warn("session change dropped for slow subscriber", "subscriber", id, "kind", string(c.Kind))
		}
	}
}

func (h *Holder) resolveAdmin(ctx context.Context, sessionID, userID string) {
	isAdmin := false
	if h.admin != nil {
		checkCtx, cancel := context.WithTimeout(ctx, h.adminTimeout)
		ok, err := h.admin.IsAdmin(checkCtx, userID)
		cancel()
		if err != nil {
			h.logger.Error("admin check failed", "error", err, "user_id", userID)
		}
		isAdmin = ok && err == nil
	}
	if err := h.Dispatch(ctx, Event{Kind: EventAdminResolved, SessionID: sessionID, UserID: userID, IsAdmin: isAdmin}); err != nil && ctx.Err() == nil {
		h.logger.Error("failed to record admin flag", "error", err, "user_id", userID)
	}
}

// Snapshot returns the state for sessionID. Before startup restoration has
// finished every unknown session reports Loading.
func (h *Holder) Snapshot(ctx context.Context, sessionID string) (State, error) {
	var out State
	err := h.submit(ctx, func(st *holderState) {
		if s, ok := st.sessions[sessionID]; ok {
			out = s
			return
		}
		out = State{SessionID: sessionID, Loading: !st.ready}
	})
	return out, err
}

// Expiring lists sessions whose access token expires within d.
func (h *Holder) Expiring(ctx context.Context, now time.Time, d time.Duration) ([]State, error) {
	var out []State
	err := h.submit(ctx, func(st *holderState) {
		for _, s := range st.sessions {
			if s.Tokens.ExpiresWithin(now, d) {
				out = append(out, s)
			}
		}
	})
	return out, err
}

// Subscribe returns a channel of changes and a function that ends the
// subscription. The channel is closed when the holder stops.
func (h *Holder) Subscribe(ctx context.Context, buffer int) (<-chan Change, func(), error) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Change, buffer)
	var id int
	err := h.submit(ctx, func(st *holderState) {
		id = st.nextSub
		st.nextSub++
		st.subscribers[id] = ch
	})
	if err != nil {
		return nil, func() {}, err
	}
	cancel := func() {
		_ = h.submit(context.Background(), func(st *holderState) {
			if sub, ok := st.subscribers[id]; ok {
				delete(st.subscribers, id)
				close(sub)
			}
		})
	}
	return ch, cancel, nil
}
