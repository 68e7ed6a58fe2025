package identity

import "context"

type ctxKey string

const stateKey ctxKey = "salon.identity_state"

// WithState stores the resolved session state in context.
func WithState(ctx context.Context, st State) context.Context {
	return context.WithValue(ctx, stateKey, st)
}

// StateFromContext returns the state stored by WithState.
func StateFromContext(ctx context.Context) (State, bool) {
	st, ok := ctx.Value(stateKey).(State)
	return st, ok
}

// UserFromContext returns the signed-in user, if any.
func UserFromContext(ctx context.Context) (*User, bool) {
	st, ok := StateFromContext(ctx)
	if !ok || st.User == nil {
		return nil, false
	}
	return st.User, true
}
