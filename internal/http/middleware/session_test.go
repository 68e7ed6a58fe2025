package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wolfman30/salon-booking/internal/identity"
)

type resolverFunc func(r *http.Request) (identity.State, error)

func (f resolverFunc) Resolve(r *http.Request) (identity.State, error) { return f(r) }

func TestSessionStoresState(t *testing.T) {
	resolver := resolverFunc(func(r *http.Request) (identity.State, error) {
		return identity.State{User: &identity.User{ID: "u1"}, IsAdmin: true}, nil
	})
	var got identity.State
	h := Session(resolver, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = identity.StateFromContext(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got.User == nil || got.User.ID != "u1" || !got.IsAdmin {
		t.Fatalf("unexpected state %+v", got)
	}
}

func TestSessionFailureIsAnonymous(t *testing.T) {
	resolver := resolverFunc(func(r *http.Request) (identity.State, error) {
		return identity.State{User: &identity.User{ID: "ghost"}}, errors.New("redis down")
	})
	var got identity.State
	h := Session(resolver, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = identity.StateFromContext(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got.Authenticated() {
		t.Fatalf("expected anonymous state, got %+v", got)
	}
}
