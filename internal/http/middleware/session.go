package middleware

import (
	"net/http"

	"github.com/wolfman30/salon-booking/internal/identity"
	"github.com/wolfman30/salon-booking/pkg/logging"
)

// StateResolver maps a request to its session state.
type StateResolver interface {
	Resolve(r *http.Request) (identity.State, error)
}

// Session resolves the caller's identity state once per request and stores it
// in the request context. Resolution failures leave the request anonymous.
func Session(resolver StateResolver, logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			st, err := resolver.Resolve(r)
			if err != nil {
				logger.Warn("session resolution failed", "error", err, "path", r.URL.Path)
				st = identity.State{}
			}
			next.ServeHTTP(w, r.WithContext(identity.WithState(r.Context(), st)))
		})
	}
}
