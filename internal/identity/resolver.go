package identity

import (
	"net/http"
	"strings"

	"github.com/wolfman30/salon-booking/pkg/logging"
)

// Resolver turns a request into session state: the session cookie is looked
// up in the holder, otherwise a bearer token is verified locally.
type Resolver struct {
	holder     *Holder
	verifier   *Verifier
	admin      AdminChecker
	cookieName string
	logger     *logging.Logger
}

func NewResolver(holder *Holder, verifier *Verifier, admin AdminChecker, cookieName string, logger *logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.Default()
	}
	return &Resolver{holder: holder, verifier: verifier, admin: admin, cookieName: cookieName, logger: logger}
}

// CookieName is the session cookie the resolver reads.
func (r *Resolver) CookieName() string {
	return r.cookieName
}

func (r *Resolver) Resolve(req *http.Request) (State, error) {
	if c, err := req.Cookie(r.cookieName); err == nil && c.Value != "" {
		return r.holder.Snapshot(req.Context(), c.Value)
	}

	auth := req.Header.Get("Authorization")
	if r.verifier == nil || !strings.HasPrefix(auth, "Bearer ") {
		return State{}, nil
	}
	user, err := r.verifier.Verify(strings.TrimPrefix(auth, "Bearer "))
	if err != nil {
		r.logger.Debug("bearer token rejected", "error", err)
		return State{}, nil
	}
	st := State{User: user}
	if r.admin != nil {
		ok, err := r.admin.IsAdmin(req.Context(), user.ID)
		if err != nil {
			r.logger.Error("admin check failed", "error", err, "user_id", user.ID)
		}
		st.IsAdmin = ok && err == nil
	}
	return st, nil
}
