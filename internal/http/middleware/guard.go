package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/wolfman30/salon-booking/internal/http/respond"
	"github.com/wolfman30/salon-booking/internal/identity"
)

// LoginPath is where guarded requests without the required capability are
// sent.
const LoginPath = "/login"

var errNoIdentity = errors.New("sign in required")

// Capability decides whether a resolved session may proceed. A non-nil error
// sends the caller to the login page.
type Capability func(ctx context.Context, st identity.State) error

// AdminAuthorizer is the shared admin check.
type AdminAuthorizer interface {
	RequireAdmin(ctx context.Context, userID string) error
}

// Identity requires a signed-in user.
func Identity() Capability {
	return func(ctx context.Context, st identity.State) error {
		if !st.Authenticated() {
			return errNoIdentity
		}
		return nil
	}
}

// Admin requires a signed-in user that auth accepts as an admin.
func Admin(auth AdminAuthorizer) Capability {
	return func(ctx context.Context, st identity.State) error {
		if !st.Authenticated() {
			return errNoIdentity
		}
		return auth.RequireAdmin(ctx, st.User.ID)
	}
}

// Guard blocks requests whose session lacks capability. While the session
// is still resolving the caller is asked to retry.
func Guard(capability Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			st, _ := identity.StateFromContext(r.Context())
			if st.Loading {
				w.Header().Set("Retry-After", "1")
				respond.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "loading"})
				return
			}
			if err := capability(r.Context(), st); err != nil {
				w.Header().Set("Location", LoginPath)
				respond.JSON(w, http.StatusUnauthorized, map[string]string{
					"error":    err.Error(),
					"redirect": LoginPath,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireIdentity guards customer routes.
func RequireIdentity() func(http.Handler) http.Handler {
	return Guard(Identity())
}

// RequireAdmin guards back-office routes.
func RequireAdmin(auth AdminAuthorizer) func(http.Handler) http.Handler {
	return Guard(Admin(auth))
}
