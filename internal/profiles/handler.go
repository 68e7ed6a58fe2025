package profiles

import (
	"context"
	"errors"
	"net/http"

	"github.com/wolfman30/salon-booking/internal/http/respond"
	"github.com/wolfman30/salon-booking/internal/identity"
	"github.com/wolfman30/salon-booking/pkg/logging"
)

type profileStore interface {
	Get(ctx context.Context, userID string) (*Profile, error)
	Upsert(ctx context.Context, userID string, in Input) (*Profile, error)
}

// Handler serves the signed-in user's own profile.
type Handler struct {
	store  profileStore
	logger *logging.Logger
}

func NewHandler(store profileStore, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

type profileResponse struct {
	*Profile
	Email string `json:"email"`
}

// Get handles GET /api/profile.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.UserFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "sign in required")
		return
	}
	p, err := h.store.Get(r.Context(), user.ID)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			respond.Error(w, http.StatusNotFound, "profile not found")
			return
		}
		h.logger.Error("failed to load profile", "error", err, "user_id", user.ID)
		respond.Error(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	respond.JSON(w, http.StatusOK, profileResponse{Profile: p, Email: user.Email})
}

// Update handles PUT /api/profile.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.UserFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "sign in required")
		return
	}
	var in Input
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := h.store.Upsert(r.Context(), user.ID, in)
	if err != nil {
		if errors.Is(err, ErrFullNameTooLong) || errors.Is(err, ErrPhoneTooLong) {
			respond.Error(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.logger.Error("failed to save profile", "error", err, "user_id", user.ID)
		respond.Error(w, http.StatusInternalServerError, "failed to save profile")
		return
	}
	respond.JSON(w, http.StatusOK, profileResponse{Profile: p, Email: user.Email})
}
