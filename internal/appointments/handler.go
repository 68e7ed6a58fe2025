package appointments

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/salon-booking/internal/http/respond"
	"github.com/wolfman30/salon-booking/internal/identity"
	"github.com/wolfman30/salon-booking/internal/slots"
	"github.com/wolfman30/salon-booking/pkg/logging"
)

type customerStore interface {
	ListForUser(ctx context.Context, userID string) ([]Appointment, error)
	Cancel(ctx context.Context, userID, appointmentID string) error
}

// Handler serves the customer's own appointments.
type Handler struct {
	store  customerStore
	loc    *time.Location
	now    func() time.Time
	logger *logging.Logger
}

func NewHandler(store customerStore, loc *time.Location, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{store: store, loc: loc, now: time.Now, logger: logger}
}

type listResponse struct {
	Appointments []Appointment `json:"appointments"`
	NewBooking   bool          `json:"new_booking,omitempty"`
}

// List handles GET /api/appointments. ?when=upcoming|past splits the list
// the way the "My appointments" tabs do; anything else returns all.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.UserFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "sign in required")
		return
	}
	all, err := h.store.ListForUser(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed to list appointments", "error", err, "user_id", user.ID)
		respond.Error(w, http.StatusInternalServerError, "Failed to load your appointments. Please try again.")
		return
	}

	today := slots.Day(h.now(), h.loc)
	when := r.URL.Query().Get("when")
	out := make([]Appointment, 0, len(all))
	for _, a := range all {
		switch when {
		case "upcoming":
			if !a.Upcoming(today) {
				continue
			}
		case "past":
			if a.Upcoming(today) {
				continue
			}
		}
		out = append(out, a)
	}
	respond.JSON(w, http.StatusOK, listResponse{
		Appointments: out,
		NewBooking:   r.URL.Query().Get("new_booking") == "1",
	})
}

// Cancel handles POST /api/appointments/{id}/cancel.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.UserFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "sign in required")
		return
	}
	id := chi.URLParam(r, "id")
	err := h.store.Cancel(r.Context(), user.ID, id)
	switch {
	case err == nil:
		respond.JSON(w, http.StatusOK, map[string]string{"id": id, "status": string(StatusCancelled)})
	case errors.Is(err, ErrNotFound):
		respond.Error(w, http.StatusNotFound, "appointment not found")
	case errors.Is(err, ErrNotCancellable), errors.Is(err, ErrInvalidTransition):
		respond.Error(w, http.StatusConflict, "This appointment can no longer be cancelled.")
	default:
		h.logger.Error("failed to cancel appointment", "error", err, "appointment_id", id)
		respond.Error(w, http.StatusInternalServerError, "Failed to cancel the appointment. Please try again.")
	}
}
