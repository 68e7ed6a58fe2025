package booking

import (
	"context"
	"errors"
	"net/http"

	"github.com/wolfman30/salon-booking/internal/http/respond"
	"github.com/wolfman30/salon-booking/internal/identity"
	"github.com/wolfman30/salon-booking/internal/slots"
	"github.com/wolfman30/salon-booking/pkg/logging"
)

type wizard interface {
	Current(ctx context.Context, userID string) (*View, error)
	SelectServices(ctx context.Context, userID string, ids []string) (*View, error)
	SelectDate(ctx context.Context, userID, date string) (*View, error)
	ChooseSlot(ctx context.Context, userID, startSlotID string, revision int) (*View, error)
	SetNotes(ctx context.Context, userID, notes string) (*View, error)
	Next(ctx context.Context, userID string) (*View, error)
	Back(ctx context.Context, userID string) (*View, error)
	Submit(ctx context.Context, userID string) (*View, error)
}

// Handler serves /api/booking.
type Handler struct {
	svc    wizard
	logger *logging.Logger
}

func NewHandler(svc wizard, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) user(w http.ResponseWriter, r *http.Request) (string, bool) {
	user, ok := identity.UserFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "sign in required")
		return "", false
	}
	return user.ID, true
}

func (h *Handler) write(w http.ResponseWriter, userID string, v *View, err error) {
	if err == nil {
		respond.JSON(w, http.StatusOK, v)
		return
	}
	if rej, ok := slots.IsRejection(err); ok {
		respond.JSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error":  rej.Message,
			"reason": string(rej.Reason),
		})
		return
	}
	switch {
	case errors.Is(err, ErrNoServices), errors.Is(err, ErrNoSlot), errors.Is(err, ErrNoDate),
		errors.Is(err, ErrStaleAvailability), errors.Is(err, ErrProfileRequired),
		errors.Is(err, ErrNotesTooLong), errors.Is(err, ErrUnknownService), errors.Is(err, ErrInvalidDate):
		respond.Error(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, slots.ErrDateNotFuture):
		respond.Error(w, http.StatusUnprocessableEntity, "Please select a date after today")
	case errors.Is(err, slots.ErrDateClosed):
		respond.Error(w, http.StatusUnprocessableEntity, "The salon is closed on that day. Please select another date.")
	case errors.Is(err, slots.ErrDateBeyondSpan):
		respond.Error(w, http.StatusUnprocessableEntity, "That date is too far ahead. Please select an earlier date.")
	case errors.Is(err, ErrWrongStep):
		respond.Error(w, http.StatusConflict, "That action is not available at this step")
	default:
		h.logger.Error("booking request failed", "error", err, "user_id", userID)
		respond.Error(w, http.StatusInternalServerError, "Something went wrong. Please try again.")
	}
}

// Get handles GET /api/booking and GET /api/booking/availability.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	v, err := h.svc.Current(r.Context(), userID)
	h.write(w, userID, v, err)
}

func (h *Handler) SelectServices(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	var req struct {
		ServiceIDs []string `json:"service_ids"`
	}
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	v, err := h.svc.SelectServices(r.Context(), userID, req.ServiceIDs)
	h.write(w, userID, v, err)
}

func (h *Handler) SelectDate(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	var req struct {
		Date string `json:"date"`
	}
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	v, err := h.svc.SelectDate(r.Context(), userID, req.Date)
	h.write(w, userID, v, err)
}

func (h *Handler) ChooseSlot(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	var req struct {
		TimeSlotID string `json:"time_slot_id"`
		Revision   int    `json:"revision"`
	}
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TimeSlotID == "" {
		respond.Error(w, http.StatusUnprocessableEntity, ErrNoSlot.Error())
		return
	}
	v, err := h.svc.ChooseSlot(r.Context(), userID, req.TimeSlotID, req.Revision)
	h.write(w, userID, v, err)
}

func (h *Handler) SetNotes(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	var req struct {
		Notes string `json:"notes"`
	}
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	v, err := h.svc.SetNotes(r.Context(), userID, req.Notes)
	h.write(w, userID, v, err)
}

func (h *Handler) Next(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	v, err := h.svc.Next(r.Context(), userID)
	h.write(w, userID, v, err)
}

func (h *Handler) Back(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	v, err := h.svc.Back(r.Context(), userID)
	h.write(w, userID, v, err)
}

// Submit handles POST /api/booking/submit. A failed reservation answers 409
// with the draft back at confirmation and its error set.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	v, err := h.svc.Submit(r.Context(), userID)
	if err == nil && v.Redirect != "" {
		w.Header().Set("Location", v.Redirect)
		respond.JSON(w, http.StatusCreated, v)
		return
	}
	if err == nil && v.Draft != nil && v.Draft.Error != "" {
		respond.JSON(w, http.StatusConflict, v)
		return
	}
	h.write(w, userID, v, err)
}
