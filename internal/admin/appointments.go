package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/salon-booking/internal/appointments"
	"github.com/wolfman30/salon-booking/internal/http/respond"
)

// ListAppointments handles GET /admin/appointments[?status=].
func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	adminID, ok := h.authorize(w, r)
	if !ok {
		return
	}
	var filter appointments.Filter
	if raw := r.URL.Query().Get("status"); raw != "" && raw != "all" {
		st, err := appointments.ParseStatus(raw)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "invalid status filter")
			return
		}
		filter.Status = st
	}

	list, err := h.appts.ListAll(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list appointments", "error", err, "admin_id", adminID)
		respond.Error(w, http.StatusInternalServerError, "Failed to load appointments")
		return
	}
	emails, err := emailsByID(r.Context(), h.users)
	if err != nil {
		h.logger.Error("failed to list identity users", "error", err, "admin_id", adminID)
		respond.Error(w, http.StatusBadGateway, "Failed to load user emails")
		return
	}
	for i := range list {
		a := &list[i]
		if a.Customer == nil {
			a.Customer = &appointments.Customer{ID: a.UserID}
		}
		a.Customer.Email = emails[a.UserID]
		if a.Customer.Email == "" {
			a.Customer.Email = NoEmail
		}
	}
	if list == nil {
		list = []appointments.Appointment{}
	}
	respond.JSON(w, http.StatusOK, list)
}

// UpdateAppointmentStatus handles PATCH /admin/appointments/{id}/status.
func (h *Handler) UpdateAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	adminID, ok := h.authorize(w, r)
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	to, err := appointments.ParseStatus(req.Status)
	if err != nil {
		h.fail(w, "update_status", err)
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.appts.UpdateStatus(r.Context(), id, to, adminID); err != nil {
		h.fail(w, "update_status", err)
		return
	}
	h.logger.Info("appointment status changed", "appointment_id", id, "status", to, "admin_id", adminID)
	respond.JSON(w, http.StatusOK, map[string]string{"id": id, "status": string(to)})
}
