package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/salon-booking/internal/http/respond"
	"github.com/wolfman30/salon-booking/internal/slots"
	"github.com/wolfman30/salon-booking/internal/timeslots"
)

func (h *Handler) ListTimeSlots(w http.ResponseWriter, r *http.Request) {
	list, err := h.slots.ListAll(r.Context())
	if err != nil {
		h.fail(w, "list_time_slots", err)
		return
	}
	if list == nil {
		list = []slots.TimeSlot{}
	}
	respond.JSON(w, http.StatusOK, list)
}

func (h *Handler) CreateTimeSlot(w http.ResponseWriter, r *http.Request) {
	var in timeslots.Input
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	slot, err := h.slots.Create(r.Context(), in)
	if err != nil {
		h.fail(w, "create_time_slot", err)
		return
	}
	respond.JSON(w, http.StatusCreated, slot)
}

func (h *Handler) UpdateTimeSlot(w http.ResponseWriter, r *http.Request) {
	var in timeslots.Input
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	slot, err := h.slots.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, "update_time_slot", err)
		return
	}
	respond.JSON(w, http.StatusOK, slot)
}

func (h *Handler) DeleteTimeSlot(w http.ResponseWriter, r *http.Request) {
	if err := h.slots.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, "delete_time_slot", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GenerateTimeSlots handles POST /admin/time-slots/generate with
// {"day_of_week": 2, "open": "09:00", "close": "18:00"}.
func (h *Handler) GenerateTimeSlots(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DayOfWeek int         `json:"day_of_week"`
		Open      slots.Clock `json:"open"`
		Close     slots.Clock `json:"close"`
	}
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	added, err := h.slots.GenerateDay(r.Context(), req.DayOfWeek, req.Open, req.Close)
	if err != nil {
		h.fail(w, "generate_time_slots", err)
		return
	}
	h.logger.Info("time slots generated", "day_of_week", req.DayOfWeek, "added", added)
	respond.JSON(w, http.StatusOK, map[string]int{"added": added})
}
