package admin

import (
	"net/http"
	"strings"
	"time"

	"github.com/wolfman30/salon-booking/internal/http/respond"
	"github.com/wolfman30/salon-booking/internal/profiles"
)

// UserRow is a profile joined with its identity email.
type UserRow struct {
	ID        string    `json:"id"`
	FullName  *string   `json:"full_name"`
	Phone     *string   `json:"phone"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
	Email     string    `json:"email"`
}

func (u UserRow) matches(q string) bool {
	if q == "" {
		return true
	}
	fields := []string{u.Email}
	if u.FullName != nil {
		fields = append(fields, *u.FullName)
	}
	if u.Phone != nil {
		fields = append(fields, *u.Phone)
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

func joinUsers(list []profiles.Profile, emails map[string]string, q string) []UserRow {
	q = strings.ToLower(strings.TrimSpace(q))
	out := make([]UserRow, 0, len(list))
	for _, p := range list {
		row := UserRow{
			ID:        p.ID,
			FullName:  p.FullName,
			Phone:     p.Phone,
			IsAdmin:   p.IsAdmin,
			CreatedAt: p.CreatedAt,
			Email:     emails[p.ID],
		}
		if row.Email == "" {
			row.Email = NoEmail
		}
		if row.matches(q) {
			out = append(out, row)
		}
	}
	return out
}

// ListUsers handles GET /admin/users[?q=].
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	adminID, ok := h.authorize(w, r)
	if !ok {
		return
	}
	list, err := h.profiles.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list profiles", "error", err, "admin_id", adminID)
		respond.Error(w, http.StatusInternalServerError, "Failed to load users")
		return
	}
	emails, err := emailsByID(r.Context(), h.users)
	if err != nil {
		h.logger.Error("failed to list identity users", "error", err, "admin_id", adminID)
		respond.Error(w, http.StatusBadGateway, "Failed to load user emails")
		return
	}
	respond.JSON(w, http.StatusOK, joinUsers(list, emails, r.URL.Query().Get("q")))
}
