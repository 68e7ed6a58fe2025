package admin

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/salon-booking/internal/http/respond"
	"github.com/wolfman30/salon-booking/internal/observability/metrics"
)

// Dashboard is the back-office overview.
type Dashboard struct {
	Appointments int                 `json:"total_appointments"`
	Pending      int                 `json:"pending_appointments"`
	Services     int                 `json:"total_services"`
	Users        int                 `json:"total_users"`
	Recent       []RecentAppointment `json:"recent_appointments"`

	ReserveLatency metrics.LatencySnapshot `json:"reserve_latency"`
}

// RecentAppointment is one row of the dashboard's latest bookings.
type RecentAppointment struct {
	ID        string  `json:"id"`
	Date      string  `json:"date"`
	StartTime string  `json:"start_time"`
	Status    string  `json:"status"`
	FullName  *string `json:"full_name"`
}

// DashboardStore reads the overview through database/sql.
type DashboardStore struct {
	db       *sql.DB
	gatherer prometheus.Gatherer
}

func NewDashboardStore(db *sql.DB) *DashboardStore {
	return &DashboardStore{db: db}
}

// WithGatherer adds the reservation latency summary from g to the overview.
func (s *DashboardStore) WithGatherer(g prometheus.Gatherer) *DashboardStore {
	s.gatherer = g
	return s
}

const recentLimit = 5

func (s *DashboardStore) Load(ctx context.Context) (*Dashboard, error) {
	d := &Dashboard{Recent: []RecentAppointment{}}
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM appointments),
			(SELECT COUNT(*) FROM appointments WHERE status = 'pending'),
			(SELECT COUNT(*) FROM services),
			(SELECT COUNT(*) FROM user_profiles)
	`).Scan(&d.Appointments, &d.Pending, &d.Services, &d.Users)
	if err != nil {
		return nil, fmt.Errorf("admin: dashboard counts: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id::text, a.date::text, to_char(ts.start_time, 'HH24:MI'), a.status, p.full_name
		FROM appointments a
		JOIN time_slots ts ON ts.id = a.time_slot_id
		LEFT JOIN user_profiles p ON p.id = a.user_id
		ORDER BY a.created_at DESC
		LIMIT $1
	`, recentLimit)
	if err != nil {
		return nil, fmt.Errorf("admin: dashboard recent: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ra   RecentAppointment
			name sql.NullString
		)
		if err := rows.Scan(&ra.ID, &ra.Date, &ra.StartTime, &ra.Status, &name); err != nil {
			return nil, fmt.Errorf("admin: dashboard scan: %w", err)
		}
		if name.Valid {
			ra.FullName = &name.String
		}
		d.Recent = append(d.Recent, ra)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("admin: dashboard recent: %w", err)
	}
	if s.gatherer != nil {
		d.ReserveLatency = metrics.ReserveLatency(s.gatherer)
	}
	return d, nil
}

// Dashboard handles GET /admin/dashboard.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.dashboard.Load(r.Context())
	if err != nil {
		h.fail(w, "dashboard", err)
		return
	}
	respond.JSON(w, http.StatusOK, d)
}
