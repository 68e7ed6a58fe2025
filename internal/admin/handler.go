package admin

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/wolfman30/salon-booking/internal/appointments"
	"github.com/wolfman30/salon-booking/internal/catalog"
	"github.com/wolfman30/salon-booking/internal/http/respond"
	"github.com/wolfman30/salon-booking/internal/identity"
	"github.com/wolfman30/salon-booking/internal/profiles"
	"github.com/wolfman30/salon-booking/internal/slots"
	"github.com/wolfman30/salon-booking/internal/timeslots"
	"github.com/wolfman30/salon-booking/pkg/logging"
)

type authorizer interface {
	RequireAdmin(ctx context.Context, userID string) error
}

type appointmentStore interface {
	ListAll(ctx context.Context, f appointments.Filter) ([]appointments.Appointment, error)
	UpdateStatus(ctx context.Context, appointmentID string, to appointments.Status, changedBy string) error
}

type profileLister interface {
	List(ctx context.Context) ([]profiles.Profile, error)
}

type serviceStore interface {
	ListAll(ctx context.Context) ([]catalog.Service, error)
	Get(ctx context.Context, id string) (*catalog.Service, error)
	Create(ctx context.Context, in catalog.ServiceInput) (*catalog.Service, error)
	Update(ctx context.Context, id string, in catalog.ServiceInput) (*catalog.Service, error)
	SetImage(ctx context.Context, id, url string) error
	Delete(ctx context.Context, id string) error
}

type imageUploader interface {
	Upload(ctx context.Context, serviceName, contentType string, body io.Reader) (string, error)
}

type slotStore interface {
	ListAll(ctx context.Context) ([]slots.TimeSlot, error)
	Create(ctx context.Context, in timeslots.Input) (*slots.TimeSlot, error)
	Update(ctx context.Context, id string, in timeslots.Input) (*slots.TimeSlot, error)
	Delete(ctx context.Context, id string) error
	GenerateDay(ctx context.Context, day int, open, closeAt slots.Clock) (int, error)
}

type dashboardSource interface {
	Load(ctx context.Context) (*Dashboard, error)
}

// Deps groups the stores behind the admin endpoints.
type Deps struct {
	Auth         authorizer
	Appointments appointmentStore
	Profiles     profileLister
	Users        userDirectory
	Services     serviceStore
	Images       imageUploader
	Slots        slotStore
	Dashboard    dashboardSource
	Logger       *logging.Logger
}

// Handler serves /admin. Routes are expected to sit behind the admin guard;
// the privileged listings check again on their own.
type Handler struct {
	auth      authorizer
	appts     appointmentStore
	profiles  profileLister
	users     userDirectory
	services  serviceStore
	images    imageUploader
	slots     slotStore
	dashboard dashboardSource
	logger    *logging.Logger
}

func NewHandler(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = logging.Default()
	}
	return &Handler{
		auth:      d.Auth,
		appts:     d.Appointments,
		profiles:  d.Profiles,
		users:     d.Users,
		services:  d.Services,
		images:    d.Images,
		slots:     d.Slots,
		dashboard: d.Dashboard,
		logger:    d.Logger,
	}
}

// authorize runs the shared admin check for privileged reads and writes the
// failure response itself.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request) (string, bool) {
	user, ok := identity.UserFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "sign in required")
		return "", false
	}
	if err := h.auth.RequireAdmin(r.Context(), user.ID); err != nil {
		if errors.Is(err, ErrNotAdmin) {
			respond.Error(w, http.StatusForbidden, ErrNotAdmin.Error())
			return "", false
		}
		respond.Error(w, http.StatusInternalServerError, "Failed to verify admin access")
		return "", false
	}
	return user.ID, true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, catalog.ErrNameRequired), errors.Is(err, catalog.ErrInvalidPrice),
		errors.Is(err, catalog.ErrInvalidDuration), errors.Is(err, catalog.ErrUnsupportedType),
		errors.Is(err, timeslots.ErrInvalidRange), errors.Is(err, timeslots.ErrInvalidWeekday),
		errors.Is(err, appointments.ErrInvalidStatus):
		respond.Error(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, catalog.ErrServiceNotFound), errors.Is(err, timeslots.ErrSlotNotFound),
		errors.Is(err, appointments.ErrNotFound):
		respond.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, catalog.ErrServiceInUse), errors.Is(err, timeslots.ErrSlotExists),
		errors.Is(err, timeslots.ErrSlotInUse), errors.Is(err, appointments.ErrInvalidTransition):
		respond.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, catalog.ErrImagesDisabled):
		respond.Error(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.logger.Error("admin request failed", "op", op, "error", err)
		respond.Error(w, http.StatusInternalServerError, "Something went wrong. Please try again.")
	}
}
