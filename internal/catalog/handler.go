package catalog

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/salon-booking/internal/http/respond"
	"github.com/wolfman30/salon-booking/pkg/logging"
)

type serviceReader interface {
	ListActive(ctx context.Context) ([]Service, error)
	Get(ctx context.Context, id string) (*Service, error)
}

// Handler serves the public service catalog.
type Handler struct {
	repo   serviceReader
	logger *logging.Logger
}

func NewHandler(repo serviceReader, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// List handles GET /api/services.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	services, err := h.repo.ListActive(r.Context())
	if err != nil {
		h.logger.Error("failed to list services", "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to load services")
		return
	}
	if services == nil {
		services = []Service{}
	}
	respond.JSON(w, http.StatusOK, services)
}

// Get handles GET /api/services/{id}. Inactive services are hidden.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	svc, err := h.repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrServiceNotFound) {
			respond.Error(w, http.StatusNotFound, "service not found")
			return
		}
		h.logger.Error("failed to load service", "error", err, "service_id", id)
		respond.Error(w, http.StatusInternalServerError, "failed to load service")
		return
	}
	if !svc.IsActive {
		respond.Error(w, http.StatusNotFound, "service not found")
		return
	}
	respond.JSON(w, http.StatusOK, svc)
}
