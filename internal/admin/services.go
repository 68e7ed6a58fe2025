package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/salon-booking/internal/catalog"
	"github.com/wolfman30/salon-booking/internal/http/respond"
)

const maxImageBytes = 5 << 20

// ListServices handles GET /admin/services, inactive services included.
func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	list, err := h.services.ListAll(r.Context())
	if err != nil {
		h.fail(w, "list_services", err)
		return
	}
	if list == nil {
		list = []catalog.Service{}
	}
	respond.JSON(w, http.StatusOK, list)
}

func (h *Handler) CreateService(w http.ResponseWriter, r *http.Request) {
	var in catalog.ServiceInput
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	svc, err := h.services.Create(r.Context(), in)
	if err != nil {
		h.fail(w, "create_service", err)
		return
	}
	h.logger.Info("service created", "service_id", svc.ID, "name", svc.Name)
	respond.JSON(w, http.StatusCreated, svc)
}

func (h *Handler) UpdateService(w http.ResponseWriter, r *http.Request) {
	var in catalog.ServiceInput
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	svc, err := h.services.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, "update_service", err)
		return
	}
	respond.JSON(w, http.StatusOK, svc)
}

func (h *Handler) DeleteService(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.services.Delete(r.Context(), id); err != nil {
		h.fail(w, "delete_service", err)
		return
	}
	h.logger.Info("service deleted", "service_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// UploadServiceImage handles POST /admin/services/{id}/image as a multipart
// form with an "image" file field.
func (h *Handler) UploadServiceImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	svc, err := h.services.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "upload_image", err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes)
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		respond.Error(w, http.StatusBadRequest, "image must be a multipart upload under 5 MB")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "missing image file")
		return
	}
	defer file.Close()

	url, err := h.images.Upload(r.Context(), svc.Name, header.Header.Get("Content-Type"), file)
	if err != nil {
		h.fail(w, "upload_image", err)
		return
	}
	if err := h.services.SetImage(r.Context(), id, url); err != nil {
		h.fail(w, "upload_image", err)
		return
	}
	svc.ImageURL = &url
	respond.JSON(w, http.StatusOK, svc)
}
