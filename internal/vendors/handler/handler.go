package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/vendors/models"
	id "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain"
	dErrors "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain-errors"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/httputil"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/requestcontext"
)

type Service interface {
	List(ctx context.Context, filter models.Filter) ([]*models.Vendor, error)
	Get(ctx context.Context, vendorID id.VendorID) (*models.Vendor, error)
	Create(ctx context.Context, req *models.CreateVendorRequest) (*models.Vendor, error)
	Update(ctx context.Context, vendorID id.VendorID, req *models.UpdateVendorRequest) (*models.Vendor, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the read routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/vendors", h.handleList)
	r.Get("/vendors/{id}", h.handleGet)
}

// RegisterManagement mounts the create and update routes. The caller
// restricts r to managers.
func (h *Handler) RegisterManagement(r chi.Router) {
	r.Post("/vendors", h.handleCreate)
	r.Patch("/vendors/{id}", h.handleUpdate)
}

type vendorsResponse struct {
	Vendors []*models.Vendor `json:"vendors"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	vendors, err := h.service.List(r.Context(), models.Filter{
		Status: models.Status(q.Get("status")),
		Query:  q.Get("q"),
	})
	if err != nil {
		h.fail(w, r, err, "failed to list vendors")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, vendorsResponse{Vendors: vendors})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	vid, err := id.ParseVendorID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	v, err := h.service.Get(r.Context(), vid)
	if err != nil {
		h.fail(w, r, err, "failed to get vendor")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, v)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req models.CreateVendorRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	v, err := h.service.Create(r.Context(), &req)
	if err != nil {
		h.fail(w, r, err, "failed to create vendor")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, v)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	vid, err := id.ParseVendorID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req models.UpdateVendorRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	v, err := h.service.Update(r.Context(), vid, &req)
	if err != nil {
		h.fail(w, r, err, "failed to update vendor")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, v)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		ctx := r.Context()
		h.logger.ErrorContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
	}
	httputil.WriteError(w, err)
}
