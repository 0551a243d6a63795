package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/approval/models"
	id "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain"
	dErrors "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain-errors"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/httputil"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/requestcontext"
)

type Service interface {
	Create(ctx context.Context, req *models.CreateRequest) (*models.Detail, error)
	Get(ctx context.Context, approvalID id.ApprovalID) (*models.Detail, error)
	List(ctx context.Context, filter models.Filter) ([]*models.Detail, error)
	AddItems(ctx context.Context, approvalID id.ApprovalID, req *models.ItemsRequest) (*models.Detail, error)
	RemoveItem(ctx context.Context, approvalID id.ApprovalID, itemID id.ApprovalItemID) (*models.Detail, error)
	SetNegotiatedAmount(ctx context.Context, approvalID id.ApprovalID, itemID id.ApprovalItemID, req *models.NegotiatedAmountRequest) (*models.Detail, error)
	SetNotes(ctx context.Context, approvalID id.ApprovalID, req *models.NotesRequest) (*models.Detail, error)
	Send(ctx context.Context, approvalID id.ApprovalID) (*models.Detail, error)
	ReturnToDraft(ctx context.Context, approvalID id.ApprovalID) (*models.Detail, error)
	Approve(ctx context.Context, approvalID id.ApprovalID) (*models.Detail, error)
	Withdraw(ctx context.Context, approvalID id.ApprovalID) (*models.Detail, error)
	Delete(ctx context.Context, approvalID id.ApprovalID) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts approval routes. Role checks happen in the service
// because vendor users share these routes with staff.
func (h *Handler) Register(r chi.Router) {
	r.Get("/approvals", h.handleList)
	r.Post("/approvals", h.handleCreate)
	r.Route("/approvals/{id}", func(r chi.Router) {
		r.Get("/", h.handleGet)
		r.Patch("/", h.handleSetNotes)
		r.Delete("/", h.handleDelete)
		r.Post("/items", h.handleAddItems)
		r.Delete("/items/{itemID}", h.handleRemoveItem)
		r.Put("/items/{itemID}/negotiated-amount", h.handleSetNegotiatedAmount)
		r.Post("/send", h.transition(h.service.Send, "failed to send approval"))
		r.Post("/return", h.transition(h.service.ReturnToDraft, "failed to return approval to draft"))
		r.Post("/approve", h.transition(h.service.Approve, "failed to approve"))
		r.Post("/withdraw", h.transition(h.service.Withdraw, "failed to withdraw approval"))
	})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		ctx := r.Context()
		h.logger.ErrorContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
	}
	httputil.WriteError(w, err)
}

func approvalID(r *http.Request) (id.ApprovalID, error) {
	return id.ParseApprovalID(chi.URLParam(r, "id"))
}

func itemID(r *http.Request) (id.ApprovalItemID, error) {
	return id.ParseApprovalItemID(chi.URLParam(r, "itemID"))
}

type approvalsResponse struct {
	Approvals []*models.Detail `json:"approvals"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.Filter{Stage: models.Stage(q.Get("stage"))}
	if v := q.Get("order_id"); v != "" {
		oid, err := id.ParseOrderID(v)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.OrderID = oid
	}
	if v := q.Get("vendor_id"); v != "" {
		vid, err := id.ParseVendorID(v)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.VendorID = vid
	}
	approvals, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err, "failed to list approvals")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, approvalsResponse{Approvals: approvals})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req models.CreateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	d, err := h.service.Create(r.Context(), &req)
	if err != nil {
		h.fail(w, r, err, "failed to create approval")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, d)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	aid, err := approvalID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	d, err := h.service.Get(r.Context(), aid)
	if err != nil {
		h.fail(w, r, err, "failed to get approval")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) handleSetNotes(w http.ResponseWriter, r *http.Request) {
	aid, err := approvalID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req models.NotesRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	d, err := h.service.SetNotes(r.Context(), aid, &req)
	if err != nil {
		h.fail(w, r, err, "failed to update approval notes")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	aid, err := approvalID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), aid); err != nil {
		h.fail(w, r, err, "failed to delete approval")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAddItems(w http.ResponseWriter, r *http.Request) {
	aid, err := approvalID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req models.ItemsRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	d, err := h.service.AddItems(r.Context(), aid, &req)
	if err != nil {
		h.fail(w, r, err, "failed to add approval items")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	aid, err := approvalID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	iid, err := itemID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	d, err := h.service.RemoveItem(r.Context(), aid, iid)
	if err != nil {
		h.fail(w, r, err, "failed to remove approval item")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) handleSetNegotiatedAmount(w http.ResponseWriter, r *http.Request) {
	aid, err := approvalID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	iid, err := itemID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req models.NegotiatedAmountRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	d, err := h.service.SetNegotiatedAmount(r.Context(), aid, iid, &req)
	if err != nil {
		h.fail(w, r, err, "failed to set negotiated amount")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) transition(fn func(context.Context, id.ApprovalID) (*models.Detail, error), msg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		aid, err := approvalID(r)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		d, err := fn(r.Context(), aid)
		if err != nil {
			h.fail(w, r, err, msg)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, d)
	}
}
