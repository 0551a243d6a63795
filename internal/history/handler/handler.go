package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/history/models"
	id "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain"
	dErrors "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain-errors"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/httputil"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/textutil"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/requestcontext"
)

// Service is the read side of the change history.
type Service interface {
	List(ctx context.Context, filter models.Filter) ([]models.Entry, error)
}

// Handler serves change-history queries.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the history routes on r. r is expected to be authenticated.
func (h *Handler) Register(r chi.Router) {
	r.Get("/history", h.handleList)
	r.Get("/orders/{id}/history", h.handleListForOrder)
	r.Get("/customers/{id}/history", h.handleListForCustomer)
}

type listResponse struct {
	Entries []models.Entry `json:"entries"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.list(w, r, filter)
}

func (h *Handler) handleListForOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := id.ParseOrderID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	filter.OrderID = orderID
	h.list(w, r, filter)
}

func (h *Handler) handleListForCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, err := id.ParseCustomerID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	filter.CustomerID = customerID
	h.list(w, r, filter)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, filter models.Filter) {
	ctx := r.Context()
	entries, err := h.service.List(ctx, filter)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "failed to list change history",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	if entries == nil {
		entries = []models.Entry{}
	}
	filter.Normalize()
	httputil.WriteJSON(w, http.StatusOK, listResponse{Entries: entries, Limit: filter.Limit, Offset: filter.Offset})
}

func parseFilter(r *http.Request) (models.Filter, error) {
	q := r.URL.Query()
	var f models.Filter
	var err error

	if v := q.Get("customer_id"); v != "" {
		if f.CustomerID, err = id.ParseCustomerID(v); err != nil {
			return f, err
		}
	}
	if v := q.Get("order_id"); v != "" {
		if f.OrderID, err = id.ParseOrderID(v); err != nil {
			return f, err
		}
	}
	if v := q.Get("approval_id"); v != "" {
		if f.ApprovalID, err = id.ParseApprovalID(v); err != nil {
			return f, err
		}
	}
	for _, t := range textutil.SplitList(q.Get("change_type")) {
		f.ChangeTypes = append(f.ChangeTypes, models.ChangeType(t))
	}
	if v := q.Get("since"); v != "" {
		since, perr := time.Parse(time.RFC3339, v)
		if perr != nil {
			if since, perr = time.Parse(time.DateOnly, v); perr != nil {
				return f, dErrors.New(dErrors.CodeBadRequest, "since must be an RFC3339 time or YYYY-MM-DD date")
			}
		}
		f.Since = since
	}
	if f.Limit, err = intParam(q.Get("limit"), "limit"); err != nil {
		return f, err
	}
	if f.Offset, err = intParam(q.Get("offset"), "offset"); err != nil {
		return f, err
	}
	return f, nil
}

func intParam(v, name string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, name+" must be a non-negative integer")
	}
	return n, nil
}
