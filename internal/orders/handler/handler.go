package handler

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/orders/models"
	id "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain"
	dErrors "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain-errors"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/httputil"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/requestcontext"
)

// Service is the order workspace used by the handler.
type Service interface {
	ListCustomers(ctx context.Context, filter models.CustomerFilter) ([]*models.Customer, error)
	GetCustomer(ctx context.Context, customerID id.CustomerID) (*models.Customer, error)
	UpdateCustomer(ctx context.Context, customerID id.CustomerID, req *models.UpdateCustomerRequest) (*models.Customer, error)
	DeleteCustomer(ctx context.Context, customerID id.CustomerID) (*models.Customer, error)
	RestoreCustomer(ctx context.Context, customerID id.CustomerID) (*models.Customer, error)
	PurgeCustomer(ctx context.Context, customerID id.CustomerID) error
	ListOrdersByCustomer(ctx context.Context, customerID id.CustomerID) ([]*models.Order, error)

	GetOrder(ctx context.Context, orderID id.OrderID) (*models.OrderDetail, error)
	UpdateOrder(ctx context.Context, orderID id.OrderID, req *models.UpdateOrderRequest) (*models.Order, error)
	UpdateStage(ctx context.Context, orderID id.OrderID, req *models.StageRequest) (*models.Order, error)
	Summary(ctx context.Context, orderID id.OrderID) (*models.Summary, error)

	UpdateItem(ctx context.Context, orderID id.OrderID, itemID id.OrderItemID, req *models.UpdateItemRequest) (*models.OrderItem, error)
	ReplaceItems(ctx context.Context, orderID id.OrderID, req *models.ReplaceItemsRequest) ([]*models.OrderItem, error)
	AddItem(ctx context.Context, orderID id.OrderID, req *models.AddItemRequest) (*models.OrderItem, error)
	DeleteItem(ctx context.Context, orderID id.OrderID, itemID id.OrderItemID) error

	ListInvoices(ctx context.Context, orderID id.OrderID) ([]*models.Invoice, error)
	CreateInvoice(ctx context.Context, orderID id.OrderID, req *models.InvoiceRequest) (*models.Invoice, error)
	UpdateInvoice(ctx context.Context, orderID id.OrderID, invoiceID id.InvoiceID, req *models.InvoiceRequest) (*models.Invoice, error)
	DeleteInvoice(ctx context.Context, orderID id.OrderID, invoiceID id.InvoiceID) error
}

// Exporter renders an order as an Excel workbook.
type Exporter interface {
	WriteOrder(ctx context.Context, buf *bytes.Buffer, detail *models.OrderDetail) error
}

type Handler struct {
	service  Service
	exporter Exporter
	logger   *slog.Logger
}

func New(service Service, exporter Exporter, logger *slog.Logger) *Handler {
	return &Handler{service: service, exporter: exporter, logger: logger}
}

// Register mounts customer and order routes on r. r is expected to be
// authenticated and restricted to staff roles.
func (h *Handler) Register(r chi.Router) {
	r.Get("/customers", h.handleListCustomers)
	r.Route("/customers/{id}", func(r chi.Router) {
		r.Get("/", h.handleGetCustomer)
		r.Patch("/", h.handleUpdateCustomer)
		r.Delete("/", h.handleDeleteCustomer)
		r.Post("/restore", h.handleRestoreCustomer)
		r.Delete("/purge", h.handlePurgeCustomer)
		r.Get("/orders", h.handleListCustomerOrders)
	})
	r.Route("/orders/{id}", func(r chi.Router) {
		r.Get("/", h.handleGetOrder)
		r.Patch("/", h.handleUpdateOrder)
		r.Put("/stage", h.handleUpdateStage)
		r.Get("/summary", h.handleSummary)
		r.Get("/export.xlsx", h.handleExport)
		r.Put("/items", h.handleReplaceItems)
		r.Post("/items", h.handleAddItem)
		r.Patch("/items/{itemID}", h.handleUpdateItem)
		r.Delete("/items/{itemID}", h.handleDeleteItem)
		r.Get("/invoices", h.handleListInvoices)
		r.Post("/invoices", h.handleCreateInvoice)
		r.Patch("/invoices/{invoiceID}", h.handleUpdateInvoice)
		r.Delete("/invoices/{invoiceID}", h.handleDeleteInvoice)
	})
}

// fail writes err, logging it first when it is internal.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		ctx := r.Context()
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}

func customerID(r *http.Request) (id.CustomerID, error) {
	return id.ParseCustomerID(chi.URLParam(r, "id"))
}

func orderID(r *http.Request) (id.OrderID, error) {
	return id.ParseOrderID(chi.URLParam(r, "id"))
}

type customersResponse struct {
	Customers []*models.Customer `json:"customers"`
}

func (h *Handler) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.CustomerFilter{
		Status: models.CustomerStatus(q.Get("status")),
		Query:  q.Get("q"),
	}
	if v := q.Get("all"); v != "" {
		all, err := strconv.ParseBool(v)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "all must be a boolean"))
			return
		}
		filter.All = all
	}
	customers, err := h.service.ListCustomers(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err, "failed to list customers")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, customersResponse{Customers: customers})
}

func (h *Handler) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	cid, err := customerID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.service.GetCustomer(r.Context(), cid)
	if err != nil {
		h.fail(w, r, err, "failed to get customer")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) handleUpdateCustomer(w http.ResponseWriter, r *http.Request) {
	cid, err := customerID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req models.UpdateCustomerRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.service.UpdateCustomer(r.Context(), cid, &req)
	if err != nil {
		h.fail(w, r, err, "failed to update customer")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) handleDeleteCustomer(w http.ResponseWriter, r *http.Request) {
	h.customerTransition(w, r, h.service.DeleteCustomer, "failed to delete customer")
}

func (h *Handler) handleRestoreCustomer(w http.ResponseWriter, r *http.Request) {
	h.customerTransition(w, r, h.service.RestoreCustomer, "failed to restore customer")
}

func (h *Handler) customerTransition(w http.ResponseWriter, r *http.Request,
	fn func(context.Context, id.CustomerID) (*models.Customer, error), msg string,
) {
	cid, err := customerID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := fn(r.Context(), cid)
	if err != nil {
		h.fail(w, r, err, msg)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) handlePurgeCustomer(w http.ResponseWriter, r *http.Request) {
	cid, err := customerID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.PurgeCustomer(r.Context(), cid); err != nil {
		h.fail(w, r, err, "failed to purge customer")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type ordersResponse struct {
	Orders []*models.Order `json:"orders"`
}

func (h *Handler) handleListCustomerOrders(w http.ResponseWriter, r *http.Request) {
	cid, err := customerID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	orders, err := h.service.ListOrdersByCustomer(r.Context(), cid)
	if err != nil {
		h.fail(w, r, err, "failed to list orders")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ordersResponse{Orders: orders})
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	oid, err := orderID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	detail, err := h.service.GetOrder(r.Context(), oid)
	if err != nil {
		h.fail(w, r, err, "failed to get order")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, detail)
}

func (h *Handler) handleUpdateOrder(w http.ResponseWriter, r *http.Request) {
	oid, err := orderID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req models.UpdateOrderRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	o, err := h.service.UpdateOrder(r.Context(), oid, &req)
	if err != nil {
		h.fail(w, r, err, "failed to update order")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, o)
}

func (h *Handler) handleUpdateStage(w http.ResponseWriter, r *http.Request) {
	oid, err := orderID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req models.StageRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	o, err := h.service.UpdateStage(r.Context(), oid, &req)
	if err != nil {
		h.fail(w, r, err, "failed to update stage")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, o)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	oid, err := orderID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	summary, err := h.service.Summary(r.Context(), oid)
	if err != nil {
		h.fail(w, r, err, "failed to summarize order")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}

// handleExport buffers the workbook so a failure can still produce a JSON error.
func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	oid, err := orderID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if h.exporter == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnavailable, "export is not configured"))
		return
	}
	ctx := r.Context()
	detail, err := h.service.GetOrder(ctx, oid)
	if err != nil {
		h.fail(w, r, err, "failed to load order for export")
		return
	}
	var buf bytes.Buffer
	if err := h.exporter.WriteOrder(ctx, &buf, detail); err != nil {
		h.fail(w, r, err, "failed to export order")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="order-%s.xlsx"`, safeFilename(detail.Order.OrderNo)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func safeFilename(s string) string {
	out := make([]rune, 0, len(s))
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return "export"
	}
	return string(out)
}

type itemsResponse struct {
	Items []*models.OrderItem `json:"items"`
}

func (h *Handler) handleReplaceItems(w http.ResponseWriter, r *http.Request) {
	oid, err := orderID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req models.ReplaceItemsRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	items, err := h.service.ReplaceItems(r.Context(), oid, &req)
	if err != nil {
		h.fail(w, r, err, "failed to save order items")
		return
	}
	if items == nil {
		items = []*models.OrderItem{}
	}
	httputil.WriteJSON(w, http.StatusOK, itemsResponse{Items: items})
}

func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	oid, err := orderID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req models.AddItemRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	it, err := h.service.AddItem(r.Context(), oid, &req)
	if err != nil {
		h.fail(w, r, err, "failed to add order item")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, it)
}

func (h *Handler) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	oid, err := orderID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	itemID, err := id.ParseOrderItemID(chi.URLParam(r, "itemID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req models.UpdateItemRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	it, err := h.service.UpdateItem(r.Context(), oid, itemID, &req)
	if err != nil {
		h.fail(w, r, err, "failed to update order item")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, it)
}

func (h *Handler) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	oid, err := orderID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	itemID, err := id.ParseOrderItemID(chi.URLParam(r, "itemID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.DeleteItem(r.Context(), oid, itemID); err != nil {
		h.fail(w, r, err, "failed to delete order item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type invoicesResponse struct {
	Invoices []*models.Invoice `json:"invoices"`
}

func (h *Handler) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	oid, err := orderID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	invoices, err := h.service.ListInvoices(r.Context(), oid)
	if err != nil {
		h.fail(w, r, err, "failed to list invoices")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, invoicesResponse{Invoices: invoices})
}

func (h *Handler) handleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	oid, err := orderID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req models.InvoiceRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	inv, err := h.service.CreateInvoice(r.Context(), oid, &req)
	if err != nil {
		h.fail(w, r, err, "failed to create invoice")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, inv)
}

func (h *Handler) handleUpdateInvoice(w http.ResponseWriter, r *http.Request) {
	oid, err := orderID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	invoiceID, err := id.ParseInvoiceID(chi.URLParam(r, "invoiceID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req models.InvoiceRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	inv, err := h.service.UpdateInvoice(r.Context(), oid, invoiceID, &req)
	if err != nil {
		h.fail(w, r, err, "failed to update invoice")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, inv)
}

func (h *Handler) handleDeleteInvoice(w http.ResponseWriter, r *http.Request) {
	oid, err := orderID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	invoiceID, err := id.ParseInvoiceID(chi.URLParam(r, "invoiceID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.DeleteInvoice(r.Context(), oid, invoiceID); err != nil {
		h.fail(w, r, err, "failed to delete invoice")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
