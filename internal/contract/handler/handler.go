package handler

import (
	"context"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/contract/metrics"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/contract/models"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/contract/parser"
	omodels "github.com/blastheart1/signed-contract-parser-sub003/internal/orders/models"
	dErrors "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain-errors"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/httputil"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/requestcontext"
)

type Parser interface {
	ParseEML(ctx context.Context, r io.Reader) (*models.Contract, error)
}

// AddendumMerger fetches a contract's addendum pages and appends their rows.
type AddendumMerger interface {
	FetchAndMerge(ctx context.Context, c *models.Contract) (int, error)
}

type Importer interface {
	ImportContract(ctx context.Context, c *models.Contract, opts omodels.ImportOptions) (*omodels.OrderDetail, error)
}

type Handler struct {
	parser   Parser
	addenda  AddendumMerger
	importer Importer
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Handler)

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithAddenda enables ?fetch_addenda=true.
func WithAddenda(a AddendumMerger) Option {
	return func(h *Handler) {
		h.addenda = a
	}
}

func New(p Parser, importer Importer, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{parser: p, importer: importer, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/contracts/parse", h.handleParse)
	r.Post("/contracts/import", h.handleImport)
}

type parseResponse struct {
	Contract      *models.Contract `json:"contract"`
	AddendaMerged int              `json:"addenda_merged"`
}

type importResponse struct {
	*omodels.OrderDetail
	AddendaMerged int `json:"addenda_merged"`
}

func (h *Handler) handleParse(w http.ResponseWriter, r *http.Request) {
	c, merged, ok := h.parse(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, parseResponse{Contract: c, AddendaMerged: merged})
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	overwrite, err := boolParam(r, "overwrite")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, merged, ok := h.parse(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	detail, err := h.importer.ImportContract(ctx, c, omodels.ImportOptions{Overwrite: overwrite})
	if err != nil {
		h.fail(w, r, err, "failed to import contract")
		return
	}
	if h.metrics != nil {
		h.metrics.IncrementImported()
	}
	h.logger.InfoContext(ctx, "contract imported",
		"order_no", detail.Order.OrderNo,
		"order_id", detail.Order.ID.String(),
		"addenda_merged", merged,
		"request_id", requestcontext.RequestID(ctx),
	)
	httputil.WriteJSON(w, http.StatusCreated, importResponse{OrderDetail: detail, AddendaMerged: merged})
}

// parse reads the uploaded email, parses it and optionally merges addenda.
// It writes the error response itself and reports whether to continue.
func (h *Handler) parse(w http.ResponseWriter, r *http.Request) (*models.Contract, int, bool) {
	fetchAddenda, err := boolParam(r, "fetch_addenda")
	if err != nil {
		httputil.WriteError(w, err)
		return nil, 0, false
	}
	if fetchAddenda && h.addenda == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnavailable, "addendum fetching is not configured"))
		return nil, 0, false
	}

	body, closeBody, err := uploadedFile(r)
	if err != nil {
		httputil.WriteError(w, err)
		return nil, 0, false
	}
	defer closeBody()

	ctx := r.Context()
	c, err := h.parser.ParseEML(ctx, body)
	if err != nil {
		h.fail(w, r, err, "failed to parse contract")
		return nil, 0, false
	}
	merged := 0
	if fetchAddenda {
		if merged, err = h.addenda.FetchAndMerge(ctx, c); err != nil {
			h.fail(w, r, err, "failed to fetch addenda")
			return nil, 0, false
		}
	}
	return c, merged, true
}

// uploadedFile returns the "file" part of a multipart form, or the raw body.
func uploadedFile(r *http.Request) (io.Reader, func(), error) {
	limit := int64(parser.MaxMessageBytes)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return io.LimitReader(r.Body, limit), func() {}, nil
	}
	r.Body = http.MaxBytesReader(nil, r.Body, limit+1<<20)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid multipart upload")
	}
	f, _, err := r.FormFile("file")
	if err != nil {
		return nil, nil, dErrors.New(dErrors.CodeBadRequest, "multipart upload must include a file field")
	}
	return io.LimitReader(f, limit), func() {
		_ = f.Close()
		_ = r.MultipartForm.RemoveAll()
	}, nil
}

func boolParam(r *http.Request, name string) (bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, dErrors.New(dErrors.CodeBadRequest, name+" must be a boolean")
	}
	return b, nil
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	ctx := r.Context()
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInternal:
		h.logger.ErrorContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
	case dErrors.CodeUnavailable, dErrors.CodeTimeout:
		h.logger.WarnContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
	}
	httputil.WriteError(w, err)
}
