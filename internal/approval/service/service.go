// Package service runs the vendor negotiation workflow. Each transition is
// persisted with its change-history entries in one transaction, guarded by
// the approval's version.
package service

import (
	"context"
	"errors"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/approval/metrics"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/approval/models"
	authmodels "github.com/blastheart1/signed-contract-parser-sub003/internal/auth/models"
	hmodels "github.com/blastheart1/signed-contract-parser-sub003/internal/history/models"
	omodels "github.com/blastheart1/signed-contract-parser-sub003/internal/orders/models"
	vmodels "github.com/blastheart1/signed-contract-parser-sub003/internal/vendors/models"
	id "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain"
	dErrors "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain-errors"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/sentinel"
	txcontext "github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/tx"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/requestcontext"
)

var tracer = otel.Tracer("contracts/approval")

var notesPolicy = bluemonday.StrictPolicy()

type Store interface {
	NextReference(ctx context.Context, year int) (string, error)
	Create(ctx context.Context, a *models.Approval) error
	Update(ctx context.Context, a *models.Approval) error
	Delete(ctx context.Context, approvalID id.ApprovalID) error
	FindByID(ctx context.Context, approvalID id.ApprovalID) (*models.Approval, error)
	List(ctx context.Context, filter models.Filter) ([]*models.Approval, error)
}

type OrderReader interface {
	FindByID(ctx context.Context, orderID id.OrderID) (*omodels.Order, error)
}

type ItemReader interface {
	ListByOrder(ctx context.Context, orderID id.OrderID) ([]*omodels.OrderItem, error)
}

type VendorReader interface {
	FindByID(ctx context.Context, vendorID id.VendorID) (*vmodels.Vendor, error)
}

type HistoryRecorder interface {
	Record(ctx context.Context, entries ...hmodels.Entry) error
}

// Deps groups the stores the service reads and writes.
type Deps struct {
	Approvals Store
	Orders    OrderReader
	Items     ItemReader
	Vendors   VendorReader
}

type Service struct {
	approvals Store
	orders    OrderReader
	items     ItemReader
	vendors   VendorReader
	tx        txcontext.Runner
	history   HistoryRecorder
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(deps Deps, tx txcontext.Runner, history HistoryRecorder, opts ...Option) *Service {
	s := &Service{
		approvals: deps.Approvals,
		orders:    deps.Orders,
		items:     deps.Items,
		vendors:   deps.Vendors,
		tx:        tx,
		history:   history,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// errUnchanged short-circuits change when the request is a no-op.
var errUnchanged = errors.New("approval unchanged")

// run executes fn in a transaction inside a span.
func (s *Service) run(ctx context.Context, operation string, fn func(ctx context.Context) error) (err error) {
	ctx, span := tracer.Start(ctx, "approval."+operation)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, dErrors.MessageOf(err))
		}
		span.End()
	}()

	err = s.tx.RunInTx(ctx, fn)
	var de *dErrors.Error
	if err != nil && !errors.As(err, &de) {
		err = dErrors.Wrap(err, dErrors.CodeInternal, "failed to "+operation+" approval")
	}
	return err
}

// change loads an approval, applies fn and persists the result with the
// returned history entries. fn may return errUnchanged to skip the write.
func (s *Service) change(ctx context.Context, operation string, approvalID id.ApprovalID,
	fn func(ctx context.Context, a *models.Approval) ([]hmodels.Entry, error)) (*models.Detail, error) {
	var (
		result *models.Approval
		from   models.Stage
	)
	err := s.run(ctx, operation, func(ctx context.Context) error {
		a, err := s.load(ctx, approvalID)
		if err != nil {
			return err
		}
		trace.SpanFromContext(ctx).SetAttributes(
			attribute.String("approval.reference_no", a.ReferenceNo),
			attribute.String("approval.stage", string(a.Stage)),
		)
		from = a.Stage
		entries, err := fn(ctx, a)
		if errors.Is(err, errUnchanged) {
			result = a
			return nil
		}
		if err != nil {
			return err
		}
		if err := s.approvals.Update(ctx, a); err != nil {
			return s.storeError(err)
		}
		result = a
		return s.record(ctx, entries...)
	})
	if err != nil {
		return nil, err
	}
	if from != result.Stage {
		if s.metrics != nil {
			s.metrics.IncrementTransition(string(from), string(result.Stage))
		}
		s.logAudit(ctx, "approval_stage_changed",
			"approval_id", result.ID.String(),
			"reference_no", result.ReferenceNo,
			"from", string(from),
			"to", string(result.Stage),
		)
	}
	return models.NewDetail(result), nil
}

func (s *Service) storeError(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "approval not found")
	case errors.Is(err, sentinel.ErrConflict):
		if s.metrics != nil {
			s.metrics.IncrementConflict()
		}
		return dErrors.New(dErrors.CodeConflict, "approval was modified concurrently; reload and retry")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.Wrap(err, dErrors.CodeConflict, "approval reference already in use")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "approval store failure")
}

func (s *Service) record(ctx context.Context, entries ...hmodels.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	return s.history.Record(ctx, entries...)
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if s.logger == nil {
		return
	}
	args := append(attributes, "event", event, "log_type", "audit")
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		args = append(args, "request_id", requestID)
	}
	if userID := requestcontext.UserID(ctx); !userID.IsNil() {
		args = append(args, "user_id", userID.String())
	}
	s.logger.InfoContext(ctx, event, args...)
}

func now(ctx context.Context) time.Time {
	return requestcontext.Now(ctx).UTC()
}

func sanitizeNotes(s string) string {
	return strings.TrimSpace(html.UnescapeString(notesPolicy.Sanitize(s)))
}

// load fetches an approval the caller is allowed to see.
func (s *Service) load(ctx context.Context, approvalID id.ApprovalID) (*models.Approval, error) {
	a, err := s.approvals.FindByID(ctx, approvalID)
	if err != nil {
		return nil, s.storeError(err)
	}
	if err := authorizeView(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func entry(t hmodels.ChangeType, a *models.Approval) hmodels.Entry {
	return hmodels.Entry{ChangeType: t, ApprovalID: a.ID, OrderID: a.OrderID, CustomerID: a.CustomerID}
}

func stageEntry(a *models.Approval, from, to string) hmodels.Entry {
	e := entry(hmodels.ChangeApprovalStage, a)
	e.FieldName = "stage"
	e.OldValue = from
	e.NewValue = to
	return e
}

func signField(p models.Party) string {
	return string(p) + "_approved"
}

func signEntry(a *models.Approval, p models.Party, signed bool) hmodels.Entry {
	e := entry(hmodels.ChangeApprovalSign, a)
	e.FieldName = signField(p)
	e.OldValue = hmodels.Bool("", !signed).Value
	e.NewValue = hmodels.Bool("", signed).Value
	return e
}

// clearedEntries records sign-offs revoked by an edit during negotiation.
func (s *Service) clearedEntries(a *models.Approval) []hmodels.Entry {
	if a.Stage != models.StageNegotiating {
		return nil
	}
	var entries []hmodels.Entry
	for _, p := range a.ClearSignOffs() {
		entries = append(entries, signEntry(a, p, false))
		if s.metrics != nil {
			s.metrics.IncrementSignOff(string(p), "cleared")
		}
	}
	return entries
}

// Authorization. Managers act as the PM; vendor users see and act only on
// their own vendor's approvals; other staff may read.

func actorRole(ctx context.Context) authmodels.Role {
	return authmodels.Role(requestcontext.Actor(ctx).Role)
}

func requireManager(ctx context.Context) error {
	if !actorRole(ctx).IsManager() {
		return dErrors.New(dErrors.CodeForbidden, "requires an admin or contract manager")
	}
	return nil
}

func authorizeView(ctx context.Context, a *models.Approval) error {
	actor := requestcontext.Actor(ctx)
	role := authmodels.Role(actor.Role)
	switch {
	case role == authmodels.RoleVendor:
		if actor.VendorID.IsNil() || actor.VendorID != a.VendorID {
			return dErrors.New(dErrors.CodeNotFound, "approval not found")
		}
		return nil
	case role.IsStaff():
		return nil
	}
	return dErrors.New(dErrors.CodeForbidden, "not allowed to view approvals")
}

// partyOf maps the caller onto a sign-off party. Call after load.
func partyOf(ctx context.Context) (models.Party, error) {
	role := actorRole(ctx)
	switch {
	case role.IsManager():
		return models.PartyPM, nil
	case role == authmodels.RoleVendor:
		return models.PartyVendor, nil
	}
	return "", dErrors.New(dErrors.CodeForbidden, "only a contract manager or the vendor can do this")
}
