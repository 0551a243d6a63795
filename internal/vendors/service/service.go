package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/vendors/models"
	id "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain"
	dErrors "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain-errors"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/sentinel"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/validation"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, v *models.Vendor) error
	Update(ctx context.Context, v *models.Vendor) error
	FindByID(ctx context.Context, vendorID id.VendorID) (*models.Vendor, error)
	List(ctx context.Context, filter models.Filter) ([]*models.Vendor, error)
}

type Service struct {
	vendors Store
	logger  *slog.Logger
}

func New(vendors Store, logger *slog.Logger) *Service {
	return &Service{vendors: vendors, logger: logger}
}

func wrapVendorErr(err error, name string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "vendor not found")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.New(dErrors.CodeConflict, "vendor name "+name+" is already in use")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "vendor store failure")
}

func (s *Service) List(ctx context.Context, filter models.Filter) ([]*models.Vendor, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "status must be active or inactive")
	}
	vendors, err := s.vendors.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list vendors")
	}
	return vendors, nil
}

func (s *Service) Get(ctx context.Context, vendorID id.VendorID) (*models.Vendor, error) {
	v, err := s.vendors.FindByID(ctx, vendorID)
	if err != nil {
		return nil, wrapVendorErr(err, "")
	}
	return v, nil
}

func (s *Service) Create(ctx context.Context, req *models.CreateVendorRequest) (*models.Vendor, error) {
	req.Normalize()
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	t := requestcontext.Now(ctx).UTC()
	v := &models.Vendor{
		ID:          id.NewVendorID(),
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Category:    req.Category,
		Specialties: req.Specialties,
		Status:      models.StatusActive,
		CreatedAt:   t,
		UpdatedAt:   t,
	}
	if err := s.vendors.Create(ctx, v); err != nil {
		return nil, wrapVendorErr(err, v.Name)
	}
	s.logAudit(ctx, "vendor_created", "vendor_id", v.ID.String(), "vendor_name", v.Name)
	return v, nil
}

// Update patches a vendor. Deactivating a vendor does not touch its
// existing approvals.
func (s *Service) Update(ctx context.Context, vendorID id.VendorID, req *models.UpdateVendorRequest) (*models.Vendor, error) {
	req.Normalize()
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if req.Email != nil && *req.Email != "" {
		if err := validation.Var("email", *req.Email, "email"); err != nil {
			return nil, err
		}
	}
	v, err := s.Get(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	previousStatus := v.Status
	req.Apply(v)
	v.UpdatedAt = requestcontext.Now(ctx).UTC()
	if err := s.vendors.Update(ctx, v); err != nil {
		return nil, wrapVendorErr(err, v.Name)
	}
	if v.Status != previousStatus {
		s.logAudit(ctx, "vendor_status_changed", "vendor_id", v.ID.String(), "status", string(v.Status))
	}
	return v, nil
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if s.logger == nil {
		return
	}
	args := append(attributes, "event", event, "log_type", "audit")
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		args = append(args, "request_id", requestID)
	}
	s.logger.InfoContext(ctx, event, args...)
}
