package service

import (
	"context"
	"errors"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/auth/models"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/auth/password"
	id "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain"
	dErrors "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain-errors"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/sentinel"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/validation"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/requestcontext"
)

func (s *Service) CreateUser(ctx context.Context, req *models.CreateUserRequest) (*models.User, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	u, err := s.createUser(ctx, req)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "user_created", "user_id", u.ID.String(), "username", u.Username,
		"role", string(u.Role), "created_by", requestcontext.UserID(ctx).String())
	return u, nil
}

func (s *Service) createUser(ctx context.Context, req *models.CreateUserRequest) (*models.User, error) {
	req.Normalize()
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if err := s.checkVendor(ctx, req.Role, req.VendorID); err != nil {
		return nil, err
	}
	hash, err := password.Hash(req.Password)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvalidInput) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	u := &models.User{
		ID:           id.NewUserID(),
		Username:     req.Username,
		DisplayName:  req.DisplayName,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
		VendorID:     req.VendorID,
		Status:       models.StatusActive,
		CreatedAt:    requestcontext.Now(ctx).UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "username "+u.Username+" is already taken")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}
	return u, nil
}

// checkVendor enforces that exactly the vendor role carries a vendor id.
func (s *Service) checkVendor(ctx context.Context, role models.Role, vendorID id.VendorID) error {
	if role != models.RoleVendor {
		if !vendorID.IsNil() {
			return dErrors.New(dErrors.CodeValidation, "vendor_id is only allowed for the vendor role")
		}
		return nil
	}
	if vendorID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "vendor_id is required for the vendor role")
	}
	if s.vendors == nil {
		return nil
	}
	if _, err := s.vendors.FindByID(ctx, vendorID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeValidation, "vendor_id does not match a vendor")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to lookup vendor")
	}
	return nil
}

func (s *Service) ListUsers(ctx context.Context) ([]*models.User, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users")
	}
	return users, nil
}

// DisableUser blocks further logins and invalidates live sessions, since
// Authenticate reloads the user on every request.
func (s *Service) DisableUser(ctx context.Context, userID id.UserID) (*models.User, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if userID == requestcontext.UserID(ctx) {
		return nil, dErrors.New(dErrors.CodeConflict, "you cannot disable your own account")
	}
	u, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.IsActive() {
		return u, nil
	}
	u.Status = models.StatusDisabled
	if err := s.users.Update(ctx, u); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to disable user")
	}
	s.logAudit(ctx, "user_disabled", "user_id", u.ID.String(), "disabled_by", requestcontext.UserID(ctx).String())
	return u, nil
}

// Bootstrap creates the first admin when the user table is empty. With no
// configured password a random one is generated and returned so the caller
// can show it once.
func (s *Service) Bootstrap(ctx context.Context, configured string) (created bool, generated string, err error) {
	n, err := s.users.Count(ctx)
	if err != nil {
		return false, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to count users")
	}
	if n > 0 {
		return false, "", nil
	}
	pw := configured
	if pw == "" {
		if pw, err = password.Generate(); err != nil {
			return false, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate bootstrap password")
		}
		generated = pw
	}
	u, err := s.createUser(ctx, &models.CreateUserRequest{
		Username:    BootstrapUsername,
		DisplayName: "Administrator",
		Password:    pw,
		Role:        models.RoleAdmin,
	})
	if err != nil {
		return false, "", err
	}
	s.logAudit(ctx, "user_bootstrapped", "user_id", u.ID.String(), "username", u.Username)
	return true, generated, nil
}
