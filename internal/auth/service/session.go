package service

import (
	"context"
	"errors"
	"strings"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/auth/models"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/auth/password"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/auth/token"
	dErrors "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain-errors"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/sentinel"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/validation"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/requestcontext"
)

// Login verifies the credentials and issues a session token. Unknown users,
// wrong passwords and disabled accounts all produce the same error.
func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResult, error) {
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if s.lockout != nil {
		if err := s.lockout.Check(ctx, req.Username); err != nil {
			return nil, err
		}
	}
	u, err := s.users.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, s.loginFailed(ctx, req.Username, "unknown_user")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to lookup user")
	}
	if err := password.Verify(req.Password, u.PasswordHash); err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			return nil, s.loginFailed(ctx, req.Username, "bad_password")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify password")
	}
	if !u.IsActive() {
		return nil, s.loginFailed(ctx, req.Username, "disabled")
	}
	if s.lockout != nil {
		if err := s.lockout.Clear(ctx, req.Username); err != nil {
			return nil, err
		}
	}

	now := requestcontext.Now(ctx).UTC()
	u.LastLoginAt = &now
	if err := s.users.Update(ctx, u); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record login")
	}
	signed, expiresAt, err := s.tokens.Issue(token.Subject{
		UserID: u.ID, Name: u.Name(), Role: string(u.Role), VendorID: u.VendorID,
	}, s.sessionTTL)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "user_logged_in", "user_id", u.ID.String(), "role", string(u.Role))
	return &models.LoginResult{Token: signed, ExpiresAt: expiresAt, User: u}, nil
}

// loginFailed counts the attempt and returns the uniform credentials error.
func (s *Service) loginFailed(ctx context.Context, username, reason string) error {
	s.logAudit(ctx, "login_failed", "username", username, "reason", reason)
	if s.lockout != nil {
		if err := s.lockout.RecordFailure(ctx, username); err != nil {
			return err
		}
	}
	return errBadCredentials
}

// Authenticate resolves a session token to the current state of its user so
// that disabling an account or changing a role takes effect immediately.
func (s *Service) Authenticate(ctx context.Context, tokenString string) (requestcontext.ActorInfo, error) {
	sub, err := s.tokens.Validate(tokenString)
	if err != nil {
		return requestcontext.ActorInfo{}, err
	}
	u, err := s.users.FindByID(ctx, sub.UserID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return requestcontext.ActorInfo{}, dErrors.New(dErrors.CodeUnauthorized, "invalid session token")
		}
		return requestcontext.ActorInfo{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to lookup user")
	}
	if !u.IsActive() {
		return requestcontext.ActorInfo{}, dErrors.New(dErrors.CodeUnauthorized, "account is disabled")
	}
	return toActor(u), nil
}

// Me returns the signed-in user.
func (s *Service) Me(ctx context.Context) (*models.User, error) {
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "not signed in")
	}
	return s.findUser(ctx, userID)
}
