package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/auth/models"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/auth/token"
	vmodels "github.com/blastheart1/signed-contract-parser-sub003/internal/vendors/models"
	id "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain"
	dErrors "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain-errors"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/sentinel"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks UserStore

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	Update(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Count(ctx context.Context) (int, error)
}

type VendorReader interface {
	FindByID(ctx context.Context, vendorID id.VendorID) (*vmodels.Vendor, error)
}

// Lockout throttles repeated failed sign-ins for a username.
type Lockout interface {
	Check(ctx context.Context, username string) error
	RecordFailure(ctx context.Context, username string) error
	Clear(ctx context.Context, username string) error
}

type Tokens interface {
	Issue(sub token.Subject, ttl time.Duration) (string, time.Time, error)
	Validate(tokenString string) (*token.Subject, error)
}

const (
	DefaultSessionTTL = 12 * time.Hour
	BootstrapUsername = "admin"
)

var errBadCredentials = dErrors.New(dErrors.CodeUnauthorized, "invalid username or password")

type Service struct {
	users      UserStore
	vendors    VendorReader
	tokens     Tokens
	lockout    Lockout
	sessionTTL time.Duration
	logger     *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithVendors enables the vendor existence check when creating vendor users.
func WithVendors(v VendorReader) Option {
	return func(s *Service) {
		s.vendors = v
	}
}

func WithLockout(l Lockout) Option {
	return func(s *Service) {
		s.lockout = l
	}
}

func New(users UserStore, tokens Tokens, opts ...Option) *Service {
	s := &Service{users: users, tokens: tokens, sessionTTL: DefaultSessionTTL}
	for _, opt := range opts {
		opt(s)
	}
	return s
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

func (s *Service) findUser(ctx context.Context, userID id.UserID) (*models.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to lookup user")
	}
	return u, nil
}

func requireAdmin(ctx context.Context) error {
	if models.Role(requestcontext.Actor(ctx).Role) != models.RoleAdmin {
		return dErrors.New(dErrors.CodeForbidden, "requires an admin")
	}
	return nil
}

func toActor(u *models.User) requestcontext.ActorInfo {
	return requestcontext.ActorInfo{UserID: u.ID, Name: u.Name(), Role: string(u.Role), VendorID: u.VendorID}
}
