package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/auth/models"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/auth/service/mocks"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/auth/store"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/auth/token"
	vmodels "github.com/blastheart1/signed-contract-parser-sub003/internal/vendors/models"
	vstore "github.com/blastheart1/signed-contract-parser-sub003/internal/vendors/store"
	id "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain"
	dErrors "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain-errors"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/sentinel"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	users   *store.InMemory
	vendors *vstore.InMemory
	service *Service
	admin   context.Context
	vendor  *vmodels.Vendor
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.users = store.NewInMemory()
	s.vendors = vstore.NewInMemory()
	s.service = New(s.users, token.New("test-key", "contracts"), WithVendors(s.vendors), WithSessionTTL(time.Hour))

	ctx := context.Background()
	s.vendor = &vmodels.Vendor{ID: id.NewVendorID(), Name: "Aqua Plaster", Status: vmodels.StatusActive}
	s.Require().NoError(s.vendors.Create(ctx, s.vendor))

	created, generated, err := s.service.Bootstrap(ctx, "bootstrap-secret")
	s.Require().NoError(err)
	s.Require().True(created)
	s.Empty(generated)

	admin, err := s.users.FindByUsername(ctx, BootstrapUsername)
	s.Require().NoError(err)
	s.admin = requestcontext.WithActor(ctx, toActor(admin))
}

func (s *ServiceSuite) TestBootstrapRunsOnce() {
	created, _, err := s.service.Bootstrap(context.Background(), "")
	s.Require().NoError(err)
	s.False(created)

	fresh := New(store.NewInMemory(), token.New("k", "contracts"))
	created, generated, err := fresh.Bootstrap(context.Background(), "")
	s.Require().NoError(err)
	s.True(created)
	s.NotEmpty(generated)

	res, err := fresh.Login(context.Background(), &models.LoginRequest{Username: "admin", Password: generated})
	s.Require().NoError(err)
	s.Equal(models.RoleAdmin, res.User.Role)
}

func (s *ServiceSuite) TestLoginAndAuthenticate() {
	res, err := s.service.Login(context.Background(), &models.LoginRequest{Username: " Admin ", Password: "bootstrap-secret"})
	s.Require().NoError(err)
	s.NotEmpty(res.Token)
	s.Require().NotNil(res.User.LastLoginAt)

	actor, err := s.service.Authenticate(context.Background(), res.Token)
	s.Require().NoError(err)
	s.Equal(res.User.ID, actor.UserID)
	s.Equal("admin", actor.Role)
	s.Equal("Administrator", actor.Name)

	me, err := s.service.Me(requestcontext.WithActor(context.Background(), actor))
	s.Require().NoError(err)
	s.Equal("admin", me.Username)

	_, err = s.service.Me(context.Background())
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestLoginFailuresLookAlike() {
	_, err := s.service.Login(context.Background(), &models.LoginRequest{Username: "admin", Password: "nope"})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	msg := dErrors.MessageOf(err)

	_, err = s.service.Login(context.Background(), &models.LoginRequest{Username: "ghost", Password: "nope"})
	s.Equal(msg, dErrors.MessageOf(err))

	_, err = s.service.Login(context.Background(), &models.LoginRequest{Username: "admin"})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestCreateUserRules() {
	s.Run("vendor role needs an existing vendor", func() {
		_, err := s.service.CreateUser(s.admin, &models.CreateUserRequest{
			Username: "vic", Password: "password1", Role: models.RoleVendor,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		_, err = s.service.CreateUser(s.admin, &models.CreateUserRequest{
			Username: "vic", Password: "password1", Role: models.RoleVendor, VendorID: id.NewVendorID(),
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		u, err := s.service.CreateUser(s.admin, &models.CreateUserRequest{
			Username: "Vic", Password: "password1", Role: models.RoleVendor, VendorID: s.vendor.ID,
		})
		s.Require().NoError(err)
		s.Equal("vic", u.Username)
		s.Equal(s.vendor.ID, u.VendorID)
	})

	s.Run("staff roles cannot carry a vendor", func() {
		_, err := s.service.CreateUser(s.admin, &models.CreateUserRequest{
			Username: "sam", Password: "password1", Role: models.RoleSalesRep, VendorID: s.vendor.ID,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("duplicate username", func() {
		_, err := s.service.CreateUser(s.admin, &models.CreateUserRequest{
			Username: "ADMIN", Password: "password1", Role: models.RoleAccountant,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("only admins", func() {
		sales := requestcontext.WithActor(context.Background(), requestcontext.ActorInfo{UserID: id.NewUserID(), Role: "contract_manager"})
		_, err := s.service.CreateUser(sales, &models.CreateUserRequest{
			Username: "sam", Password: "password1", Role: models.RoleSalesRep,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		_, err = s.service.ListUsers(sales)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *ServiceSuite) TestDisableUserRevokesSessions() {
	u, err := s.service.CreateUser(s.admin, &models.CreateUserRequest{
		Username: "acct", Password: "password1", Role: models.RoleAccountant,
	})
	s.Require().NoError(err)
	res, err := s.service.Login(context.Background(), &models.LoginRequest{Username: "acct", Password: "password1"})
	s.Require().NoError(err)

	disabled, err := s.service.DisableUser(s.admin, u.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusDisabled, disabled.Status)

	_, err = s.service.Authenticate(context.Background(), res.Token)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	_, err = s.service.Login(context.Background(), &models.LoginRequest{Username: "acct", Password: "password1"})
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	_, err = s.service.DisableUser(s.admin, requestcontext.UserID(s.admin))
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	_, err = s.service.DisableUser(s.admin, id.NewUserID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	users, err := s.service.ListUsers(s.admin)
	s.Require().NoError(err)
	s.Len(users, 2)
}

func TestStoreErrorPropagation(t *testing.T) {
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserStore(ctrl)
	tokens := mocks.NewMockTokens(ctrl)
	svc := New(users, tokens)
	ctx := context.Background()
	userID := id.NewUserID()

	t.Run("token lookup of a deleted user", func(t *testing.T) {
		tokens.EXPECT().Validate("tok").Return(&token.Subject{UserID: userID}, nil)
		users.EXPECT().FindByID(ctx, userID).Return(nil, sentinel.ErrNotFound)
		_, err := svc.Authenticate(ctx, "tok")
		if !dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			t.Fatalf("expected unauthorized, got %v", err)
		}
	})

	t.Run("store down during login", func(t *testing.T) {
		users.EXPECT().FindByUsername(ctx, "dana").Return(nil, errors.New("db down"))
		_, err := svc.Login(ctx, &models.LoginRequest{Username: "dana", Password: "pw"})
		if !dErrors.HasCode(err, dErrors.CodeInternal) {
			t.Fatalf("expected internal, got %v", err)
		}
	})

	t.Run("count fails during bootstrap", func(t *testing.T) {
		users.EXPECT().Count(ctx).Return(0, errors.New("db down"))
		_, _, err := svc.Bootstrap(ctx, "")
		if !dErrors.HasCode(err, dErrors.CodeInternal) {
			t.Fatalf("expected internal, got %v", err)
		}
	})
}

func TestLoginConsultsLockout(t *testing.T) {
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserStore(ctrl)
	lock := mocks.NewMockLockout(ctrl)
	svc := New(users, mocks.NewMockTokens(ctrl), WithLockout(lock))
	ctx := context.Background()

	t.Run("locked usernames never reach the store", func(t *testing.T) {
		lock.EXPECT().Check(ctx, "dana").Return(dErrors.New(dErrors.CodeTooManyRequests, "locked"))
		_, err := svc.Login(ctx, &models.LoginRequest{Username: "Dana", Password: "pw"})
		if !dErrors.HasCode(err, dErrors.CodeTooManyRequests) {
			t.Fatalf("expected too_many_requests, got %v", err)
		}
	})

	t.Run("unknown user counts as a failure", func(t *testing.T) {
		gomock.InOrder(
			lock.EXPECT().Check(ctx, "ghost").Return(nil),
			users.EXPECT().FindByUsername(ctx, "ghost").Return(nil, sentinel.ErrNotFound),
			lock.EXPECT().RecordFailure(ctx, "ghost").Return(nil),
		)
		_, err := svc.Login(ctx, &models.LoginRequest{Username: "ghost", Password: "pw"})
		if !dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			t.Fatalf("expected unauthorized, got %v", err)
		}
	})
}
