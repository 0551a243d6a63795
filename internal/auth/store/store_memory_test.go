package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/auth/models"
	id "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/sentinel"
)

type InMemoryUserStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *InMemoryUserStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestInMemoryUserStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryUserStoreSuite))
}

func (s *InMemoryUserStoreSuite) newUser(username string) *models.User {
	return &models.User{
		ID:        id.NewUserID(),
		Username:  username,
		Role:      models.RoleSalesRep,
		Status:    models.StatusActive,
		CreatedAt: time.Now().UTC(),
	}
}

func (s *InMemoryUserStoreSuite) TestLookup() {
	u := s.newUser("dana")
	s.Require().NoError(s.store.Create(s.ctx, u))

	found, err := s.store.FindByUsername(s.ctx, "DANA")
	s.Require().NoError(err)
	s.Equal(u.ID, found.ID)

	_, err = s.store.FindByID(s.ctx, id.NewUserID())
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.FindByUsername(s.ctx, "nobody")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryUserStoreSuite) TestUsernameUniqueIgnoringCase() {
	s.Require().NoError(s.store.Create(s.ctx, s.newUser("dana")))
	err := s.store.Create(s.ctx, s.newUser("Dana"))
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)

	n, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, n)
}

func (s *InMemoryUserStoreSuite) TestUpdateReturnsCopies() {
	u := s.newUser("dana")
	s.Require().NoError(s.store.Create(s.ctx, u))

	at := time.Now().UTC()
	u.LastLoginAt = &at
	u.Status = models.StatusDisabled
	s.Require().NoError(s.store.Update(s.ctx, u))

	found, err := s.store.FindByID(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusDisabled, found.Status)
	found.LastLoginAt = nil

	again, err := s.store.FindByID(s.ctx, u.ID)
	s.Require().NoError(err)
	s.NotNil(again.LastLoginAt)

	s.ErrorIs(s.store.Update(s.ctx, s.newUser("ghost")), sentinel.ErrNotFound)
}

func (s *InMemoryUserStoreSuite) TestListSorted() {
	s.Require().NoError(s.store.Create(s.ctx, s.newUser("zed")))
	s.Require().NoError(s.store.Create(s.ctx, s.newUser("amy")))
	users, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(users, 2)
	s.Equal("amy", users[0].Username)
}
