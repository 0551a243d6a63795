package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/history/models"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/history/store"
	id "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain"
	dErrors "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain-errors"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/requestcontext"
)

type recordingOutbox struct {
	entries []models.Entry
	err     error
}

func (o *recordingOutbox) Enqueue(_ context.Context, entries []models.Entry) error {
	if o.err != nil {
		return o.err
	}
	o.entries = append(o.entries, entries...)
	return nil
}

type RecorderSuite struct {
	suite.Suite
	store    *store.InMemory
	outbox   *recordingOutbox
	recorder *Recorder
	ctx      context.Context
	actor    requestcontext.ActorInfo
	now      time.Time
}

func TestRecorderSuite(t *testing.T) {
	suite.Run(t, new(RecorderSuite))
}

func (s *RecorderSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.outbox = &recordingOutbox{}
	s.recorder = New(s.store, WithOutbox(s.outbox))
	s.now = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	s.actor = requestcontext.ActorInfo{UserID: id.NewUserID(), Name: "Dana PM", Role: "contract_manager"}

	ctx := requestcontext.WithActor(context.Background(), s.actor)
	ctx = requestcontext.WithTime(ctx, s.now)
	ctx = requestcontext.WithClientMetadata(ctx, "10.0.0.1",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	s.ctx = ctx
}

func (s *RecorderSuite) TestRecordStampsActorTimeAndClient() {
	orderID := id.NewOrderID()
	err := s.recorder.Record(s.ctx, models.Entry{
		ChangeType: models.ChangeCellEdit,
		FieldName:  "qty",
		OldValue:   "1",
		NewValue:   "2",
		RowIndex:   models.Row(3),
		OrderID:    orderID,
	})
	s.Require().NoError(err)

	entries, err := s.store.List(s.ctx, models.Filter{OrderID: orderID})
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	e := entries[0]
	s.False(e.ID.IsNil())
	s.Equal(s.actor.UserID, e.ChangedBy)
	s.Equal("Dana PM", e.ChangedByName)
	s.Equal(s.now, e.ChangedAt)
	s.Contains(e.Client, "Chrome 120")
	s.Equal(3, *e.RowIndex)
	s.Len(s.outbox.entries, 1)
	s.Equal(e.ID, s.outbox.entries[0].ID)
}

func (s *RecorderSuite) TestEmptyBatchIsNoop() {
	s.Require().NoError(s.recorder.Record(s.ctx))
	entries, err := s.store.List(s.ctx, models.Filter{})
	s.Require().NoError(err)
	s.Empty(entries)
	s.Empty(s.outbox.entries)
}

func (s *RecorderSuite) TestRejectsUnknownChangeType() {
	err := s.recorder.Record(s.ctx, models.Entry{ChangeType: "renamed"})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func (s *RecorderSuite) TestOutboxFailureFailsRecord() {
	s.outbox.err = errors.New("outbox unavailable")
	err := s.recorder.Record(s.ctx, models.Entry{ChangeType: models.ChangeRowAdd})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *RecorderSuite) TestListNewestFirstWithFilters() {
	customerID := id.NewCustomerID()
	base := s.now
	for i, ct := range []models.ChangeType{models.ChangeCustomerEdit, models.ChangeCustomerDelete, models.ChangeCustomerRestore} {
		ctx := requestcontext.WithTime(s.ctx, base.Add(time.Duration(i)*time.Minute))
		s.Require().NoError(s.recorder.Record(ctx, models.Entry{ChangeType: ct, CustomerID: customerID}))
	}
	s.Require().NoError(s.recorder.Record(s.ctx, models.Entry{ChangeType: models.ChangeCustomerEdit, CustomerID: id.NewCustomerID()}))

	entries, err := s.recorder.List(s.ctx, models.Filter{CustomerID: customerID})
	s.Require().NoError(err)
	s.Require().Len(entries, 3)
	s.Equal(models.ChangeCustomerRestore, entries[0].ChangeType)
	s.Equal(models.ChangeCustomerEdit, entries[2].ChangeType)

	entries, err = s.recorder.List(s.ctx, models.Filter{
		CustomerID:  customerID,
		ChangeTypes: []models.ChangeType{models.ChangeCustomerDelete},
	})
	s.Require().NoError(err)
	s.Require().Len(entries, 1)

	entries, err = s.recorder.List(s.ctx, models.Filter{CustomerID: customerID, Limit: 1, Offset: 1})
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(models.ChangeCustomerDelete, entries[0].ChangeType)
}

func (s *RecorderSuite) TestListRejectsUnknownFilterType() {
	_, err := s.recorder.List(s.ctx, models.Filter{ChangeTypes: []models.ChangeType{"nope"}})
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func TestClientSummary(t *testing.T) {
	assert.Empty(t, ClientSummary(""))
	assert.Equal(t, "bot", ClientSummary("Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"))

	firefox := ClientSummary("Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0")
	require.NotEmpty(t, firefox)
	assert.Contains(t, firefox, "Firefox 121")
}
