package lockout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	dErrors "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain-errors"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/circuit"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/requestcontext"
)

type GuardSuite struct {
	suite.Suite
	store *MemoryStore
	guard *Guard
	now   time.Time
}

func TestGuardSuite(t *testing.T) {
	suite.Run(t, new(GuardSuite))
}

func (s *GuardSuite) SetupTest() {
	s.now = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	s.store = NewMemoryStore()
	s.store.now = func() time.Time { return s.now }
	s.guard = New(s.store, WithConfig(Config{MaxFailures: 3, Window: 10 * time.Minute, LockDuration: 5 * time.Minute}))
}

func (s *GuardSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), s.now)
}

func (s *GuardSuite) fail(n int) {
	for range n {
		s.Require().NoError(s.guard.RecordFailure(s.ctx(), "dana"))
	}
}

func (s *GuardSuite) TestLocksAfterMaxFailures() {
	s.fail(2)
	s.NoError(s.guard.Check(s.ctx(), "dana"))

	s.fail(1)
	err := s.guard.Check(s.ctx(), "dana")
	s.True(dErrors.HasCode(err, dErrors.CodeTooManyRequests))
	s.NoError(s.guard.Check(s.ctx(), "other"))
}

func (s *GuardSuite) TestLockExpires() {
	s.fail(3)
	s.now = s.now.Add(5 * time.Minute)
	s.NoError(s.guard.Check(s.ctx(), "dana"))

	// The next failure starts a fresh window.
	s.fail(1)
	s.NoError(s.guard.Check(s.ctx(), "dana"))
}

func (s *GuardSuite) TestWindowResetsCount() {
	s.fail(2)
	s.now = s.now.Add(11 * time.Minute)
	s.fail(2)
	s.NoError(s.guard.Check(s.ctx(), "dana"))
}

func (s *GuardSuite) TestClear() {
	s.fail(2)
	s.Require().NoError(s.guard.Clear(s.ctx(), "dana"))
	s.fail(2)
	s.NoError(s.guard.Check(s.ctx(), "dana"))
}

type brokenStore struct{ err error }

func (b brokenStore) Get(context.Context, string) (*Record, error)              { return nil, b.err }
func (b brokenStore) Put(context.Context, string, *Record, time.Duration) error { return b.err }
func (b brokenStore) Delete(context.Context, string) error                      { return b.err }

func TestFallbackStoreSwitchesWhenBreakerOpens(t *testing.T) {
	ctx := context.Background()
	primary := &switchable{Store: NewMemoryStore()}
	fallback := NewMemoryStore()
	store := NewFallbackStore(primary, fallback, circuit.New("lockout", circuit.WithFailureThreshold(2), circuit.WithSuccessThreshold(1)), nil)

	rec := &Record{Failures: 1}
	require.NoError(t, store.Put(ctx, "k", rec, time.Minute))

	primary.down = true
	_, err := store.Get(ctx, "k")
	assert.Error(t, err, "first failure surfaces while the breaker is closed")

	got, err := store.Get(ctx, "k")
	require.NoError(t, err, "breaker open, fallback used")
	assert.Nil(t, got)

	require.NoError(t, store.Put(ctx, "k", &Record{Failures: 4}, time.Minute))
	got, err = fallback.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 4, got.Failures)

	primary.down = false
	got, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Failures, "breaker closed, primary is authoritative again")
}

type switchable struct {
	Store
	down bool
}

func (s *switchable) Get(ctx context.Context, key string) (*Record, error) {
	if s.down {
		return brokenStore{errors.New("connection refused")}.Get(ctx, key)
	}
	return s.Store.Get(ctx, key)
}

func (s *switchable) Put(ctx context.Context, key string, r *Record, ttl time.Duration) error {
	if s.down {
		return errors.New("connection refused")
	}
	return s.Store.Put(ctx, key, r, ttl)
}

func TestGuardWrapsStoreErrors(t *testing.T) {
	g := New(brokenStore{errors.New("boom")})
	err := g.Check(context.Background(), "dana")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}
