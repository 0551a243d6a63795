package circuit

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// step is one observed call against the primary backend.
type step struct {
	ok           bool
	wantFallback bool
	wantOpened   bool
	wantClosed   bool
}

func TestBreakerTransitions(t *testing.T) {
	tests := []struct {
		name  string
		opts  []Option
		steps []step
		open  bool
	}{
		{
			name: "redis outage trips after threshold",
			opts: []Option{WithFailureThreshold(2)},
			steps: []step{
				{ok: false},
				{ok: false, wantFallback: true, wantOpened: true},
				{ok: false, wantFallback: true},
			},
			open: true,
		},
		{
			name: "a success between failures keeps it closed",
			opts: []Option{WithFailureThreshold(2)},
			steps: []step{
				{ok: false},
				{ok: true},
				{ok: false},
			},
		},
		{
			name: "recovery needs consecutive successes",
			opts: []Option{WithFailureThreshold(1), WithSuccessThreshold(2)},
			steps: []step{
				{ok: false, wantFallback: true, wantOpened: true},
				{ok: true, wantFallback: true},
				{ok: false, wantFallback: true},
				{ok: true, wantFallback: true},
				{ok: true, wantClosed: true},
			},
		},
		{
			name: "non-positive thresholds keep defaults",
			opts: []Option{WithFailureThreshold(0), WithSuccessThreshold(-1)},
			steps: []step{
				{ok: false}, {ok: false}, {ok: false}, {ok: false},
				{ok: false, wantFallback: true, wantOpened: true},
			},
			open: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("login-lockout", tt.opts...)
			for i, s := range tt.steps {
				var fallback bool
				var change StateChange
				if s.ok {
					var primary bool
					primary, change = b.RecordSuccess()
					fallback = !primary
				} else {
					fallback, change = b.RecordFailure()
				}
				assert.Equal(t, s.wantFallback, fallback, "step %d fallback", i)
				assert.Equal(t, s.wantOpened, change.Opened, "step %d opened", i)
				assert.Equal(t, s.wantClosed, change.Closed, "step %d closed", i)
			}
			assert.Equal(t, tt.open, b.IsOpen())
		})
	}
}

func TestBreakerResetAndString(t *testing.T) {
	b := New("addendum-cache", WithFailureThreshold(1))
	assert.Equal(t, "addendum-cache", b.Name())
	assert.Equal(t, "closed", b.State().String())

	b.RecordFailure()
	require.Equal(t, StateOpen, b.State())
	assert.Equal(t, "open", b.State().String())

	b.Reset()
	assert.False(t, b.IsOpen())
	usePrimary, change := b.RecordSuccess()
	assert.True(t, usePrimary)
	assert.Equal(t, StateChange{}, change)
}

func TestBreakerConcurrentRecords(t *testing.T) {
	b := New("login-lockout", WithFailureThreshold(50))
	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.RecordFailure()
		}()
	}
	wg.Wait()
	assert.True(t, b.IsOpen())
}
