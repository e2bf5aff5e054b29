package resilience

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestBreaker(settings Settings) (*Breaker, *clock) {
	clk := &clock{now: time.Unix(1700000000, 0)}
	b := New("test", settings)
	b.now = clk.Now
	b.deadline = clk.Now().Add(b.settings.Window)
	return b, clk
}

func outcome(ok bool) func() error {
	return func() error {
		if ok {
			return nil
		}
		return errBoom
	}
}

func TestBreakerTrips(t *testing.T) {
	tests := []struct {
		name  string
		trip  func(Counts) bool
		calls []bool
		want  State
	}{
		{"successes keep it closed", nil, []bool{true, true, true}, StateClosed},
		{"default trips after five failures", nil, []bool{false, false, false, false, false}, StateOpen},
		{"four failures are tolerated", nil, []bool{false, false, false, false}, StateClosed},
		{"a success resets the streak", func(c Counts) bool { return c.ConsecutiveFailures >= 2 },
			[]bool{false, true, false}, StateClosed},
		{"failure rate", func(c Counts) bool { return c.Calls >= 4 && c.FailureRate() >= 0.5 },
			[]bool{true, false, true, false}, StateOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _ := newTestBreaker(Settings{ShouldTrip: tt.trip})
			for _, ok := range tt.calls {
				_ = b.Do(outcome(ok))
			}
			assert.Equal(t, tt.want, b.State())
		})
	}
}

func TestOpenCircuitRejects(t *testing.T) {
	b, _ := newTestBreaker(Settings{ShouldTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 }})

	assert.ErrorIs(t, b.Do(outcome(false)), errBoom)
	called := false
	err := b.Do(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestHalfOpenRecovery(t *testing.T) {
	var transitions []string
	b, clk := newTestBreaker(Settings{
		Probes:     2,
		Cooldown:   time.Second,
		ShouldTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
		OnStateChange: func(_ string, from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	_ = b.Do(outcome(false))
	require.Equal(t, StateOpen, b.State())

	clk.Advance(2 * time.Second)
	assert.Equal(t, StateHalfOpen, b.State())

	require.NoError(t, b.Do(outcome(true)))
	assert.Equal(t, StateHalfOpen, b.State())
	require.NoError(t, b.Do(outcome(true)))
	assert.Equal(t, StateClosed, b.State())

	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestHalfOpenFailureReopens(t *testing.T) {
	b, clk := newTestBreaker(Settings{
		Cooldown:   time.Second,
		ShouldTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
	})

	_ = b.Do(outcome(false))
	clk.Advance(2 * time.Second)
	require.Equal(t, StateHalfOpen, b.State())

	assert.ErrorIs(t, b.Do(outcome(false)), errBoom)
	assert.Equal(t, StateOpen, b.State())
}

func TestHalfOpenLimitsProbes(t *testing.T) {
	b, clk := newTestBreaker(Settings{
		Cooldown:   time.Second,
		ShouldTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
	})
	_ = b.Do(outcome(false))
	clk.Advance(2 * time.Second)

	release := make(chan struct{})
	done := make(chan error)
	go func() {
		done <- b.Do(func() error { <-release; return nil })
	}()

	require.Eventually(t, func() bool { return b.Counts().Calls == 1 }, time.Second, time.Millisecond)
	assert.ErrorIs(t, b.Do(outcome(true)), ErrTooManyRequests)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StateClosed, b.State())
}

func TestWindowResetsCounts(t *testing.T) {
	b, clk := newTestBreaker(Settings{Window: time.Minute})

	for i := 0; i < 4; i++ {
		_ = b.Do(outcome(false))
	}
	assert.Equal(t, uint32(4), b.Counts().ConsecutiveFailures)

	clk.Advance(2 * time.Minute)
	_ = b.Do(outcome(false))
	assert.Equal(t, uint32(1), b.Counts().ConsecutiveFailures)
	assert.Equal(t, StateClosed, b.State())
}

func TestIsFailureClassifier(t *testing.T) {
	errNotFound := errors.New("not found")
	b, _ := newTestBreaker(Settings{
		ShouldTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
		IsFailure:  func(err error) bool { return !errors.Is(err, errNotFound) },
	})

	assert.ErrorIs(t, b.Do(func() error { return errNotFound }), errNotFound)
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, uint32(1), b.Counts().Successes)
}

func TestPanicCountsAsFailure(t *testing.T) {
	b, _ := newTestBreaker(Settings{ShouldTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 }})

	assert.Panics(t, func() {
		_ = b.Do(func() error { panic("bad") })
	})
	assert.Equal(t, StateOpen, b.State())
}
