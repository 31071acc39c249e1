package errors

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	// Given: a circuit breaker with max 3 failures
	cb := NewCircuitBreaker("mapbox",
		WithMaxFailures(3),
		WithResetTimeout(1*time.Second),
	)

	// When: recording 3 failures
	for i := 0; i < 3; i++ {
		_ = cb.Execute(func() error {
			return errors.New("error")
		})
	}

	// Then: circuit is open and requests are rejected without running
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(func() error {
		called = true
		return nil
	})
	assert.True(t, errors.Is(err, ErrCircuitOpen))
	assert.False(t, called)
}

func TestCircuitBreaker_RecoversAfterTimeout(t *testing.T) {
	// Given: an open circuit breaker with a controllable clock
	now := time.Now()
	cb := NewCircuitBreaker("mapbox",
		WithMaxFailures(2),
		WithResetTimeout(50*time.Millisecond),
	)
	cb.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		_ = cb.Execute(func() error { return errors.New("error") })
	}
	require.Equal(t, StateOpen, cb.State())

	// When: the reset timeout elapses
	now = now.Add(60 * time.Millisecond)

	// Then: circuit is half-open and a successful probe closes it
	assert.Equal(t, StateHalfOpen, cb.State())
	err := cb.Execute(func() error { return nil })
	assert.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReOpens(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker("mapbox",
		WithMaxFailures(2),
		WithResetTimeout(50*time.Millisecond),
	)
	cb.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		_ = cb.Execute(func() error { return errors.New("error") })
	}
	now = now.Add(60 * time.Millisecond)

	// When: the probe fails
	_ = cb.Execute(func() error { return errors.New("still failing") })

	// Then: circuit reopens
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_HungProbeLosesSlot(t *testing.T) {
	// Given: a half-open circuit whose probe never reports back
	now := time.Now()
	cb := NewCircuitBreaker("mapbox",
		WithMaxFailures(2),
		WithResetTimeout(50*time.Millisecond),
	)
	cb.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		_ = cb.Execute(func() error { return errors.New("error") })
	}
	now = now.Add(60 * time.Millisecond)
	require.True(t, cb.acquire())

	// When: other calls arrive while the probe is outstanding
	err := cb.Execute(func() error { return nil })

	// Then: they are rejected until the probe's slot expires
	assert.ErrorIs(t, err, ErrCircuitOpen)

	now = now.Add(60 * time.Millisecond)
	err = cb.Execute(func() error { return nil })
	assert.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_FailureFilterIgnoresRequestErrors(t *testing.T) {
	// Given: a breaker that only counts unavailable failures
	cb := NewCircuitBreaker("google_places",
		WithMaxFailures(1),
		WithFailureFilter(func(err error) bool {
			return GetKind(err) == FailureUnavailable
		}),
	)

	// When: a request error occurs
	_ = cb.Execute(func() error { return RequestError("google_places", "bad key", nil) })

	// Then: the circuit stays closed
	assert.Equal(t, StateClosed, cb.State())

	// When: an unavailable failure occurs
	_ = cb.Execute(func() error { return Unavailable("google_places", "503", nil) })

	// Then: it opens
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_SuccessResetsClosed(t *testing.T) {
	cb := NewCircuitBreaker("whoosh", WithMaxFailures(5))

	for i := 0; i < 3; i++ {
		_ = cb.Execute(func() error { return errors.New("error") })
	}

	err := cb.Execute(func() error { return nil })

	assert.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 0, cb.Failures())
}

func TestCircuitExecute_ReturnsValueOrOpenError(t *testing.T) {
	cb := NewCircuitBreaker("mapbox", WithMaxFailures(1))

	v, err := CircuitExecute(cb, func() (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	_, err = CircuitExecute(cb, func() (int, error) { return 0, errors.New("boom") })
	require.Error(t, err)

	v, err = CircuitExecute(cb, func() (int, error) { return 7, nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 0, v)
}

func TestCircuitBreaker_Concurrent(t *testing.T) {
	cb := NewCircuitBreaker("mapbox",
		WithMaxFailures(10),
		WithResetTimeout(1*time.Second),
	)

	var wg sync.WaitGroup
	var successCount atomic.Int32
	var failCount atomic.Int32

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := cb.Execute(func() error {
				if i%2 == 0 {
					return nil
				}
				return errors.New("error")
			})
			if err == nil {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}(i)
	}

	wg.Wait()

	assert.Equal(t, int32(20), successCount.Load()+failCount.Load())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(99).String())
}
