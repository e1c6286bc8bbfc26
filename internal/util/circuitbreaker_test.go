package util

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreakerOpensAtThreshold(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:             "test",
		FailureThreshold: 3,
		ResetTimeout:     time.Hour,
	}, nil)

	cb.RecordFailure(0)
	cb.RecordFailure(0)
	assert.True(t, cb.CanExecute())

	cb.RecordFailure(0)
	assert.False(t, cb.CanExecute())

	status := cb.GetStatus()
	assert.Equal(t, CircuitStateOpen, status.State)
	assert.Equal(t, 3, status.FailureCount)
	require.NotNil(t, status.NextRetryTime)
	assert.WithinDuration(t, time.Now().Add(time.Hour), *status.NextRetryTime, time.Minute)
}

func TestCircuitBreakerSuccessResetsCount(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2, ResetTimeout: time.Hour}, nil)

	cb.RecordFailure(0)
	cb.RecordSuccess()
	cb.RecordFailure(0)
	assert.Equal(t, CircuitStateClosed, cb.GetState())
	assert.Equal(t, 1, cb.GetStatus().FailureCount)
}

func TestCircuitBreakerHalfOpensAfterTimeout(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Hour}, nil)

	cb.RecordFailure(10 * time.Millisecond)
	assert.Equal(t, CircuitStateOpen, cb.GetState())

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, CircuitStateHalfOpen, cb.GetState())

	// a failure while half-open reopens immediately
	cb.RecordFailure(time.Hour)
	assert.Equal(t, CircuitStateOpen, cb.GetState())

	cb.Reset()
	assert.Equal(t, CircuitStateClosed, cb.GetState())
	assert.Nil(t, cb.GetStatus().NextRetryTime)
}

func TestCircuitBreakerRecoversOnSuccessWhileHalfOpen(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Millisecond}, nil)

	cb.RecordFailure(0)
	time.Sleep(5 * time.Millisecond)
	require.Equal(t, CircuitStateHalfOpen, cb.GetState())

	cb.RecordSuccess()
	assert.Equal(t, CircuitStateClosed, cb.GetState())
	assert.Zero(t, cb.GetStatus().FailureCount)
}

func TestCircuitBreakerHealthCheck(t *testing.T) {
	var healthy atomic.Bool
	var checks atomic.Int32

	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold:    1,
		ResetTimeout:        time.Hour,
		HealthCheckInterval: time.Millisecond,
		HealthCheck: func() bool {
			checks.Add(1)
			return healthy.Load()
		},
	}, nil)

	cb.RecordFailure(0)
	time.Sleep(5 * time.Millisecond)

	// failing check keeps the circuit open
	cb.GetState()
	require.Eventually(t, func() bool { return checks.Load() >= 1 }, time.Second, time.Millisecond)
	assert.Equal(t, CircuitStateOpen, cb.GetStatus().State)

	healthy.Store(true)
	require.Eventually(t, func() bool {
		return cb.GetState() == CircuitStateHalfOpen
	}, time.Second, 2*time.Millisecond)
}
