package util

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// CircuitState represents the state of the circuit breaker
type CircuitState string

const (
	CircuitStateClosed   CircuitState = "CLOSED"
	CircuitStateOpen     CircuitState = "OPEN"
	CircuitStateHalfOpen CircuitState = "HALF_OPEN"
)

func (s CircuitState) String() string {
	return string(s)
}

// HealthCheckFunction reports whether the guarded service answers again.
type HealthCheckFunction func() bool

// CircuitBreakerConfig configures a CircuitBreaker.
type CircuitBreakerConfig struct {
	Name                string
	FailureThreshold    int
	ResetTimeout        time.Duration
	HealthCheckInterval time.Duration
	// HealthCheck is optional. Without it the breaker half-opens once the
	// reset timeout has elapsed.
	HealthCheck HealthCheckFunction
}

// CircuitBreaker stops calls to a failing upstream until it recovers.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig

	mu                  sync.RWMutex
	state               CircuitState
	failureCount        int
	nextRetryTime       time.Time
	nextHealthCheckTime time.Time
	isHealthChecking    bool

	logger *zap.Logger
}

func NewCircuitBreaker(cfg CircuitBreakerConfig, logger *zap.Logger) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CircuitBreaker{
		cfg:    cfg,
		state:  CircuitStateClosed,
		logger: logger.With(zap.String("breaker", cfg.Name)),
	}
}

// GetState returns the current state, moving OPEN towards HALF_OPEN when the
// retry window or a passing health check allows it.
func (cb *CircuitBreaker) GetState() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitStateOpen {
		now := time.Now()
		if cb.cfg.HealthCheck != nil {
			if now.After(cb.nextHealthCheckTime) && !cb.isHealthChecking {
				cb.isHealthChecking = true
				go cb.runHealthCheck()
			}
		} else if now.After(cb.nextRetryTime) {
			cb.transitionTo(CircuitStateHalfOpen)
		}
	}

	return cb.state
}

// CanExecute reports whether a call may go through.
func (cb *CircuitBreaker) CanExecute() bool {
	return cb.GetState() != CircuitStateOpen
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch {
	case cb.state == CircuitStateHalfOpen:
		cb.logger.Info("Circuit Breaker: Service recovered, transitioning to CLOSED")
		cb.failureCount = 0
		cb.transitionTo(CircuitStateClosed)
	case cb.failureCount > 0:
		cb.logger.Debug("Circuit Breaker: Resetting failure count", zap.Int("was", cb.failureCount))
		cb.failureCount = 0
	}
}

// RecordFailure counts a failure. A positive customTimeout overrides the
// configured reset timeout for this opening.
func (cb *CircuitBreaker) RecordFailure(customTimeout time.Duration) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount++

	timeout := cb.cfg.ResetTimeout
	if customTimeout > 0 {
		timeout = customTimeout
	}

	cb.logger.Warn("Circuit Breaker: Failure recorded",
		zap.Int("count", cb.failureCount),
		zap.Int("threshold", cb.cfg.FailureThreshold),
		zap.Duration("timeout", timeout),
	)

	if cb.state == CircuitStateHalfOpen || cb.failureCount >= cb.cfg.FailureThreshold {
		now := time.Now()
		cb.nextRetryTime = now.Add(timeout)
		cb.nextHealthCheckTime = now.Add(cb.cfg.HealthCheckInterval)
		if cb.state != CircuitStateOpen {
			cb.transitionTo(CircuitStateOpen)
		}
	}
}

func (cb *CircuitBreaker) runHealthCheck() {
	cb.logger.Info("Circuit Breaker: Running health check...")
	healthy := cb.cfg.HealthCheck()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.isHealthChecking = false
	if cb.state != CircuitStateOpen {
		return
	}

	if healthy {
		cb.logger.Info("Circuit Breaker: Health check PASSED")
		cb.transitionTo(CircuitStateHalfOpen)
		return
	}

	cb.logger.Warn("Circuit Breaker: Health check FAILED, delaying next check")
	cb.nextHealthCheckTime = time.Now().Add(cb.cfg.HealthCheckInterval)
}

// transitionTo must be called with the lock held.
func (cb *CircuitBreaker) transitionTo(newState CircuitState) {
	oldState := cb.state
	cb.state = newState

	nextRetry := "n/a"
	if newState == CircuitStateOpen {
		nextRetry = cb.nextRetryTime.Format(time.RFC3339)
	}

	cb.logger.Info("Circuit Breaker: State transition",
		zap.String("from", oldState.String()),
		zap.String("to", newState.String()),
		zap.Int("failure_count", cb.failureCount),
		zap.String("next_retry", nextRetry),
	)
}

func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.logger.Info("Circuit Breaker: Manual reset")
	cb.state = CircuitStateClosed
	cb.failureCount = 0
	cb.nextRetryTime = time.Time{}
}

// CircuitBreakerStatus is a point-in-time view for health endpoints.
type CircuitBreakerStatus struct {
	State         CircuitState `json:"state"`
	FailureCount  int          `json:"failure_count"`
	NextRetryTime *time.Time   `json:"next_retry_time,omitempty"`
}

func (cb *CircuitBreaker) GetStatus() CircuitBreakerStatus {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	status := CircuitBreakerStatus{
		State:        cb.state,
		FailureCount: cb.failureCount,
	}
	if cb.state == CircuitStateOpen {
		next := cb.nextRetryTime
		status.NextRetryTime = &next
	}
	return status
}
