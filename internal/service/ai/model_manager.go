package ai

import (
	"context"
	stderrors "errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kapu/nyaay-triage-go/internal/constants"
	"github.com/kapu/nyaay-triage-go/internal/domain"
	"github.com/kapu/nyaay-triage-go/internal/util"
	"github.com/openai/openai-go/v3"
	"go.uber.org/zap"
)

// ErrCircuitOpen is returned while the breaker refuses calls.
var ErrCircuitOpen = stderrors.New("language model circuit is open")

var (
	statusCodePattern       = regexp.MustCompile(`\b(5\d{2})\b`)
	geminiCodePattern       = regexp.MustCompile(`"code":\s*(\d{3})`)
	leadingStatusPattern    = regexp.MustCompile(`^(\d{3})\s`)
	rateLimitMessagePattern = regexp.MustCompile(`(?i)\b429\b|rate limit|quota`)
)

// ModelManager implements the triage LanguageModel boundary: it routes to a
// primary provider, retries transient failures, falls back to a secondary
// provider and trips a circuit breaker when both keep failing.
type ModelManager struct {
	primary        Provider
	fallback       Provider
	logger         *zap.Logger
	circuitBreaker *util.CircuitBreaker
	retryPolicy    util.RetryPolicy
	callTimeout    time.Duration
}

type ModelManagerConfig struct {
	Primary  Provider
	Fallback Provider
	// RetryPolicy and CallTimeout default to the values in constants.
	RetryPolicy *util.RetryPolicy
	CallTimeout time.Duration
}

func NewModelManager(cfg ModelManagerConfig, logger *zap.Logger) (*ModelManager, error) {
	if cfg.Primary == nil {
		return nil, fmt.Errorf("primary model provider is required")
	}

	mm := &ModelManager{
		primary:     cfg.Primary,
		fallback:    cfg.Fallback,
		logger:      logger,
		callTimeout: cfg.CallTimeout,
		retryPolicy: util.RetryPolicy{
			MaxRetries: constants.RetryConfig.MaxRetries,
			BaseDelay:  constants.RetryConfig.BaseDelay,
		},
	}
	if cfg.RetryPolicy != nil {
		mm.retryPolicy = *cfg.RetryPolicy
	}
	if mm.callTimeout <= 0 {
		mm.callTimeout = constants.ModelDefaults.CallTimeout
	}

	if mm.fallback != nil {
		logger.Info("Language model fallback enabled",
			zap.String("primary", mm.primary.Name()),
			zap.String("fallback", mm.fallback.Name()),
		)
	} else {
		logger.Info("Language model fallback disabled", zap.String("primary", mm.primary.Name()))
	}

	mm.circuitBreaker = util.NewCircuitBreaker(util.CircuitBreakerConfig{
		Name:                "language-model",
		FailureThreshold:    constants.CircuitBreakerConfig.FailureThreshold,
		ResetTimeout:        constants.CircuitBreakerConfig.ResetTimeout,
		HealthCheckInterval: constants.CircuitBreakerConfig.HealthCheckInterval,
		HealthCheck:         mm.healthCheckPing,
	}, logger)

	return mm, nil
}

// Complete satisfies triage.LanguageModel.
func (mm *ModelManager) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	text, _, err := mm.Generate(ctx, req)
	return text, err
}

// Generate returns the completion together with which provider served it.
func (mm *ModelManager) Generate(ctx context.Context, req domain.CompletionRequest) (string, *GenerateMetadata, error) {
	if !mm.circuitBreaker.CanExecute() {
		status := mm.circuitBreaker.GetStatus()
		mm.logger.Error("AI service unavailable (Circuit OPEN)",
			zap.String("state", status.State.String()),
			zap.Int("failure_count", status.FailureCount),
		)
		return "", nil, ErrCircuitOpen
	}

	preset := PresetFor(req.JSON)

	primaryResult, attempts, primaryErr := mm.invokeProvider(ctx, mm.primary, req, preset)
	if primaryErr == nil {
		mm.circuitBreaker.RecordSuccess()
		return primaryResult.Text, &GenerateMetadata{
			Provider: mm.primary.Name(),
			Model:    primaryResult.Model,
			Attempts: attempts,
		}, nil
	}

	if ctx.Err() != nil {
		return "", nil, ctx.Err()
	}

	if mm.fallback != nil {
		mm.logger.Warn("Primary model failed, trying fallback",
			zap.String("primary", mm.primary.Name()),
			zap.String("fallback", mm.fallback.Name()),
			zap.Error(primaryErr),
		)

		fallbackResult, fallbackAttempts, fallbackErr := mm.invokeProvider(ctx, mm.fallback, req, preset)
		if fallbackErr == nil {
			mm.circuitBreaker.RecordSuccess()
			return fallbackResult.Text, &GenerateMetadata{
				Provider:     mm.fallback.Name(),
				Model:        fallbackResult.Model,
				UsedFallback: true,
				Attempts:     attempts + fallbackAttempts,
			}, nil
		}

		mm.recordFailure(primaryErr)
		mm.recordFailure(fallbackErr)
		return "", nil, fmt.Errorf("%s and %s failed: %w", mm.primary.Name(), mm.fallback.Name(),
			stderrors.Join(primaryErr, fallbackErr))
	}

	mm.recordFailure(primaryErr)
	return "", nil, fmt.Errorf("%s failed: %w", mm.primary.Name(), primaryErr)
}

func (mm *ModelManager) invokeProvider(ctx context.Context, provider Provider, req domain.CompletionRequest, preset ModelPreset) (ProviderResult, int, error) {
	var (
		result   ProviderResult
		attempts int
	)

	// Rate limits are not retried here; the breaker handles the backoff.
	retryable := func(err error) bool {
		return isServiceFailure(err) && !isRateLimitError(err)
	}

	err := util.Retry(ctx, mm.retryPolicy, retryable, func(ctx context.Context) error {
		attempts++
		callCtx, cancel := context.WithTimeout(ctx, mm.callTimeout)
		defer cancel()

		r, err := provider.Generate(callCtx, req, preset)
		if err != nil {
			mm.logger.Debug("Provider call failed",
				zap.String("provider", provider.Name()),
				zap.Int("attempt", attempts),
				zap.Error(err),
			)
			return err
		}
		result = r
		return nil
	})

	return result, attempts, err
}

func (mm *ModelManager) recordFailure(err error) {
	if !isServiceFailure(err) {
		return
	}

	timeout := constants.CircuitBreakerConfig.ResetTimeout
	if isRateLimitError(err) {
		timeout = constants.CircuitBreakerConfig.RateLimitTimeout
	}

	mm.circuitBreaker.RecordFailure(timeout)
}

func (mm *ModelManager) healthCheckPing() bool {
	ctx, cancel := context.WithTimeout(context.Background(), constants.CircuitBreakerConfig.HealthCheckTimeout)
	defer cancel()

	primaryOK := mm.primary.Ping(ctx)
	fallbackOK := false
	if mm.fallback != nil {
		fallbackOK = mm.fallback.Ping(ctx)
	}

	mm.logger.Info("Health Check: Result",
		zap.Bool("primary", primaryOK),
		zap.Bool("fallback", fallbackOK),
	)

	return primaryOK || fallbackOK
}

func (mm *ModelManager) GetCircuitStatus() util.CircuitBreakerStatus {
	return mm.circuitBreaker.GetStatus()
}

// isServiceFailure reports upstream trouble (timeouts, 5xx, rate limits) as
// opposed to a bad request.
func isServiceFailure(err error) bool {
	if err == nil {
		return false
	}

	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var apiErr *openai.Error
	if stderrors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500 || apiErr.StatusCode == 429
	}

	msg := err.Error()
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "ETIMEDOUT") {
		return true
	}
	if isRateLimitError(err) {
		return true
	}
	if code, ok := extractStatusCode(msg); ok {
		return code >= 500 && code < 600
	}
	return statusCodePattern.MatchString(msg)
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *openai.Error
	if stderrors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}

	msg := err.Error()
	if code, ok := extractStatusCode(msg); ok {
		return code == 429
	}
	return rateLimitMessagePattern.MatchString(msg)
}

func extractStatusCode(msg string) (int, bool) {
	for _, pattern := range []*regexp.Regexp{geminiCodePattern, leadingStatusPattern} {
		if matches := pattern.FindStringSubmatch(msg); len(matches) > 1 {
			if code, err := strconv.Atoi(matches[1]); err == nil {
				return code, true
			}
		}
	}
	return 0, false
}
