package triage

import (
	"context"
	"fmt"
	"strings"

	"github.com/kapu/nyaay-triage-go/internal/domain"
	"github.com/kapu/nyaay-triage-go/pkg/errors"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// Classifier categories, used in logs and error context.
const (
	CategoryBias       = "bias"
	CategoryLegalIssue = "legal_issue"
	CategoryUrgency    = "urgency"
)

// LocalTriage runs the three local classifiers over normalized text.
type LocalTriage struct {
	bias       LocalClassifier
	legalIssue LocalClassifier
	urgency    LocalClassifier
	logger     *zap.Logger
}

func NewLocalTriage(bias, legalIssue, urgency LocalClassifier, logger *zap.Logger) *LocalTriage {
	return &LocalTriage{
		bias:       bias,
		legalIssue: legalIssue,
		urgency:    urgency,
		logger:     logger,
	}
}

// Classify returns all three labels or a ClassificationUnavailable error.
// The classifiers share no state, so they run concurrently.
func (lt *LocalTriage) Classify(ctx context.Context, normalized string) (domain.LocalLabels, error) {
	var labels domain.LocalLabels

	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	p.Go(lt.predictInto(CategoryBias, lt.bias, normalized, &labels.Bias))
	p.Go(lt.predictInto(CategoryLegalIssue, lt.legalIssue, normalized, &labels.LegalIssue))
	p.Go(lt.predictInto(CategoryUrgency, lt.urgency, normalized, &labels.Urgency))

	if err := p.Wait(); err != nil {
		if _, ok := errors.AsTriageError(err); ok {
			return domain.LocalLabels{}, err
		}
		return domain.LocalLabels{}, errors.NewClassificationUnavailableError("local", err)
	}

	lt.logger.Debug("Local classification complete",
		zap.String("bias", labels.Bias),
		zap.String("legal_issue", labels.LegalIssue),
		zap.String("urgency", labels.Urgency),
	)

	return labels, nil
}

// predictInto writes to a distinct field per goroutine, so no locking is needed.
func (lt *LocalTriage) predictInto(category string, classifier LocalClassifier, text string, dest *string) func(context.Context) error {
	return func(ctx context.Context) error {
		if classifier == nil {
			return errors.NewClassificationUnavailableError(category, fmt.Errorf("classifier not configured"))
		}

		label, err := classifier.Predict(ctx, text)
		if err != nil {
			lt.logger.Warn("Local classifier failed",
				zap.String("category", category),
				zap.Error(err),
			)
			return errors.NewClassificationUnavailableError(category, err)
		}

		label = strings.TrimSpace(label)
		if label == "" {
			return errors.NewClassificationUnavailableError(category, fmt.Errorf("empty label"))
		}

		*dest = label
		return nil
	}
}
