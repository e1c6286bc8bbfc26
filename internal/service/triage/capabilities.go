package triage

import (
	"context"

	"github.com/kapu/nyaay-triage-go/internal/domain"
)

// Transcriber turns recorded speech into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio domain.Audio) (string, error)
}

// LocalClassifier predicts exactly one label for normalized text.
type LocalClassifier interface {
	Predict(ctx context.Context, text string) (string, error)
}

// LanguageModel completes a prompt. Retries and timeouts live behind this
// boundary, not in the pipeline.
type LanguageModel interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (string, error)
}

// ProviderCatalog is a read-only table of referable providers.
type ProviderCatalog interface {
	Name() string
	Rows() []domain.ProviderRecord
	// SecondaryKey is the tie-break column, fixed when the catalog was built.
	SecondaryKey() string
}

// Resources is the process-wide, read-only state shared by every request.
// It is assembled once at startup and never mutated afterwards.
type Resources struct {
	BiasClassifier       LocalClassifier
	LegalIssueClassifier LocalClassifier
	UrgencyClassifier    LocalClassifier

	Model       LanguageModel
	Transcriber Transcriber

	Lawyers ProviderCatalog
	NGOs    ProviderCatalog
}
