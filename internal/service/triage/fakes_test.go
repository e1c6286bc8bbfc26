package triage

import (
	"context"
	"fmt"
	"sync"

	"github.com/kapu/nyaay-triage-go/internal/domain"
)

type fakeClassifier struct {
	label string
	err   error

	mu    sync.Mutex
	texts []string
}

func (f *fakeClassifier) Predict(_ context.Context, text string) (string, error) {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return f.label, nil
}

func (f *fakeClassifier) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

// fakeModel answers calls in order from replies; errs[i], when set, fails
// call i instead.
type fakeModel struct {
	replies []string
	errs    []error

	mu       sync.Mutex
	requests []domain.CompletionRequest
}

func (f *fakeModel) Complete(_ context.Context, req domain.CompletionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := len(f.requests)
	f.requests = append(f.requests, req)
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.replies) {
		return f.replies[i], nil
	}
	return "", fmt.Errorf("unexpected model call %d", i)
}

func (f *fakeModel) calls() []domain.CompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.CompletionRequest(nil), f.requests...)
}

type fakeTranscriber struct {
	text string
	err  error

	audio []domain.Audio
}

func (f *fakeTranscriber) Transcribe(_ context.Context, audio domain.Audio) (string, error) {
	f.audio = append(f.audio, audio)
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type fakeCatalog struct {
	name      string
	rows      []domain.ProviderRecord
	secondary string
}

func (f *fakeCatalog) Name() string                  { return f.name }
func (f *fakeCatalog) Rows() []domain.ProviderRecord { return f.rows }
func (f *fakeCatalog) SecondaryKey() string          { return f.secondary }

func lawyer(name, issues string, rating, successRate any) domain.ProviderRecord {
	return domain.ProviderRecord{
		"name":                   name,
		domain.ColumnLegalIssues: issues,
		domain.ColumnRating:      rating,
		domain.ColumnSuccessRate: successRate,
	}
}

func names(records []domain.ProviderRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		name, _ := r.Text("name")
		out = append(out, name)
	}
	return out
}
