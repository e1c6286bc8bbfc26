// Package adapter renders triage output as plain text for terminals.
package adapter

import (
	"fmt"

	"github.com/kapu/nyaay-triage-go/internal/domain"
)

const defaultMaxAdviceRunes = 1200

// ResponseFormatter formats triage results for human readers.
type ResponseFormatter struct {
	maxAdviceRunes int
}

// NewResponseFormatter creates a formatter. maxAdviceRunes <= 0 uses the default.
func NewResponseFormatter(maxAdviceRunes int) *ResponseFormatter {
	if maxAdviceRunes <= 0 {
		maxAdviceRunes = defaultMaxAdviceRunes
	}
	return &ResponseFormatter{maxAdviceRunes: maxAdviceRunes}
}

type triageResultView struct {
	*domain.TriageResult
	MaxAdvice int
}

type referralsView struct {
	LegalIssue string
	Lawyers    []domain.ProviderRecord
	NGOs       []domain.ProviderRecord
}

// FormatTriageResult renders labels, advice and referrals of one result.
func (f *ResponseFormatter) FormatTriageResult(result *domain.TriageResult) (string, error) {
	if result == nil {
		return "", fmt.Errorf("nil triage result")
	}
	return executeFormatterTemplate("triage_result", triageResultView{
		TriageResult: result,
		MaxAdvice:    f.maxAdviceRunes,
	})
}

// FormatReferrals renders ranked lawyers and NGOs for a legal issue.
func (f *ResponseFormatter) FormatReferrals(legalIssue string, lawyers, ngos []domain.ProviderRecord) (string, error) {
	return executeFormatterTemplate("referrals", referralsView{
		LegalIssue: legalIssue,
		Lawyers:    lawyers,
		NGOs:       ngos,
	})
}
