package triage

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/kapu/nyaay-triage-go/internal/domain"
	"github.com/kapu/nyaay-triage-go/pkg/errors"
)

// Fence markers are only recognised at line boundaries: an opening ``` or
// ```json at the start of a line, or a closing ``` at the end of one.
var codeFencePattern = regexp.MustCompile("(?m)^```(?i:json)?|```$")

type classificationPayload struct {
	LegalIssue string `json:"legal_issue"`
	Bias       string `json:"bias"`
	Urgency    string `json:"urgency"`
}

// StripCodeFence removes markdown code fence markers and surrounding
// whitespace from a model response.
func StripCodeFence(text string) string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	return strings.TrimSpace(codeFencePattern.ReplaceAllString(normalized, ""))
}

// ParseClassification decodes a model response into a RemoteClassification.
// Any failure is reported as MalformedModelOutput; fields are never defaulted.
func ParseClassification(text string) (domain.RemoteClassification, error) {
	cleaned := StripCodeFence(text)
	if cleaned == "" {
		return domain.RemoteClassification{}, errors.NewMalformedModelOutputError("empty classification response", nil)
	}

	var payload classificationPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return domain.RemoteClassification{}, errors.NewMalformedModelOutputError("classification response is not valid JSON", err)
	}

	missing := make([]string, 0, 3)
	if strings.TrimSpace(payload.LegalIssue) == "" {
		missing = append(missing, "legal_issue")
	}
	if strings.TrimSpace(payload.Bias) == "" {
		missing = append(missing, "bias")
	}
	if strings.TrimSpace(payload.Urgency) == "" {
		missing = append(missing, "urgency")
	}
	if len(missing) > 0 {
		te := errors.NewMalformedModelOutputError(
			fmt.Sprintf("classification response missing %s", strings.Join(missing, ", ")), nil)
		te.Context["missing"] = missing
		return domain.RemoteClassification{}, te
	}

	return domain.RemoteClassification{
		LegalIssue: strings.TrimSpace(payload.LegalIssue),
		Bias:       strings.TrimSpace(payload.Bias),
		Urgency:    strings.TrimSpace(payload.Urgency),
	}, nil
}
