package domain

// LocalLabels holds one label per local classifier. Produced once per query.
type LocalLabels struct {
	Bias       string `json:"bias"`
	LegalIssue string `json:"legal_issue"`
	Urgency    string `json:"urgency"`
}

// RemoteClassification is the language model's view of the query. It may
// disagree with LocalLabels; both are reported.
type RemoteClassification struct {
	LegalIssue string `json:"legal_issue"`
	Bias       string `json:"bias"`
	Urgency    string `json:"urgency"`
	Advice     string `json:"-"`
}

// TriageResult is the assembled response for one query.
type TriageResult struct {
	Query  string      `json:"query"`
	Source QuerySource `json:"source"`
	LocalLabels
	Remote  RemoteClassification `json:"gpt_class"`
	Advice  string               `json:"advice"`
	Lawyers []ProviderRecord     `json:"lawyers"`
	NGOs    []ProviderRecord     `json:"ngos"`
}
