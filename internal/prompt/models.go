package prompt

type ClassifyData struct {
	UserQuery       string
	LocalLegalIssue string
}

type AdviceData struct {
	UserQuery  string
	LegalIssue string
	Bias       string
	Urgency    string
}
