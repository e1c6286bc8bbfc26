package classifier

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func predict(t *testing.T, rules RuleSet, category, text string) string {
	t.Helper()
	kc, err := rules.Classifier(category)
	require.NoError(t, err)
	label, err := kc.Predict(context.Background(), text)
	require.NoError(t, err)
	return label
}

func TestDefaultRuleSet(t *testing.T) {
	rules, err := DefaultRuleSet()
	require.NoError(t, err)

	text := "my landlord wont return my deposit"
	assert.Equal(t, "none", predict(t, rules, "bias", text))
	assert.Equal(t, "tenant_dispute", predict(t, rules, "legal_issue", text))
	assert.Equal(t, "medium", predict(t, rules, "urgency", text))

	text = "my husband beats me and threatened to kill me tonight"
	assert.Equal(t, "domestic_violence", predict(t, rules, "legal_issue", text))
	assert.Equal(t, "high", predict(t, rules, "urgency", text))
}

func TestKeywordClassifierScoring(t *testing.T) {
	kc := NewKeywordClassifier(CategoryRules{
		Default: "other",
		Labels: []LabelRule{
			{Label: "first", Keywords: []string{"rent"}},
			{Label: "second", Keywords: []string{"salary", "unpaid wages"}},
		},
	})
	ctx := context.Background()

	cases := map[string]string{
		"rent":                               "first",
		"salary unpaid wages":                "second",
		"rent salary":                        "first", // tie goes to the earlier rule
		"parent current":                     "other", // whole words only
		"unpaid salary and no wages":         "second",
		"":                                   "other",
		"RENT is due":                        "first",
		"unpaid wages unpaid wages and rent": "second",
	}
	for text, want := range cases {
		got, err := kc.Predict(ctx, text)
		require.NoError(t, err)
		assert.Equal(t, want, got, "text %q", text)
	}
}

func TestParseRulesValidation(t *testing.T) {
	_, err := ParseRules(`
[bias]
default = ""
`)
	assert.Error(t, err)

	_, err = ParseRules(`
[bias]
default = "none"
  [[bias.labels]]
  keywords = ["x"]
`)
	assert.Error(t, err)

	_, err = ParseRules(`not = [valid`)
	assert.Error(t, err)

	rules, err := ParseRules(`
[urgency]
default = "medium"
`)
	require.NoError(t, err)
	_, err = rules.Classifier("bias")
	assert.Error(t, err)
}

func TestLoadRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[legal_issue]
default = "other"
  [[legal_issue.labels]]
  label = "cyber_crime"
  keywords = ["upi fraud"]
`), 0o600))

	rules, err := LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, "cyber_crime", predict(t, rules, "legal_issue", "lost money in a upi fraud"))
	assert.Equal(t, "other", predict(t, rules, "legal_issue", "upi payment failed"))

	_, err = LoadRules(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
