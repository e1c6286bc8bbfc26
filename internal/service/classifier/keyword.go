package classifier

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed rules/default.toml
var defaultRules string

// LabelRule maps a label to the keywords that vote for it.
type LabelRule struct {
	Label    string   `toml:"label"`
	Keywords []string `toml:"keywords"`
}

// CategoryRules is the rule set for one classifier category.
type CategoryRules struct {
	Default string      `toml:"default"`
	Labels  []LabelRule `toml:"labels"`
}

// RuleSet holds keyword rules keyed by category.
type RuleSet map[string]CategoryRules

// DefaultRuleSet returns the rules compiled into the binary.
func DefaultRuleSet() (RuleSet, error) {
	return ParseRules(defaultRules)
}

// LoadRules reads a TOML rule file.
func LoadRules(path string) (RuleSet, error) {
	var rules RuleSet
	if _, err := toml.DecodeFile(path, &rules); err != nil {
		return nil, fmt.Errorf("decode classifier rules %s: %w", path, err)
	}
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("classifier rules %s: %w", path, err)
	}
	return rules, nil
}

// ParseRules decodes rules from TOML text.
func ParseRules(data string) (RuleSet, error) {
	var rules RuleSet
	if _, err := toml.Decode(data, &rules); err != nil {
		return nil, fmt.Errorf("decode classifier rules: %w", err)
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return rules, nil
}

func (rs RuleSet) Validate() error {
	for category, rules := range rs {
		if strings.TrimSpace(rules.Default) == "" {
			return fmt.Errorf("category %q has no default label", category)
		}
		for _, l := range rules.Labels {
			if strings.TrimSpace(l.Label) == "" {
				return fmt.Errorf("category %q has a rule without a label", category)
			}
		}
	}
	return nil
}

// Classifier builds the KeywordClassifier for one category.
func (rs RuleSet) Classifier(category string) (*KeywordClassifier, error) {
	rules, ok := rs[category]
	if !ok {
		return nil, fmt.Errorf("no rules for category %q", category)
	}
	return NewKeywordClassifier(rules), nil
}

// KeywordClassifier is an offline LocalClassifier: the label whose keywords
// occur most often in the text wins, earlier rules win ties, and text with
// no hits gets the default label.
type KeywordClassifier struct {
	defaultLabel string
	labels       []compiledLabel
}

type compiledLabel struct {
	label   string
	phrases [][]string
}

func NewKeywordClassifier(rules CategoryRules) *KeywordClassifier {
	compiled := make([]compiledLabel, 0, len(rules.Labels))
	for _, l := range rules.Labels {
		phrases := make([][]string, 0, len(l.Keywords))
		for _, k := range l.Keywords {
			if words := strings.Fields(strings.ToLower(k)); len(words) > 0 {
				phrases = append(phrases, words)
			}
		}
		compiled = append(compiled, compiledLabel{label: l.Label, phrases: phrases})
	}
	return &KeywordClassifier{defaultLabel: rules.Default, labels: compiled}
}

func (k *KeywordClassifier) Predict(_ context.Context, text string) (string, error) {
	words := strings.Fields(strings.ToLower(text))

	best, bestScore := k.defaultLabel, 0
	for _, l := range k.labels {
		score := 0
		for _, phrase := range l.phrases {
			score += countPhrase(words, phrase)
		}
		if score > bestScore {
			best, bestScore = l.label, score
		}
	}
	return best, nil
}

// countPhrase counts whole-word occurrences of phrase in words.
func countPhrase(words, phrase []string) int {
	count := 0
	for i := 0; i+len(phrase) <= len(words); i++ {
		match := true
		for j, w := range phrase {
			if words[i+j] != w {
				match = false
				break
			}
		}
		if match {
			count++
		}
	}
	return count
}
