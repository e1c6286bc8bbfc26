package commands

import (
	"fmt"
	"strings"

	"github.com/kapu/nyaay-triage-go/internal/service/classifier"
	"github.com/kapu/nyaay-triage-go/internal/service/triage"
	"github.com/spf13/cobra"
)

// classifyCmd runs only the local keyword classifiers; it needs no network.
func classifyCmd() *cobra.Command {
	var rulesFile string

	cmd := &cobra.Command{
		Use:   "classify <text>",
		Short: "Print local labels for a query using keyword rules",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				rules classifier.RuleSet
				err   error
			)
			if rulesFile != "" {
				rules, err = classifier.LoadRules(rulesFile)
			} else {
				rules, err = classifier.DefaultRuleSet()
			}
			if err != nil {
				return err
			}

			classifiers := make(map[string]triage.LocalClassifier, 3)
			for _, category := range []string{triage.CategoryBias, triage.CategoryLegalIssue, triage.CategoryUrgency} {
				kc, err := rules.Classifier(category)
				if err != nil {
					return fmt.Errorf("%s: %w", category, err)
				}
				classifiers[category] = kc
			}

			local := triage.NewLocalTriage(
				classifiers[triage.CategoryBias],
				classifiers[triage.CategoryLegalIssue],
				classifiers[triage.CategoryUrgency],
				logger,
			)

			normalized := triage.Normalize(strings.Join(args, " "))
			labels, err := local.Classify(cmd.Context(), normalized)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), labels)
		},
	}

	cmd.Flags().StringVar(&rulesFile, "rules", "", "TOML rules file (default: built-in rules)")
	return cmd
}
