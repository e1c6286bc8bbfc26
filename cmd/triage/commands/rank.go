package commands

import (
	"fmt"

	"github.com/kapu/nyaay-triage-go/internal/adapter"
	"github.com/kapu/nyaay-triage-go/internal/service/catalog"
	"github.com/kapu/nyaay-triage-go/internal/service/triage"
	"github.com/spf13/cobra"
)

func rankCmd() *cobra.Command {
	var (
		lawyersCSV string
		ngosCSV    string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "rank <legal_issue>",
		Short: "Print the top lawyers and NGOs for a legal issue label",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := catalog.NewCSVSource(map[string]string{
				catalog.NameLawyers: lawyersCSV,
				catalog.NameNGOs:    ngosCSV,
			}, logger)

			catalogs, err := catalog.LoadAll(cmd.Context(), source, catalog.NameLawyers, catalog.NameNGOs)
			if err != nil {
				return fmt.Errorf("load catalogs: %w", err)
			}

			ranker := triage.NewReferralRanker(limit)
			lawyers := ranker.Rank(catalogs[catalog.NameLawyers], args[0])
			ngos := ranker.Rank(catalogs[catalog.NameNGOs], args[0])

			return writeText(cmd.OutOrStdout(), map[string]any{
				"legal_issue": args[0],
				"lawyers":     lawyers,
				"ngos":        ngos,
			}, func(f *adapter.ResponseFormatter) (string, error) {
				return f.FormatReferrals(args[0], lawyers, ngos)
			})
		},
	}

	cmd.Flags().StringVar(&lawyersCSV, "lawyers", "data/lawyers.csv", "lawyers catalog CSV")
	cmd.Flags().StringVar(&ngosCSV, "ngos", "data/ngos.csv", "NGOs catalog CSV")
	cmd.Flags().IntVar(&limit, "limit", triage.DefaultRecommendationLimit, "maximum results per catalog")
	return cmd
}
