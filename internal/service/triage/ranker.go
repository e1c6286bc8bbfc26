package triage

import (
	"sort"
	"strings"

	"github.com/kapu/nyaay-triage-go/internal/domain"
)

// DefaultRecommendationLimit caps each recommendation list.
const DefaultRecommendationLimit = 5

// ReferralRanker filters a catalog by legal issue and orders the matches by
// quality metrics.
type ReferralRanker struct {
	limit int
}

func NewReferralRanker(limit int) *ReferralRanker {
	if limit <= 0 {
		limit = DefaultRecommendationLimit
	}
	return &ReferralRanker{limit: limit}
}

type rankedRecord struct {
	record       domain.ProviderRecord
	rating       float64
	hasRating    bool
	secondary    float64
	hasSecondary bool
}

// Rank returns at most limit rows whose legal_issues contains legalIssue,
// sorted by rating then the catalog's secondary key, both descending.
// Rows without legal_issues never match. Zero matches is an empty, non-nil
// slice. Ties keep catalog order.
func (r *ReferralRanker) Rank(catalog ProviderCatalog, legalIssue string) []domain.ProviderRecord {
	if catalog == nil {
		return []domain.ProviderRecord{}
	}

	secondaryKey := catalog.SecondaryKey()
	matches := make([]rankedRecord, 0)
	for _, row := range catalog.Rows() {
		issues, ok := row.Text(domain.ColumnLegalIssues)
		if !ok || !strings.Contains(issues, legalIssue) {
			continue
		}

		ranked := rankedRecord{record: row}
		ranked.rating, ranked.hasRating = row.Number(domain.ColumnRating)
		ranked.secondary, ranked.hasSecondary = row.Number(secondaryKey)
		matches = append(matches, ranked)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if less, decided := descending(a.rating, a.hasRating, b.rating, b.hasRating); decided {
			return less
		}
		less, _ := descending(a.secondary, a.hasSecondary, b.secondary, b.hasSecondary)
		return less
	})

	if len(matches) > r.limit {
		matches = matches[:r.limit]
	}

	out := make([]domain.ProviderRecord, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.record.Clone())
	}
	return out
}

// descending orders present values high to low and missing values last.
// decided is false when the two keys are equal.
func descending(a float64, hasA bool, b float64, hasB bool) (less bool, decided bool) {
	switch {
	case hasA && hasB:
		if a == b {
			return false, false
		}
		return a > b, true
	case hasA:
		return true, true
	case hasB:
		return false, true
	default:
		return false, false
	}
}
