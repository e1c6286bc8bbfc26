package triage

import (
	"fmt"
	"strings"
	"testing"

	"github.com/kapu/nyaay-triage-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tenantCatalog() *fakeCatalog {
	return &fakeCatalog{
		name:      "lawyers",
		secondary: domain.ColumnSuccessRate,
		rows: []domain.ProviderRecord{
			lawyer("C", "tenant_dispute", 4.5, 0.9),
			lawyer("A-low", "tenant_dispute", 4.8, 0.70),
			lawyer("F", "tenant_dispute", 3.9, 0.99),
			lawyer("A-high", "tenant_dispute; property_dispute", 4.8, 0.85),
			lawyer("E", "tenant_dispute", 4.0, 0.5),
			lawyer("D", "tenant_dispute", 4.2, 0.6),
			lawyer("X", "cyber_crime", 5.0, 1.0),
		},
	}
}

func TestRankTopFive(t *testing.T) {
	got := NewReferralRanker(0).Rank(tenantCatalog(), "tenant_dispute")

	require.Len(t, got, 5)
	assert.Equal(t, []string{"A-high", "A-low", "C", "D", "E"}, names(got))
}

func TestRankOnlyReturnsMatchingRows(t *testing.T) {
	cat := tenantCatalog()
	for _, issue := range []string{"tenant_dispute", "property_dispute", "cyber_crime", "dispute", "nothing"} {
		got := NewReferralRanker(DefaultRecommendationLimit).Rank(cat, issue)
		assert.LessOrEqual(t, len(got), DefaultRecommendationLimit)
		for _, rec := range got {
			issues, ok := rec.Text(domain.ColumnLegalIssues)
			require.True(t, ok)
			assert.Contains(t, issues, issue)
		}
	}
}

func TestRankSortedWithoutInversions(t *testing.T) {
	rows := make([]domain.ProviderRecord, 0, 40)
	for i := 0; i < 40; i++ {
		rows = append(rows, lawyer(fmt.Sprintf("r%d", i), "family_law", float64(i%4)+1.5, float64((i*7)%10)/10))
	}
	cat := &fakeCatalog{rows: rows, secondary: domain.ColumnSuccessRate}

	got := NewReferralRanker(40).Rank(cat, "family_law")
	require.Len(t, got, 40)
	for i := 1; i < len(got); i++ {
		prevRating, _ := got[i-1].Number(domain.ColumnRating)
		rating, _ := got[i].Number(domain.ColumnRating)
		require.GreaterOrEqual(t, prevRating, rating, "rating inversion at %d", i)
		if prevRating == rating {
			prevSec, _ := got[i-1].Number(domain.ColumnSuccessRate)
			sec, _ := got[i].Number(domain.ColumnSuccessRate)
			require.GreaterOrEqual(t, prevSec, sec, "secondary inversion at %d", i)
		}
	}
}

func TestRankEmptyMatchIsEmptySlice(t *testing.T) {
	got := NewReferralRanker(5).Rank(tenantCatalog(), "maritime_law")
	require.NotNil(t, got)
	assert.Empty(t, got)

	got = NewReferralRanker(5).Rank(nil, "tenant_dispute")
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRankSkipsRowsWithoutLegalIssues(t *testing.T) {
	cat := &fakeCatalog{
		secondary: domain.ColumnSuccessRate,
		rows: []domain.ProviderRecord{
			{"name": "no-issues", domain.ColumnRating: 5.0},
			{"name": "nil-issues", domain.ColumnLegalIssues: nil, domain.ColumnRating: 5.0},
			lawyer("ok", "tenant_dispute", 3.0, 0.1),
		},
	}

	got := NewReferralRanker(5).Rank(cat, "tenant_dispute")
	assert.Equal(t, []string{"ok"}, names(got))
}

func TestRankMissingMetricsSortLast(t *testing.T) {
	cat := &fakeCatalog{
		secondary: domain.ColumnSuccessRate,
		rows: []domain.ProviderRecord{
			lawyer("no-rating", "tenant_dispute", nil, 0.99),
			lawyer("rated-no-secondary", "tenant_dispute", 4.0, nil),
			lawyer("rated", "tenant_dispute", 4.0, 0.2),
			lawyer("text-rating", "tenant_dispute", "4.5", nil),
		},
	}

	got := NewReferralRanker(5).Rank(cat, "tenant_dispute")
	assert.Equal(t, []string{"text-rating", "rated", "rated-no-secondary", "no-rating"}, names(got))
}

func TestRankUsesCatalogSecondaryKey(t *testing.T) {
	cat := &fakeCatalog{
		secondary: domain.ColumnPopularity,
		rows: []domain.ProviderRecord{
			{"name": "quiet", domain.ColumnLegalIssues: "labour_dispute", domain.ColumnRating: 4.5, domain.ColumnPopularity: 100.0},
			{"name": "popular", domain.ColumnLegalIssues: "labour_dispute", domain.ColumnRating: 4.5, domain.ColumnPopularity: 900.0},
		},
	}

	got := NewReferralRanker(5).Rank(cat, "labour_dispute")
	assert.Equal(t, []string{"popular", "quiet"}, names(got))
}

func TestRankTiesKeepCatalogOrder(t *testing.T) {
	cat := &fakeCatalog{
		secondary: domain.ColumnSuccessRate,
		rows: []domain.ProviderRecord{
			lawyer("first", "tenant_dispute", 4.0, 0.5),
			lawyer("second", "tenant_dispute", 4.0, 0.5),
			lawyer("third", "tenant_dispute", 4.0, 0.5),
		},
	}

	got := NewReferralRanker(5).Rank(cat, "tenant_dispute")
	assert.Equal(t, []string{"first", "second", "third"}, names(got))
}

func TestRankReturnsCopies(t *testing.T) {
	cat := tenantCatalog()
	got := NewReferralRanker(5).Rank(cat, "tenant_dispute")
	got[0]["name"] = "mutated"

	for _, row := range cat.rows {
		name, _ := row.Text("name")
		assert.False(t, strings.EqualFold(name, "mutated"))
	}
}
