package domain

import (
	"math"
	"strconv"
	"strings"
)

// Catalog column names the ranker relies on.
const (
	ColumnLegalIssues = "legal_issues"
	ColumnRating      = "rating"
	ColumnSuccessRate = "success_rate"
	ColumnPopularity  = "popularity"
)

// ProviderRecord is one row of a provider catalog keyed by column name.
// Numeric cells hold float64, text cells string and empty cells nil.
type ProviderRecord map[string]any

// Text returns the cell as a string. Missing and nil cells report false.
func (r ProviderRecord) Text(column string) (string, bool) {
	v, ok := r[column]
	if !ok || v == nil {
		return "", false
	}
	switch val := v.(type) {
	case string:
		return val, true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case bool:
		return strconv.FormatBool(val), true
	default:
		return "", false
	}
}

// Number returns the cell as a float64. Text cells are parsed; anything that
// is missing or not numeric reports false.
func (r ProviderRecord) Number(column string) (float64, bool) {
	v, ok := r[column]
	if !ok || v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case float64:
		if math.IsNaN(val) {
			return 0, false
		}
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Clone returns a shallow copy so callers can't mutate shared catalog rows.
func (r ProviderRecord) Clone() ProviderRecord {
	out := make(ProviderRecord, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
