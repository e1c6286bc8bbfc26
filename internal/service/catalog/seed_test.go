package catalog

import (
	"testing"

	"github.com/kapu/nyaay-triage-go/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestColumnTypes(t *testing.T) {
	cat := New("t", []string{"name", "rating", "verified", "empty", "mixed"}, []domain.ProviderRecord{
		{"name": "A", "rating": 4.5, "verified": true, "empty": nil, "mixed": 1.0},
		{"name": "B", "rating": nil, "verified": false, "empty": nil, "mixed": "two"},
	})

	assert.Equal(t, []string{
		columnTypeText,
		columnTypeNumeric,
		columnTypeBoolean,
		columnTypeText,
		columnTypeText,
	}, ColumnTypes(cat))
}

func TestCopyValue(t *testing.T) {
	assert.Nil(t, copyValue(nil, columnTypeText))
	assert.Equal(t, "1.5", copyValue(1.5, columnTypeText))
	assert.Equal(t, 1.5, copyValue(1.5, columnTypeNumeric))
}
