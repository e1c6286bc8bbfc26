package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestConvertValue(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	cases := []struct {
		name   string
		in     any
		dbType string
		want   any
	}{
		{"null", nil, "TEXT", nil},
		{"float8", 4.5, "FLOAT8", 4.5},
		{"float4", float32(2.5), "FLOAT4", 2.5},
		{"int8", int64(7), "INT8", 7.0},
		{"bool", true, "BOOL", true},
		{"numeric bytes", []byte("0.85"), "NUMERIC", 0.85},
		{"bad numeric stays text", []byte("n/a"), "NUMERIC", "n/a"},
		{"text bytes", []byte("tenant_dispute"), "TEXT", "tenant_dispute"},
		{"varchar string", "Delhi", "VARCHAR", "Delhi"},
		{"lowercase type", "12", "int4", 12.0},
		{"timestamp", ts, "TIMESTAMPTZ", ts.String()},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, convertValue(tc.in, tc.dbType))
		})
	}
}

func TestPostgresSourceRejectsBadTableNames(t *testing.T) {
	src := &PostgresSource{
		tables: map[string]string{NameLawyers: "lawyers; DROP TABLE ngos"},
		logger: zap.NewNop(),
	}

	_, err := src.Load(context.Background(), NameLawyers)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid table name")
}

func TestIdentifierPattern(t *testing.T) {
	for _, ok := range []string{"lawyers", "ngos_2024", "_tmp"} {
		assert.True(t, identifierPattern.MatchString(ok), ok)
	}
	for _, bad := range []string{"", "1st", "public.lawyers", `"lawyers"`, "a b"} {
		assert.False(t, identifierPattern.MatchString(bad), bad)
	}
}
