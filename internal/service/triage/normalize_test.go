package triage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"My landlord won't return my deposit!", "my landlord wont return my deposit"},
		{"FIR refused @ station #12", "fir refused  station 12"},
		{"  spaced\tout\n", "  spaced\tout\n"},
		{"मकान मालिक", " "},
		{"landlord\vdeposit", "landlord\vdeposit"},
		{"landlord\u00a0deposit", "landlord\u00a0deposit"},
		{"ideographic\u3000space", "ideographic\u3000space"},
		{"next\u0085line", "next\u0085line"},
		{"unit\x1fsep", "unit\x1fsep"},
		{"", ""},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, Normalize(tc.in), "input %q", tc.in)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{
		"My landlord won't return my deposit",
		"ÀÉÎ résumé café",
		"İstanbul KELVIN K sign",
		"emoji 🙂 and 中文 mixed ABC-123",
		" non-breaking spaces",
		"",
	}

	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}
