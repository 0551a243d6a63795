package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	cases := map[string]string{
		"$1,234.50": "1234.5",
		"(12.00)":   "-12",
		"":          "0",
		" - ":       "0",
		"-$5":       "-5",
		"1 000":     "1000",
		"USD 7.25":  "7.25",
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			got, err := ParseAmount(in)
			require.NoError(t, err)
			assert.Equal(t, want, got.String())
		})
	}

	_, err := ParseAmount("twelve")
	assert.Error(t, err)
}

func TestParsePercent(t *testing.T) {
	got, err := ParsePercent("45%")
	require.NoError(t, err)
	assert.Equal(t, "45", got.String())
}

func TestParseDate(t *testing.T) {
	for _, in := range []string{"03/14/2025", "3/14/2025", "2025-03-14", "March 14, 2025", "Mar 14, 2025", "14-Mar-2025"} {
		got, err := ParseDate(in)
		require.NoError(t, err, in)
		require.NotNil(t, got)
		assert.Equal(t, "2025-03-14", got.Format("2006-01-02"), in)
	}

	got, err := ParseDate("  ")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = ParseDate("soon")
	assert.Error(t, err)
}

func TestClean(t *testing.T) {
	assert.Equal(t, "Tom & Jerry", Clean("  Tom &amp;\n Jerry "))
	assert.Equal(t, "bold text", Clean("<b>bold</b>   text"))
	assert.Empty(t, Clean(""))
}

func TestLabelKey(t *testing.T) {
	for in, want := range map[string]field{
		"Order #:":          fieldOrderNo,
		"ORDER NO.":         fieldOrderNo,
		"PO #":              fieldOrderPO,
		"DBX Customer ID:":  fieldDBXCustomerID,
		"Quote Expiration:": fieldQuoteExpiration,
	} {
		got, ok := labelKey(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := labelKey("Pool shell")
	assert.False(t, ok)
}
