package parser

import (
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"
	"golang.org/x/net/html"

	"github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/textutil"
)

var strictPolicy = bluemonday.StrictPolicy()

// Clean strips markup, unescapes entities and collapses whitespace.
func Clean(s string) string {
	if s == "" {
		return ""
	}
	return textutil.CollapseSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
}

// ParseAmount reads money as written on contracts: "$1,234.50", "(12.00)"
// for negatives, blank or a lone dash for zero.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	s = strings.NewReplacer("$", "", ",", "", " ", "", "USD", "", "usd", "").Replace(s)
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = s[1:]
	}
	if s == "" || s == "-" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// ParsePercent reads "45%" or "45" as 45.
func ParsePercent(s string) (decimal.Decimal, error) {
	return ParseAmount(strings.TrimSuffix(strings.TrimSpace(s), "%"))
}

var dateLayouts = []string{
	"01/02/2006",
	"1/2/2006",
	"2006-01-02",
	"01/02/06",
	"1/2/06",
	"January 2, 2006",
	"Jan 2, 2006",
	"02-Jan-2006",
	"2 January 2006",
}

// ParseDate reads the date formats seen on contracts. Blank yields nil.
func ParseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid date %q", s)
}

// ParseBool treats yes, y, true, x, 1 and delivered as true.
func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true", "x", "1", "delivered":
		return true
	}
	return false
}
