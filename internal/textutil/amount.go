package textutil

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var amountJunk = regexp.MustCompile(`[^0-9,.\-]`)

// ParseAmount parses a localized amount such as "1.234,56", "35,93" or
// "USD 13.05". When both separators are present "." is the thousands
// separator and "," the decimal one; a lone "," is the decimal separator.
// The second result is false when nothing numeric could be parsed.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	s := amountJunk.ReplaceAllString(raw, "")
	s = strings.TrimRight(s, ".,-")
	if s == "" {
		return decimal.Zero, false
	}

	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")
	switch {
	case hasComma && hasDot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	case hasComma:
		s = strings.ReplaceAll(s, ",", ".")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
