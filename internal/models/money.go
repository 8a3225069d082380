package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatNaira renders amount as ₦ with thousands separators and at most
// two decimal places, e.g. ₦1,250,000 or ₦99.5.
func FormatNaira(amount decimal.Decimal) string {
	neg := amount.IsNegative()
	s := amount.Abs().Round(2).String()

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i:]
	}

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString("₦")
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteString(frac)
	return b.String()
}
