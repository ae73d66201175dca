package calc

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is appended to formatted amounts
const Currency = "EGP"

// FormatCurrency renders an amount with two decimals and thousands separators,
// e.g. "12,345.68 EGP" or "-1,000.00 EGP"
func FormatCurrency(amount decimal.Decimal) string {
	sign := ""
	if amount.Round(2).IsNegative() {
		sign = "-"
	}
	fixed := amount.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")
	return sign + groupThousands(whole) + "." + frac + " " + Currency
}

// FormatPercent renders a percentage with two decimals
func FormatPercent(p decimal.Decimal) string {
	return p.StringFixed(2) + "%"
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
