package payment

import (
	"github.com/shopspring/decimal"
)

// FormatAmount renders a money value with exactly two fraction digits and a
// '.' separator. Halves round away from zero (10.005 -> "10.01").
//
// The same function formats outbound totals and the amount covered by the
// callback signature, so both sides always agree on the canonical string.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// AmountsEqual compares two money values after normalizing both to the
// two-digit form used on the wire.
func AmountsEqual(a, b decimal.Decimal) bool {
	return FormatAmount(a) == FormatAmount(b)
}
