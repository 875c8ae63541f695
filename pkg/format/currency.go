// Package format renders amounts and timestamps the way every dashboard
// table and preview shows them.
package format

import (
	"strings"

	"github.com/shopspring/decimal"
)

// NA is rendered for any missing or undefined source value.
const NA = "N/A"

const rupee = "₹"

// Currency formats an order or product amount as Indian Rupees with two
// decimals and Indian digit grouping, e.g. ₹1,23,456.78.
func Currency(amount float64) string {
	return rupees(decimal.NewFromFloat(amount), 2)
}

// EventPrice formats an event price with no decimals, e.g. ₹1,500.
func EventPrice(amount float64) string {
	return rupees(decimal.NewFromFloat(amount), 0)
}

// CurrencyPtr is Currency for optional amounts.
func CurrencyPtr(amount *float64) string {
	if amount == nil {
		return NA
	}
	return Currency(*amount)
}

// EventPricePtr is EventPrice for optional amounts.
func EventPricePtr(amount *float64) string {
	if amount == nil {
		return NA
	}
	return EventPrice(*amount)
}

func rupees(d decimal.Decimal, places int32) string {
	s := d.StringFixed(places)

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign = "-"
		s = s[1:]
	}
	// -0.00 after rounding is still zero
	if d.Round(places).IsZero() {
		sign = ""
	}

	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}
	return sign + rupee + groupIndian(intPart) + frac
}

// groupIndian inserts separators using the Indian numbering system: the last
// three digits form one group and the rest are grouped in pairs.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]

	var b strings.Builder
	lead := len(head) % 2
	if lead > 0 {
		b.WriteString(head[:lead])
	}
	for i := lead; i < len(head); i += 2 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(head[i : i+2])
	}
	b.WriteByte(',')
	b.WriteString(tail)
	return b.String()
}

// DiscountPercent returns the whole percentage taken off the original price.
// It is zero when there is no meaningful discount.
func DiscountPercent(original float64, discount *float64) int {
	if discount == nil || original <= 0 || *discount >= original || *discount < 0 {
		return 0
	}
	orig := decimal.NewFromFloat(original)
	off := orig.Sub(decimal.NewFromFloat(*discount)).Div(orig).Mul(decimal.NewFromInt(100))
	return int(off.Round(0).IntPart())
}
