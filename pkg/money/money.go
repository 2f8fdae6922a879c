package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Glyph is the currency symbol rendered after formatted amounts.
const Glyph = "€"

var stripper = strings.NewReplacer("€", "", "$", "")

// Parse extracts a monetary amount from free-form price text. Currency
// glyphs and surrounding whitespace are stripped; any non-numeric residue
// yields zero. Callers must treat zero as "could not price this line", not
// as an intentionally free item.
func Parse(text string) decimal.Decimal {
	cleaned := strings.TrimSpace(stripper.Replace(text))
	if cleaned == "" {
		return decimal.Zero
	}
	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return amount
}

// Format renders an amount with exactly two fractional digits and the
// currency glyph, e.g. "43.00€". Parse(Format(x)) recovers x for all
// non-negative x at the stored precision.
func Format(amount decimal.Decimal) string {
	return amount.StringFixed(2) + Glyph
}
