package money

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var currencySymbols = []string{"R$", "$", "€", "£", "¥", "₹"}

// leadingNumber matches the longest numeric prefix. Anything after it is ignored.
var leadingNumber = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?`)

// ParseLenient converts free-form cell or OCR text into a non-negative amount.
// Thousands commas and currency symbols are dropped, the leading number is
// parsed and anything unparseable or negative becomes 0. It never fails.
func ParseLenient(s string) float64 {
	d, ok := parseLeading(s)
	if !ok || d.IsNegative() {
		return 0
	}
	return d.InexactFloat64()
}

// ParseLenientDecimal is ParseLenient without the float conversion.
func ParseLenientDecimal(s string) decimal.Decimal {
	d, ok := parseLeading(s)
	if !ok || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// NonNegative clamps n to zero for values that arrive already numeric.
func NonNegative(n float64) float64 {
	if n < 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return n
}

func parseLeading(s string) (decimal.Decimal, bool) {
	cleaned := stripSymbols(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
	cleaned = strings.TrimSpace(cleaned)

	prefix := leadingNumber.FindString(cleaned)
	if prefix == "" {
		return decimal.Zero, false
	}

	f, err := strconv.ParseFloat(prefix, 64)
	if err != nil || math.IsInf(f, 0) {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(f), true
}

func stripSymbols(s string) string {
	for _, sym := range currencySymbols {
		s = strings.ReplaceAll(s, sym, "")
	}
	return s
}
