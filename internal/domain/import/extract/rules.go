// Package extract pulls receipt fields out of unstructured OCR text.
//
// Extraction is a pipeline of small named rules. Each rule is a pure function
// from text to an optional value, the first rule that matches a field wins,
// and every field has a default so extraction never fails.
package extract

import (
	"regexp"
	"strings"
)

// Field identifies the canonical field a rule fills.
type Field string

const (
	FieldVendor   Field = "vendor"
	FieldDate     Field = "date"
	FieldTotal    Field = "total"
	FieldTax      Field = "tax"
	FieldSubtotal Field = "subtotal"
)

// MatchFunc returns the captured value and whether the rule matched.
type MatchFunc func(text string) (string, bool)

// Rule is a single named matcher for one field.
type Rule struct {
	Field Field
	Name  string
	Match MatchFunc
}

// Label and value patterns. Labels match anywhere in the text, so "Subtotal"
// also satisfies the "total" label and "GrandTotal" is a total.
var (
	vendorLabel = labelPattern(``, `vendor|store|sold by|from`)
	datePattern = regexp.MustCompile(`\d{1,2}[/.\-]\d{1,2}[/.\-]\d{2,4}`)

	totalLabel    = amountAfter(``, `total|amount due|balance`)
	taxLabel      = amountAfter(``, `tax|hst|gst|pst`)
	subtotalLabel = amountAfter(``, `subtotal|sub total`)
)

// Word-boundary variants of the label patterns.
var (
	boundedVendorLabel   = labelPattern(`\b`, `vendor|store|sold by|from`)
	boundedTotalLabel    = amountAfter(`\b`, `total|amount due|balance`)
	boundedTaxLabel      = amountAfter(`\b`, `tax|hst|gst|pst`)
	boundedSubtotalLabel = amountAfter(`\b`, `subtotal|sub total`)
)

// labelPattern builds a label followed by a run of letters, digits and spaces.
func labelPattern(prefix, labels string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + prefix + `(?:` + labels + `)[:\s]*([a-z0-9 ]+)`)
}

// amountAfter builds a label pattern followed by an optional dollar sign and a
// two-decimal amount with optional thousands commas.
func amountAfter(prefix, labels string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + prefix + `(?:` + labels + `)[:\s]*\$?\s*(\d[\d,]*\.\d{2})`)
}

// DefaultRules returns the built-in rules in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		{Field: FieldVendor, Name: "vendor-label", Match: captureTrimmed(vendorLabel)},
		{Field: FieldVendor, Name: "vendor-first-line", Match: FirstNonEmptyLine},
		{Field: FieldDate, Name: "date-numeric", Match: matchWhole(datePattern)},
		{Field: FieldTotal, Name: "total-label", Match: captureAmount(totalLabel)},
		{Field: FieldTax, Name: "tax-label", Match: captureAmount(taxLabel)},
		{Field: FieldSubtotal, Name: "subtotal-label", Match: captureAmount(subtotalLabel)},
	}
}

// WordBoundaryRules is DefaultRules with every label anchored on a word
// boundary, so "Subtotal" is never read as a total. Use it with NewPipeline.
func WordBoundaryRules() []Rule {
	return []Rule{
		{Field: FieldVendor, Name: "vendor-label-bounded", Match: captureTrimmed(boundedVendorLabel)},
		{Field: FieldVendor, Name: "vendor-first-line", Match: FirstNonEmptyLine},
		{Field: FieldDate, Name: "date-numeric", Match: matchWhole(datePattern)},
		{Field: FieldTotal, Name: "total-label-bounded", Match: captureAmount(boundedTotalLabel)},
		{Field: FieldTax, Name: "tax-label-bounded", Match: captureAmount(boundedTaxLabel)},
		{Field: FieldSubtotal, Name: "subtotal-label-bounded", Match: captureAmount(boundedSubtotalLabel)},
	}
}

// FirstNonEmptyLine returns the first line with visible characters.
func FirstNonEmptyLine(text string) (string, bool) {
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed, true
		}
	}
	return "", false
}

// captureTrimmed returns the first capture group, trimmed. A capture that is
// only whitespace counts as no match.
func captureTrimmed(re *regexp.Regexp) MatchFunc {
	return func(text string) (string, bool) {
		m := re.FindStringSubmatch(text)
		if m == nil {
			return "", false
		}
		v := strings.TrimSpace(m[1])
		return v, v != ""
	}
}

// captureAmount returns the first capture group with thousands commas removed.
func captureAmount(re *regexp.Regexp) MatchFunc {
	return func(text string) (string, bool) {
		m := re.FindStringSubmatch(text)
		if m == nil {
			return "", false
		}
		return strings.ReplaceAll(m[1], ",", ""), true
	}
}

// matchWhole returns the whole match verbatim.
func matchWhole(re *regexp.Regexp) MatchFunc {
	return func(text string) (string, bool) {
		m := re.FindString(text)
		return m, m != ""
	}
}
