package extract

import (
	"regexp"
	"strings"

	"github.com/FACorreiaa/receipt-intake/internal/domain/receipt"
	"github.com/FACorreiaa/receipt-intake/pkg/money"
)

// lineItemPattern matches "<description> <amount>" at the end of a line.
// A currency symbol before the amount is not allowed, which keeps labelled
// totals such as "Total: $452.10" out of the item list.
var lineItemPattern = regexp.MustCompile(`^(.+?)\s+(\d[\d,]*\.\d{2})$`)

// Pipeline applies an ordered rule list to OCR text.
type Pipeline struct {
	rules []Rule
}

// NewPipeline creates a pipeline over the given rules. The slice is copied.
func NewPipeline(rules []Rule) *Pipeline {
	return &Pipeline{rules: append([]Rule(nil), rules...)}
}

// Default returns a pipeline with DefaultRules.
func Default() *Pipeline {
	return NewPipeline(DefaultRules())
}

// Rules returns a copy of the rule list.
func (p *Pipeline) Rules() []Rule {
	return append([]Rule(nil), p.rules...)
}

// Fields runs the rules and returns the first match per field, along with the
// name of the rule that produced it.
func (p *Pipeline) Fields(text string) map[Field]Match {
	found := make(map[Field]Match, 5)
	for _, rule := range p.rules {
		if _, done := found[rule.Field]; done {
			continue
		}
		if v, ok := rule.Match(text); ok {
			found[rule.Field] = Match{Rule: rule.Name, Value: v}
		}
	}
	return found
}

// Match is a value captured by a named rule.
type Match struct {
	Rule  string
	Value string
}

// Extract builds an image record from OCR text. It never fails: unmatched
// fields take their defaults.
func (p *Pipeline) Extract(text string) receipt.Record {
	fields := p.Fields(text)

	vendor := receipt.UnknownOCRVendor
	if m, ok := fields[FieldVendor]; ok {
		vendor = m.Value
	}

	var date *string
	if m, ok := fields[FieldDate]; ok {
		date = receipt.StringPtr(m.Value)
	}

	return receipt.Record{
		Vendor:    vendor,
		Date:      date,
		Total:     money.ParseLenient(fields[FieldTotal].Value),
		Tax:       money.ParseLenient(fields[FieldTax].Value),
		Subtotal:  money.ParseLenient(fields[FieldSubtotal].Value),
		Source:    receipt.SourceImage,
		LineItems: LineItems(text),
		Raw:       text,
	}
}

// LineItems scans every line for a trailing two-decimal amount. Items keep
// the order they appear in; zero amounts are dropped.
func LineItems(text string) []receipt.LineItem {
	items := []receipt.LineItem{}
	for _, line := range strings.Split(text, "\n") {
		m := lineItemPattern.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}

		amount := money.ParseLenient(m[2])
		if amount <= 0 {
			continue
		}

		items = append(items, receipt.LineItem{
			Description: strings.TrimSpace(m[1]),
			Amount:      amount,
		})
	}
	return items
}
