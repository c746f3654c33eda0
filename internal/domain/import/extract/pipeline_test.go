package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/receipt-intake/internal/domain/receipt"
	"github.com/FACorreiaa/receipt-intake/internal/domain/receipt/receipttest"
)

func TestPipeline_Extract(t *testing.T) {
	p := Default()

	t.Run("lumber receipt", func(t *testing.T) {
		r := p.Extract("ACME Lumber\nTotal: $452.10\n2x4 Studs 120.00")

		assert.Equal(t, "ACME Lumber", r.Vendor)
		assert.InDelta(t, 452.10, r.Total, 0.0001)
		assert.Equal(t, []receipt.LineItem{{Description: "2x4 Studs", Amount: 120.00}}, r.LineItems)
		assert.Equal(t, receipt.SourceImage, r.Source)
		assert.Nil(t, r.Date)
		assert.Nil(t, r.JobID)
		assert.Equal(t, "ACME Lumber\nTotal: $452.10\n2x4 Studs 120.00", r.Raw)
	})

	t.Run("no total pattern leaves zero", func(t *testing.T) {
		r := p.Extract("thanks for visiting\nsee you soon")
		assert.Equal(t, 0.0, r.Total)
		assert.Equal(t, 0.0, r.Tax)
		assert.Equal(t, 0.0, r.Subtotal)
		assert.Equal(t, "thanks for visiting", r.Vendor)
	})

	t.Run("empty text uses every default", func(t *testing.T) {
		r := p.Extract("")
		assert.Equal(t, receipt.UnknownOCRVendor, r.Vendor)
		assert.Nil(t, r.Date)
		assert.Equal(t, 0.0, r.Total)
		assert.NotNil(t, r.LineItems)
		assert.Empty(t, r.LineItems)
	})

	t.Run("whitespace only text", func(t *testing.T) {
		r := p.Extract("  \n\t\n ")
		assert.Equal(t, receipt.UnknownOCRVendor, r.Vendor)
	})

	t.Run("full receipt", func(t *testing.T) {
		text := "Store: Home Depot #4410\n" +
			"Date 03/14/2025\n" +
			"Copper Pipe 1,204.50\n" +
			"PVC Elbow 3.25\n" +
			"HST: $157.01\n" +
			"Amount Due: $1,364.76\n" +
			"Subtotal: $1,207.75\n"

		r := p.Extract(text)
		assert.Equal(t, "Home Depot", r.Vendor)
		require.NotNil(t, r.Date)
		assert.Equal(t, "03/14/2025", *r.Date)
		assert.InDelta(t, 1364.76, r.Total, 0.0001)
		assert.InDelta(t, 157.01, r.Tax, 0.0001)
		assert.InDelta(t, 1207.75, r.Subtotal, 0.0001)
		assert.Equal(t, []receipt.LineItem{
			{Description: "Copper Pipe", Amount: 1204.50},
			{Description: "PVC Elbow", Amount: 3.25},
		}, r.LineItems)
	})

	t.Run("subtotal label also satisfies total", func(t *testing.T) {
		r := p.Extract("SUBTOTAL: 10.00\nTOTAL: 11.30")
		assert.InDelta(t, 10.00, r.Total, 0.0001)
		assert.InDelta(t, 10.00, r.Subtotal, 0.0001)
	})

	t.Run("label inside a word", func(t *testing.T) {
		r := p.Extract("GrandTotal: 99.00")
		assert.InDelta(t, 99.00, r.Total, 0.0001)
	})

	t.Run("first match wins per field", func(t *testing.T) {
		r := p.Extract("Total: 10.00\nTotal: 99.00")
		assert.InDelta(t, 10.00, r.Total, 0.0001)
	})

	t.Run("idempotent", func(t *testing.T) {
		text := receipttest.New(7).OCRText("BuildCo", 4)
		assert.Equal(t, p.Extract(text), p.Extract(text))
	})
}

func TestRules(t *testing.T) {
	byName := map[string]Rule{}
	for _, r := range DefaultRules() {
		byName[r.Name] = r
	}

	tests := []struct {
		rule  string
		text  string
		want  string
		match bool
	}{
		{"vendor-label", "Sold by: Graybar Electric\n", "Graybar Electric", true},
		{"vendor-label", "VENDOR ferguson 22", "ferguson 22", true},
		{"vendor-label", "ACME Lumber", "", false},
		{"vendor-first-line", "\n\n  BuildCo  \nTotal 1.00", "BuildCo", true},
		{"date-numeric", "on 1/2/24 at noon", "1/2/24", true},
		{"date-numeric", "issued 12-31-2024", "12-31-2024", true},
		{"date-numeric", "issued 31.12.24", "31.12.24", true},
		{"date-numeric", "99/99/9999", "99/99/9999", true},
		{"date-numeric", "no date in 2024", "", false},
		{"total-label", "BALANCE $ 1,000.00", "1000.00", true},
		{"total-label", "total: 12.5", "", false},
		{"total-label", "GrandTotal: 99.00", "99.00", true},
		{"total-label", "SUBTOTAL: 10.00\nTOTAL: 11.30", "10.00", true},
		{"tax-label", "GST 5.00", "5.00", true},
		{"tax-label", "pst: $0.70", "0.70", true},
		{"subtotal-label", "Sub Total 88.10", "88.10", true},
	}

	for _, tt := range tests {
		t.Run(tt.rule+"/"+tt.text, func(t *testing.T) {
			rule, ok := byName[tt.rule]
			require.True(t, ok)

			got, matched := rule.Match(tt.text)
			assert.Equal(t, tt.match, matched)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWordBoundaryRules(t *testing.T) {
	p := NewPipeline(WordBoundaryRules())

	t.Run("subtotal label is not a total", func(t *testing.T) {
		r := p.Extract("SUBTOTAL: 10.00\nTOTAL: 11.30")
		assert.InDelta(t, 11.30, r.Total, 0.0001)
		assert.InDelta(t, 10.00, r.Subtotal, 0.0001)
	})

	t.Run("label inside a word is ignored", func(t *testing.T) {
		r := p.Extract("GrandTotal: 99.00")
		assert.Equal(t, 0.0, r.Total)
	})

	t.Run("other fields match the defaults", func(t *testing.T) {
		text := "Sold by: Graybar Electric\nDate 1/2/24\nGST 5.00\nTotal: 105.00"
		bounded := p.Extract(text)
		plain := Default().Extract(text)
		assert.Equal(t, plain.Vendor, bounded.Vendor)
		assert.Equal(t, plain.Date, bounded.Date)
		assert.Equal(t, plain.Tax, bounded.Tax)
		assert.Equal(t, plain.Total, bounded.Total)
	})
}

func TestPipeline_CustomRules(t *testing.T) {
	rules := []Rule{
		{Field: FieldVendor, Name: "fixed", Match: func(string) (string, bool) { return "Fixed Vendor", true }},
	}
	p := NewPipeline(rules)
	rules[0].Name = "mutated"

	fields := p.Fields("anything")
	assert.Equal(t, Match{Rule: "fixed", Value: "Fixed Vendor"}, fields[FieldVendor])
	assert.Len(t, p.Rules(), 1)

	r := p.Extract("Total: 10.00")
	assert.Equal(t, "Fixed Vendor", r.Vendor)
	assert.Equal(t, 0.0, r.Total)
}

func TestLineItems(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []receipt.LineItem
	}{
		{
			name: "keeps order of appearance",
			text: "Nails 15.00\nDrywall Sheet 9.99\nConcrete Mix 120.00",
			want: []receipt.LineItem{
				{Description: "Nails", Amount: 15},
				{Description: "Drywall Sheet", Amount: 9.99},
				{Description: "Concrete Mix", Amount: 120},
			},
		},
		{
			name: "drops zero amounts",
			text: "Free Sticker 0.00\nSaw Blade 24.99",
			want: []receipt.LineItem{{Description: "Saw Blade", Amount: 24.99}},
		},
		{
			name: "amount must end the line",
			text: "Roller 4.99 each\nTape 3.5",
			want: []receipt.LineItem{},
		},
		{
			name: "handles thousands and crlf",
			text: "Excavator Rental   2,450.00\r\n",
			want: []receipt.LineItem{{Description: "Excavator Rental", Amount: 2450}},
		},
		{
			name: "dollar sign lines are not items",
			text: "Total: $452.10",
			want: []receipt.LineItem{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LineItems(tt.text))
		})
	}
}
