// Package receipt defines the canonical record every import parser converges on.
package receipt

// Source tags which parser produced a record.
type Source string

const (
	SourceCSV   Source = "csv"
	SourceExcel Source = "excel"
	SourceJSON  Source = "json"
	SourceImage Source = "image"
)

// Valid reports whether s is one of the known sources.
func (s Source) Valid() bool {
	switch s {
	case SourceCSV, SourceExcel, SourceJSON, SourceImage:
		return true
	}
	return false
}

const (
	// UnknownVendor is used by tabular sources when no vendor column is present.
	UnknownVendor = "Unknown"
	// UnknownOCRVendor is used when nothing in the OCR text looks like a vendor.
	UnknownOCRVendor = "Unknown Vendor"
)

// LineItem is a single priced line read from a scanned receipt.
type LineItem struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

// Record is the normalized receipt/expense representation.
// Parsers build it once; nothing downstream modifies it.
type Record struct {
	Vendor    string     `json:"vendor"`
	Date      *string    `json:"date"`  // raw matched text, not a calendar value
	Total     float64    `json:"total"` // never negative
	Tax       float64    `json:"tax"`
	Subtotal  float64    `json:"subtotal"`
	JobID     *string    `json:"jobId"`
	Source    Source     `json:"source"`
	LineItems []LineItem `json:"lineItems"`
	Raw       any        `json:"raw,omitempty"` // original row or OCR text, never interpreted
}

// LineItemTotal sums the line item amounts.
func (r Record) LineItemTotal() float64 {
	var sum float64
	for _, item := range r.LineItems {
		sum += item.Amount
	}
	return sum
}

// Descriptions returns the line item descriptions in order.
func (r Record) Descriptions() []string {
	out := make([]string, 0, len(r.LineItems))
	for _, item := range r.LineItems {
		out = append(out, item.Description)
	}
	return out
}

// StringPtr returns nil for an empty string and a pointer to s otherwise.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
