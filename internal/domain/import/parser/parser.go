// Package parser turns uploaded receipt artifacts into canonical records.
// Tabular sources (CSV, XLSX, JSON) map header-driven rows onto a fixed,
// case-sensitive field set; images go through OCR and field extraction.
package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/FACorreiaa/receipt-intake/internal/domain/receipt"
	"github.com/FACorreiaa/receipt-intake/pkg/money"
)

// Parser converts one upload into canonical records.
type Parser interface {
	Parse(ctx context.Context, u receipt.Upload) ([]receipt.Record, error)
}

// ParserFunc adapts a function to the Parser interface.
type ParserFunc func(ctx context.Context, u receipt.Upload) ([]receipt.Record, error)

func (f ParserFunc) Parse(ctx context.Context, u receipt.Upload) ([]receipt.Record, error) {
	return f(ctx, u)
}

// FieldNames is the exact key set a source uses for each canonical field.
// Lookups are case-sensitive.
type FieldNames struct {
	Vendor   string
	Date     string
	Total    string
	Tax      string
	Subtotal string
	JobID    string
}

// TabularFields are the capitalized headers expected in CSV and XLSX files.
var TabularFields = FieldNames{
	Vendor:   "Vendor",
	Date:     "Date",
	Total:    "Total",
	Tax:      "Tax",
	Subtotal: "Subtotal",
	JobID:    "JobID",
}

// JSONFields are the lower-case keys expected in JSON exports.
var JSONFields = FieldNames{
	Vendor:   "vendor",
	Date:     "date",
	Total:    "total",
	Tax:      "tax",
	Subtotal: "subtotal",
	JobID:    "jobId",
}

// recordFromRow maps a header-keyed string row onto a record.
// Missing or malformed cells fall back to defaults and never fail the row.
func (f FieldNames) recordFromRow(row map[string]string, source receipt.Source) receipt.Record {
	vendor := strings.TrimSpace(row[f.Vendor])
	if vendor == "" {
		vendor = receipt.UnknownVendor
	}

	return receipt.Record{
		Vendor:    vendor,
		Date:      receipt.StringPtr(strings.TrimSpace(row[f.Date])),
		Total:     money.ParseLenient(row[f.Total]),
		Tax:       money.ParseLenient(row[f.Tax]),
		Subtotal:  money.ParseLenient(row[f.Subtotal]),
		JobID:     receipt.StringPtr(strings.TrimSpace(row[f.JobID])),
		Source:    source,
		LineItems: []receipt.LineItem{},
		Raw:       row,
	}
}

// recordFromObject maps a decoded JSON object onto a record.
func (f FieldNames) recordFromObject(obj map[string]any, source receipt.Source) receipt.Record {
	vendor := scalarString(obj[f.Vendor])
	if vendor == "" {
		vendor = receipt.UnknownVendor
	}

	return receipt.Record{
		Vendor:    vendor,
		Date:      receipt.StringPtr(scalarString(obj[f.Date])),
		Total:     coerceAmount(obj[f.Total]),
		Tax:       coerceAmount(obj[f.Tax]),
		Subtotal:  coerceAmount(obj[f.Subtotal]),
		JobID:     receipt.StringPtr(scalarString(obj[f.JobID])),
		Source:    source,
		LineItems: []receipt.LineItem{},
		Raw:       obj,
	}
}

// coerceAmount accepts JSON numbers as-is and strings through the lenient parser.
func coerceAmount(v any) float64 {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		return money.NonNegative(f)
	case float64:
		return money.NonNegative(n)
	case string:
		return money.ParseLenient(n)
	default:
		return 0
	}
}

// scalarString renders strings and numbers; objects, arrays, bools and null are treated as absent.
func scalarString(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return ""
	}
}

// stripUTF8BOM removes a leading byte order mark written by spreadsheet exports.
func stripUTF8BOM(data []byte) []byte {
	return bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
}
