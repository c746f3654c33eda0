package parser

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/FACorreiaa/receipt-intake/internal/domain/receipt"
)

// CSVParser parses header-driven CSV receipt exports.
type CSVParser struct {
	fields FieldNames
}

// NewCSVParser creates a CSV parser using the tabular field names.
func NewCSVParser() *CSVParser {
	return &CSVParser{fields: TabularFields}
}

// Parse reads the whole file and returns one record per data row. Rows with
// fewer cells than the header leave the trailing fields absent; extra cells
// are ignored.
func (p *CSVParser) Parse(_ context.Context, u receipt.Upload) ([]receipt.Record, error) {
	data, err := u.ReadAll()
	if err != nil {
		return nil, err
	}

	r := newCSVReader(bytes.NewReader(stripUTF8BOM(data)))

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return []receipt.Record{}, nil
	}
	if err != nil {
		return nil, receipt.ParseError("parse csv", err)
	}

	records := make([]receipt.Record, 0)
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, receipt.ParseError("parse csv", err)
		}
		records = append(records, p.fields.recordFromRow(csvRowToMap(header, row), receipt.SourceCSV))
	}
	return records, nil
}

// newCSVReader builds gocsv's default reader with the per-record field count
// check disabled.
func newCSVReader(in io.Reader) gocsv.CSVReader {
	r := gocsv.DefaultCSVReader(in)
	if cr, ok := r.(*csv.Reader); ok {
		cr.FieldsPerRecord = -1
	}
	return r
}

// csvRowToMap keys cells by header. Empty cells are kept as empty strings;
// cells missing from a short row are absent.
func csvRowToMap(header, row []string) map[string]string {
	m := make(map[string]string, len(header))
	for i, h := range header {
		if i >= len(row) {
			break
		}
		m[h] = row[i]
	}
	return m
}
