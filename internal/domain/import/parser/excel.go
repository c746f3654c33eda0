package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/receipt-intake/internal/domain/receipt"
)

// ExcelParser parses XLSX workbooks. Only the first sheet is read and its
// first row is the header.
type ExcelParser struct {
	fields FieldNames
}

// NewExcelParser creates a new Excel parser
func NewExcelParser() *ExcelParser {
	return &ExcelParser{fields: TabularFields}
}

// Parse reads the workbook and returns one record per non-blank data row.
func (p *ExcelParser) Parse(_ context.Context, u receipt.Upload) ([]receipt.Record, error) {
	data, err := u.ReadAll()
	if err != nil {
		return nil, err
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, receipt.ParseError("parse xlsx", fmt.Errorf("failed to open workbook: %w", err))
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, receipt.ParseError("parse xlsx", errors.New("workbook has no sheets"))
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, receipt.ParseError("parse xlsx", fmt.Errorf("failed to read sheet %s: %w", sheets[0], err))
	}

	if len(rows) == 0 {
		return []receipt.Record{}, nil
	}

	headers := rows[0]
	records := make([]receipt.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		records = append(records, p.fields.recordFromRow(rowToMap(headers, row), receipt.SourceExcel))
	}
	return records, nil
}

// rowToMap keys cells by header. Cells past the end of a short row are absent,
// as are columns with an empty header.
func rowToMap(headers, row []string) map[string]string {
	m := make(map[string]string, len(headers))
	for i, h := range headers {
		if h == "" || i >= len(row) || row[i] == "" {
			continue
		}
		m[h] = row[i]
	}
	return m
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
