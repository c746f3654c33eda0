package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"github.com/FACorreiaa/receipt-intake/internal/domain/receipt"
)

// JSONParser parses exports shaped as a top-level array of objects.
type JSONParser struct {
	fields FieldNames
}

// NewJSONParser creates a JSON parser using the lower-case field names.
func NewJSONParser() *JSONParser {
	return &JSONParser{fields: JSONFields}
}

// Parse returns one record per object in the top-level array. Any other
// top-level value yields an empty result; non-object elements are skipped.
func (p *JSONParser) Parse(_ context.Context, u receipt.Upload) ([]receipt.Record, error) {
	data, err := u.ReadAll()
	if err != nil {
		return nil, err
	}

	// Numbers keep their literal text so long job ids and numeric dates survive.
	dec := json.NewDecoder(bytes.NewReader(stripUTF8BOM(bytes.TrimSpace(data))))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, receipt.ParseError("parse json", err)
	}
	if dec.More() {
		return nil, receipt.ParseError("parse json", errors.New("unexpected data after top-level value"))
	}

	items, ok := doc.([]any)
	if !ok {
		return []receipt.Record{}, nil
	}

	records := make([]receipt.Record, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		records = append(records, p.fields.recordFromObject(obj, receipt.SourceJSON))
	}
	return records, nil
}
