package parser

import (
	"context"

	"github.com/FACorreiaa/receipt-intake/internal/domain/import/extract"
	"github.com/FACorreiaa/receipt-intake/internal/domain/import/ocr"
	"github.com/FACorreiaa/receipt-intake/internal/domain/receipt"
)

// TextExtractor is the OCR step of the image path.
type TextExtractor interface {
	ExtractText(ctx context.Context, u receipt.Upload, progress ocr.ProgressFunc) (string, error)
}

// VendorNormalizer maps a noisy OCR vendor onto a canonical name.
type VendorNormalizer interface {
	Normalize(vendor string) string
}

// ImageParser runs OCR and then field extraction. It always yields exactly one record.
type ImageParser struct {
	extractor TextExtractor
	fields    *extract.Pipeline
	vendors   VendorNormalizer
	progress  ocr.ProgressFunc
}

// NewImageParser creates an image parser. A nil pipeline uses the default rules.
func NewImageParser(extractor TextExtractor, fields *extract.Pipeline) *ImageParser {
	if fields == nil {
		fields = extract.Default()
	}
	return &ImageParser{extractor: extractor, fields: fields}
}

// WithVendorNormalizer canonicalizes extracted vendor names.
func (p *ImageParser) WithVendorNormalizer(n VendorNormalizer) *ImageParser {
	p.vendors = n
	return p
}

// WithProgress forwards OCR progress updates to fn.
func (p *ImageParser) WithProgress(fn ocr.ProgressFunc) *ImageParser {
	p.progress = fn
	return p
}

// Parse implements Parser.
func (p *ImageParser) Parse(ctx context.Context, u receipt.Upload) ([]receipt.Record, error) {
	text, err := p.extractor.ExtractText(ctx, u, p.progress)
	if err != nil {
		return nil, err
	}

	record := p.fields.Extract(text)
	if p.vendors != nil && record.Vendor != receipt.UnknownOCRVendor {
		record.Vendor = p.vendors.Normalize(record.Vendor)
	}
	return []receipt.Record{record}, nil
}
