package parser

import (
	"context"
	"fmt"
	"testing"

	"github.com/FACorreiaa/receipt-intake/internal/domain/receipt"
	"github.com/FACorreiaa/receipt-intake/internal/domain/receipt/receipttest"
)

// BenchmarkTabularParsers compares CSV and JSON parsing of the same rows.
func BenchmarkTabularParsers(b *testing.B) {
	sizes := []int{100, 1000, 10000}
	gen := receipttest.New(42)

	for _, size := range sizes {
		rows := gen.Rows(size)
		csvData := receipttest.CSV(rows)
		jsonData := receipttest.JSON(rows)

		b.Run(fmt.Sprintf("CSV_%d_rows", size), func(b *testing.B) {
			p := NewCSVParser()
			b.SetBytes(int64(len(csvData)))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := p.Parse(context.Background(), receipt.Upload{Content: csvData}); err != nil {
					b.Fatal(err)
				}
			}
		})

		b.Run(fmt.Sprintf("JSON_%d_rows", size), func(b *testing.B) {
			p := NewJSONParser()
			b.SetBytes(int64(len(jsonData)))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := p.Parse(context.Background(), receipt.Upload{Content: jsonData}); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
