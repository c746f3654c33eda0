package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/receipt-intake/internal/domain/categorization"
	"github.com/FACorreiaa/receipt-intake/internal/domain/import/extract"
	"github.com/FACorreiaa/receipt-intake/internal/domain/import/parser"
	"github.com/FACorreiaa/receipt-intake/internal/domain/plan"
	"github.com/FACorreiaa/receipt-intake/internal/domain/receipt"
)

const lumberReceipt = "ACME Lumber\nTotal: $452.10\n2x4 Studs 120.00"

type fakeRecorder struct {
	mu       sync.Mutex
	records  map[string]int
	failures map[string]int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{records: map[string]int{}, failures: map[string]int{}}
}

func (f *fakeRecorder) RecordsProduced(source string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[source] += n
}

func (f *fakeRecorder) Failure(kind string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[kind]++
}

// textImageParser treats the image bytes as already-recognized text.
func textImageParser() parser.Parser {
	return parser.ParserFunc(func(_ context.Context, u receipt.Upload) ([]receipt.Record, error) {
		data, err := u.ReadAll()
		if err != nil {
			return nil, err
		}
		if string(data) == "unreadable" {
			return nil, receipt.OCRFailure("recognize", errors.New("engine down"))
		}
		return []receipt.Record{extract.Default().Extract(string(data))}, nil
	})
}

func newTestService() (*IngestService, *fakeRecorder) {
	dispatcher := parser.NewDispatcher(parser.NewCSVParser(), parser.NewExcelParser(), parser.NewJSONParser(), textImageParser())
	recorder := newFakeRecorder()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewIngestService(dispatcher, categorization.NewEngine(categorization.DefaultTaxonomy()), logger).
		WithRecorder(recorder)
	return svc, recorder
}

func TestIngestService_Ingest(t *testing.T) {
	ctx := context.Background()

	t.Run("image receipt end to end", func(t *testing.T) {
		svc, recorder := newTestService()

		result, err := svc.Ingest(ctx, receipt.Upload{
			Content:  []byte(lumberReceipt),
			MIMEType: "image/png",
			Filename: "scan.png",
		}, Options{})
		require.NoError(t, err)

		assert.Equal(t, receipt.SourceImage, result.Source)
		require.Len(t, result.Records, 1)
		rec := result.Records[0]
		assert.Equal(t, "ACME Lumber", rec.Record.Vendor)
		assert.Equal(t, 452.10, rec.Record.Total)
		assert.Equal(t, []receipt.LineItem{{Description: "2x4 Studs", Amount: 120}}, rec.Record.LineItems)

		require.Len(t, rec.Expenses, 1)
		assert.Equal(t, categorization.CategoryMaterials, rec.Expenses[0].Category)
		assert.Equal(t, 0.6, rec.Expenses[0].Confidence)
		assert.Nil(t, result.Impact)
		assert.Equal(t, 1, recorder.records["image"])
	})

	t.Run("csv with budget impact", func(t *testing.T) {
		svc, _ := newTestService()
		csv := "Vendor,Total\nBuildCo,\"1,250.00\"\nLumber Yard,200\n"

		result, err := svc.Ingest(ctx, receipt.Upload{Content: []byte(csv), Filename: "export.csv"}, Options{
			Budget: map[categorization.Category]plan.BudgetLine{
				categorization.CategoryMaterials: {Allocated: 1000, Spent: 900},
			},
		})
		require.NoError(t, err)

		assert.Equal(t, receipt.SourceCSV, result.Source)
		require.Len(t, result.Records, 2)
		assert.Equal(t, "BuildCo", result.Records[0].Record.Vendor)
		assert.Equal(t, 1250.0, result.Records[0].Record.Total)
		assert.Equal(t, categorization.CategoryOther, result.Records[0].Expenses[0].Category)

		require.Contains(t, result.Impact, categorization.CategoryMaterials)
		materials := result.Impact[categorization.CategoryMaterials]
		assert.Equal(t, 1100.0, materials.NewTotal)
		assert.Equal(t, -100.0, materials.Remaining)
		assert.Equal(t, 110.0, materials.PercentUsed)

		other := result.Impact[categorization.CategoryOther]
		assert.Equal(t, 1250.0, other.Added)
		assert.Equal(t, 0.0, other.PercentUsed)
	})

	t.Run("json that is not an array yields no records", func(t *testing.T) {
		svc, _ := newTestService()

		result, err := svc.Ingest(ctx, receipt.Upload{Content: []byte(`{"not": "an array"}`), Filename: "data.json"}, Options{})
		require.NoError(t, err)
		assert.NotNil(t, result.Records)
		assert.Empty(t, result.Records)
	})

	t.Run("unsupported format", func(t *testing.T) {
		svc, recorder := newTestService()

		_, err := svc.Ingest(ctx, receipt.Upload{Content: []byte("x"), Filename: "notes.txt"}, Options{})
		assert.ErrorIs(t, err, receipt.ErrUnsupportedFormat)
		assert.Equal(t, 1, recorder.failures["unsupported_format"])
	})

	t.Run("missing file is an io error", func(t *testing.T) {
		svc, recorder := newTestService()

		_, err := svc.Ingest(ctx, receipt.Upload{Path: "/definitely/not/here.csv"}, Options{})
		assert.ErrorIs(t, err, receipt.ErrIO)
		assert.Equal(t, 1, recorder.failures["io_error"])
	})

	t.Run("malformed json is a parse error", func(t *testing.T) {
		svc, _ := newTestService()

		_, err := svc.Ingest(ctx, receipt.Upload{Content: []byte(`[{"vendor":`), Filename: "broken.json"}, Options{})
		assert.ErrorIs(t, err, receipt.ErrParse)
	})

	t.Run("ocr failure keeps its kind", func(t *testing.T) {
		svc, recorder := newTestService()

		_, err := svc.Ingest(ctx, receipt.Upload{Content: []byte("unreadable"), MIMEType: "image/jpeg"}, Options{})
		assert.ErrorIs(t, err, receipt.ErrOCRFailure)
		assert.Equal(t, 1, recorder.failures["ocr_failure"])
	})

	t.Run("same input yields identical results", func(t *testing.T) {
		svc, _ := newTestService()
		u := receipt.Upload{Content: []byte(lumberReceipt), MIMEType: "image/png"}

		first, err := svc.Ingest(ctx, u, Options{})
		require.NoError(t, err)
		second, err := svc.Ingest(ctx, u, Options{})
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}

func TestIngestService_IngestBatch(t *testing.T) {
	svc, _ := newTestService()
	svc.WithBatchConcurrency(2)

	uploads := []receipt.Upload{
		{Content: []byte("Vendor,Total\nA,1\n"), Filename: "a.csv"},
		{Content: []byte("x"), Filename: "payload.exe"},
		{Content: []byte(lumberReceipt), MIMEType: "image/png", Filename: "scan.png"},
		{Content: []byte(`[{"vendor":"B","total":2}]`), Filename: "b.json"},
	}

	items := svc.IngestBatch(context.Background(), uploads, Options{})
	require.Len(t, items, 4)

	assert.Equal(t, "a.csv", items[0].Name)
	require.NoError(t, items[0].Err)
	assert.Equal(t, receipt.SourceCSV, items[0].Result.Source)

	assert.ErrorIs(t, items[1].Err, receipt.ErrUnsupportedFormat)
	assert.Nil(t, items[1].Result)

	require.NoError(t, items[2].Err)
	assert.Equal(t, "ACME Lumber", items[2].Result.Records[0].Record.Vendor)

	require.NoError(t, items[3].Err)
	assert.Equal(t, "B", items[3].Result.Records[0].Record.Vendor)
}

func TestIngestService_IngestBatchCancelled(t *testing.T) {
	svc, _ := newTestService()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items := svc.IngestBatch(ctx, []receipt.Upload{{Content: []byte("Vendor\nA\n"), Filename: "a.csv"}}, Options{})
	require.Len(t, items, 1)
	assert.ErrorIs(t, items[0].Err, context.Canceled)
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint(receipt.SourceCSV, []byte("Vendor\nA\n"))
	assert.Equal(t, a, Fingerprint(receipt.SourceCSV, []byte("Vendor\nA\n")))
	assert.NotEqual(t, a, Fingerprint(receipt.SourceJSON, []byte("Vendor\nA\n")))
	assert.NotEqual(t, a, Fingerprint(receipt.SourceCSV, []byte("Vendor\nB\n")))
	assert.Len(t, a, 36)
}
