// Package service runs an upload through parsing, categorization and the
// optional budget impact calculation.
package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/receipt-intake/internal/domain/categorization"
	"github.com/FACorreiaa/receipt-intake/internal/domain/import/parser"
	"github.com/FACorreiaa/receipt-intake/internal/domain/plan"
	"github.com/FACorreiaa/receipt-intake/internal/domain/receipt"
)

var tracer = otel.Tracer("github.com/FACorreiaa/receipt-intake/internal/domain/import/service")

// fingerprintNamespace scopes upload fingerprints so they never collide with other SHA1 UUIDs.
var fingerprintNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/FACorreiaa/receipt-intake/fingerprint"))

// DefaultBatchConcurrency bounds IngestBatch when no limit is set.
const DefaultBatchConcurrency = 4

// Resolver picks the parser for an upload.
type Resolver interface {
	Resolve(u receipt.Upload) (parser.Parser, receipt.Source, error)
}

// Categorizer assigns expenses to a record.
type Categorizer interface {
	Categorize(r receipt.Record) []categorization.Expense
}

// Recorder receives pipeline counters. Optional.
type Recorder interface {
	RecordsProduced(source string, n int)
	Failure(kind string)
}

// Options tunes a single ingestion.
type Options struct {
	// Budget enables the impact calculation when non-nil.
	Budget map[categorization.Category]plan.BudgetLine
}

// Analysis pairs a record with its categorized expenses.
type Analysis struct {
	Record   receipt.Record           `json:"record"`
	Expenses []categorization.Expense `json:"expenses"`
}

// Result is the outcome of ingesting one upload.
type Result struct {
	Fingerprint string                                  `json:"fingerprint"`
	Source      receipt.Source                          `json:"source"`
	Records     []Analysis                              `json:"records"`
	Impact      map[categorization.Category]plan.Impact `json:"impact,omitempty"`
}

// Expenses flattens the expenses of every record.
func (r *Result) Expenses() []categorization.Expense {
	var out []categorization.Expense
	for _, a := range r.Records {
		out = append(out, a.Expenses...)
	}
	return out
}

// BatchItem is one upload's outcome within IngestBatch.
type BatchItem struct {
	Name   string
	Result *Result
	Err    error
}

// IngestService orchestrates the pipeline for one or many uploads
type IngestService struct {
	resolver    Resolver
	categorizer Categorizer
	recorder    Recorder
	concurrency int
	logger      *slog.Logger
}

// NewIngestService creates a new ingest service
func NewIngestService(resolver Resolver, categorizer Categorizer, logger *slog.Logger) *IngestService {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestService{
		resolver:    resolver,
		categorizer: categorizer,
		concurrency: DefaultBatchConcurrency,
		logger:      logger,
	}
}

// WithRecorder adds metrics recording to the service
func (s *IngestService) WithRecorder(r Recorder) *IngestService {
	s.recorder = r
	return s
}

// WithBatchConcurrency bounds how many uploads IngestBatch processes at once
func (s *IngestService) WithBatchConcurrency(n int) *IngestService {
	if n > 0 {
		s.concurrency = n
	}
	return s
}

// Ingest parses u, categorizes every record and, when a budget is given,
// computes the budget impact of all expenses together.
func (s *IngestService) Ingest(ctx context.Context, u receipt.Upload, opts Options) (*Result, error) {
	ctx, span := tracer.Start(ctx, "ingest", trace.WithAttributes(
		attribute.String("upload.name", u.Name()),
		attribute.String("upload.mime_type", u.MIMEType),
	))
	defer span.End()

	result, err := s.ingest(ctx, u, opts)
	if err != nil {
		kind, _ := receipt.KindOf(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(kind))
		if s.recorder != nil {
			s.recorder.Failure(string(kind))
		}
		s.logger.Warn("ingest failed",
			slog.String("upload", u.Name()),
			slog.String("kind", string(kind)),
			slog.Any("error", err),
		)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("ingest.source", string(result.Source)),
		attribute.Int("ingest.records", len(result.Records)),
	)
	if s.recorder != nil {
		s.recorder.RecordsProduced(string(result.Source), len(result.Records))
	}
	s.logger.Info("upload ingested",
		slog.String("upload", u.Name()),
		slog.String("source", string(result.Source)),
		slog.Int("records", len(result.Records)),
		slog.String("fingerprint", result.Fingerprint),
	)
	return result, nil
}

func (s *IngestService) ingest(ctx context.Context, u receipt.Upload, opts Options) (*Result, error) {
	p, source, err := s.resolver.Resolve(u)
	if err != nil {
		return nil, err
	}

	data, err := u.ReadAll()
	if err != nil {
		return nil, err
	}
	u.Content = data

	records, err := s.parse(ctx, p, source, u)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Fingerprint: Fingerprint(source, data),
		Source:      source,
		Records:     make([]Analysis, 0, len(records)),
	}
	for _, r := range records {
		result.Records = append(result.Records, Analysis{
			Record:   r,
			Expenses: s.categorizer.Categorize(r),
		})
	}

	if opts.Budget != nil {
		result.Impact = plan.CalculateImpact(result.Expenses(), opts.Budget)
	}
	return result, nil
}

func (s *IngestService) parse(ctx context.Context, p parser.Parser, source receipt.Source, u receipt.Upload) ([]receipt.Record, error) {
	ctx, span := tracer.Start(ctx, "parse", trace.WithAttributes(
		attribute.String("parse.source", string(source)),
	))
	defer span.End()

	records, err := p.Parse(ctx, u)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse failed")
		return nil, err
	}
	return records, nil
}

// IngestBatch ingests uploads concurrently. Each upload gets its own result or
// error; one failure never cancels the others. Output order matches input.
func (s *IngestService) IngestBatch(ctx context.Context, uploads []receipt.Upload, opts Options) []BatchItem {
	items := make([]BatchItem, len(uploads))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, u := range uploads {
		g.Go(func() error {
			items[i].Name = u.Name()
			if err := ctx.Err(); err != nil {
				items[i].Err = err
				return nil
			}
			items[i].Result, items[i].Err = s.Ingest(ctx, u, opts)
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Debug("batch ingested", slog.Int("uploads", len(uploads)))
	return items
}

// Fingerprint identifies upload content for a given source. Identical bytes
// always produce the same fingerprint.
func Fingerprint(source receipt.Source, data []byte) string {
	key := make([]byte, 0, len(source)+1+len(data))
	key = append(key, string(source)...)
	key = append(key, ':')
	key = append(key, data...)
	return uuid.NewSHA1(fingerprintNamespace, key).String()
}
