// Package app wires the pipeline components from configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/FACorreiaa/receipt-intake/internal/domain/categorization"
	importhandler "github.com/FACorreiaa/receipt-intake/internal/domain/import/handler"
	"github.com/FACorreiaa/receipt-intake/internal/domain/import/normalizer"
	"github.com/FACorreiaa/receipt-intake/internal/domain/import/ocr"
	"github.com/FACorreiaa/receipt-intake/internal/domain/import/parser"
	importservice "github.com/FACorreiaa/receipt-intake/internal/domain/import/service"
	"github.com/FACorreiaa/receipt-intake/pkg/cache"
	"github.com/FACorreiaa/receipt-intake/pkg/config"
	"github.com/FACorreiaa/receipt-intake/pkg/cron"
	"github.com/FACorreiaa/receipt-intake/pkg/metrics"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	Logger *slog.Logger

	Metrics *metrics.Metrics

	// Pipeline
	OCREngine   ocr.Engine
	Extractor   *ocr.Extractor
	Vendors     *normalizer.VendorNormalizer
	Categorizer *categorization.Engine
	Dispatcher  *parser.Dispatcher

	// Services
	IngestService *importservice.IngestService
	ResultCache   *cache.Memory[*importservice.Result]
	Scheduler     *cron.Scheduler

	// Handlers
	ReceiptHandler *importhandler.ReceiptHandler
}

// InitDependencies initializes all application dependencies
func InitDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if cfg.Observability.MetricsEnabled {
		deps.Metrics = metrics.New()
	}

	if err := deps.initPipeline(ctx); err != nil {
		return nil, fmt.Errorf("failed to init pipeline: %w", err)
	}

	if err := deps.initServices(); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	if err := deps.initHandlers(); err != nil {
		return nil, fmt.Errorf("failed to init handlers: %w", err)
	}

	logger.Info("all dependencies initialized successfully")

	return deps, nil
}

// initPipeline builds the OCR engine, parsers and categorization engine
func (d *Dependencies) initPipeline(ctx context.Context) error {
	ocrCfg := d.Config.OCR
	engine, err := ocr.New(ctx, ocr.Options{
		Backend:       ocrCfg.Backend,
		Timeout:       ocrCfg.Timeout,
		TesseractPath: ocrCfg.TesseractPath,
		OllamaURL:     ocrCfg.OllamaURL,
		OllamaModel:   ocrCfg.OllamaModel,
		GeminiAPIKey:  ocrCfg.GeminiAPIKey,
		GeminiModel:   ocrCfg.GeminiModel,
	})
	if err != nil {
		return fmt.Errorf("failed to init ocr engine: %w", err)
	}
	d.OCREngine = engine

	extractorOpts := []ocr.ExtractorOption{
		ocr.WithLanguage(ocrCfg.Language),
		ocr.WithRateLimit(ocrCfg.RateLimitPerSecond, ocrCfg.RateLimitBurst),
		ocr.WithLogger(d.Logger),
	}
	if d.Metrics != nil {
		extractorOpts = append(extractorOpts, ocr.WithObserver(d.Metrics.ObserveOCR))
	}
	d.Extractor = ocr.NewExtractor(engine, extractorOpts...)

	taxonomy := categorization.DefaultTaxonomy()
	if path := d.Config.Categorization.TaxonomyPath; path != "" {
		taxonomy, err = categorization.LoadTaxonomy(path)
		if err != nil {
			return err
		}
	}
	d.Categorizer = categorization.NewEngine(taxonomy)

	imageParser := parser.NewImageParser(d.Extractor, nil)
	if known := d.Config.Normalizer.KnownVendors; len(known) > 0 {
		d.Vendors = normalizer.NewVendorNormalizer(known, d.Config.Normalizer.Threshold)
		imageParser.WithVendorNormalizer(d.Vendors)
	}

	d.Dispatcher = parser.NewDispatcher(
		parser.NewCSVParser(),
		parser.NewExcelParser(),
		parser.NewJSONParser(),
		imageParser,
	)
	if blocked := d.Config.Ingest.BlockedExtensions; len(blocked) > 0 {
		d.Dispatcher.WithBlockedExtensions(blocked)
	}

	d.Logger.Info("pipeline initialized",
		slog.String("ocr_backend", ocrCfg.Backend),
		slog.Int("keywords", d.Categorizer.PatternCount()),
		slog.Int("known_vendors", len(d.Config.Normalizer.KnownVendors)),
	)
	return nil
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices() error {
	d.IngestService = importservice.NewIngestService(d.Dispatcher, newCategorizationAdapter(d.Categorizer, d.Metrics), d.Logger).
		WithBatchConcurrency(d.Config.Ingest.BatchConcurrency)
	if d.Metrics != nil {
		d.IngestService.WithRecorder(d.Metrics)
	}

	var cacheOpts []cache.Option
	if d.Metrics != nil {
		cacheOpts = append(cacheOpts, cache.WithHitHook(func(string) { d.Metrics.CacheHit() }))
	}
	d.ResultCache = cache.NewMemory[*importservice.Result](cache.TTL(d.Config.Cache.TTL), cacheOpts...)
	d.Scheduler = cron.NewScheduler(d.ResultCache, d.Config.Cache.SweepSpec, d.Logger)

	d.Logger.Info("services initialized")
	return nil
}

// initHandlers initializes all handler dependencies
func (d *Dependencies) initHandlers() error {
	d.ReceiptHandler = importhandler.NewReceiptHandler(d.IngestService, d.Logger).
		WithCache(d.ResultCache).
		WithMaxUploadBytes(d.Config.Server.MaxUploadBytes)

	d.Logger.Info("handlers initialized")
	return nil
}

// Cleanup stops background jobs
func (d *Dependencies) Cleanup() {
	if d.Scheduler != nil {
		<-d.Scheduler.Stop().Done()
	}
	d.Logger.Info("cleanup completed")
}
