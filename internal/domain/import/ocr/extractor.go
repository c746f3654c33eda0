package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/FACorreiaa/receipt-intake/internal/domain/receipt"
)

var tracer = otel.Tracer("github.com/FACorreiaa/receipt-intake/internal/domain/import/ocr")

// Extractor hands receipt images to an Engine and returns the raw text.
// It never retries; a failed recognition is reported once as an OCR failure.
type Extractor struct {
	engine   Engine
	lang     string
	limiter  *rate.Limiter
	logger   *slog.Logger
	observer func(time.Duration, error)
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithLanguage sets the language hint passed to the engine (default "eng").
func WithLanguage(lang string) ExtractorOption {
	return func(x *Extractor) {
		if lang != "" {
			x.lang = lang
		}
	}
}

// WithRateLimit throttles engine calls. A non-positive rate disables throttling.
func WithRateLimit(perSecond float64, burst int) ExtractorOption {
	return func(x *Extractor) {
		if perSecond <= 0 {
			x.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		x.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ExtractorOption {
	return func(x *Extractor) {
		if logger != nil {
			x.logger = logger
		}
	}
}

// WithObserver registers a callback invoked after every engine call.
func WithObserver(fn func(elapsed time.Duration, err error)) ExtractorOption {
	return func(x *Extractor) {
		x.observer = fn
	}
}

// NewExtractor creates an extractor around engine.
func NewExtractor(engine Engine, opts ...ExtractorOption) *Extractor {
	x := &Extractor{
		engine: engine,
		lang:   "eng",
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Language returns the configured language hint.
func (x *Extractor) Language() string {
	return x.lang
}

// ExtractText reads the image, normalizes its encoding and runs recognition.
// Unreadable uploads are IO errors; everything that goes wrong after the
// bytes are in hand is an OCR failure.
func (x *Extractor) ExtractText(ctx context.Context, u receipt.Upload, progress ProgressFunc) (string, error) {
	data, err := u.ReadAll()
	if err != nil {
		return "", err
	}

	ctx, span := tracer.Start(ctx, "ocr.recognize", trace.WithAttributes(
		attribute.String("ocr.filename", u.Name()),
		attribute.String("ocr.mime_type", u.MIMEType),
		attribute.String("ocr.language", x.lang),
		attribute.Int("ocr.bytes", len(data)),
	))
	defer span.End()

	text, err := x.recognize(ctx, data, u.MIMEType, progress)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ocr failed")
		x.logger.Warn("ocr failed",
			slog.String("filename", u.Name()),
			slog.Any("error", err),
		)
		return "", receipt.OCRFailure("recognize "+u.Name(), err)
	}

	span.SetAttributes(attribute.Int("ocr.text_length", len(text)))
	return text, nil
}

func (x *Extractor) recognize(ctx context.Context, data []byte, mimeType string, progress ProgressFunc) (string, error) {
	if x.engine == nil {
		return "", errors.New("no ocr engine configured")
	}
	if len(data) == 0 {
		return "", errors.New("empty image")
	}

	image, mimeType, err := normalizeImage(data, mimeType)
	if err != nil {
		return "", err
	}

	if x.limiter != nil {
		if err := x.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("failed to wait for ocr slot: %w", err)
		}
	}

	start := time.Now()
	text, err := x.engine.Recognize(ctx, image, mimeType, x.lang, progress)
	elapsed := time.Since(start)
	if x.observer != nil {
		x.observer(elapsed, err)
	}
	if err != nil {
		return "", err
	}

	x.logger.Debug("ocr completed",
		slog.Duration("elapsed", elapsed),
		slog.Int("chars", len(text)),
	)
	return text, nil
}
