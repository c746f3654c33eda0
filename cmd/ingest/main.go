package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/FACorreiaa/receipt-intake/internal/app"
	importhandler "github.com/FACorreiaa/receipt-intake/internal/domain/import/handler"
	importservice "github.com/FACorreiaa/receipt-intake/internal/domain/import/service"
	"github.com/FACorreiaa/receipt-intake/internal/domain/plan"
	"github.com/FACorreiaa/receipt-intake/internal/domain/receipt"
	"github.com/FACorreiaa/receipt-intake/pkg/config"
)

// errFailedUploads makes the process exit non-zero after printing every result.
var errFailedUploads = errors.New("one or more uploads failed")

// imageTypes covers extensions the mime package does not know on every platform.
var imageTypes = map[string]string{
	".heic": "image/heic",
	".heif": "image/heif",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errFailedUploads) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

// output is one line of the CLI result stream.
type output struct {
	File   string                        `json:"file"`
	Result *importhandler.UploadResponse `json:"result,omitempty"`
	Error  string                        `json:"error,omitempty"`
	Kind   string                        `json:"kind,omitempty"`
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg := config.FromEnv()

	fs := ff.NewFlagSet("ingest")
	var (
		ocrBackend  = fs.StringLong("ocr-backend", cfg.OCR.Backend, "OCR backend: tesseract, ollama or gemini")
		ocrLanguage = fs.StringLong("ocr-language", cfg.OCR.Language, "OCR language hint")
		ollamaURL   = fs.StringLong("ollama-url", cfg.OCR.OllamaURL, "Ollama API base URL")
		ollamaModel = fs.StringLong("ollama-model", cfg.OCR.OllamaModel, "Ollama vision model")
		geminiKey   = fs.StringLong("gemini-api-key", cfg.OCR.GeminiAPIKey, "Google Gemini API key")
		geminiModel = fs.StringLong("gemini-model", cfg.OCR.GeminiModel, "Google Gemini model name")
		taxonomy    = fs.StringLong("taxonomy-path", cfg.Categorization.TaxonomyPath, "YAML keyword table (default: built-in)")
		vendors     = fs.StringLong("known-vendors", strings.Join(cfg.Normalizer.KnownVendors, ","), "Comma separated canonical vendor names")
		concurrency = fs.IntLong("batch-concurrency", cfg.Ingest.BatchConcurrency, "Files processed in parallel")
		budgetPath  = fs.StringLong("budget", "", "JSON file with {category: {allocated, spent}} to compute budget impact")
		currency    = fs.StringLong("currency", "USD", "Currency for display totals")
		verbose     = fs.BoolLong("verbose", "Log pipeline progress to stderr")
	)

	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix("RECEIPTS")); err != nil {
		fmt.Fprintf(stderr, "%s\n", ffhelp.Flags(fs))
		return err
	}

	files := fs.GetArgs()
	if len(files) == 0 {
		fmt.Fprintf(stderr, "%s\n", ffhelp.Flags(fs))
		return errors.New("no input files")
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	cfg.OCR.Backend = *ocrBackend
	cfg.OCR.Language = *ocrLanguage
	cfg.OCR.OllamaURL = *ollamaURL
	cfg.OCR.OllamaModel = *ollamaModel
	cfg.OCR.GeminiAPIKey = *geminiKey
	cfg.OCR.GeminiModel = *geminiModel
	cfg.Categorization.TaxonomyPath = *taxonomy
	cfg.Normalizer.KnownVendors = splitList(*vendors)
	cfg.Ingest.BatchConcurrency = *concurrency
	cfg.Observability.MetricsEnabled = false
	if err := cfg.Validate(); err != nil {
		return err
	}

	opts, err := loadBudget(*budgetPath)
	if err != nil {
		return err
	}

	deps, err := app.InitDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Cleanup()

	uploads := make([]receipt.Upload, 0, len(files))
	for _, f := range files {
		uploads = append(uploads, uploadFor(f))
	}

	failed := false
	enc := json.NewEncoder(stdout)
	for _, item := range deps.IngestService.IngestBatch(ctx, uploads, opts) {
		out := output{File: item.Name}
		if item.Err != nil {
			failed = true
			kind, _ := receipt.KindOf(item.Err)
			out.Error = item.Err.Error()
			out.Kind = string(kind)
			logger.Error("failed to ingest file",
				slog.String("file", item.Name),
				slog.String("kind", string(kind)),
				slog.Any("error", item.Err),
			)
		} else {
			resp := importhandler.NewUploadResponse(item.Result, *currency)
			out.Result = &resp
		}
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}

	if failed {
		return errFailedUploads
	}
	return nil
}

// uploadFor builds an upload for a local file, declaring an image MIME type
// from the extension so the dispatcher routes it to OCR.
func uploadFor(path string) receipt.Upload {
	ext := strings.ToLower(filepath.Ext(path))
	mimeType, ok := imageTypes[ext]
	if !ok {
		mimeType = mime.TypeByExtension(ext)
	}
	return receipt.Upload{Path: path, MIMEType: mimeType}
}

func loadBudget(path string) (importservice.Options, error) {
	if path == "" {
		return importservice.Options{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return importservice.Options{}, fmt.Errorf("failed to read budget: %w", err)
	}

	budget, err := plan.ParseBudget(data)
	if err != nil {
		return importservice.Options{}, fmt.Errorf("failed to load budget %s: %w", path, err)
	}
	return importservice.Options{Budget: budget}, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
