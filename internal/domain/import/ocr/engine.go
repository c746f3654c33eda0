// Package ocr obtains raw text from receipt images through an external OCR
// engine. The engine is a black box: image in, recognized text out.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Progress is reported by engines while recognition runs.
type Progress struct {
	Status   string  `json:"status"`
	Progress float64 `json:"progress"` // 0..1
}

// ProgressFunc receives progress updates. It may be nil.
type ProgressFunc func(Progress)

func (f ProgressFunc) report(status string, progress float64) {
	if f != nil {
		f(Progress{Status: status, Progress: progress})
	}
}

// Engine recognizes text in an image.
type Engine interface {
	Recognize(ctx context.Context, image []byte, mimeType, lang string, progress ProgressFunc) (string, error)
}

// EngineFunc adapts a function to the Engine interface.
type EngineFunc func(ctx context.Context, image []byte, mimeType, lang string, progress ProgressFunc) (string, error)

func (f EngineFunc) Recognize(ctx context.Context, image []byte, mimeType, lang string, progress ProgressFunc) (string, error) {
	return f(ctx, image, mimeType, lang, progress)
}

// Backend names accepted by New.
const (
	BackendTesseract = "tesseract"
	BackendOllama    = "ollama"
	BackendGemini    = "gemini"
)

// ErrUnknownBackend is returned by New for an unrecognized backend name.
var ErrUnknownBackend = errors.New("unknown ocr backend")

// Options configures engine construction.
type Options struct {
	Backend       string
	Timeout       time.Duration
	TesseractPath string
	OllamaURL     string
	OllamaModel   string
	GeminiAPIKey  string
	GeminiModel   string
}

// New builds the engine selected by opts.Backend.
func New(ctx context.Context, opts Options) (Engine, error) {
	switch strings.ToLower(opts.Backend) {
	case "", BackendTesseract:
		return NewTesseractEngine(opts.TesseractPath), nil
	case BackendOllama:
		return NewOllamaEngine(opts.OllamaURL, opts.OllamaModel, opts.Timeout), nil
	case BackendGemini:
		return NewGeminiEngine(ctx, opts.GeminiAPIKey, opts.GeminiModel)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}

// transcribePrompt is shared by the model-backed engines.
const transcribePrompt = `Transcribe every piece of text in this receipt image exactly as printed.
Keep the original line breaks and the original order from top to bottom.
Keep amounts exactly as shown, including decimal points and thousands separators.
Do not summarize, translate, correct or add anything.
Return plain text only, with no markdown and no commentary.`

// cleanModelText removes code fences a model may wrap its answer in.
func cleanModelText(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
