package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// TesseractEngine runs the tesseract CLI, feeding the image on stdin and
// reading text from stdout.
type TesseractEngine struct {
	path string
}

// NewTesseractEngine creates an engine for the given binary ("tesseract" when empty).
func NewTesseractEngine(path string) *TesseractEngine {
	if path == "" {
		path = "tesseract"
	}
	return &TesseractEngine{path: path}
}

// Recognize implements Engine.
func (e *TesseractEngine) Recognize(ctx context.Context, image []byte, _ string, lang string, progress ProgressFunc) (string, error) {
	if lang == "" {
		lang = "eng"
	}

	progress.report("loading tesseract", 0)

	cmd := exec.CommandContext(ctx, e.path, "stdin", "stdout", "-l", lang)
	cmd.Stdin = bytes.NewReader(image)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	progress.report("recognizing text", 0.5)
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("tesseract failed: %w: %s", err, msg)
		}
		return "", fmt.Errorf("tesseract failed: %w", err)
	}

	progress.report("done", 1)
	return stdout.String(), nil
}
