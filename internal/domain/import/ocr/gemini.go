package ocr

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiEngine transcribes receipts with a Gemini multimodal model.
type GeminiEngine struct {
	client *genai.Client
	model  string
}

// NewGeminiEngine creates a Gemini-backed engine.
func NewGeminiEngine(ctx context.Context, apiKey, model string) (*GeminiEngine, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiEngine{client: client, model: model}, nil
}

// Recognize implements Engine.
func (e *GeminiEngine) Recognize(ctx context.Context, image []byte, mimeType, lang string, progress ProgressFunc) (string, error) {
	if mimeType == "" {
		mimeType = "image/png"
	}

	prompt := transcribePrompt
	if lang != "" {
		prompt += "\nThe receipt language code is " + lang + "."
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: prompt},
				{InlineData: &genai.Blob{MIMEType: mimeType, Data: image}},
			},
		},
	}

	progress.report("recognizing text", 0.5)
	resp, err := e.client.Models.GenerateContent(ctx, e.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	progress.report("done", 1)
	return cleanModelText(resp.Text()), nil
}
