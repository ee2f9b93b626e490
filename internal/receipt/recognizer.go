package receipt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.5-flash"

const recognizePrompt = `Transcribe all text printed on this receipt image.
Keep the original line breaks. Output only the transcribed text, no commentary.`

var (
	// ErrRecognition means the OCR engine failed; the caller may retry.
	ErrRecognition = errors.New("receipt: text recognition failed")
	// ErrNoRecognizer means no OCR engine is configured.
	ErrNoRecognizer = errors.New("receipt: no recognizer configured")
)

// Recognizer turns a receipt image into plain text.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, mimeType string) (string, error)
}

// GeminiRecognizer runs OCR through the Gemini API.
type GeminiRecognizer struct {
	client *genai.Client
	model  string
}

// NewGeminiRecognizer creates a recognizer. An empty apiKey lets the client
// fall back to GOOGLE_API_KEY / GEMINI_API_KEY from the environment.
func NewGeminiRecognizer(ctx context.Context, apiKey, model string) (*GeminiRecognizer, error) {
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiRecognizer{client: client, model: model}, nil
}

func (g *GeminiRecognizer) Recognize(ctx context.Context, image []byte, mimeType string) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("%w: empty image", ErrRecognition)
	}
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: recognizePrompt},
				{
					InlineData: &genai.Blob{
						MIMEType: mimeType,
						Data:     image,
					},
				},
			},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRecognition, err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("%w: empty response", ErrRecognition)
	}

	slog.InfoContext(ctx, "Receipt recognized", "model", g.model, "chars", len(text))
	return text, nil
}
