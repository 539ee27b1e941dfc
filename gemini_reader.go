package tarot

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"google.golang.org/genai"
)

var _ TextGenerator = &GeminiReader{}

const DefaultGeminiModel = "gemini-2.0-flash"

// contentGenerator is the slice of *genai.Models the reader needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiReader generates text with Google's Gemini API.
type GeminiReader struct {
	models      contentGenerator
	model       string
	temperature float32
}

func NewGeminiReader(ctx context.Context, apiKey, model string, temperature float32) (*GeminiReader, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is empty")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create gemini client")
	}

	return newGeminiReader(client.Models, model, temperature), nil
}

func newGeminiReader(models contentGenerator, model string, temperature float32) *GeminiReader {
	if model == "" {
		model = DefaultGeminiModel
	}
	// Zero means unset, as for the chat reader.
	if temperature == 0 {
		temperature = DefaultTemperature
	}

	return &GeminiReader{models: models, model: model, temperature: temperature}
}

func (r *GeminiReader) Generate(ctx context.Context, prompt string) (string, error) {
	temperature := r.temperature
	resp, err := r.models.GenerateContent(ctx, r.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: &temperature,
	})
	if err != nil {
		return "", classify(errors.WithMessage(err, "gemini generate content"))
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", newGenerationError(KindMalformed, errors.New("gemini returned no candidates"))
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", newGenerationError(KindMalformed, errors.New("gemini returned empty text"))
	}

	return text, nil
}
