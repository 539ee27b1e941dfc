package config

import (
	"context"
	"net/http"

	"github.com/pkg/errors"

	"github.com/maimai/spacetarot"
)

// TextGenerator builds the client for the configured LLM provider. The same
// client writes both the card description and the reading.
func (c *Config) TextGenerator(ctx context.Context, httpClient *http.Client) (tarot.TextGenerator, error) {
	switch c.LLM.Provider {
	case "openai":
		return tarot.NewChatGPTReader(tarot.ChatConfig{
			APIKey:      c.LLM.APIKey,
			BaseURL:     c.LLM.BaseURL,
			Model:       c.LLM.Model,
			Temperature: c.LLM.Temperature,
			HTTPClient:  httpClient,
		}), nil
	case "gemini":
		model := c.LLM.Model
		if model == tarot.DefaultChatModel {
			model = tarot.DefaultGeminiModel
		}
		return tarot.NewGeminiReader(ctx, c.LLM.APIKey, model, c.LLM.Temperature)
	case "dumb":
		return &tarot.DumbGPTReader{}, nil
	}

	return nil, errors.Errorf("unknown llm provider %q", c.LLM.Provider)
}

// Painter builds the client for the configured image provider.
func (c *Config) Painter() (tarot.Painter, error) {
	switch c.Image.Provider {
	case "replicate":
		return tarot.NewReplicatePainter(c.Image.Token, c.Image.BaseURL, c.Image.Model, c.ImageOptions())
	case "dumb":
		return &tarot.DumbPainter{}, nil
	}

	return nil, errors.Errorf("unknown image provider %q", c.Image.Provider)
}

// Pipeline wires the configured providers into a generation pipeline.
func (c *Config) Pipeline(ctx context.Context, httpClient *http.Client, opts ...tarot.PipelineOption) (*tarot.Pipeline, error) {
	text, err := c.TextGenerator(ctx, httpClient)
	if err != nil {
		return nil, err
	}
	painter, err := c.Painter()
	if err != nil {
		return nil, err
	}

	opts = append([]tarot.PipelineOption{
		tarot.WithTimeout(c.Generation.Timeout),
		tarot.WithRateLimit(c.Generation.MinInterval),
	}, opts...)

	return tarot.NewPipeline(text, text, painter, opts...), nil
}
