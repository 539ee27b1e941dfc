package tarot

import (
	"context"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
)

var (
	_ TextGenerator = &ChatGPTReader{}
	_ TextGenerator = &DumbGPTReader{}
)

const (
	DefaultTemperature = 0.7
	DefaultChatModel   = "llama-3.1-70b-versatile"
	DefaultChatBaseURL = "https://api.groq.com/openai/v1"
)

// TextGenerator turns a rendered prompt into generated text.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type ChatConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	HTTPClient  *http.Client
}

// ChatGPTReader talks to any OpenAI-compatible chat completion endpoint.
type ChatGPTReader struct {
	chatGPTCli  *openai.Client
	model       string
	temperature float32
}

func NewChatGPTReader(cfg ChatConfig) *ChatGPTReader {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}
	if cfg.Model == "" {
		cfg.Model = DefaultChatModel
	}
	// go-openai drops a zero temperature from the request (omitempty), so
	// zero means unset here and config rejects it.
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}

	return &ChatGPTReader{
		chatGPTCli:  openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}
}

func (r *ChatGPTReader) Generate(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       r.model,
		N:           1,
		Temperature: r.temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	}

	resp, err := r.chatGPTCli.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classify(errors.WithMessage(err, "chat completion"))
	}
	if len(resp.Choices) == 0 {
		return "", newGenerationError(KindMalformed, errors.New("chat completion returned no choices"))
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", newGenerationError(KindMalformed, errors.New("chat completion returned empty content"))
	}

	return content, nil
}

// DumbGPTReader never calls out. It answers with a fixed description or
// reading depending on which prompt it is given.
type DumbGPTReader struct{}

func (r *DumbGPTReader) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", classify(err)
	}
	if strings.HasPrefix(prompt, descriptionLead) {
		return `A silver wolf howls beneath a deep blue sky of rising stars, lanterns of dawn light opening around it; at the bottom of the card the word "Valiente" ` + StyleSuffix, nil
	}

	return `🔮 **La Estrella del Lobo Azul** ✨

Hoy el Tarot Espacial te muestra un lobo plateado que aúlla bajo un cielo que amanece. 🌙 Aunque el camino se sienta pesado, esta carta anuncia que la luz ya está en marcha hacia ti: confía en tu instinto y en tu fuerza, porque lo que viene es brillante. ⭐`, nil
}
