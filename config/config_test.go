package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maimai/spacetarot"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "groq-key")
	t.Setenv("REPLICATE_API_TOKEN", "r8-token")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8501", cfg.Server.Addr)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "groq-key", cfg.LLM.APIKey)
	assert.Equal(t, tarot.DefaultChatModel, cfg.LLM.Model)
	assert.Equal(t, tarot.DefaultChatBaseURL, cfg.LLM.BaseURL)
	assert.InDelta(t, 0.7, cfg.LLM.Temperature, 1e-6)
	assert.Equal(t, "r8-token", cfg.Image.Token)
	assert.Equal(t, tarot.DefaultImageModel, cfg.Image.Model)
	assert.Equal(t, tarot.DefaultImageOptions(), cfg.ImageOptions())
	assert.Equal(t, "data/user_data.db", cfg.Database.Path)
	assert.Equal(t, "data/tarot_card.png", cfg.Download.Path)
	assert.Equal(t, 2*time.Minute, cfg.Generation.Timeout)
	assert.Zero(t, cfg.Generation.MinInterval)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TAROT_LLM_PROVIDER", "gemini")
	t.Setenv("TAROT_LLM_API_KEY", "gemini-key")
	t.Setenv("TAROT_IMAGE_PROVIDER", "dumb")
	t.Setenv("TAROT_GENERATION_TIMEOUT", "45s")
	t.Setenv("TAROT_SERVER_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "gemini-key", cfg.LLM.APIKey)
	assert.Equal(t, "dumb", cfg.Image.Provider)
	assert.Equal(t, 45*time.Second, cfg.Generation.Timeout)

	logger, err := cfg.Logger()
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
}

func TestLoad_ProviderNativeKey(t *testing.T) {
	t.Setenv("TAROT_IMAGE_PROVIDER", "dumb")
	t.Setenv("TAROT_LLM_API_KEY", "")
	t.Setenv("GROQ_API_KEY", "groq-key")
	t.Setenv("GEMINI_API_KEY", "gemini-key")

	t.Setenv("TAROT_LLM_PROVIDER", "gemini")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "gemini-key", cfg.LLM.APIKey)

	t.Setenv("TAROT_LLM_PROVIDER", "openai")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "groq-key", cfg.LLM.APIKey)

	t.Setenv("TAROT_LLM_API_KEY", "explicit")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "explicit", cfg.LLM.APIKey)
}

func TestLoad_GeminiIgnoresGroqKey(t *testing.T) {
	t.Setenv("TAROT_IMAGE_PROVIDER", "dumb")
	t.Setenv("TAROT_LLM_API_KEY", "")
	t.Setenv("TAROT_LLM_PROVIDER", "gemini")
	t.Setenv("GROQ_API_KEY", "groq-key")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tarot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9000"
  log_format: json
llm:
  provider: dumb
image:
  provider: dumb
  output_quality: 95
download:
  path: /tmp/card.png
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 95, cfg.Image.OutputQuality)
	assert.Equal(t, "/tmp/card.png", cfg.Download.Path)

	logger, err := cfg.Logger()
	require.NoError(t, err)
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)
}

func TestLoad_MissingCredentials(t *testing.T) {
	t.Setenv("TAROT_LLM_API_KEY", "")
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestLoad_ZeroTemperature(t *testing.T) {
	t.Setenv("TAROT_LLM_PROVIDER", "dumb")
	t.Setenv("TAROT_IMAGE_PROVIDER", "dumb")
	t.Setenv("TAROT_LLM_TEMPERATURE", "0")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Temperature")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	t.Setenv("TAROT_LLM_PROVIDER", "dumb")
	t.Setenv("TAROT_IMAGE_PROVIDER", "dumb")

	cfg, err := Load("")
	require.NoError(t, err)

	bad := *cfg
	bad.Image.OutputQuality = 0
	assert.Error(t, Validate(&bad))

	bad = *cfg
	bad.Server.LogLevel = "loud"
	assert.Error(t, Validate(&bad))

	bad = *cfg
	bad.LLM.Temperature = 0
	assert.Error(t, Validate(&bad))

	bad = *cfg
	bad.LLM.Provider = "llama.cpp"
	assert.Error(t, Validate(&bad))
}
