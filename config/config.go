// Package config loads the service configuration from an optional file,
// a .env file and TAROT_* environment variables.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/maimai/spacetarot"
)

const envPrefix = "TAROT"

type Config struct {
	Server     ServerConfig     `mapstructure:"server" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database" validate:"required"`
	LLM        LLMConfig        `mapstructure:"llm" validate:"required"`
	Image      ImageConfig      `mapstructure:"image" validate:"required"`
	Download   DownloadConfig   `mapstructure:"download" validate:"required"`
	Generation GenerationConfig `mapstructure:"generation"`
}

type ServerConfig struct {
	Addr      string `mapstructure:"addr" validate:"required"`
	LogLevel  string `mapstructure:"log_level" validate:"required,oneof=trace debug info warn error"`
	LogFormat string `mapstructure:"log_format" validate:"required,oneof=text json"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// LLMConfig selects and configures the text generation provider.
type LLMConfig struct {
	Provider    string  `mapstructure:"provider" validate:"required,oneof=openai gemini dumb"`
	Model       string  `mapstructure:"model"`
	APIKey      string  `mapstructure:"api_key" validate:"required_unless=Provider dumb"`
	BaseURL     string  `mapstructure:"base_url" validate:"omitempty,url"`
	Temperature float32 `mapstructure:"temperature" validate:"gt=0,lte=2"`
}

// ImageConfig configures the image model. An empty Token with provider dumb
// keeps the service offline.
type ImageConfig struct {
	Provider      string `mapstructure:"provider" validate:"required,oneof=replicate dumb"`
	Token         string `mapstructure:"token" validate:"required_unless=Provider dumb"`
	Model         string `mapstructure:"model" validate:"required"`
	BaseURL       string `mapstructure:"base_url" validate:"omitempty,url"`
	AspectRatio   string `mapstructure:"aspect_ratio" validate:"required"`
	OutputQuality int    `mapstructure:"output_quality" validate:"gt=0,lte=100"`
	OutputFormat  string `mapstructure:"output_format" validate:"required,oneof=png jpg webp"`
}

type DownloadConfig struct {
	Path     string        `mapstructure:"path" validate:"required"`
	CacheTTL time.Duration `mapstructure:"cache_ttl" validate:"gt=0"`
}

type GenerationConfig struct {
	Timeout     time.Duration `mapstructure:"timeout" validate:"gte=0"`
	MinInterval time.Duration `mapstructure:"min_interval" validate:"gte=0"`
}

func setDefaults(v *viper.Viper) {
	def := tarot.DefaultImageOptions()

	v.SetDefault("server.addr", ":8501")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "text")
	v.SetDefault("database.path", "data/user_data.db")
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", tarot.DefaultChatModel)
	v.SetDefault("llm.base_url", tarot.DefaultChatBaseURL)
	v.SetDefault("llm.temperature", tarot.DefaultTemperature)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("image.provider", "replicate")
	v.SetDefault("image.token", "")
	v.SetDefault("image.model", tarot.DefaultImageModel)
	v.SetDefault("image.base_url", "")
	v.SetDefault("image.aspect_ratio", def.AspectRatio)
	v.SetDefault("image.output_quality", def.OutputQuality)
	v.SetDefault("image.output_format", def.OutputFormat)
	v.SetDefault("download.path", "data/tarot_card.png")
	v.SetDefault("download.cache_ttl", 30*time.Minute)
	v.SetDefault("generation.timeout", 2*time.Minute)
	v.SetDefault("generation.min_interval", time.Duration(0))
}

// Load reads configuration. path may be empty, in which case only defaults
// and the environment are used. A missing .env file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug(".env file not found, using system environment variables")
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Provider-native LLM keys are resolved after unmarshal, once the
	// provider is known.
	_ = v.BindEnv("llm.api_key", envPrefix+"_LLM_API_KEY")
	_ = v.BindEnv("image.token", envPrefix+"_IMAGE_TOKEN", "REPLICATE_API_TOKEN")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = providerKey(cfg.LLM.Provider)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// providerKeyEnv lists the variables each provider's own SDK reads, in
// order of preference.
var providerKeyEnv = map[string][]string{
	"openai": {"GROQ_API_KEY", "OPENAI_API_KEY"},
	"gemini": {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
}

func providerKey(provider string) string {
	for _, name := range providerKeyEnv[provider] {
		if key := os.Getenv(name); key != "" {
			return key
		}
	}

	return ""
}

func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return errors.Wrap(err, "invalid config")
	}

	return nil
}

// Logger builds the process logger from the server section.
func (c *Config) Logger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.Server.LogLevel)
	if err != nil {
		return nil, errors.Wrap(err, "invalid log level")
	}

	logger := logrus.New()
	logger.SetLevel(level)
	if c.Server.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logger, nil
}

func (c *Config) ImageOptions() tarot.ImageOptions {
	return tarot.ImageOptions{
		AspectRatio:   c.Image.AspectRatio,
		OutputQuality: c.Image.OutputQuality,
		OutputFormat:  c.Image.OutputFormat,
	}
}
