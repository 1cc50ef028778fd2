package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment variables overriding config keys, e.g.
// VIBECTX_SUMMARIZER_URL for summarizer.url.
const EnvPrefix = "VIBECTX"

// Retrieval defaults.
const (
	DefaultEmbeddingModel = "text-embedding-nomic-embed-text-v1.5"
	DefaultTopK           = 5
	MaxTopK               = 20
	DefaultChunkSize      = 500
	DefaultChunkOverlap   = 80
)

// SummarizerConfig configures the summarization endpoint.
type SummarizerConfig struct {
	URL         string        `mapstructure:"url" yaml:"url"`
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKey      string        `mapstructure:"api_key" yaml:"api_key"`
	Temperature float32       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Cache       bool          `mapstructure:"cache" yaml:"cache"`
}

// ChatConfig configures the conversational model used by the chat command.
type ChatConfig struct {
	Model string `mapstructure:"model" yaml:"model"`
}

// RetrievalConfig configures the optional past-session index.
type RetrievalConfig struct {
	DBPath         string `mapstructure:"db_path" yaml:"db_path"`
	EmbeddingModel string `mapstructure:"embedding_model" yaml:"embedding_model"`
	TopK           int    `mapstructure:"top_k" yaml:"top_k"`
	ChunkSize      int    `mapstructure:"chunk_size" yaml:"chunk_size"`
	ChunkOverlap   int    `mapstructure:"chunk_overlap" yaml:"chunk_overlap"`
}

// Config is the resolved configuration.
type Config struct {
	HistoryDir     string           `mapstructure:"history_dir" yaml:"history_dir"`
	KeepRawTurns   int              `mapstructure:"keep_raw_turns" yaml:"keep_raw_turns"`
	TurnThreshold  int              `mapstructure:"turn_threshold" yaml:"turn_threshold"`
	TokenThreshold int              `mapstructure:"token_threshold" yaml:"token_threshold"`
	SystemPrompt   string           `mapstructure:"system_prompt" yaml:"system_prompt"`
	LogLevel       string           `mapstructure:"log_level" yaml:"log_level"`
	Summarizer     SummarizerConfig `mapstructure:"summarizer" yaml:"summarizer"`
	Store          StoreConfig      `mapstructure:"store" yaml:"store"`
	Chat           ChatConfig       `mapstructure:"chat" yaml:"chat"`
	Retrieval      RetrievalConfig  `mapstructure:"retrieval" yaml:"retrieval"`
}

// DefaultConfigPath returns ~/.vibe-context/config.yaml.
func DefaultConfigPath() string {
	return ExpandHome("~/.vibe-context/config.yaml")
}

// NewViper returns a viper instance with defaults and environment binding.
func NewViper() *viper.Viper {
	v := viper.New()
	SetConfigDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// SetConfigDefaults registers every key with its default value.
func SetConfigDefaults(v *viper.Viper) {
	v.SetDefault("history_dir", "~/.vibe-coder/history")
	v.SetDefault("keep_raw_turns", DefaultKeepRawTurns)
	v.SetDefault("turn_threshold", DefaultTurnThreshold)
	v.SetDefault("token_threshold", DefaultTokenThreshold)
	v.SetDefault("system_prompt", DefaultSystemPrompt)
	v.SetDefault("log_level", "warn")

	v.SetDefault("summarizer.url", DefaultSummarizerURL)
	v.SetDefault("summarizer.model", DefaultSummarizerModel)
	v.SetDefault("summarizer.api_key", "lm-studio")
	v.SetDefault("summarizer.temperature", DefaultSummarizerTemperature)
	v.SetDefault("summarizer.max_tokens", DefaultSummarizerMaxTokens)
	v.SetDefault("summarizer.timeout", DefaultSummarizerTimeout)
	v.SetDefault("summarizer.cache", false)

	v.SetDefault("store.backend", BackendFile)
	v.SetDefault("store.sqlite_path", "")

	v.SetDefault("chat.model", "")

	v.SetDefault("retrieval.db_path", "~/.vibe-coder/rag.db")
	v.SetDefault("retrieval.embedding_model", DefaultEmbeddingModel)
	v.SetDefault("retrieval.top_k", DefaultTopK)
	v.SetDefault("retrieval.chunk_size", DefaultChunkSize)
	v.SetDefault("retrieval.chunk_overlap", DefaultChunkOverlap)
}

// LoadConfig reads the config file at path into v and resolves a Config.
// A missing file is only an error when required is set.
func LoadConfig(v *viper.Viper, path string, required bool) (*Config, error) {
	if path != "" {
		v.SetConfigFile(ExpandHome(path))
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			missing := errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
			if required || !missing {
				return nil, &ConfigError{Key: "config", Err: err}
			}
			LogDebug("No config file at %s, using defaults", path)
		} else {
			LogDebug("Loaded config from %s", v.ConfigFileUsed())
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigError{Key: "config", Err: err}
	}

	cfg.HistoryDir = ExpandHome(cfg.HistoryDir)
	cfg.Store.HistoryDir = cfg.HistoryDir
	cfg.Store.SQLitePath = ExpandHome(cfg.Store.SQLitePath)
	cfg.Retrieval.DBPath = ExpandHome(cfg.Retrieval.DBPath)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch {
	case c.HistoryDir == "":
		return &ConfigError{Key: "history_dir", Err: errors.New("must not be empty")}
	case c.KeepRawTurns < 0:
		return &ConfigError{Key: "keep_raw_turns", Err: fmt.Errorf("must be >= 0, got %d", c.KeepRawTurns)}
	case c.TurnThreshold < 0:
		return &ConfigError{Key: "turn_threshold", Err: fmt.Errorf("must be >= 0, got %d", c.TurnThreshold)}
	case c.TokenThreshold < 0:
		return &ConfigError{Key: "token_threshold", Err: fmt.Errorf("must be >= 0, got %d", c.TokenThreshold)}
	case c.Summarizer.Temperature < 0 || c.Summarizer.Temperature > 2:
		return &ConfigError{Key: "summarizer.temperature", Err: fmt.Errorf("must be within [0, 2], got %g", c.Summarizer.Temperature)}
	case c.Summarizer.MaxTokens <= 0:
		return &ConfigError{Key: "summarizer.max_tokens", Err: fmt.Errorf("must be > 0, got %d", c.Summarizer.MaxTokens)}
	case c.Store.Backend != BackendFile && c.Store.Backend != BackendSQLite:
		return &ConfigError{Key: "store.backend", Err: fmt.Errorf("unknown backend %q", c.Store.Backend)}
	case c.Retrieval.TopK < 1 || c.Retrieval.TopK > MaxTopK:
		return &ConfigError{Key: "retrieval.top_k", Err: fmt.Errorf("must be within [1, %d], got %d", MaxTopK, c.Retrieval.TopK)}
	case c.Retrieval.ChunkSize <= 0:
		return &ConfigError{Key: "retrieval.chunk_size", Err: fmt.Errorf("must be > 0, got %d", c.Retrieval.ChunkSize)}
	case c.Retrieval.ChunkOverlap < 0 || c.Retrieval.ChunkOverlap >= c.Retrieval.ChunkSize:
		return &ConfigError{Key: "retrieval.chunk_overlap", Err: fmt.Errorf("must be within [0, chunk_size), got %d", c.Retrieval.ChunkOverlap)}
	}
	return nil
}

// Policy returns the trigger thresholds.
func (c *Config) Policy() TriggerPolicy {
	return TriggerPolicy{
		KeepRawTurns:   c.KeepRawTurns,
		TurnThreshold:  c.TurnThreshold,
		TokenThreshold: c.TokenThreshold,
	}
}

// ClientConfig returns the endpoint settings for an OpenAIClient.
func (c *Config) ClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:     c.Summarizer.URL,
		APIKey:      c.Summarizer.APIKey,
		Model:       c.Summarizer.Model,
		Temperature: c.Summarizer.Temperature,
		MaxTokens:   c.Summarizer.MaxTokens,
		Timeout:     c.Summarizer.Timeout,
	}
}

// ChatModel is the model used for conversation, defaulting to the summarizer's.
func (c *Config) ChatModel() string {
	if c.Chat.Model != "" {
		return c.Chat.Model
	}
	return c.Summarizer.Model
}

// LoadDotEnv exports variables from each existing .env file without
// overriding variables already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return &ConfigError{Key: path, Err: fmt.Errorf("failed to read .env file: %w", err)}
		}

		envMap, err := godotenv.Unmarshal(string(data))
		if err != nil {
			return &ConfigError{Key: path, Err: fmt.Errorf("failed to parse .env file: %w", err)}
		}
		for key, value := range envMap {
			if _, set := os.LookupEnv(key); set {
				continue
			}
			if err := os.Setenv(key, value); err != nil {
				return &ConfigError{Key: key, Err: err}
			}
		}
		LogDebug("Loaded %d variables from %s", len(envMap), path)
	}
	return nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
