package internal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/iksnae/vibe-context/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(NewViper(), "", false)
	require.NoError(t, err)

	assert.Equal(t, DefaultTriggerPolicy(), cfg.Policy())
	assert.Equal(t, DefaultSystemPrompt, cfg.SystemPrompt)
	assert.Equal(t, DefaultSummarizerURL, cfg.Summarizer.URL)
	assert.Equal(t, DefaultSummarizerModel, cfg.Summarizer.Model)
	assert.InDelta(t, 0.3, cfg.Summarizer.Temperature, 0.0001)
	assert.Equal(t, 1000, cfg.Summarizer.MaxTokens)
	assert.Equal(t, 60*time.Second, cfg.Summarizer.Timeout)
	assert.False(t, cfg.Summarizer.Cache)
	assert.Equal(t, BackendFile, cfg.Store.Backend)
	assert.Equal(t, DefaultTopK, cfg.Retrieval.TopK)
	assert.Equal(t, DefaultChunkSize, cfg.Retrieval.ChunkSize)
	assert.Equal(t, DefaultChunkOverlap, cfg.Retrieval.ChunkOverlap)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".vibe-coder", "history"), cfg.HistoryDir)
	assert.Equal(t, cfg.HistoryDir, cfg.Store.HistoryDir)
	assert.Equal(t, filepath.Join(home, ".vibe-coder", "rag.db"), cfg.Retrieval.DBPath)
}

func TestLoadConfig_File(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	path := testutil.WriteFile(t, dir, "config.yaml", []byte(`
history_dir: `+filepath.Join(dir, "history")+`
keep_raw_turns: 2
turn_threshold: 3
token_threshold: 1000
system_prompt: "You review Go code."
summarizer:
  url: http://example.test/v1
  model: tiny-summarizer
  timeout: 5s
  cache: true
store:
  backend: sqlite
chat:
  model: big-coder
retrieval:
  top_k: 8
`))

	cfg, err := LoadConfig(NewViper(), path, true)
	require.NoError(t, err)

	assert.Equal(t, TriggerPolicy{KeepRawTurns: 2, TurnThreshold: 3, TokenThreshold: 1000}, cfg.Policy())
	assert.Equal(t, "You review Go code.", cfg.SystemPrompt)
	assert.Equal(t, filepath.Join(dir, "history"), cfg.Store.HistoryDir)
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.True(t, cfg.Summarizer.Cache)
	assert.Equal(t, 8, cfg.Retrieval.TopK)
	assert.Equal(t, "big-coder", cfg.ChatModel())

	client := cfg.ClientConfig()
	assert.Equal(t, "http://example.test/v1", client.BaseURL)
	assert.Equal(t, "tiny-summarizer", client.Model)
	assert.Equal(t, 5*time.Second, client.Timeout)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("VIBECTX_KEEP_RAW_TURNS", "9")
	t.Setenv("VIBECTX_SUMMARIZER_MODEL", "env-model")

	cfg, err := LoadConfig(NewViper(), "", false)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.KeepRawTurns)
	assert.Equal(t, "env-model", cfg.Summarizer.Model)
	assert.Equal(t, "env-model", cfg.ChatModel())
}

func TestLoadConfig_MissingFile(t *testing.T) {
	path := filepath.Join(testutil.CreateTempDir(t), "absent.yaml")

	_, err := LoadConfig(NewViper(), path, false)
	assert.NoError(t, err)

	_, err = LoadConfig(NewViper(), path, true)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	path := testutil.WriteFile(t, dir, "config.yaml", []byte("keep_raw_turns: [oops"))

	_, err := LoadConfig(NewViper(), path, false)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg, err := LoadConfig(NewViper(), "", false)
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantKey string
	}{
		{name: "negative keep", mutate: func(c *Config) { c.KeepRawTurns = -1 }, wantKey: "keep_raw_turns"},
		{name: "negative turns", mutate: func(c *Config) { c.TurnThreshold = -1 }, wantKey: "turn_threshold"},
		{name: "negative tokens", mutate: func(c *Config) { c.TokenThreshold = -5 }, wantKey: "token_threshold"},
		{name: "hot temperature", mutate: func(c *Config) { c.Summarizer.Temperature = 3 }, wantKey: "summarizer.temperature"},
		{name: "zero max tokens", mutate: func(c *Config) { c.Summarizer.MaxTokens = 0 }, wantKey: "summarizer.max_tokens"},
		{name: "unknown backend", mutate: func(c *Config) { c.Store.Backend = "redis" }, wantKey: "store.backend"},
		{name: "top_k too large", mutate: func(c *Config) { c.Retrieval.TopK = 21 }, wantKey: "retrieval.top_k"},
		{name: "overlap too large", mutate: func(c *Config) { c.Retrieval.ChunkOverlap = c.Retrieval.ChunkSize }, wantKey: "retrieval.chunk_overlap"},
		{name: "empty history dir", mutate: func(c *Config) { c.HistoryDir = "" }, wantKey: "history_dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.wantKey, cfgErr.Key)
		})
	}

	cfg := valid()
	cfg.KeepRawTurns = 0
	assert.NoError(t, cfg.Validate(), "zero keep window is allowed")
}

func TestLoadDotEnv(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	path := testutil.WriteFile(t, dir, ".env", []byte("VIBECTX_TEST_FRESH=from-file\nVIBECTX_TEST_SET=from-file\n"))

	t.Setenv("VIBECTX_TEST_SET", "from-env")
	t.Setenv("VIBECTX_TEST_FRESH", "")
	require.NoError(t, os.Unsetenv("VIBECTX_TEST_FRESH"))
	t.Cleanup(func() { _ = os.Unsetenv("VIBECTX_TEST_FRESH") })

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), path))
	assert.Equal(t, "from-file", os.Getenv("VIBECTX_TEST_FRESH"))
	assert.Equal(t, "from-env", os.Getenv("VIBECTX_TEST_SET"))
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, home, ExpandHome("~"))
	assert.Equal(t, filepath.Join(home, "a", "b"), ExpandHome("~/a/b"))
	assert.Equal(t, "/abs/path", ExpandHome("/abs/path"))
	assert.Equal(t, "~user/x", ExpandHome("~user/x"))
	assert.Equal(t, "", ExpandHome(""))
}
