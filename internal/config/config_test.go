package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "ollama", cfg.Generator.Provider)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, 15, cfg.Retrieval.ExtendedTopK)
	assert.Equal(t, 30*time.Second, cfg.Retrieval.Timeout)
	assert.Equal(t, 3, cfg.Engine.MinOptions)
	assert.Equal(t, 2, cfg.Engine.MaxRetries)
	assert.Equal(t, LedgerFile, cfg.Ledger.Backend)

	e := cfg.EngineConfig()
	assert.Equal(t, 5, e.TopK)
	assert.Equal(t, 15, e.ExtendedTopK)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bardtran.yaml")
	content := `
corpus: /srv/plays.yaml
retrieval:
  base_url: http://gateway:9000
  top_k: 4
  extended_top_k: 12
  timeout: 5s
generator:
  provider: openrouter
  models: [a/model, b/model]
engine:
  max_retries: 1
ledger:
  backend: sqlite
  db: /srv/bardtran.db
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("BARDTRAN_GENERATOR_API_KEY", "secret")
	t.Setenv("BARDTRAN_ENGINE_MIN_OPTIONS", "4")

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/plays.yaml", cfg.Corpus)
	assert.Equal(t, "http://gateway:9000", cfg.Retrieval.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Retrieval.Timeout)
	assert.Equal(t, "openrouter", cfg.Generator.Provider)
	assert.Equal(t, []string{"a/model", "b/model"}, cfg.Generator.Models)
	assert.Equal(t, "secret", cfg.Generator.APIKey)
	assert.Equal(t, 4, cfg.Engine.MinOptions)
	assert.Equal(t, 1, cfg.Engine.MaxRetries)
	assert.Equal(t, LedgerSQLite, cfg.Ledger.Backend)
	assert.Equal(t, 12, cfg.EngineConfig().ExtendedTopK)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEngineConfig_KeepsValidatedDepths(t *testing.T) {
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	cfg.Retrieval.TopK = 4
	cfg.Retrieval.ExtendedTopK = 5
	require.NoError(t, cfg.Validate())

	e := cfg.EngineConfig()
	assert.Equal(t, 4, e.TopK)
	assert.Equal(t, 5, e.ExtendedTopK)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(viper.New(), "")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty corpus", func(c *Config) { c.Corpus = " " }},
		{"no gateway", func(c *Config) { c.Retrieval.BaseURL = "" }},
		{"zero top k", func(c *Config) { c.Retrieval.TopK = 0 }},
		{"extended below top k", func(c *Config) { c.Retrieval.ExtendedTopK = 2 }},
		{"extended equal to top k", func(c *Config) { c.Retrieval.ExtendedTopK = c.Retrieval.TopK }},
		{"negative retries", func(c *Config) { c.Engine.MaxRetries = -1 }},
		{"unknown backend", func(c *Config) { c.Ledger.Backend = "redis" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
