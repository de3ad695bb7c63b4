// Package config loads bardtran settings from an optional YAML file,
// BARDTRAN_* environment variables, and bound command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/valpere/bardtran/internal/generator"
	"github.com/valpere/bardtran/internal/orchestrator"
	"github.com/valpere/bardtran/internal/retrieval"
)

const EnvPrefix = "BARDTRAN"

const (
	LedgerFile   = "file"
	LedgerSQLite = "sqlite"
)

type LedgerConfig struct {
	Backend string `mapstructure:"backend"`
	Dir     string `mapstructure:"dir"`
	DB      string `mapstructure:"db"`
}

type LogConfig struct {
	Verbose bool `mapstructure:"verbose"`
}

type Config struct {
	Corpus    string              `mapstructure:"corpus"`
	Retrieval retrieval.Config    `mapstructure:"retrieval"`
	Generator generator.Config    `mapstructure:"generator"`
	Engine    orchestrator.Config `mapstructure:"engine"`
	Ledger    LedgerConfig        `mapstructure:"ledger"`
	Log       LogConfig           `mapstructure:"log"`
}

// SetDefaults registers every key so that environment variables are seen
// by Unmarshal even when no config file sets them.
func SetDefaults(v *viper.Viper) {
	engine := orchestrator.DefaultConfig()

	v.SetDefault("corpus", "./data/corpus.yaml")

	v.SetDefault("retrieval.base_url", "http://localhost:8000")
	v.SetDefault("retrieval.top_k", retrieval.DefaultTopK)
	v.SetDefault("retrieval.extended_top_k", retrieval.DefaultExtendedTopK)
	v.SetDefault("retrieval.timeout", 30*time.Second)

	v.SetDefault("generator.provider", "ollama")
	v.SetDefault("generator.api_key", "")
	v.SetDefault("generator.model", "")
	v.SetDefault("generator.models", []string{})
	v.SetDefault("generator.base_url", "")
	v.SetDefault("generator.timeout", 120*time.Second)

	v.SetDefault("engine.min_options", engine.MinOptions)
	v.SetDefault("engine.max_per_level", engine.MaxPerLevel)
	v.SetDefault("engine.max_retries", engine.MaxRetries)

	v.SetDefault("ledger.backend", LedgerFile)
	v.SetDefault("ledger.dir", "./data/ledgers")
	v.SetDefault("ledger.db", "./data/bardtran.db")

	v.SetDefault("log.verbose", false)
}

// Load reads path (when non-empty) and the environment into a validated
// Config.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Corpus) == "" {
		errs = append(errs, errors.New("corpus path is required"))
	}
	if strings.TrimSpace(c.Retrieval.BaseURL) == "" {
		errs = append(errs, errors.New("retrieval.base_url is required"))
	}
	if c.Retrieval.TopK <= 0 {
		errs = append(errs, fmt.Errorf("retrieval.top_k must be positive, got %d", c.Retrieval.TopK))
	}
	if c.Retrieval.ExtendedTopK <= c.Retrieval.TopK {
		errs = append(errs, fmt.Errorf("retrieval.extended_top_k (%d) must exceed top_k (%d)",
			c.Retrieval.ExtendedTopK, c.Retrieval.TopK))
	}
	if c.Engine.MinOptions <= 0 {
		errs = append(errs, fmt.Errorf("engine.min_options must be positive, got %d", c.Engine.MinOptions))
	}
	if c.Engine.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("engine.max_retries must not be negative, got %d", c.Engine.MaxRetries))
	}
	switch c.Ledger.Backend {
	case LedgerFile, LedgerSQLite:
	default:
		errs = append(errs, fmt.Errorf("unknown ledger backend %q", c.Ledger.Backend))
	}
	return errors.Join(errs...)
}

// EngineConfig returns the orchestrator policies with retrieval depths
// taken from the retrieval section.
func (c *Config) EngineConfig() orchestrator.Config {
	e := c.Engine
	e.TopK = c.Retrieval.TopK
	e.ExtendedTopK = c.Retrieval.ExtendedTopK
	return e
}
