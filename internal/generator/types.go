// Package generator wraps the external generative model behind a single
// capability: turn a prompt into raw completion text.
package generator

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrEmptyResponse is returned when a backend answers without content.
var ErrEmptyResponse = errors.New("empty response from model")

// Config selects and configures a backend.
type Config struct {
	Provider string        `mapstructure:"provider" json:"provider"`
	APIKey   string        `mapstructure:"api_key" json:"api_key"`
	Model    string        `mapstructure:"model" json:"model"`
	Models   []string      `mapstructure:"models" json:"models"`
	BaseURL  string        `mapstructure:"base_url" json:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout" json:"timeout"`
}

// Generator produces a completion for a prompt. Implementations are
// read-only after construction and safe to share.
type Generator interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// New builds the backend named by cfg.Provider.
func New(ctx context.Context, cfg Config) (Generator, error) {
	models := cfg.Models
	if cfg.Model != "" {
		models = []string{cfg.Model}
	}
	switch cfg.Provider {
	case "ollama", "":
		return NewOllamaGenerator(cfg.BaseURL, models, cfg.Timeout), nil
	case "openrouter":
		g, err := NewOpenRouterGenerator(cfg.APIKey, cfg.BaseURL, models, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		return g, nil
	case "gemini":
		g, err := NewGeminiGenerator(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("unsupported generator provider: %s (use ollama, openrouter or gemini)", cfg.Provider)
	}
}
