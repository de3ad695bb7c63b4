package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/valpere/bardtran/internal/postprocess"
)

var DefaultOpenRouterModels = []string{
	"google/gemini-2.5-flash-preview:free",
	"qwen/qwen2.5-72b-instruct:free",
	"meta-llama/llama-3.1-8b-instruct:free",
}

const openRouterSystemPrompt = "You assemble lines from quotations. Respond with a single JSON object and nothing else."

// OpenRouterGenerator calls the OpenRouter chat completions API.
type OpenRouterGenerator struct {
	apiKey  string
	baseURL string
	models  []string
	client  *http.Client
}

type openRouterMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openRouterRequest struct {
	Model     string              `json:"model"`
	Messages  []openRouterMessage `json:"messages"`
	MaxTokens int                 `json:"max_tokens"`
}

type openRouterResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func NewOpenRouterGenerator(apiKey, baseURL string, models []string, timeout time.Duration) (*OpenRouterGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenRouter API key required")
	}
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	if len(models) == 0 {
		models = DefaultOpenRouterModels
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OpenRouterGenerator{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		models:  models,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (g *OpenRouterGenerator) Name() string {
	return "openrouter"
}

func (g *OpenRouterGenerator) pickModel() string {
	return g.models[rand.Intn(len(g.models))]
}

func (g *OpenRouterGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	reqBody := openRouterRequest{
		Model: g.pickModel(),
		Messages: []openRouterMessage{
			{Role: "system", Content: openRouterSystemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens: 1024,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("X-Title", "bardtran")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("openrouter request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("openrouter returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out openRouterResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	text := postprocess.RemoveThinkingBlocks(out.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (g *OpenRouterGenerator) Models() []string {
	return g.models
}
