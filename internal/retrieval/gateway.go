// Package retrieval queries the candidate retrieval gateway and normalizes
// its replies into quote.Candidates. Raw reply shapes are handled here once;
// the rest of the engine only ever sees quote.CandidateQuote.
package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/valpere/bardtran/internal/quote"
)

// ErrGateway marks an unreachable or failing retrieval gateway.
var ErrGateway = errors.New("retrieval gateway error")

// Config holds the gateway connection settings.
type Config struct {
	BaseURL      string        `mapstructure:"base_url" json:"base_url"`
	TopK         int           `mapstructure:"top_k" json:"top_k"`
	ExtendedTopK int           `mapstructure:"extended_top_k" json:"extended_top_k"`
	Timeout      time.Duration `mapstructure:"timeout" json:"timeout"`
}

// Gateway returns ranked candidates for one query text. levels restricts the
// granularities searched; an empty list means all of them.
type Gateway interface {
	Search(ctx context.Context, query string, levels []quote.Level, topK int) (quote.Candidates, error)
}

// HTTPGateway calls a JSON search endpoint at {base_url}/search.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
}

type searchRequest struct {
	Query  string   `json:"query"`
	TopK   int      `json:"top_k"`
	Levels []string `json:"levels,omitempty"`
}

// NewHTTPGateway creates a gateway client.
func NewHTTPGateway(baseURL string, timeout time.Duration) *HTTPGateway {
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (g *HTTPGateway) Search(ctx context.Context, query string, levels []quote.Level, topK int) (quote.Candidates, error) {
	reqBody := searchRequest{Query: query, TopK: topK}
	for _, l := range levels {
		reqBody.Levels = append(reqBody.Levels, string(l))
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/search", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrGateway, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", ErrGateway, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	cands, err := DecodeCandidates(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	if len(levels) > 0 {
		keep := make(map[quote.Level]bool, len(levels))
		for _, l := range levels {
			keep[l] = true
		}
		for l := range cands {
			if !keep[l] {
				delete(cands, l)
			}
		}
	}
	return cands, nil
}

// Ping checks that the gateway answers at all.
func (g *HTTPGateway) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health returned status %d", ErrGateway, resp.StatusCode)
	}
	return nil
}
