// Package judge provides JudgeClient implementations: an OpenAI-compatible
// HTTP client for real panels, a content-addressed caching wrapper, and a
// scripted client for offline runs and tests.
package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shahbajlive/caseval/internal/committee"
)

// Config controls the HTTP judge client.
type Config struct {
	// BaseURL is the OpenAI-compatible endpoint root, e.g.
	// "https://api.example.com/v1".
	BaseURL string `json:"base_url" yaml:"base_url" toml:"base_url"`

	// APIKey is sent as a bearer token when set.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" toml:"api_key"`

	// Models maps judge IDs to model names. Judges not listed use their ID
	// as the model name.
	Models map[string]string `json:"models,omitempty" yaml:"models,omitempty" toml:"models"`

	// Temperature for scoring calls. Low values keep verdicts stable.
	// Default: 0.2
	Temperature float64 `json:"temperature,omitempty" yaml:"temperature,omitempty" toml:"temperature"`
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{Temperature: 0.2}
}

// Validate checks that the client can be constructed.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be in [0, 2], got %v", c.Temperature)
	}
	return nil
}

// HTTPClient calls an OpenAI-compatible chat completions endpoint, one call
// per judge invocation. Call deadlines come from the caller's context; the
// client adds no retries of its own.
type HTTPClient struct {
	cfg  Config
	http *http.Client
}

// NewHTTPClient builds a client. The underlying http.Client carries no
// timeout; the committee bounds every call through its context.
func NewHTTPClient(cfg Config) (*HTTPClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultConfig().Temperature
	}
	return &HTTPClient{cfg: cfg, http: &http.Client{}}, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Score implements committee.JudgeClient.
func (c *HTTPClient) Score(ctx context.Context, judge committee.JudgeProfile, payload committee.PromptPayload) (string, error) {
	model := c.cfg.Models[judge.ID]
	if model == "" {
		model = judge.ID
	}

	body, err := json.Marshal(chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt(judge, payload.Stage)},
			{Role: "user", Content: userPrompt(payload)},
		},
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("judge call: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return "", fmt.Errorf("read judge response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("judge endpoint returned %d: %s", resp.StatusCode, truncate(string(data), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("decode judge response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("judge endpoint error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("judge response has no choices")
	}

	slog.Debug("judge call completed",
		"judge", judge.ID,
		"model", model,
		"stage", payload.Stage,
		"duration", time.Since(start),
	)
	return parsed.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
