// Package grok implements the Provider interface for X.AI Grok models.
package grok

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/archon-ai/orchestrator/internal/orcherr"
	"github.com/archon-ai/orchestrator/providers"
)

const defaultModel = "grok-beta"

// Provider implements providers.Provider against X.AI's
// OpenAI-compatible chat completions API.
type Provider struct {
	cfg    providers.GrokConfig
	client *http.Client
	logger *zap.Logger
}

// New creates a Grok adapter.
func New(cfg providers.GrokConfig, logger *zap.Logger) *Provider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.x.ai/v1"
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	return &Provider{
		cfg:    cfg,
		client: providers.NewHTTPClient(timeout, cfg.Limiter),
		logger: logger.With(zap.String("provider", "grok")),
	}
}

// Initialize validates the API key against the models endpoint.
func (p *Provider) Initialize(ctx context.Context) error {
	if p.cfg.APIKey == "" {
		return orcherr.New(orcherr.ValidationError, "xai api key not configured").WithProvider("grok")
	}
	return p.HealthCheck(ctx)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Execute runs prompt through Grok's chat completions API.
func (p *Provider) Execute(ctx context.Context, prompt string, metadata map[string]string) (map[string]any, error) {
	systemPrompt := "You are Grok, a helpful AI assistant."
	if sp, ok := metadata["system_prompt"]; ok {
		systemPrompt = sp
	}

	body := chatRequest{
		Model: p.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: floatMetadata(metadata, "temperature", 0.7),
		MaxTokens:   intMetadata(metadata, "max_tokens", 2000),
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, orcherr.New(orcherr.ValidationError, "encode grok request").WithCause(err)
	}

	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, orcherr.New(orcherr.ExecutionError, "build grok request").WithCause(err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, orcherr.New(orcherr.ProviderUnavailable, "grok request failed").
			WithCause(err).WithRetryable(true).WithProvider("grok")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, providers.MapHTTPError(resp.StatusCode, readErrMsg(resp.Body), "grok")
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, orcherr.New(orcherr.ExecutionError, "decode grok response").WithCause(err)
	}
	if len(result.Choices) == 0 {
		return nil, orcherr.New(orcherr.ExecutionError, "grok response had no choices").WithProvider("grok")
	}

	return map[string]any{
		"content":           result.Choices[0].Message.Content,
		"model":             result.Model,
		"prompt_tokens":     result.Usage.PromptTokens,
		"completion_tokens": result.Usage.CompletionTokens,
	}, nil
}

// HealthCheck performs a lightweight models-list call.
func (p *Provider) HealthCheck(ctx context.Context) error {
	if p.cfg.APIKey == "" {
		return orcherr.New(orcherr.ProviderUnavailable, "xai api key not configured").WithProvider("grok")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(p.cfg.BaseURL, "/")+"/models", nil)
	if err != nil {
		return orcherr.New(orcherr.ExecutionError, "build grok health request").WithCause(err)
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return orcherr.New(orcherr.ProviderUnavailable, "grok unreachable").WithCause(err).WithProvider("grok")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return providers.MapHTTPError(resp.StatusCode, readErrMsg(resp.Body), "grok")
	}
	return nil
}

func readErrMsg(r io.Reader) string {
	data, _ := io.ReadAll(r)
	return string(data)
}

func intMetadata(metadata map[string]string, key string, fallback int) int {
	if v, ok := metadata[key]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func floatMetadata(metadata map[string]string, key string, fallback float32) float32 {
	if v, ok := metadata[key]; ok {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			return float32(f)
		}
	}
	return fallback
}
