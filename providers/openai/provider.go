// Package openai implements the Provider interface for OpenAI GPT models.
package openai

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

const defaultModel = "gpt-4o"

// Provider implements providers.Provider against the OpenAI Chat
// Completions API.
type Provider struct {
	cfg    providers.OpenAIConfig
	client *http.Client
	logger *zap.Logger
}

// New creates an OpenAI adapter.
func New(cfg providers.OpenAIConfig, logger *zap.Logger) *Provider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	return &Provider{
		cfg:    cfg,
		client: providers.NewHTTPClient(timeout, cfg.Limiter),
		logger: logger.With(zap.String("provider", "openai")),
	}
}

// Initialize validates the API key against the models endpoint.
func (p *Provider) Initialize(ctx context.Context) error {
	if p.cfg.APIKey == "" {
		return orcherr.New(orcherr.ValidationError, "openai api key not configured").WithProvider("openai")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(p.cfg.BaseURL, "/")+"/models", nil)
	if err != nil {
		return orcherr.New(orcherr.ExecutionError, "build openai validation request").WithCause(err)
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return orcherr.New(orcherr.ProviderUnavailable, "openai unreachable").WithCause(err).WithProvider("openai")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return providers.MapHTTPError(resp.StatusCode, readErrMsg(resp.Body), "openai")
	}
	return nil
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

// Execute runs prompt through the Chat Completions API.
func (p *Provider) Execute(ctx context.Context, prompt string, metadata map[string]string) (map[string]any, error) {
	systemPrompt := "You are a helpful assistant."
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
		return nil, orcherr.New(orcherr.ValidationError, "encode openai request").WithCause(err)
	}

	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, orcherr.New(orcherr.ExecutionError, "build openai request").WithCause(err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, orcherr.New(orcherr.ProviderUnavailable, "openai request failed").
			WithCause(err).WithRetryable(true).WithProvider("openai")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, providers.MapHTTPError(resp.StatusCode, readErrMsg(resp.Body), "openai")
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, orcherr.New(orcherr.ExecutionError, "decode openai response").WithCause(err)
	}
	if len(result.Choices) == 0 {
		return nil, orcherr.New(orcherr.ExecutionError, "openai response had no choices").WithProvider("openai")
	}

	return map[string]any{
		"content":           result.Choices[0].Message.Content,
		"model":             result.Model,
		"prompt_tokens":     result.Usage.PromptTokens,
		"completion_tokens": result.Usage.CompletionTokens,
	}, nil
}

// HealthCheck performs a lightweight models-list call with a short timeout.
func (p *Provider) HealthCheck(ctx context.Context) error {
	if p.cfg.APIKey == "" {
		return orcherr.New(orcherr.ProviderUnavailable, "openai api key not configured").WithProvider("openai")
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(p.cfg.BaseURL, "/")+"/models", nil)
	if err != nil {
		return orcherr.New(orcherr.ExecutionError, "build openai health request").WithCause(err)
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return orcherr.New(orcherr.ProviderUnavailable, "openai unreachable").WithCause(err).WithProvider("openai")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return providers.MapHTTPError(resp.StatusCode, readErrMsg(resp.Body), "openai")
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
