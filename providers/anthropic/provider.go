// Package anthropic implements the Provider interface for Anthropic Claude.
package anthropic

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

const defaultModel = "claude-3-opus-20240229"

// Provider implements providers.Provider against the Anthropic Messages API.
type Provider struct {
	cfg    providers.ClaudeConfig
	client *http.Client
	logger *zap.Logger
}

// New creates an Anthropic adapter.
func New(cfg providers.ClaudeConfig, logger *zap.Logger) *Provider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	return &Provider{
		cfg:    cfg,
		client: providers.NewHTTPClient(timeout, cfg.Limiter),
		logger: logger.With(zap.String("provider", "anthropic")),
	}
}

// Initialize validates that an API key is configured.
func (p *Provider) Initialize(ctx context.Context) error {
	if p.cfg.APIKey == "" {
		return orcherr.New(orcherr.ValidationError, "anthropic api key not configured").
			WithProvider("anthropic")
	}
	return nil
}

type messagesRequest struct {
	Model       string          `json:"model"`
	Messages    []messageEntry  `json:"messages"`
	System      string          `json:"system,omitempty"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float32         `json:"temperature,omitempty"`
	TopP        float32         `json:"top_p,omitempty"`
	StopSeq     []string        `json:"stop_sequences,omitempty"`
}

type messageEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Execute sends prompt as a single user message to the Messages API.
func (p *Provider) Execute(ctx context.Context, prompt string, metadata map[string]string) (map[string]any, error) {
	body := messagesRequest{
		Model:       p.cfg.Model,
		Messages:    []messageEntry{{Role: "user", Content: prompt}},
		MaxTokens:   intMetadata(metadata, "max_tokens", 2000),
		Temperature: floatMetadata(metadata, "temperature", 0.7),
	}
	if sp, ok := metadata["system_prompt"]; ok {
		body.System = sp
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, orcherr.New(orcherr.ValidationError, "encode anthropic request").WithCause(err)
	}

	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + "/messages"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, orcherr.New(orcherr.ExecutionError, "build anthropic request").WithCause(err)
	}
	p.buildHeaders(httpReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, orcherr.New(orcherr.ProviderUnavailable, "anthropic request failed").
			WithCause(err).WithRetryable(true).WithProvider("anthropic")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, providers.MapHTTPError(resp.StatusCode, readErrMsg(resp.Body), "anthropic")
	}

	var result messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, orcherr.New(orcherr.ExecutionError, "decode anthropic response").WithCause(err)
	}
	if len(result.Content) == 0 {
		return nil, orcherr.New(orcherr.ExecutionError, "anthropic response had no content").WithProvider("anthropic")
	}

	return map[string]any{
		"content":      result.Content[0].Text,
		"model":        result.Model,
		"stop_reason":  result.StopReason,
		"input_tokens": result.Usage.InputTokens,
		"output_tokens": result.Usage.OutputTokens,
	}, nil
}

// HealthCheck confirms credentials are configured. Anthropic has no
// dedicated health endpoint, so this is a simple presence check.
func (p *Provider) HealthCheck(ctx context.Context) error {
	if p.cfg.APIKey == "" {
		return orcherr.New(orcherr.ProviderUnavailable, "anthropic api key not configured").WithProvider("anthropic")
	}
	return nil
}

func (p *Provider) buildHeaders(req *http.Request) {
	req.Header.Set("x-api-key", p.cfg.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")
	req.Header.Set("Content-Type", "application/json")
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
