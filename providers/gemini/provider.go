// Package gemini implements the Provider interface for Google Gemini models.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/archon-ai/orchestrator/internal/orcherr"
	"github.com/archon-ai/orchestrator/providers"
)

const defaultModel = "gemini-pro"

// Provider implements providers.Provider against the Gemini
// generateContent API, which authenticates via an api-key query
// parameter rather than a header.
type Provider struct {
	cfg    providers.GeminiConfig
	client *http.Client
	logger *zap.Logger
}

// New creates a Gemini adapter.
func New(cfg providers.GeminiConfig, logger *zap.Logger) *Provider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	return &Provider{
		cfg:    cfg,
		client: providers.NewHTTPClient(timeout, cfg.Limiter),
		logger: logger.With(zap.String("provider", "gemini")),
	}
}

// Initialize validates the API key against the models endpoint.
func (p *Provider) Initialize(ctx context.Context) error {
	if p.cfg.APIKey == "" {
		return orcherr.New(orcherr.ValidationError, "google api key not configured").WithProvider("gemini")
	}
	return p.HealthCheck(ctx)
}

type generateContentRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  generationConfig  `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float32 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	TopP            float32 `json:"topP,omitempty"`
	TopK            int     `json:"topK,omitempty"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
		SafetyRatings []any `json:"safetyRatings"`
	} `json:"candidates"`
}

// Execute runs prompt through the generateContent API.
func (p *Provider) Execute(ctx context.Context, prompt string, metadata map[string]string) (map[string]any, error) {
	body := generateContentRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     floatMetadata(metadata, "temperature", 0.7),
			MaxOutputTokens: intMetadata(metadata, "max_tokens", 2000),
			TopP:            floatMetadata(metadata, "top_p", 0.95),
			TopK:            intMetadata(metadata, "top_k", 40),
		},
	}
	if sp, ok := metadata["system_prompt"]; ok {
		body.SystemInstruction = &content{Parts: []part{{Text: sp}}}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, orcherr.New(orcherr.ValidationError, "encode gemini request").WithCause(err)
	}

	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + "/models/" + p.cfg.Model + ":generateContent?key=" + url.QueryEscape(p.cfg.APIKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, orcherr.New(orcherr.ExecutionError, "build gemini request").WithCause(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, orcherr.New(orcherr.ProviderUnavailable, "gemini request failed").
			WithCause(err).WithRetryable(true).WithProvider("gemini")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, providers.MapHTTPError(resp.StatusCode, readErrMsg(resp.Body), "gemini")
	}

	var result generateContentResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, orcherr.New(orcherr.ExecutionError, "decode gemini response").WithCause(err)
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, orcherr.New(orcherr.ExecutionError, "gemini response had no candidates").WithProvider("gemini")
	}

	return map[string]any{
		"content":        result.Candidates[0].Content.Parts[0].Text,
		"safety_ratings": result.Candidates[0].SafetyRatings,
		"model":          p.cfg.Model,
	}, nil
}

// HealthCheck confirms the API key works against the models listing.
func (p *Provider) HealthCheck(ctx context.Context) error {
	if p.cfg.APIKey == "" {
		return orcherr.New(orcherr.ProviderUnavailable, "google api key not configured").WithProvider("gemini")
	}

	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + "/models?key=" + url.QueryEscape(p.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return orcherr.New(orcherr.ExecutionError, "build gemini health request").WithCause(err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return orcherr.New(orcherr.ProviderUnavailable, "gemini unreachable").WithCause(err).WithProvider("gemini")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return providers.MapHTTPError(resp.StatusCode, readErrMsg(resp.Body), "gemini")
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
