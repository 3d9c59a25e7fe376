// Package factory builds providers.Provider instances by name, importing
// every adapter sub-package so that the providers package itself stays
// free of a dependency on its own implementations.
package factory

import (
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/archon-ai/orchestrator/internal/orcherr"
	"github.com/archon-ai/orchestrator/providers"
	"github.com/archon-ai/orchestrator/providers/anthropic"
	"github.com/archon-ai/orchestrator/providers/claudeflow"
	"github.com/archon-ai/orchestrator/providers/gemini"
	"github.com/archon-ai/orchestrator/providers/grok"
	"github.com/archon-ai/orchestrator/providers/openai"
)

// Config is the generic configuration accepted by New. Fields not relevant
// to a given provider tag are ignored.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	MCPEndpoint string
	// Limiter caps the adapter's outbound request rate. Callers typically
	// share one *rate.Limiter per provider tag across every agent backed
	// by that provider.
	Limiter *rate.Limiter
}

// New constructs a providers.Provider for the given tag. Recognized tags,
// with aliases, are: gpt/openai, gemini/google, grok/xai, anthropic/claude,
// claude_flow.
func New(tag string, cfg Config, logger *zap.Logger) (providers.Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch strings.ToLower(tag) {
	case "gpt", "openai":
		return openai.New(providers.OpenAIConfig{
			APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Model: cfg.Model, Timeout: cfg.Timeout, Limiter: cfg.Limiter,
		}, logger), nil

	case "anthropic", "claude":
		return anthropic.New(providers.ClaudeConfig{
			APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Model: cfg.Model, Timeout: cfg.Timeout, Limiter: cfg.Limiter,
		}, logger), nil

	case "gemini", "google":
		return gemini.New(providers.GeminiConfig{
			APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Model: cfg.Model, Timeout: cfg.Timeout, Limiter: cfg.Limiter,
		}, logger), nil

	case "grok", "xai":
		return grok.New(providers.GrokConfig{
			APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Model: cfg.Model, Timeout: cfg.Timeout, Limiter: cfg.Limiter,
		}, logger), nil

	case "claude_flow", "claudeflow":
		return claudeflow.New(providers.ClaudeFlowConfig{
			MCPEndpoint: cfg.MCPEndpoint, Timeout: cfg.Timeout, Limiter: cfg.Limiter,
		}, logger), nil

	default:
		return nil, orcherr.New(orcherr.ValidationError, "unknown provider: "+tag).WithHTTPStatus(400)
	}
}
