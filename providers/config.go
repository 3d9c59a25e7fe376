package providers

import (
	"time"

	"golang.org/x/time/rate"
)

// OpenAIConfig configures the OpenAI GPT adapter.
type OpenAIConfig struct {
	APIKey  string        `json:"api_key" yaml:"api_key"`
	BaseURL string        `json:"base_url" yaml:"base_url"`
	Model   string        `json:"model,omitempty" yaml:"model,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	// Limiter, when set, caps the rate of outbound requests this adapter
	// issues. Shared across every agent backed by the same provider tag.
	Limiter *rate.Limiter `json:"-" yaml:"-"`
}

// ClaudeConfig configures the Anthropic Claude adapter.
type ClaudeConfig struct {
	APIKey  string        `json:"api_key" yaml:"api_key"`
	BaseURL string        `json:"base_url" yaml:"base_url"`
	Model   string        `json:"model,omitempty" yaml:"model,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Limiter *rate.Limiter `json:"-" yaml:"-"`
}

// GeminiConfig configures the Google Gemini adapter.
type GeminiConfig struct {
	APIKey  string        `json:"api_key" yaml:"api_key"`
	BaseURL string        `json:"base_url" yaml:"base_url"`
	Model   string        `json:"model,omitempty" yaml:"model,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Limiter *rate.Limiter `json:"-" yaml:"-"`
}

// GrokConfig configures the X.AI Grok adapter.
type GrokConfig struct {
	APIKey  string        `json:"api_key" yaml:"api_key"`
	BaseURL string        `json:"base_url" yaml:"base_url"`
	Model   string        `json:"model,omitempty" yaml:"model,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Limiter *rate.Limiter `json:"-" yaml:"-"`
}

// ClaudeFlowConfig configures the Claude Flow MCP adapter.
type ClaudeFlowConfig struct {
	MCPEndpoint string        `json:"mcp_endpoint" yaml:"mcp_endpoint"`
	Timeout     time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Limiter     *rate.Limiter `json:"-" yaml:"-"`
}
