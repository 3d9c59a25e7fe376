package orchestrator

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/archon-ai/orchestrator/providers/factory"
)

// providerTags lists every provider family a shared outbound rate limiter
// is tracked for.
var providerTags = []string{"claude_flow", "gpt", "gemini", "anthropic", "grok"}

// NewProviderLimiters builds one rate.Limiter per provider family, shared
// by every agent backed by that provider so the process never exceeds a
// configured requests-per-second cap against a single upstream regardless
// of how many agents route through it. rps<=0 disables limiting.
func NewProviderLimiters(rps float64, burst int) map[string]*rate.Limiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	limiters := make(map[string]*rate.Limiter, len(providerTags))
	for _, tag := range providerTags {
		limiters[tag] = rate.NewLimiter(rate.Limit(rps), burst)
	}
	// Alias tags accepted by the provider factory share their family's limiter.
	for alias, tag := range map[string]string{"openai": "gpt", "google": "gemini", "xai": "grok", "claude": "anthropic", "claudeflow": "claude_flow"} {
		limiters[alias] = limiters[tag]
	}
	return limiters
}

// agentSeed describes one agent auto-registration candidate: an env var
// gating its registration (empty for always-on), the agent's identity and
// capability set, and the provider tag/config used to build its adapter.
type agentSeed struct {
	envKey       string
	agentID      string
	name         string
	providerTag  string
	providerName string
	capabilities []string
	cfg          factory.Config
}

// AutoBootstrapConfig carries the environment-derived settings that shape
// which agents auto-register on startup.
type AutoBootstrapConfig struct {
	OpenAIAPIKey    string
	AnthropicAPIKey string
	GoogleAPIKey    string
	XAIAPIKey       string
	ClaudeFlowMCP   string
}

// AutoBootstrapConfigFromEnv reads the orchestrator's recognized API-key
// and endpoint environment variables.
func AutoBootstrapConfigFromEnv() AutoBootstrapConfig {
	endpoint := os.Getenv("CLAUDE_FLOW_MCP_ENDPOINT")
	if endpoint == "" {
		endpoint = "http://localhost:8051"
	}
	return AutoBootstrapConfig{
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		GoogleAPIKey:    os.Getenv("GOOGLE_API_KEY"),
		XAIAPIKey:       os.Getenv("XAI_API_KEY"),
		ClaudeFlowMCP:   endpoint,
	}
}

// Bootstrap runs the environment-driven agent auto-registration against
// this orchestrator's registry.
func (o *Orchestrator) Bootstrap(ctx context.Context, cfg AutoBootstrapConfig, limiters map[string]*rate.Limiter) {
	AutoRegisterAgents(ctx, o.registry, cfg, limiters, o.logger)
}

// BootstrapStatic registers the agents listed in an agents.yaml file, in
// addition to whatever Bootstrap already registered.
func (o *Orchestrator) BootstrapStatic(ctx context.Context, path string, limiters map[string]*rate.Limiter) error {
	return RegisterStaticAgents(ctx, o.registry, path, limiters, o.logger)
}

// AutoRegisterAgents registers one agent per available credential, plus the
// always-attempted Claude Flow hive-mind. An adapter that fails
// Initialize is logged and skipped rather than treated as fatal: startup
// is best-effort per provider.
func AutoRegisterAgents(ctx context.Context, registry *AgentRegistry, cfg AutoBootstrapConfig, limiters map[string]*rate.Limiter, logger *zap.Logger) {
	log := logger.With(zap.String("component", "bootstrap"))

	seeds := []agentSeed{
		{
			agentID:      "claude_flow_hive",
			name:         "Claude Flow Hive Mind",
			providerTag:  "claude_flow",
			providerName: "claude_flow",
			capabilities: []string{"general", "code_generation", "documentation", "analysis"},
			cfg:          factory.Config{MCPEndpoint: cfg.ClaudeFlowMCP},
		},
		{
			envKey:       "OPENAI_API_KEY",
			agentID:      "gpt4_primary",
			name:         "GPT-4 Primary",
			providerTag:  "gpt",
			providerName: "openai",
			capabilities: []string{"code_generation", "documentation", "analysis"},
			cfg:          factory.Config{APIKey: cfg.OpenAIAPIKey},
		},
		{
			envKey:       "GOOGLE_API_KEY",
			agentID:      "gemini_pro",
			name:         "Gemini Pro",
			providerTag:  "gemini",
			providerName: "google",
			capabilities: []string{"analysis", "documentation", "general"},
			cfg:          factory.Config{APIKey: cfg.GoogleAPIKey},
		},
		{
			envKey:       "ANTHROPIC_API_KEY",
			agentID:      "claude3_opus",
			name:         "Claude 3 Opus",
			providerTag:  "anthropic",
			providerName: "anthropic",
			capabilities: []string{"code_generation", "analysis", "documentation"},
			cfg:          factory.Config{APIKey: cfg.AnthropicAPIKey},
		},
		{
			envKey:       "XAI_API_KEY",
			agentID:      "grok_beta",
			name:         "Grok Beta",
			providerTag:  "grok",
			providerName: "xai",
			capabilities: []string{"general", "analysis"},
			cfg:          factory.Config{APIKey: cfg.XAIAPIKey},
		},
	}

	for _, seed := range seeds {
		if seed.envKey != "" && os.Getenv(seed.envKey) == "" {
			continue
		}

		seed.cfg.Limiter = limiters[seed.providerTag]
		adapter, err := factory.New(seed.providerTag, seed.cfg, logger)
		if err != nil {
			log.Warn("unknown provider tag during bootstrap", zap.String("tag", seed.providerTag), zap.Error(err))
			continue
		}

		probeCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		err = adapter.Initialize(probeCtx)
		cancel()
		if err != nil {
			log.Warn("could not initialize agent, skipping",
				zap.String("agent_id", seed.agentID), zap.Error(err))
			continue
		}

		registry.Register(seed.agentID, seed.name, seed.providerName, seed.capabilities, adapter, nil)
		log.Info("registered agent", zap.String("agent_id", seed.agentID), zap.String("name", seed.name))
	}
}

// StaticAgentSpec is one entry in an agents.yaml bootstrap file.
type StaticAgentSpec struct {
	AgentID      string            `yaml:"agent_id"`
	Name         string            `yaml:"name"`
	ProviderTag  string            `yaml:"provider"`
	Capabilities []string          `yaml:"capabilities"`
	APIKey       string            `yaml:"api_key"`
	BaseURL      string            `yaml:"base_url"`
	Model        string            `yaml:"model"`
	MCPEndpoint  string            `yaml:"mcp_endpoint"`
	Metadata     map[string]string `yaml:"metadata"`
}

// staticAgentFile is the top-level shape of an agents.yaml bootstrap file.
type staticAgentFile struct {
	Agents []StaticAgentSpec `yaml:"agents"`
}

// RegisterStaticAgents reads an agents.yaml-style file once at startup and
// registers each entry, in addition to whatever AutoRegisterAgents already
// registered from environment credentials. A missing file is not an error;
// a malformed one is.
func RegisterStaticAgents(ctx context.Context, registry *AgentRegistry, path string, limiters map[string]*rate.Limiter, logger *zap.Logger) error {
	log := logger.With(zap.String("component", "bootstrap"))

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read static agent file: %w", err)
	}

	var parsed staticAgentFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse static agent file: %w", err)
	}

	for _, spec := range parsed.Agents {
		adapter, err := factory.New(spec.ProviderTag, factory.Config{
			APIKey:      spec.APIKey,
			BaseURL:     spec.BaseURL,
			Model:       spec.Model,
			MCPEndpoint: spec.MCPEndpoint,
			Limiter:     limiters[spec.ProviderTag],
		}, logger)
		if err != nil {
			log.Warn("unknown provider tag in static agent file",
				zap.String("agent_id", spec.AgentID), zap.String("tag", spec.ProviderTag), zap.Error(err))
			continue
		}

		probeCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		err = adapter.Initialize(probeCtx)
		cancel()
		if err != nil {
			log.Warn("could not initialize static agent, skipping",
				zap.String("agent_id", spec.AgentID), zap.Error(err))
			continue
		}

		registry.Register(spec.AgentID, spec.Name, spec.ProviderTag, spec.Capabilities, adapter, spec.Metadata)
		log.Info("registered static agent", zap.String("agent_id", spec.AgentID), zap.String("name", spec.Name))
	}
	return nil
}
