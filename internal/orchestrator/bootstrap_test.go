package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewProviderLimiters(t *testing.T) {
	assert.Nil(t, NewProviderLimiters(0, 10), "rps<=0 disables limiting")
	assert.Nil(t, NewProviderLimiters(-1, 10))

	limiters := NewProviderLimiters(5, 10)
	require.NotNil(t, limiters)
	for _, tag := range []string{"claude_flow", "gpt", "gemini", "anthropic", "grok"} {
		assert.Contains(t, limiters, tag)
	}

	// Burst defaults to 1 when unset.
	limiters = NewProviderLimiters(5, 0)
	require.NotNil(t, limiters)
	assert.Equal(t, 1, limiters["gpt"].Burst())
}

func TestRegisterStaticAgents_MissingFileIsNotAnError(t *testing.T) {
	registry := NewAgentRegistry(zap.NewNop())

	err := RegisterStaticAgents(context.Background(), registry, filepath.Join(t.TempDir(), "absent.yaml"), nil, zap.NewNop())
	require.NoError(t, err)
	assert.Empty(t, registry.All())
}

func TestRegisterStaticAgents_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.yaml")
	require.NoError(t, os.WriteFile(path, []byte("agents: [not: valid: yaml"), 0o644))

	registry := NewAgentRegistry(zap.NewNop())
	err := RegisterStaticAgents(context.Background(), registry, path, nil, zap.NewNop())
	assert.Error(t, err)
}

func TestRegisterStaticAgents_RegistersEntries(t *testing.T) {
	// The anthropic adapter's Initialize is a key-presence check, so a
	// static entry with a key registers without any network access.
	content := `
agents:
  - agent_id: claude_backup
    name: Claude Backup
    provider: anthropic
    capabilities: [code_generation, analysis]
    api_key: sk-ant-static
    metadata:
      tier: backup
  - agent_id: unknown_provider
    name: Skipped
    provider: watson
    capabilities: [general]
`
	path := filepath.Join(t.TempDir(), "agents.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	registry := NewAgentRegistry(zap.NewNop())
	err := RegisterStaticAgents(context.Background(), registry, path, nil, zap.NewNop())
	require.NoError(t, err)

	// The unknown-provider entry is skipped, not fatal.
	agents := registry.All()
	require.Len(t, agents, 1)
	assert.Equal(t, "claude_backup", agents[0].ID)
	assert.Equal(t, "anthropic", agents[0].Provider)
	assert.Contains(t, agents[0].Capabilities, "code_generation")
	assert.Equal(t, "backup", agents[0].Metadata["tier"])
}

func TestAutoBootstrapConfigFromEnv_Defaults(t *testing.T) {
	t.Setenv("CLAUDE_FLOW_MCP_ENDPOINT", "")
	t.Setenv("OPENAI_API_KEY", "sk-o")
	t.Setenv("ANTHROPIC_API_KEY", "sk-a")

	cfg := AutoBootstrapConfigFromEnv()
	assert.Equal(t, "http://localhost:8051", cfg.ClaudeFlowMCP)
	assert.Equal(t, "sk-o", cfg.OpenAIAPIKey)
	assert.Equal(t, "sk-a", cfg.AnthropicAPIKey)
}

func TestAutoRegisterAgents_SkipsMissingCredentials(t *testing.T) {
	// With no credentials and an unreachable MCP endpoint, nothing can
	// initialize; bootstrap registers nothing and does not fail.
	for _, key := range []string{"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GOOGLE_API_KEY", "XAI_API_KEY"} {
		t.Setenv(key, "")
	}

	registry := NewAgentRegistry(zap.NewNop())
	AutoRegisterAgents(context.Background(), registry, AutoBootstrapConfig{
		ClaudeFlowMCP: "http://127.0.0.1:1",
	}, nil, zap.NewNop())

	assert.Empty(t, registry.All())
}

func TestAutoRegisterAgents_RegistersAnthropicWithKey(t *testing.T) {
	for _, key := range []string{"OPENAI_API_KEY", "GOOGLE_API_KEY", "XAI_API_KEY"} {
		t.Setenv(key, "")
	}
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")

	registry := NewAgentRegistry(zap.NewNop())
	AutoRegisterAgents(context.Background(), registry, AutoBootstrapConfig{
		AnthropicAPIKey: "sk-ant-test",
		ClaudeFlowMCP:   "http://127.0.0.1:1",
	}, nil, zap.NewNop())

	agents := registry.All()
	require.Len(t, agents, 1)
	assert.Equal(t, "claude3_opus", agents[0].ID)
	assert.Equal(t, "anthropic", agents[0].Provider)
}
