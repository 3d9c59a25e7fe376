// Package claudeflow implements the Provider interface over a Claude Flow
// MCP hive-mind server: task prompts are delegated to its swarm rather
// than sent directly to a model.
package claudeflow

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/archon-ai/orchestrator/internal/orcherr"
	"github.com/archon-ai/orchestrator/providers"
)

// Provider implements providers.Provider against a Claude Flow MCP
// server's tool-invocation HTTP surface.
type Provider struct {
	cfg    providers.ClaudeFlowConfig
	client *http.Client
	logger *zap.Logger

	mu      sync.Mutex
	swarmID string
}

// New creates a Claude Flow adapter pointed at an MCP endpoint.
func New(cfg providers.ClaudeFlowConfig, logger *zap.Logger) *Provider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	if cfg.MCPEndpoint == "" {
		cfg.MCPEndpoint = "http://localhost:8051"
	}
	return &Provider{
		cfg:    cfg,
		client: providers.NewHTTPClient(timeout, cfg.Limiter),
		logger: logger.With(zap.String("provider", "claude_flow")),
	}
}

// Initialize confirms the MCP server is reachable.
func (p *Provider) Initialize(ctx context.Context) error {
	return p.HealthCheck(ctx)
}

type toolCallPayload struct {
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
}

type spawnResult struct {
	SwarmID   string `json:"swarm_id"`
	SessionID string `json:"session_id"`
}

func (p *Provider) spawnSwarm(ctx context.Context, objective string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.swarmID != "" {
		return nil
	}

	payload, err := json.Marshal(toolCallPayload{
		Tool: "hive_mind_spawn",
		Arguments: map[string]any{
			"objective":   objective,
			"queen_type":  "strategic",
			"max_workers": 4,
			"consensus":   "majority",
		},
	})
	if err != nil {
		return orcherr.New(orcherr.ValidationError, "encode swarm spawn request").WithCause(err)
	}

	endpoint := strings.TrimRight(p.cfg.MCPEndpoint, "/") + "/tools/hive_mind_spawn"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return orcherr.New(orcherr.ExecutionError, "build swarm spawn request").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return orcherr.New(orcherr.ProviderUnavailable, "claude flow mcp unreachable").
			WithCause(err).WithRetryable(true).WithProvider("claude_flow")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return orcherr.New(orcherr.ProviderUnavailable, "swarm spawn failed").
			WithHTTPStatus(resp.StatusCode).WithRetryable(true).WithProvider("claude_flow")
	}

	var result spawnResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return orcherr.New(orcherr.ExecutionError, "decode swarm spawn response").WithCause(err)
	}
	p.swarmID = result.SwarmID
	return nil
}

// Execute delegates prompt to Archon's manage_task MCP tool, spawning a
// hive-mind swarm on first use.
func (p *Provider) Execute(ctx context.Context, prompt string, metadata map[string]string) (map[string]any, error) {
	objective := prompt
	if len(objective) > 100 {
		objective = objective[:100]
	}
	if err := p.spawnSwarm(ctx, objective); err != nil {
		return nil, err
	}

	args := map[string]any{
		"action":      "create",
		"title":       objective,
		"description": prompt,
		"metadata":    metadata,
	}
	payload, err := json.Marshal(toolCallPayload{Tool: "archon:manage_task", Arguments: args})
	if err != nil {
		return nil, orcherr.New(orcherr.ValidationError, "encode manage_task request").WithCause(err)
	}

	endpoint := strings.TrimRight(p.cfg.MCPEndpoint, "/") + "/tools/archon:manage_task"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, orcherr.New(orcherr.ExecutionError, "build manage_task request").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, orcherr.New(orcherr.ProviderUnavailable, "claude flow mcp unreachable").
			WithCause(err).WithRetryable(true).WithProvider("claude_flow")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, orcherr.New(orcherr.ProviderUnavailable, "mcp returned non-200").
			WithHTTPStatus(resp.StatusCode).WithRetryable(true).WithProvider("claude_flow")
	}

	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, orcherr.New(orcherr.ExecutionError, "decode manage_task response").WithCause(err)
	}
	return result, nil
}

// HealthCheck calls the MCP server's /health endpoint.
func (p *Provider) HealthCheck(ctx context.Context) error {
	endpoint := strings.TrimRight(p.cfg.MCPEndpoint, "/") + "/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return orcherr.New(orcherr.ExecutionError, "build claude flow health request").WithCause(err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return orcherr.New(orcherr.ProviderUnavailable, "claude flow mcp unreachable").
			WithCause(err).WithRetryable(true).WithProvider("claude_flow")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return orcherr.New(orcherr.ProviderUnavailable, "claude flow mcp unhealthy").
			WithHTTPStatus(resp.StatusCode).WithRetryable(true).WithProvider("claude_flow")
	}
	return nil
}
