// Package providers defines the adapter interface each AI backend
// implements, plus the configuration and HTTP helpers the adapters share.
// Construction by name lives in the providers/factory sub-package.
package providers

import "context"

// Provider is the unified adapter interface every AI backend implements.
// It takes a single normalized prompt plus free-form metadata, matching
// the orchestrator's one-shot task execution model rather than a chat
// session.
type Provider interface {
	// Initialize validates the adapter's credentials and configuration,
	// returning an error if the provider cannot be used.
	Initialize(ctx context.Context) error

	// Execute runs prompt through the backend and returns its result as
	// a JSON-like map. metadata carries per-task overrides such as
	// system_prompt, temperature, and max_tokens.
	Execute(ctx context.Context, prompt string, metadata map[string]string) (map[string]any, error)

	// HealthCheck reports whether the backend is currently reachable.
	HealthCheck(ctx context.Context) error
}
