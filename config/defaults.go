// =============================================================================
// Orchestrator default configuration
// =============================================================================
// Supplies sane defaults for every configuration section.
// =============================================================================
package config

import "time"

// DefaultConfig returns the orchestrator's default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server:       DefaultServerConfig(),
		Orchestrator: DefaultOrchestratorConfig(),
		Providers:    DefaultProvidersConfig(),
		Log:          DefaultLogConfig(),
	}
}

// DefaultServerConfig returns the default HTTP control API configuration.
// Port 8053 is the ARCHON_ORCHESTRATOR_PORT default.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:            8053,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 15 * time.Second,
	}
}

// DefaultOrchestratorConfig returns the default scheduler configuration.
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		Workers:                10,
		AgentsFile:             "",
		ProviderRateLimitRPS:   5,
		ProviderRateLimitBurst: 10,
	}
}

// DefaultProvidersConfig returns the default provider endpoint overrides.
func DefaultProvidersConfig() ProvidersConfig {
	return ProvidersConfig{
		ClaudeFlowMCPEndpoint: "http://localhost:8051",
	}
}

// DefaultLogConfig returns the default logging configuration.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}
