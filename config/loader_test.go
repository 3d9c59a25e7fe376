// Loader and default-config tests.
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- default config ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 8053, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)

	assert.Equal(t, 10, cfg.Orchestrator.Workers)
	assert.Equal(t, "http://localhost:8051", cfg.Providers.ClaudeFlowMCPEndpoint)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

// --- Loader tests ---

func TestLoader_LoadDefaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 8053, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Orchestrator.Workers)
}

func TestLoader_LoadFromYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
server:
  port: 8888
  read_timeout: 60s

orchestrator:
  workers: 20
  agents_file: "agents.yaml"

providers:
  claude_flow_mcp_endpoint: "http://mcp.example.com:8051"

log:
  level: "debug"
  format: "console"
`
	err := os.WriteFile(configPath, []byte(yamlContent), 0644)
	require.NoError(t, err)

	cfg, err := NewLoader().
		WithConfigPath(configPath).
		Load()
	require.NoError(t, err)

	assert.Equal(t, 8888, cfg.Server.Port)
	assert.Equal(t, 60*time.Second, cfg.Server.ReadTimeout)

	assert.Equal(t, 20, cfg.Orchestrator.Workers)
	assert.Equal(t, "agents.yaml", cfg.Orchestrator.AgentsFile)

	assert.Equal(t, "http://mcp.example.com:8051", cfg.Providers.ClaudeFlowMCPEndpoint)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoader_LoadFromEnv(t *testing.T) {
	envVars := map[string]string{
		"ORCHESTRATOR_SERVER_PORT":             "7777",
		"ORCHESTRATOR_ORCHESTRATOR_WORKERS":    "15",
		"ORCHESTRATOR_PROVIDERS_CLAUDE_FLOW_MCP_ENDPOINT": "http://env-mcp:8051",
		"ORCHESTRATOR_LOG_LEVEL":               "warn",
	}

	for k, v := range envVars {
		os.Setenv(k, v)
	}
	defer func() {
		for k := range envVars {
			os.Unsetenv(k)
		}
	}()

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, 15, cfg.Orchestrator.Workers)
	assert.Equal(t, "http://env-mcp:8051", cfg.Providers.ClaudeFlowMCPEndpoint)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoader_EnvOverridesYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
server:
  port: 8888
orchestrator:
  workers: 12
`
	err := os.WriteFile(configPath, []byte(yamlContent), 0644)
	require.NoError(t, err)

	os.Setenv("ORCHESTRATOR_SERVER_PORT", "9999")
	os.Setenv("ORCHESTRATOR_ORCHESTRATOR_WORKERS", "25")
	defer func() {
		os.Unsetenv("ORCHESTRATOR_SERVER_PORT")
		os.Unsetenv("ORCHESTRATOR_ORCHESTRATOR_WORKERS")
	}()

	cfg, err := NewLoader().
		WithConfigPath(configPath).
		Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 25, cfg.Orchestrator.Workers)
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	os.Setenv("MYAPP_SERVER_PORT", "6666")
	os.Setenv("MYAPP_ORCHESTRATOR_WORKERS", "3")
	defer func() {
		os.Unsetenv("MYAPP_SERVER_PORT")
		os.Unsetenv("MYAPP_ORCHESTRATOR_WORKERS")
	}()

	cfg, err := NewLoader().
		WithEnvPrefix("MYAPP").
		Load()
	require.NoError(t, err)

	assert.Equal(t, 6666, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Orchestrator.Workers)
}

func TestLoader_BareEnvOverrides(t *testing.T) {
	os.Setenv("ARCHON_ORCHESTRATOR_PORT", "9100")
	os.Setenv("CLAUDE_FLOW_MCP_ENDPOINT", "http://bare-mcp:8051")
	defer func() {
		os.Unsetenv("ARCHON_ORCHESTRATOR_PORT")
		os.Unsetenv("CLAUDE_FLOW_MCP_ENDPOINT")
	}()

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "http://bare-mcp:8051", cfg.Providers.ClaudeFlowMCPEndpoint)
}

func TestLoader_WithValidator(t *testing.T) {
	validator := func(cfg *Config) error {
		if cfg.Server.Port < 1024 {
			return assert.AnError
		}
		return nil
	}

	os.Setenv("ORCHESTRATOR_SERVER_PORT", "80")
	defer os.Unsetenv("ORCHESTRATOR_SERVER_PORT")

	_, err := NewLoader().
		WithValidator(validator).
		Load()
	assert.Error(t, err)
}

func TestLoader_NonExistentFile(t *testing.T) {
	cfg, err := NewLoader().
		WithConfigPath("/non/existent/path/config.yaml").
		Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 8053, cfg.Server.Port)
}

func TestLoader_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
server:
  port: [invalid
  this is not valid yaml
`
	err := os.WriteFile(configPath, []byte(invalidYAML), 0644)
	require.NoError(t, err)

	_, err = NewLoader().
		WithConfigPath(configPath).
		Load()
	assert.Error(t, err)
}

// --- Config methods ---

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "invalid port (negative)",
			modify: func(c *Config) {
				c.Server.Port = -1
			},
			wantErr: true,
		},
		{
			name: "invalid port (too large)",
			modify: func(c *Config) {
				c.Server.Port = 70000
			},
			wantErr: true,
		},
		{
			name: "invalid worker count",
			modify: func(c *Config) {
				c.Orchestrator.Workers = 0
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// --- MustLoad ---

func TestMustLoad_Success(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
server:
  port: 8080
`
	err := os.WriteFile(configPath, []byte(yamlContent), 0644)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		cfg := MustLoad(configPath)
		assert.Equal(t, 8080, cfg.Server.Port)
	})
}

func TestMustLoad_InvalidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	err := os.WriteFile(configPath, []byte("invalid: [yaml"), 0644)
	require.NoError(t, err)

	assert.Panics(t, func() {
		MustLoad(configPath)
	})
}

func TestLoadFromEnv_Function(t *testing.T) {
	os.Setenv("ORCHESTRATOR_ORCHESTRATOR_WORKERS", "7")
	defer os.Unsetenv("ORCHESTRATOR_ORCHESTRATOR_WORKERS")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Orchestrator.Workers)
}
