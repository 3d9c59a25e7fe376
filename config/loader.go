// =============================================================================
// Orchestrator configuration loader
// =============================================================================
// Unified config loading: YAML file + environment variable overrides.
//
// Usage:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("orchestrator.yaml").
//	    WithEnvPrefix("ORCHESTRATOR").
//	    Load()
//
// Priority: defaults -> YAML file -> environment variables.
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// Core configuration structs
// =============================================================================

// Config is the orchestrator's complete configuration.
type Config struct {
	// Server configures the HTTP control API listener.
	Server ServerConfig `yaml:"server" env:"SERVER"`

	// Orchestrator configures the scheduler/worker pool and bootstrap.
	Orchestrator OrchestratorConfig `yaml:"orchestrator" env:"ORCHESTRATOR"`

	// Providers carries per-backend endpoint overrides. API keys are read
	// directly from their bare environment variables (see
	// internal/orchestrator.AutoBootstrapConfigFromEnv), not through this
	// struct, so a key never round-trips through a YAML file on disk.
	Providers ProvidersConfig `yaml:"providers" env:"PROVIDERS"`

	// Log configures the zap logger.
	Log LogConfig `yaml:"log" env:"LOG"`
}

// ServerConfig configures the HTTP control API.
type ServerConfig struct {
	// Port the control API listens on.
	Port int `yaml:"port" env:"PORT"`
	// Read timeout.
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// Write timeout.
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	// Idle timeout.
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT"`
	// Graceful shutdown timeout.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// OrchestratorConfig configures the scheduler and auto-bootstrap.
type OrchestratorConfig struct {
	// Fixed worker pool size.
	Workers int `yaml:"workers" env:"WORKERS"`
	// Optional path to a static agents.yaml bootstrap file, read once at
	// startup in addition to the env-var auto-bootstrap.
	AgentsFile string `yaml:"agents_file" env:"AGENTS_FILE"`
	// Per-upstream outbound rate limit (requests per second) shared by
	// every provider adapter's HTTP client.
	ProviderRateLimitRPS float64 `yaml:"provider_rate_limit_rps" env:"PROVIDER_RATE_LIMIT_RPS"`
	// Burst allowance for the same rate limiter.
	ProviderRateLimitBurst int `yaml:"provider_rate_limit_burst" env:"PROVIDER_RATE_LIMIT_BURST"`
}

// ProvidersConfig carries non-secret provider overrides (base URLs and the
// Claude Flow MCP endpoint). Credentials live in their own bare env vars.
type ProvidersConfig struct {
	// ClaudeFlowMCPEndpoint is the base URL of the MCP HTTP server the
	// claude_flow adapter calls. Overridden by CLAUDE_FLOW_MCP_ENDPOINT.
	ClaudeFlowMCPEndpoint string `yaml:"claude_flow_mcp_endpoint" env:"CLAUDE_FLOW_MCP_ENDPOINT"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	// Level: debug, info, warn, error.
	Level string `yaml:"level" env:"LEVEL"`
	// Format: json, console.
	Format string `yaml:"format" env:"FORMAT"`
	// Output paths, e.g. ["stdout"].
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// Whether to log the calling file:line.
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// Whether to attach a stacktrace to error-level logs.
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// =============================================================================
// Loader
// =============================================================================

// Loader loads a Config via a builder-style chain.
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "ORCHESTRATOR",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath sets the YAML config file path.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix sets the environment variable prefix for struct-tag
// overrides (defaults to ORCHESTRATOR).
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator adds a config validation hook.
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load builds a Config: defaults, then an optional YAML file, then
// environment variables, then the bare env var overrides
// (ARCHON_ORCHESTRATOR_PORT, CLAUDE_FLOW_MCP_ENDPOINT), then validators.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	applyBareEnvOverrides(cfg)

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// applyBareEnvOverrides applies the handful of well-known bare
// environment variables (not prefixed/nested), so they take effect
// even when the caller never sets an ORCHESTRATOR_* override.
func applyBareEnvOverrides(cfg *Config) {
	if v := os.Getenv("ARCHON_ORCHESTRATOR_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("CLAUDE_FLOW_MCP_ENDPOINT"); v != "" {
		cfg.Providers.ClaudeFlowMCPEndpoint = v
	}
}

// loadFromFile loads configuration from a YAML file. A missing file is
// not an error — the defaults stand.
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv overlays environment variables onto cfg using struct `env`
// tags nested under the loader's prefix.
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// Helpers
// =============================================================================

// MustLoad loads configuration, panicking on failure.
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// LoadFromEnv loads configuration from defaults + environment only.
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

// Validate checks the config for obviously invalid values.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, "invalid server port")
	}
	if c.Orchestrator.Workers <= 0 {
		errs = append(errs, "orchestrator.workers must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
