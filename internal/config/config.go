// ABOUTME: Configuration loading and parsing for the chat backend
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete chat backend configuration
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Completion   CompletionConfig   `yaml:"completion"`
	Tools        ToolsConfig        `yaml:"tools"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Health       HealthConfig       `yaml:"health"`
	Audit        AuditConfig        `yaml:"audit"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// ServerConfig holds the HTTP listener configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"-"`

	ShutdownTimeoutRaw string `yaml:"shutdown_timeout"`
}

// ListenAddr returns the host:port address the server binds to.
func (s ServerConfig) ListenAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// CompletionConfig holds the completion service client configuration
type CompletionConfig struct {
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"` // optional OpenAI-compatible endpoint
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// ToolsConfig holds the tool provider and execution configuration
type ToolsConfig struct {
	Enabled   bool      `yaml:"enabled"`
	Transport string    `yaml:"transport"` // "http" or "mcp"
	BaseURL   string    `yaml:"base_url"`  // http transport
	MCP       MCPConfig `yaml:"mcp"`

	CatalogTTL     time.Duration `yaml:"-"`
	CatalogGrace   time.Duration `yaml:"-"`
	FetchTimeout   time.Duration `yaml:"-"`
	ExecuteTimeout time.Duration `yaml:"-"`
	RetryBaseDelay time.Duration `yaml:"-"`

	MaxAttempts   int `yaml:"max_attempts"`
	MaxConcurrent int `yaml:"max_concurrent"`

	CatalogTTLRaw     string `yaml:"catalog_ttl"`
	CatalogGraceRaw   string `yaml:"catalog_grace"`
	FetchTimeoutRaw   string `yaml:"fetch_timeout"`
	ExecuteTimeoutRaw string `yaml:"execute_timeout"`
	RetryBaseDelayRaw string `yaml:"retry_base_delay"`
}

// MCPConfig selects the MCP transport endpoint: a streamable HTTP URL or a
// stdio subprocess command.
type MCPConfig struct {
	URL     string   `yaml:"url"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// OrchestratorConfig bounds the conversation loop
type OrchestratorConfig struct {
	MaxRounds int `yaml:"max_rounds"`
}

// HealthConfig holds the provider liveness probe configuration
type HealthConfig struct {
	ProbeInterval time.Duration `yaml:"-"`
	ProbeTimeout  time.Duration `yaml:"-"`

	ProbeIntervalRaw string `yaml:"probe_interval"`
	ProbeTimeoutRaw  string `yaml:"probe_timeout"`
}

// AuditConfig holds the tool invocation ledger configuration
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file overrides a field.
// The completion credentials come from the environment so the backend runs
// from a bare .env file.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			ShutdownTimeout: 5 * time.Second,
		},
		Completion: CompletionConfig{
			APIKey:      os.Getenv("OPENAI_API_KEY"),
			BaseURL:     os.Getenv("OPENAI_BASE_URL"),
			Model:       "gpt-4o-mini",
			MaxTokens:   1000,
			Temperature: 0.7,
		},
		Tools: ToolsConfig{
			Enabled:        true,
			Transport:      "http",
			BaseURL:        "http://localhost:8001",
			CatalogTTL:     30 * time.Second,
			CatalogGrace:   15 * time.Second,
			FetchTimeout:   10 * time.Second,
			ExecuteTimeout: 30 * time.Second,
			RetryBaseDelay: 200 * time.Millisecond,
			MaxAttempts:    3,
			MaxConcurrent:  8,
		},
		Orchestrator: OrchestratorConfig{
			MaxRounds: 5,
		},
		Health: HealthConfig{
			ProbeInterval: 5 * time.Second,
			ProbeTimeout:  3 * time.Second,
		},
		Audit: AuditConfig{
			Enabled: false,
			Path:    "data/audit.db",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a configuration file from the given path over the defaults.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Completion.Model == "" {
		return fmt.Errorf("completion.model is required")
	}
	if c.Completion.MaxTokens < 1 {
		return fmt.Errorf("completion.max_tokens must be at least 1, got %d", c.Completion.MaxTokens)
	}
	if c.Completion.Temperature < 0 || c.Completion.Temperature > 2 {
		return fmt.Errorf("completion.temperature must be between 0 and 2, got %g", c.Completion.Temperature)
	}

	switch c.Tools.Transport {
	case "http":
		if c.Tools.Enabled && c.Tools.BaseURL == "" {
			return fmt.Errorf("tools.base_url is required for the http transport")
		}
	case "mcp":
		if c.Tools.Enabled && c.Tools.MCP.URL == "" && c.Tools.MCP.Command == "" {
			return fmt.Errorf("tools.mcp.url or tools.mcp.command is required for the mcp transport")
		}
	default:
		return fmt.Errorf("tools.transport must be http or mcp, got %q", c.Tools.Transport)
	}

	if c.Tools.CatalogTTL <= 0 {
		return fmt.Errorf("tools.catalog_ttl must be positive")
	}
	if c.Tools.CatalogGrace < 0 {
		return fmt.Errorf("tools.catalog_grace must not be negative")
	}
	if c.Tools.ExecuteTimeout <= 0 {
		return fmt.Errorf("tools.execute_timeout must be positive")
	}
	if c.Tools.MaxAttempts < 1 {
		return fmt.Errorf("tools.max_attempts must be at least 1, got %d", c.Tools.MaxAttempts)
	}
	if c.Tools.MaxConcurrent < 1 {
		return fmt.Errorf("tools.max_concurrent must be at least 1, got %d", c.Tools.MaxConcurrent)
	}

	if c.Orchestrator.MaxRounds < 1 {
		return fmt.Errorf("orchestrator.max_rounds must be at least 1, got %d", c.Orchestrator.MaxRounds)
	}

	if c.Health.ProbeInterval <= 0 {
		return fmt.Errorf("health.probe_interval must be positive")
	}

	if c.Audit.Enabled && c.Audit.Path == "" {
		return fmt.Errorf("audit.path is required when audit is enabled")
	}
	if c.Metrics.Enabled && c.Metrics.Path == "" {
		return fmt.Errorf("metrics.path is required when metrics are enabled")
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"server.shutdown_timeout", cfg.Server.ShutdownTimeoutRaw, &cfg.Server.ShutdownTimeout},
		{"tools.catalog_ttl", cfg.Tools.CatalogTTLRaw, &cfg.Tools.CatalogTTL},
		{"tools.catalog_grace", cfg.Tools.CatalogGraceRaw, &cfg.Tools.CatalogGrace},
		{"tools.fetch_timeout", cfg.Tools.FetchTimeoutRaw, &cfg.Tools.FetchTimeout},
		{"tools.execute_timeout", cfg.Tools.ExecuteTimeoutRaw, &cfg.Tools.ExecuteTimeout},
		{"tools.retry_base_delay", cfg.Tools.RetryBaseDelayRaw, &cfg.Tools.RetryBaseDelay},
		{"health.probe_interval", cfg.Health.ProbeIntervalRaw, &cfg.Health.ProbeInterval},
		{"health.probe_timeout", cfg.Health.ProbeTimeoutRaw, &cfg.Health.ProbeTimeout},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}

	return nil
}
