// Package config provides unified configuration for promptgate.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (PROMPTGATE_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for promptgate.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Route         RouteConfig         `yaml:"route"`
	Backend       BackendConfig       `yaml:"backend"`
	Logging       LoggingConfig       `yaml:"logging"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`             // default: 8080
	ReadTimeout     time.Duration `yaml:"read_timeout"`     // default: 30s
	WriteTimeout    time.Duration `yaml:"write_timeout"`    // default: 0 (no limit)
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 30s
	HealthPath      string        `yaml:"health_path"`      // default: "/healthz"
}

// RouteConfig holds the single dispatch route.
type RouteConfig struct {
	Path string `yaml:"path"` // default: "/openai-proxy"
}

// BackendConfig selects and configures the generation backend.
type BackendConfig struct {
	Type        string `yaml:"type"`         // "echo", "openai" or "mcp", default: "echo"
	Mode        string `yaml:"mode"`         // "buffered" or "streaming", default: "buffered"
	FailureMode string `yaml:"failure_mode"` // "status" or "inband", default: "status"

	URL          string        `yaml:"url"`           // openai: server root, e.g. http://localhost:8000
	APIKey       string        `yaml:"api_key"`       // optional
	APIKeyFile   string        `yaml:"api_key_file"`  // _file variant for api_key
	Model        string        `yaml:"model"`         // optional
	SystemPrompt string        `yaml:"system_prompt"` // optional
	Timeout      time.Duration `yaml:"timeout"`       // default: 120s

	MCP MCPServerConfig `yaml:"mcp"`
}

// MCPServerConfig describes the MCP server and tool used by the mcp backend.
type MCPServerConfig struct {
	Name      string            `yaml:"name" json:"name"`
	Transport string            `yaml:"transport" json:"transport"` // "sse" or "streamable-http"
	URL       string            `yaml:"url" json:"url"`
	Tool      string            `yaml:"tool" json:"tool"`
	Argument  string            `yaml:"argument" json:"argument"` // default: "prompt"
	Headers   map[string]string `yaml:"headers" json:"headers"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // TRACE, DEBUG, INFO, WARN, ERROR; default: INFO
	Debug string `yaml:"debug"` // comma-separated debug categories, e.g. "transport,backend"
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			HealthPath:      "/healthz",
		},
		Route: RouteConfig{
			Path: "/openai-proxy",
		},
		Backend: BackendConfig{
			Type:        "echo",
			Mode:        "buffered",
			FailureMode: "status",
			Timeout:     120 * time.Second,
			MCP: MCPServerConfig{
				Transport: "streamable-http",
				Argument:  "prompt",
			},
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}
