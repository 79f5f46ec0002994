package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for required fields and valid values.
// All problems are reported together, each with its field path.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("server timeouts must not be negative"))
	}

	// route.path must be an absolute path without query.
	switch p := c.Route.Path; {
	case !strings.HasPrefix(p, "/"):
		errs = append(errs, fmt.Errorf("route.path must start with \"/\", got %q", p))
	case strings.ContainsAny(p, "?#"):
		errs = append(errs, fmt.Errorf("route.path must not contain a query or fragment, got %q", p))
	case p == c.Server.HealthPath || (c.Observability.Metrics.Enabled && p == c.Observability.Metrics.Path):
		errs = append(errs, fmt.Errorf("route.path %q collides with the health or metrics endpoint", p))
	}

	switch c.Backend.Type {
	case "echo":
		// no settings
	case "openai":
		if c.Backend.URL == "" {
			errs = append(errs, errors.New("backend.url is required when backend.type is \"openai\""))
		}
	case "mcp":
		if c.Backend.MCP.URL == "" {
			errs = append(errs, errors.New("backend.mcp.url is required when backend.type is \"mcp\""))
		}
		if c.Backend.MCP.Tool == "" {
			errs = append(errs, errors.New("backend.mcp.tool is required when backend.type is \"mcp\""))
		}
		switch c.Backend.MCP.Transport {
		case "sse", "streamable-http", "":
			// valid
		default:
			errs = append(errs, fmt.Errorf("backend.mcp.transport must be \"sse\" or \"streamable-http\", got %q", c.Backend.MCP.Transport))
		}
	default:
		errs = append(errs, fmt.Errorf("backend.type must be \"echo\", \"openai\" or \"mcp\", got %q", c.Backend.Type))
	}

	switch c.Backend.Mode {
	case "buffered", "streaming":
		// valid
	default:
		errs = append(errs, fmt.Errorf("backend.mode must be \"buffered\" or \"streaming\", got %q", c.Backend.Mode))
	}

	switch c.Backend.FailureMode {
	case "status", "inband":
		// valid
	default:
		errs = append(errs, fmt.Errorf("backend.failure_mode must be \"status\" or \"inband\", got %q", c.Backend.FailureMode))
	}

	if c.Backend.Timeout < 0 {
		errs = append(errs, fmt.Errorf("backend.timeout must not be negative, got %v", c.Backend.Timeout))
	}

	switch strings.ToUpper(strings.TrimSpace(c.Logging.Level)) {
	case "TRACE", "DEBUG", "INFO", "WARN", "WARNING", "ERROR", "":
		// valid
	default:
		errs = append(errs, fmt.Errorf("logging.level must be TRACE, DEBUG, INFO, WARN or ERROR, got %q", c.Logging.Level))
	}

	if c.Observability.Metrics.Enabled && !strings.HasPrefix(c.Observability.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("observability.metrics.path must start with \"/\", got %q", c.Observability.Metrics.Path))
	}

	return errors.Join(errs...)
}
