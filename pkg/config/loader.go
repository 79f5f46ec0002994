package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, PROMPTGATE_CONFIG env, ./config.yaml, /etc/promptgate/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. PROMPTGATE_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/promptgate/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("PROMPTGATE_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{
		"config.yaml",
		"/etc/promptgate/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps PROMPTGATE_* environment variables to config fields.
// Malformed numeric or JSON values are reported instead of being ignored.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("PROMPTGATE_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PROMPTGATE_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("PROMPTGATE_ROUTE_PATH"); v != "" {
		cfg.Route.Path = v
	}
	if v := os.Getenv("PROMPTGATE_BACKEND"); v != "" {
		cfg.Backend.Type = v
	}
	if v := os.Getenv("PROMPTGATE_BACKEND_MODE"); v != "" {
		cfg.Backend.Mode = v
	}
	if v := os.Getenv("PROMPTGATE_FAILURE_MODE"); v != "" {
		cfg.Backend.FailureMode = v
	}
	if v := os.Getenv("PROMPTGATE_BACKEND_URL"); v != "" {
		cfg.Backend.URL = v
	}
	if v := os.Getenv("PROMPTGATE_API_KEY"); v != "" {
		cfg.Backend.APIKey = v
	}
	if v := os.Getenv("PROMPTGATE_MODEL"); v != "" {
		cfg.Backend.Model = v
	}
	if v := os.Getenv("PROMPTGATE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("PROMPTGATE_DEBUG"); v != "" {
		cfg.Logging.Debug = v
	}

	// PROMPTGATE_MCP_SERVER: JSON object with the MCP server config.
	if v := os.Getenv("PROMPTGATE_MCP_SERVER"); v != "" {
		server, err := parseMCPServerJSON(v)
		if err != nil {
			return err
		}
		cfg.Backend.MCP = mergeMCPServer(cfg.Backend.MCP, server)
	}
	return nil
}

// parseMCPServerJSON parses a JSON object with an MCP server configuration.
func parseMCPServerJSON(jsonStr string) (MCPServerConfig, error) {
	var server MCPServerConfig
	if err := json.Unmarshal([]byte(jsonStr), &server); err != nil {
		return MCPServerConfig{}, fmt.Errorf("parsing MCP server JSON: %w", err)
	}
	return server, nil
}

// mergeMCPServer overlays the non-empty fields of override onto base.
func mergeMCPServer(base, override MCPServerConfig) MCPServerConfig {
	if override.Name != "" {
		base.Name = override.Name
	}
	if override.Transport != "" {
		base.Transport = override.Transport
	}
	if override.URL != "" {
		base.URL = override.URL
	}
	if override.Tool != "" {
		base.Tool = override.Tool
	}
	if override.Argument != "" {
		base.Argument = override.Argument
	}
	if len(override.Headers) > 0 {
		base.Headers = override.Headers
	}
	return base
}

// resolveFileReferences reads _file fields and populates the corresponding value fields.
// If the value field is empty and the file field is set, the file is read,
// whitespace is trimmed, and the value field is populated.
func resolveFileReferences(cfg *Config) error {
	// backend.api_key_file -> backend.api_key
	if cfg.Backend.APIKeyFile != "" && cfg.Backend.APIKey == "" {
		val, err := readSecretFile(cfg.Backend.APIKeyFile)
		if err != nil {
			return fmt.Errorf("backend.api_key_file: %w", err)
		}
		cfg.Backend.APIKey = val
	}
	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
