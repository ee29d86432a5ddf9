// Package config loads process configuration for the Okta MCP server.
//
// Configuration is resolved in three layers: an optional YAML file, then
// environment variables, then command line flags. The resulting Config is
// passed explicitly into constructors; nothing in the core reads ambient
// process state.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Transport selection values.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
	TransportSSE   = "sse"
)

// Defaults mirroring the documented server behavior.
const (
	DefaultHost           = "127.0.0.1"
	DefaultPort           = 3000
	DefaultMaxResults     = 100
	DefaultRequestTimeout = 30 * time.Second
)

// Config holds the resolved process configuration.
type Config struct {
	// Okta tenant connection. Both are opaque to the core.
	OrgURL   string `yaml:"org_url"`
	APIToken string `yaml:"api_token"`

	// Transport selection and HTTP binding.
	Transport        string `yaml:"transport"`
	Host             string `yaml:"host"`
	Port             int    `yaml:"port"`
	AcknowledgeRisks bool   `yaml:"acknowledge_risks"`

	// Result bounding ceiling applied to every listing tool.
	MaxResults int `yaml:"max_results"`

	// Per-call deadline for directory requests.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	LogLevel string `yaml:"log_level"`
}

// Default returns a Config with all defaults applied.
func Default() *Config {
	return &Config{
		Transport:      TransportStdio,
		Host:           DefaultHost,
		Port:           DefaultPort,
		MaxResults:     DefaultMaxResults,
		RequestTimeout: DefaultRequestTimeout,
		LogLevel:       "INFO",
	}
}

// LoadFile merges a YAML config file over the receiver.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// LoadEnv merges environment variables over the receiver.
func (c *Config) LoadEnv() {
	if v := os.Getenv("OKTA_CLIENT_ORGURL"); v != "" {
		c.OrgURL = v
	}
	if v := os.Getenv("OKTA_API_TOKEN"); v != "" {
		c.APIToken = v
	}
	if v := os.Getenv("OKTA_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("OKTA_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.MaxResults = n
		}
	}
	if v := os.Getenv("OKTA_REQUEST_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.RequestTimeout = time.Duration(n) * time.Second
		}
	}
}

// Validate checks invariants that must abort startup when violated.
func (c *Config) Validate() error {
	if c.OrgURL != "" && !strings.HasPrefix(c.OrgURL, "https://") {
		return fmt.Errorf("OKTA_CLIENT_ORGURL must be in format https://your-org.okta.com, got %q", c.OrgURL)
	}
	switch c.Transport {
	case TransportStdio:
	case TransportHTTP, TransportSSE:
		if !c.AcknowledgeRisks {
			return fmt.Errorf("%s transport exposes the server over the network and requires --iunderstandtherisks", c.Transport)
		}
	default:
		return fmt.Errorf("unknown transport %q", c.Transport)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.MaxResults < 1 {
		return fmt.Errorf("max_results must be positive, got %d", c.MaxResults)
	}
	return nil
}

// HasCredentials reports whether the Okta tenant connection is configured.
// Missing credentials do not block startup: tools fail individually with a
// configuration error until the environment is fixed.
func (c *Config) HasCredentials() bool {
	return c.OrgURL != "" && c.APIToken != ""
}

// ListenAddress returns the host:port bind address for HTTP transports.
func (c *Config) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
