// Package config loads gateway configuration from a YAML file, an optional
// .env file, and environment variables. Environment variables win over the
// file so deployments can override secrets without editing config.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"modelgate/internal/registry"
)

// Config holds the full application configuration.
type Config struct {
	Server          ServerConfig              `yaml:"server"`
	Logging         LoggingConfig             `yaml:"logging"`
	Metrics         MetricsConfig             `yaml:"metrics"`
	Usage           UsageConfig               `yaml:"usage"`
	DefaultProvider string                    `yaml:"default_provider"`
	Providers       map[string]ProviderConfig `yaml:"providers"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	MasterKey string `yaml:"master_key"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // text|json
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// UsageConfig controls token-usage accounting.
type UsageConfig struct {
	// SQLitePath enables the persistent usage store when set; otherwise
	// usage is kept in memory.
	SQLitePath string `yaml:"sqlite_path"`
}

// ProviderConfig holds per-provider overrides. The key in Config.Providers
// must match a registry descriptor id.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// Load reads configuration. path may be empty, in which case only .env and
// environment variables apply. A missing .env is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server:          ServerConfig{Addr: ":8080"},
		Logging:         LoggingConfig{Level: "info", Format: "text"},
		Metrics:         MetricsConfig{Endpoint: "/metrics"},
		DefaultProvider: "openrouter",
		Providers:       map[string]ProviderConfig{},
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		if cfg.Providers == nil {
			cfg.Providers = map[string]ProviderConfig{}
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv layers environment variables over the file values. Provider
// overrides use the uppercased provider id: OPENAI_API_KEY, CUSTOM_BASE_URL,
// ANTHROPIC_MODEL, and so on.
func (c *Config) applyEnv() {
	if v := os.Getenv("MODELGATE_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("MODELGATE_MASTER_KEY"); v != "" {
		c.Server.MasterKey = v
	}
	if v := os.Getenv("MODELGATE_DEFAULT_PROVIDER"); v != "" {
		c.DefaultProvider = v
	}
	if v := os.Getenv("MODELGATE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("MODELGATE_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("MODELGATE_USAGE_SQLITE"); v != "" {
		c.Usage.SQLitePath = v
	}
	if v := os.Getenv("MODELGATE_METRICS_ENABLED"); v != "" {
		c.Metrics.Enabled = v == "true" || v == "1"
	}

	for _, desc := range registry.Defaults() {
		prefix := strings.ToUpper(desc.ID)
		pc := c.Providers[desc.ID]
		if v := os.Getenv(prefix + "_API_KEY"); v != "" {
			pc.APIKey = v
		}
		if v := os.Getenv(prefix + "_BASE_URL"); v != "" {
			pc.BaseURL = v
		}
		if v := os.Getenv(prefix + "_MODEL"); v != "" {
			pc.Model = v
		}
		if pc != (ProviderConfig{}) {
			c.Providers[desc.ID] = pc
		}
	}
}

func (c *Config) validate() error {
	known := make(map[string]registry.Descriptor)
	for _, d := range registry.Defaults() {
		known[d.ID] = d
	}
	for id := range c.Providers {
		if _, ok := known[id]; !ok {
			return fmt.Errorf("unknown provider %q in configuration", id)
		}
	}
	// The generic OpenAI-compatible entry has no base URL of its own.
	if pc, ok := c.Providers["custom"]; ok && pc.APIKey != "" && pc.BaseURL == "" {
		return fmt.Errorf("provider \"custom\" requires base_url")
	}
	if _, ok := known[c.DefaultProvider]; !ok {
		return fmt.Errorf("default_provider %q is not a known provider", c.DefaultProvider)
	}
	return nil
}

// Descriptors returns the built-in provider table with configuration
// overrides (base URL, default model) applied.
func (c *Config) Descriptors() []registry.Descriptor {
	defaults := registry.Defaults()
	out := make([]registry.Descriptor, 0, len(defaults))
	for _, d := range defaults {
		if pc, ok := c.Providers[d.ID]; ok {
			if pc.BaseURL != "" {
				d.BaseURL = pc.BaseURL
			}
			if pc.Model != "" {
				d.DefaultModel = pc.Model
			}
		}
		out = append(out, d)
	}
	return out
}
