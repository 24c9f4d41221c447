package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Sandbox  SandboxConfig  `yaml:"sandbox"`
	Engine   EngineConfig   `yaml:"engine"`
	Limits   RequestLimits  `yaml:"limits"`
	Cache    CacheConfig    `yaml:"cache"`
	Database DatabaseConfig `yaml:"database"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Tracing  TracingConfig  `yaml:"tracing"`
	Security SecurityConfig `yaml:"security"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxRequestBody  int64         `yaml:"max_request_body_bytes"`
}

type SandboxConfig struct {
	Backend        string        `yaml:"backend"` // "process" (default) or "docker"
	GCCPath        string        `yaml:"gcc_path"`
	GXXPath        string        `yaml:"gxx_path"`
	DockerImage    string        `yaml:"docker_image"`
	WorkDir        string        `yaml:"work_dir"` // root for scratch workspaces; empty uses the system temp dir
	CompileTimeout time.Duration `yaml:"compile_timeout"`
	MaxConcurrent  int           `yaml:"max_concurrent"`
	MemoryLimitMB  int64         `yaml:"memory_limit_mb"`
	OutputLimitKB  int64         `yaml:"output_limit_kb"`
}

// EngineConfig controls delegation to a remote execution engine. An empty URL
// disables delegation and the local sandbox backend serves everything.
type EngineConfig struct {
	URL            string        `yaml:"url"`
	TimeoutPadding time.Duration `yaml:"timeout_padding"` // added to the request timeout for the HTTP call
}

// RequestLimits bounds what a single request may carry.
type RequestLimits struct {
	MaxSourceChars int           `yaml:"max_source_chars"`
	MaxStdinChars  int           `yaml:"max_stdin_chars"`
	MinTimeout     time.Duration `yaml:"min_timeout"`
	MaxTimeout     time.Duration `yaml:"max_timeout"`
	DefaultTimeout time.Duration `yaml:"default_timeout"`
}

type CacheConfig struct {
	ExecutionTTL     time.Duration `yaml:"execution_ttl"`
	AnalysisTTL      time.Duration `yaml:"analysis_ttl"`
	VisualizationTTL time.Duration `yaml:"visualization_ttl"`
	CleanupInterval  time.Duration `yaml:"cleanup_interval"`
}

type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type TracingConfig struct {
	Enabled  bool    `yaml:"enabled"`
	Endpoint string  `yaml:"endpoint"`
	Sample   float64 `yaml:"sample_rate"`
}

type SecurityConfig struct {
	APIKeyHeader   string   `yaml:"api_key_header"`
	AllowedKeys    []string `yaml:"allowed_keys"`
	RateLimitRPS   float64  `yaml:"rate_limit_rps"`
	RateLimitBurst int      `yaml:"rate_limit_burst"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path)) // #nosec G304 -- path comes from CLI flag or hardcoded default
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns sensible defaults for all configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    45 * time.Second, // > max execution timeout + overhead
			ShutdownTimeout: 30 * time.Second,
			MaxRequestBody:  1 << 20, // 1MB
		},
		Sandbox: SandboxConfig{
			Backend:        "process",
			GCCPath:        "gcc",
			GXXPath:        "g++",
			DockerImage:    "docker.io/library/gcc:13",
			CompileTimeout: 20 * time.Second,
			MaxConcurrent:  8,
			MemoryLimitMB:  256,
			OutputLimitKB:  1024,
		},
		Engine: EngineConfig{
			URL:            "",
			TimeoutPadding: 2 * time.Second,
		},
		Limits: RequestLimits{
			MaxSourceChars: 50000,
			MaxStdinChars:  10000,
			MinTimeout:     1 * time.Second,
			MaxTimeout:     30 * time.Second,
			DefaultTimeout: 10 * time.Second,
		},
		Cache: CacheConfig{
			ExecutionTTL:     5 * time.Minute,
			AnalysisTTL:      30 * time.Minute,
			VisualizationTTL: 30 * time.Minute,
			CleanupInterval:  10 * time.Minute,
		},
		Database: DatabaseConfig{
			DSN:             "",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Tracing: TracingConfig{
			Enabled: false,
			Sample:  0.1,
		},
		Security: SecurityConfig{
			APIKeyHeader:   "X-API-Key",
			RateLimitRPS:   100,
			RateLimitBurst: 200,
		},
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	switch c.Sandbox.Backend {
	case "process", "docker":
	default:
		return fmt.Errorf("sandbox.backend must be process or docker, got %q", c.Sandbox.Backend)
	}
	if c.Sandbox.MaxConcurrent < 1 {
		return fmt.Errorf("sandbox.max_concurrent must be >= 1")
	}
	if c.Sandbox.MemoryLimitMB < 16 {
		return fmt.Errorf("sandbox.memory_limit_mb must be >= 16")
	}
	if c.Sandbox.OutputLimitKB < 1 {
		return fmt.Errorf("sandbox.output_limit_kb must be >= 1")
	}
	if c.Limits.MinTimeout < time.Second {
		return fmt.Errorf("limits.min_timeout must be >= 1s")
	}
	if c.Limits.MaxTimeout < c.Limits.MinTimeout {
		return fmt.Errorf("limits.max_timeout (%s) must be >= min_timeout (%s)",
			c.Limits.MaxTimeout, c.Limits.MinTimeout)
	}
	if c.Limits.DefaultTimeout < c.Limits.MinTimeout || c.Limits.DefaultTimeout > c.Limits.MaxTimeout {
		return fmt.Errorf("limits.default_timeout (%s) must be within [%s, %s]",
			c.Limits.DefaultTimeout, c.Limits.MinTimeout, c.Limits.MaxTimeout)
	}
	if c.Limits.MaxSourceChars < 1 {
		return fmt.Errorf("limits.max_source_chars must be >= 1")
	}
	if c.Cache.ExecutionTTL <= 0 || c.Cache.AnalysisTTL <= 0 || c.Cache.VisualizationTTL <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}
	return nil
}

// Address returns the listen address string.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
