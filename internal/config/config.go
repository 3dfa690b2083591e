// ABOUTME: Configuration loading and parsing for lumen-gateway
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config represents the complete lumen-gateway configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Auth     AuthConfig     `yaml:"auth"`
	Worker   WorkerConfig   `yaml:"worker"`
	LLM      LLMConfig      `yaml:"llm"`
	Sessions SessionsConfig `yaml:"sessions"`
	Logs     LogsConfig     `yaml:"logs"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" env:"LUMEN_HTTP_ADDR"`
	// DevMode exposes internal error details in responses. Never enable
	// in production.
	DevMode bool `yaml:"dev_mode" env:"LUMEN_DEV_MODE"`
}

// AuthConfig holds the shared access key required on every API request
type AuthConfig struct {
	AccessKey string `yaml:"access_key" env:"LUMEN_ACCESS_KEY"`
}

// WorkerConfig holds tool-worker process configuration
type WorkerConfig struct {
	// Command is the worker executable; resolved via PATH when relative.
	Command string   `yaml:"command" env:"LUMEN_WORKER_COMMAND"`
	Args    []string `yaml:"args"`

	// MaxConcurrent caps the number of live worker processes.
	MaxConcurrent int `yaml:"max_concurrent" env:"LUMEN_WORKER_MAX_CONCURRENT"`

	SpawnTimeout   time.Duration `yaml:"-"`
	TerminateGrace time.Duration `yaml:"-"`
	InitTimeout    time.Duration `yaml:"-"`
	MethodTimeout  time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	SpawnTimeoutRaw   string `yaml:"spawn_timeout"`
	TerminateGraceRaw string `yaml:"terminate_grace"`
	InitTimeoutRaw    string `yaml:"init_timeout"`
	MethodTimeoutRaw  string `yaml:"method_timeout"`
}

// LLMConfig holds the chat-completion backend configuration
type LLMConfig struct {
	BaseURL string `yaml:"base_url" env:"LUMEN_LLM_BASE_URL"`
	APIKey  string `yaml:"api_key" env:"LUMEN_LLM_API_KEY"`
	Model   string `yaml:"model" env:"LUMEN_LLM_MODEL"`
	// MaxToolRounds bounds the tool-call loop for one chat request.
	MaxToolRounds int `yaml:"max_tool_rounds"`
}

// SessionsConfig holds session bookkeeping and rate limiting configuration
type SessionsConfig struct {
	RatePerMinute int `yaml:"rate_per_minute"`
	RateBurst     int `yaml:"rate_burst"`

	MaxAge        time.Duration `yaml:"-"`
	SweepInterval time.Duration `yaml:"-"`

	MaxAgeRaw        string `yaml:"max_age"`
	SweepIntervalRaw string `yaml:"sweep_interval"`
}

// LogsConfig holds log sink bounds and classification configuration
type LogsConfig struct {
	BufferSize  int `yaml:"buffer_size"`
	MaxSessions int `yaml:"max_sessions"`
	// QueryLimitCap bounds the limit parameter of log query endpoints.
	QueryLimitCap int `yaml:"query_limit_cap"`
	// SystemKeywords classify matching messages as system-wide.
	SystemKeywords []string `yaml:"system_keywords"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LUMEN_LOG_LEVEL"`
	Format string `yaml:"format" env:"LUMEN_LOG_FORMAT"`
}

// Default returns a configuration with all defaults applied and no file
// loaded. Useful for tests and for init.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a configuration file from the given path and returns a parsed
// Config. Environment variables in the format ${VAR_NAME} are expanded
// inside the file; LUMEN_* environment variables override individual
// fields afterwards. Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse parses raw YAML configuration bytes.
func Parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Environment overrides beat file values
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("applying env overrides: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
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

// applyDefaults fills zero-valued fields with operational defaults.
func (c *Config) applyDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = "localhost:8080"
	}
	if c.Worker.Command == "" {
		c.Worker.Command = "lifx-worker"
	}
	if c.Worker.MaxConcurrent <= 0 {
		c.Worker.MaxConcurrent = 5
	}
	if c.Worker.SpawnTimeout <= 0 {
		c.Worker.SpawnTimeout = 30 * time.Second
	}
	if c.Worker.TerminateGrace <= 0 {
		c.Worker.TerminateGrace = 5 * time.Second
	}
	if c.Worker.InitTimeout <= 0 {
		c.Worker.InitTimeout = 5 * time.Second
	}
	if c.Worker.MethodTimeout <= 0 {
		c.Worker.MethodTimeout = 10 * time.Second
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://api.openai.com/v1"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o-mini"
	}
	if c.LLM.MaxToolRounds <= 0 {
		c.LLM.MaxToolRounds = 8
	}
	if c.Sessions.RatePerMinute <= 0 {
		c.Sessions.RatePerMinute = 20
	}
	if c.Sessions.RateBurst <= 0 {
		c.Sessions.RateBurst = 5
	}
	if c.Sessions.MaxAge <= 0 {
		c.Sessions.MaxAge = 30 * time.Minute
	}
	if c.Sessions.SweepInterval <= 0 {
		c.Sessions.SweepInterval = 5 * time.Minute
	}
	if c.Logs.BufferSize <= 0 {
		c.Logs.BufferSize = 500
	}
	if c.Logs.MaxSessions <= 0 {
		c.Logs.MaxSessions = 50
	}
	if c.Logs.QueryLimitCap <= 0 {
		c.Logs.QueryLimitCap = 100
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Auth.AccessKey == "" {
		return fmt.Errorf("auth.access_key is required (or set LUMEN_ACCESS_KEY)")
	}
	if c.Worker.MaxConcurrent < 1 {
		return fmt.Errorf("worker.max_concurrent must be at least 1")
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	pairs := []struct {
		raw  string
		dst  *time.Duration
		name string
	}{
		{cfg.Worker.SpawnTimeoutRaw, &cfg.Worker.SpawnTimeout, "worker.spawn_timeout"},
		{cfg.Worker.TerminateGraceRaw, &cfg.Worker.TerminateGrace, "worker.terminate_grace"},
		{cfg.Worker.InitTimeoutRaw, &cfg.Worker.InitTimeout, "worker.init_timeout"},
		{cfg.Worker.MethodTimeoutRaw, &cfg.Worker.MethodTimeout, "worker.method_timeout"},
		{cfg.Sessions.MaxAgeRaw, &cfg.Sessions.MaxAge, "sessions.max_age"},
		{cfg.Sessions.SweepIntervalRaw, &cfg.Sessions.SweepInterval, "sessions.sweep_interval"},
	}

	for _, p := range pairs {
		if p.raw == "" {
			continue
		}
		d, err := time.ParseDuration(p.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", p.name, p.raw, err)
		}
		*p.dst = d
	}

	return nil
}
