package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the trialscope API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	CTGov      CTGovConfig      `yaml:"ctgov"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Cache      CacheConfig      `yaml:"cache"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// CTGovConfig holds ClinicalTrials.gov client settings.
type CTGovConfig struct {
	BaseURL           string `yaml:"base_url"`
	PageSize          int    `yaml:"page_size"`
	MaxPages          int    `yaml:"max_pages"`
	RequestTimeoutSec int    `yaml:"request_timeout_sec"`
	MaxRetries        int    `yaml:"max_retries"` // retries on HTTP 429 only
	UserAgent         string `yaml:"user_agent"`
}

// ExtractionConfig holds disease-extraction provider settings.
// With an empty model, extraction is disabled and the raw condition
// text passes through unchanged.
type ExtractionConfig struct {
	APIKey        string `yaml:"api_key"`
	BaseURL       string `yaml:"base_url"`
	Model         string `yaml:"model"`
	TimeoutSec    int    `yaml:"timeout_sec"`
	MaxConcurrent int    `yaml:"max_concurrent"`
}

// Enabled reports whether an extraction provider is configured.
func (c ExtractionConfig) Enabled() bool { return c.Model != "" }

// CacheConfig holds search-result cache settings. With no addresses
// configured the cache is disabled and searches always hit the upstream.
type CacheConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	TTLSec           int      `yaml:"ttl_sec"`
	KeyPrefix        string   `yaml:"key_prefix"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// Enabled reports whether a cache backend is configured.
func (c CacheConfig) Enabled() bool { return len(c.Addrs) > 0 }

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// A search paginates an external API; responses can take a while.
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.CTGov.BaseURL == "" {
		c.CTGov.BaseURL = "https://clinicaltrials.gov/api/v2"
	}
	if c.CTGov.PageSize <= 0 {
		c.CTGov.PageSize = 1000
	}
	if c.CTGov.MaxPages <= 0 {
		c.CTGov.MaxPages = 50
	}
	if c.CTGov.RequestTimeoutSec <= 0 {
		c.CTGov.RequestTimeoutSec = 30
	}
	if c.CTGov.MaxRetries <= 0 {
		c.CTGov.MaxRetries = 3
	}
	if c.CTGov.UserAgent == "" {
		c.CTGov.UserAgent = "trialscope"
	}
	if c.Extraction.TimeoutSec <= 0 {
		c.Extraction.TimeoutSec = 20
	}
	if c.Extraction.MaxConcurrent <= 0 {
		c.Extraction.MaxConcurrent = 8
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 3600
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "trialscope:"
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.CTGov.PageSize > 1000 {
		return fmt.Errorf("ctgov.page_size must not exceed 1000 (upstream maximum), got %d", c.CTGov.PageSize)
	}
	if c.Extraction.Enabled() && c.Extraction.APIKey == "" {
		return fmt.Errorf("extraction.api_key is required when extraction.model is set")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
