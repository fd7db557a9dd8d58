package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultProcessURL is the public processing service endpoint.
const DefaultProcessURL = "https://binaural-backend.onrender.com/api/process"

type Config struct {
	Port            string        `yaml:"port"`
	ProcessURL      string        `yaml:"processUrl"`
	ProcessTimeout  time.Duration `yaml:"processTimeout"`
	MaxVisitors     int           `yaml:"maxVisitors"`
	MaxUploadBytes  int64         `yaml:"maxUploadBytes"`
	DiagnosticsSize int           `yaml:"diagnosticsSize"`
	AllowedOrigins  []string      `yaml:"allowedOrigins"`
	// VisitorTTL forgets a visitor's form after this much inactivity.
	VisitorTTL time.Duration `yaml:"visitorTtl"`
	// DiagnosticsToken enables /debug/diagnostics for bearers of the token.
	// Empty leaves the route unmounted.
	DiagnosticsToken string `yaml:"diagnosticsToken"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		Port:            "8080",
		ProcessURL:      DefaultProcessURL,
		MaxVisitors:     256,
		MaxUploadBytes:  50 << 20,
		DiagnosticsSize: 64,
		AllowedOrigins:  []string{"*"},
		VisitorTTL:      30 * time.Minute,
	}
}

// Load builds a Config from defaults, the optional YAML file named by
// BINAURAL_CONFIG, then environment variables, in that order.
func Load() (*Config, error) {
	cfg := Defaults()
	if path := os.Getenv("BINAURAL_CONFIG"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.mergeEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads a YAML config file on top of the defaults. Env is not consulted.
func LoadFile(path string) (*Config, error) {
	cfg := Defaults()
	if err := cfg.mergeFile(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that would otherwise only fail on first use.
func (c *Config) Validate() error {
	if err := ValidateEndpoint(c.ProcessURL); err != nil {
		return fmt.Errorf("process url: %w", err)
	}
	if c.ProcessTimeout < 0 {
		return fmt.Errorf("process timeout must not be negative")
	}
	if c.MaxVisitors <= 0 {
		return fmt.Errorf("max visitors must be positive, got %d", c.MaxVisitors)
	}
	if c.VisitorTTL < 0 {
		return fmt.Errorf("visitor ttl must not be negative")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive, got %d", c.MaxUploadBytes)
	}
	return nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeEnv() error {
	c.Port = getEnv("PORT", c.Port)
	c.ProcessURL = getEnv("PROCESS_URL", c.ProcessURL)

	if v := os.Getenv("PROCESS_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("PROCESS_TIMEOUT: %w", err)
		}
		c.ProcessTimeout = d
	}
	if v := os.Getenv("MAX_VISITORS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MAX_VISITORS: %w", err)
		}
		c.MaxVisitors = n
	}
	if v := os.Getenv("MAX_UPLOAD_MB"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_UPLOAD_MB: %w", err)
		}
		c.MaxUploadBytes = n << 20
	}
	if v := os.Getenv("DIAGNOSTICS_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DIAGNOSTICS_SIZE: %w", err)
		}
		c.DiagnosticsSize = n
	}
	if v := os.Getenv("VISITOR_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("VISITOR_TTL: %w", err)
		}
		c.VisitorTTL = d
	}
	c.DiagnosticsToken = getEnv("DIAGNOSTICS_TOKEN", c.DiagnosticsToken)
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = splitList(v)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
