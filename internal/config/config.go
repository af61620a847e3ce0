package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port string

	// Storage. An empty DatabaseURL selects the in-memory store.
	DatabaseURL string

	// Reference document the annotations are drawn on.
	DocumentPath string

	// Hierarchy view
	DefaultExpandedGroups []string

	// HTTP
	CORSOrigins []string

	// Import worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	// Client side (orgctl)
	APIURL         string
	RequestTimeout time.Duration
	SearchDebounce time.Duration
	StatusTTL      time.Duration
}

// fileConfig is the YAML layout of CONFIG_FILE. Environment variables
// take precedence over it.
type fileConfig struct {
	Port                  string   `yaml:"port"`
	DatabaseURL           string   `yaml:"database_url"`
	DocumentPath          string   `yaml:"document_path"`
	DefaultExpandedGroups []string `yaml:"default_expanded_groups"`
	CORSOrigins           []string `yaml:"cors_origins"`
	WorkerCount           int      `yaml:"worker_count"`
	MaxQueueSize          int      `yaml:"max_queue_size"`
	MaxUploadBytes        int64    `yaml:"max_upload_bytes"`
	JobTTL                string   `yaml:"job_ttl"`
	APIURL                string   `yaml:"api_url"`
	RequestTimeout        string   `yaml:"request_timeout"`
	SearchDebounce        string   `yaml:"search_debounce"`
	StatusTTL             string   `yaml:"status_ttl"`
}

func defaults() Config {
	return Config{
		Port:                  "8000",
		DefaultExpandedGroups: []string{"Aneesh", "Sampath", "Nathaniel", "Venkatesh", "Rohit"},
		CORSOrigins:           []string{"http://localhost:5173"},
		WorkerCount:           4,
		MaxQueueSize:          100,
		MaxUploadBytes:        10485760, // 10MB
		JobTTL:                1 * time.Hour,
		APIURL:                "http://localhost:8000",
		RequestTimeout:        10 * time.Second,
		SearchDebounce:        300 * time.Millisecond,
		StatusTTL:             3 * time.Second,
	}
}

// Load builds the configuration from defaults, the optional YAML file
// named by CONFIG_FILE, and the environment, in increasing precedence.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		fc, err := loadFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := cfg.apply(fc); err != nil {
			return Config{}, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	cfg.Port = envOr("PORT", cfg.Port)
	cfg.DatabaseURL = envOr("DATABASE_URL", cfg.DatabaseURL)
	cfg.DocumentPath = envOr("DOCUMENT_PATH", cfg.DocumentPath)
	cfg.DefaultExpandedGroups = envList("DEFAULT_EXPANDED_GROUPS", cfg.DefaultExpandedGroups)
	cfg.CORSOrigins = envList("CORS_ORIGINS", cfg.CORSOrigins)
	cfg.WorkerCount = envInt("WORKER_COUNT", cfg.WorkerCount)
	cfg.MaxQueueSize = envInt("MAX_QUEUE_SIZE", cfg.MaxQueueSize)
	cfg.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	cfg.JobTTL = envDuration("JOB_TTL", cfg.JobTTL)
	cfg.APIURL = envOr("API_URL", cfg.APIURL)
	cfg.RequestTimeout = envDuration("REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.SearchDebounce = envDuration("SEARCH_DEBOUNCE", cfg.SearchDebounce)
	cfg.StatusTTL = envDuration("STATUS_TTL", cfg.StatusTTL)

	d := defaults()
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = d.WorkerCount
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = d.MaxQueueSize
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = d.MaxUploadBytes
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = d.JobTTL
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = d.RequestTimeout
	}

	return cfg, nil
}

func loadFile(path string) (fileConfig, error) {
	var fc fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parse config file: %w", err)
	}
	return fc, nil
}

// apply overlays the non-zero values of fc onto c.
func (c *Config) apply(fc fileConfig) error {
	if fc.Port != "" {
		c.Port = fc.Port
	}
	if fc.DatabaseURL != "" {
		c.DatabaseURL = fc.DatabaseURL
	}
	if fc.DocumentPath != "" {
		c.DocumentPath = fc.DocumentPath
	}
	if fc.DefaultExpandedGroups != nil {
		c.DefaultExpandedGroups = fc.DefaultExpandedGroups
	}
	if fc.CORSOrigins != nil {
		c.CORSOrigins = fc.CORSOrigins
	}
	if fc.WorkerCount != 0 {
		c.WorkerCount = fc.WorkerCount
	}
	if fc.MaxQueueSize != 0 {
		c.MaxQueueSize = fc.MaxQueueSize
	}
	if fc.MaxUploadBytes != 0 {
		c.MaxUploadBytes = fc.MaxUploadBytes
	}
	if fc.APIURL != "" {
		c.APIURL = fc.APIURL
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"job_ttl", fc.JobTTL, &c.JobTTL},
		{"request_timeout", fc.RequestTimeout, &c.RequestTimeout},
		{"search_debounce", fc.SearchDebounce, &c.SearchDebounce},
		{"status_ttl", fc.StatusTTL, &c.StatusTTL},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
		*d.dst = v
	}
	return nil
}

func (c Config) Validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("PORT must be numeric, got %q", c.Port)
	}
	if c.DatabaseURL != "" {
		if _, err := url.Parse(c.DatabaseURL); err != nil {
			return fmt.Errorf("DATABASE_URL is not a valid URL: %w", err)
		}
	}
	if c.SearchDebounce < 0 {
		return fmt.Errorf("SEARCH_DEBOUNCE must not be negative")
	}
	if c.StatusTTL < 0 {
		return fmt.Errorf("STATUS_TTL must not be negative")
	}
	return nil
}

// ValidateClient checks the settings orgctl needs.
func (c Config) ValidateClient() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API_URL must be an absolute URL, got %q", c.APIURL)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envList reads a comma-separated list. A variable set to "-" yields an
// empty list.
func envList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	if v == "-" {
		return []string{}
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
