package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable the loader reads.
const EnvPrefix = "INSTAGRAMDL_"

// Session kinds selectable via instagram.session
const (
	SessionAPI     = "api"
	SessionQuery   = "query"
	SessionPage    = "page"
	SessionBrowser = "browser"
)

// Rate limit algorithms for media downloads
const (
	AlgorithmTokenBucket   = "token_bucket"
	AlgorithmSlidingWindow = "sliding_window"
)

// Config holds all configuration options for the post downloader
type Config struct {
	// Upstream fetch settings
	Instagram InstagramConfig `yaml:"instagram" json:"instagram"`

	// Headless browser settings for the browser session
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Request pacing
	Scheduler SchedulerConfig `yaml:"scheduler" json:"scheduler"`

	// Media download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Media download rate limiting
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Metrics export
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// InstagramConfig selects and tunes the fetch session
type InstagramConfig struct {
	Session   string        `yaml:"session" json:"session"`
	UserAgent string        `yaml:"user_agent" json:"user_agent"`
	DocID     string        `yaml:"doc_id" json:"doc_id"`
	QueryHash string        `yaml:"query_hash" json:"query_hash"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
}

// BrowserConfig holds chromedp settings
type BrowserConfig struct {
	Headless bool          `yaml:"headless" json:"headless"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout"`
	ExecPath string        `yaml:"exec_path" json:"exec_path"`
}

// SchedulerConfig holds request pacing configuration
type SchedulerConfig struct {
	MinInterval time.Duration `yaml:"min_interval" json:"min_interval"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	Enabled             bool          `yaml:"enabled" json:"enabled"`
	Directory           string        `yaml:"directory" json:"directory"`
	ConcurrentDownloads int           `yaml:"concurrent_downloads" json:"concurrent_downloads"`
	Timeout             time.Duration `yaml:"timeout" json:"timeout"`
	RetryAttempts       int           `yaml:"retry_attempts" json:"retry_attempts"`
	SaveMetadata        bool          `yaml:"save_metadata" json:"save_metadata"`
	MetadataFormat      string        `yaml:"metadata_format" json:"metadata_format"`
}

// RateLimitConfig holds media rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int    `yaml:"requests_per_minute" json:"requests_per_minute"`
	Algorithm         string `yaml:"algorithm" json:"algorithm"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// MetricsConfig holds metrics export configuration. An empty File
// disables the export.
type MetricsConfig struct {
	File string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Instagram: InstagramConfig{
			Session:   SessionAPI,
			DocID:     "7341532402634560",
			QueryHash: "b3055c01b4b222b8a47dc12b090e4e64",
			Timeout:   30 * time.Second,
		},
		Browser: BrowserConfig{
			Headless: true,
			Timeout:  60 * time.Second,
		},
		Scheduler: SchedulerConfig{
			MinInterval: 5 * time.Second,
		},
		Download: DownloadConfig{
			Enabled:             true,
			Directory:           ".",
			ConcurrentDownloads: 3,
			Timeout:             60 * time.Second,
			RetryAttempts:       0,
			SaveMetadata:        false,
			MetadataFormat:      "json",
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
			Algorithm:         AlgorithmTokenBucket,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := getenv("SESSION"); v != "" {
		c.Instagram.Session = strings.ToLower(v)
	}
	if v := getenv("USER_AGENT"); v != "" {
		c.Instagram.UserAgent = v
	}
	if v := getenv("DOC_ID"); v != "" {
		c.Instagram.DocID = v
	}
	if v := getenv("MIN_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sMIN_INTERVAL: %w", EnvPrefix, err))
		} else {
			c.Scheduler.MinInterval = d
		}
	}
	if v := getenv("DOWNLOAD"); v != "" {
		c.Download.Enabled = strings.ToLower(v) == "true"
	}
	if v := getenv("OUTPUT_DIR"); v != "" {
		c.Download.Directory = v
	}
	if v := getenv("CONCURRENT_DOWNLOADS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sCONCURRENT_DOWNLOADS: %w", EnvPrefix, err))
		} else {
			c.Download.ConcurrentDownloads = n
		}
	}
	if v := getenv("HEADLESS"); v != "" {
		c.Browser.Headless = strings.ToLower(v) != "false"
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := getenv("METRICS_FILE"); v != "" {
		c.Metrics.File = v
	}

	return errors.Join(errs...)
}

func getenv(key string) string {
	return strings.TrimSpace(os.Getenv(EnvPrefix + key))
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// FindConfigFile searches for a config file in the standard locations
func FindConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		"instagramdl.yaml",
		"instagramdl.yml",
		".instagramdl.yaml",
		filepath.Join(home, ".config", "instagramdl", "config.yaml"),
		filepath.Join(home, ".instagramdl.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	switch c.Instagram.Session {
	case SessionAPI, SessionQuery, SessionPage, SessionBrowser:
	default:
		errs = append(errs, fmt.Errorf("unknown session %q (want api, query, page or browser)", c.Instagram.Session))
	}
	if c.Instagram.Session == SessionAPI && c.Instagram.DocID == "" {
		errs = append(errs, errors.New("doc_id is required for the api session"))
	}
	if c.Instagram.Session == SessionQuery && c.Instagram.QueryHash == "" {
		errs = append(errs, errors.New("query_hash is required for the query session"))
	}
	if c.Instagram.Timeout <= 0 {
		errs = append(errs, errors.New("instagram timeout must be positive"))
	}

	if c.Scheduler.MinInterval < 0 {
		errs = append(errs, errors.New("min interval cannot be negative"))
	}

	if c.Download.ConcurrentDownloads <= 0 {
		errs = append(errs, errors.New("concurrent downloads must be positive"))
	}
	if c.Download.ConcurrentDownloads > 10 {
		errs = append(errs, errors.New("concurrent downloads should not exceed 10"))
	}
	if c.Download.Timeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}
	if c.Download.RetryAttempts < 0 {
		errs = append(errs, errors.New("retry attempts cannot be negative"))
	}
	if c.Download.Enabled && c.Download.Directory == "" {
		errs = append(errs, errors.New("download directory is required"))
	}
	switch strings.ToLower(c.Download.MetadataFormat) {
	case "json", "yaml":
	default:
		errs = append(errs, errors.New("metadata format must be json or yaml"))
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	switch c.RateLimit.Algorithm {
	case AlgorithmTokenBucket, AlgorithmSlidingWindow:
	default:
		errs = append(errs, fmt.Errorf("unknown rate limit algorithm %q", c.RateLimit.Algorithm))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	return errors.Join(errs...)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys present in the map are applied.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["session"].(string); ok && v != "" {
		c.Instagram.Session = strings.ToLower(v)
	}
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Download.Directory = v
	}
	if v, ok := flags["download"].(bool); ok {
		c.Download.Enabled = v
	}
	if v, ok := flags["concurrent"].(int); ok && v > 0 {
		c.Download.ConcurrentDownloads = v
	}
	if v, ok := flags["interval"].(time.Duration); ok {
		c.Scheduler.MinInterval = v
	}
	if v, ok := flags["retries"].(int); ok {
		c.Download.RetryAttempts = v
	}
	if v, ok := flags["save-metadata"].(bool); ok {
		c.Download.SaveMetadata = v
	}
	if v, ok := flags["headless"].(bool); ok {
		c.Browser.Headless = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := flags["metrics-file"].(string); ok && v != "" {
		c.Metrics.File = v
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: flags > environment (.env included) > config file > defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".instagramdl.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
