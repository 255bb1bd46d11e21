package types

import "time"

// HTTPConfig holds shared HTTP settings for catalog queries and downloads.
type HTTPConfig struct {
	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// SourcesConfig holds settings for the catalog clients.
type SourcesConfig struct {
	// Enabled lists the catalogs to query. Empty means all of them.
	// Priority order is fixed regardless of the order given here.
	Enabled []string `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// RatePerSecond is the sustained request rate allowed per catalog (default 1).
	RatePerSecond float64 `json:"rate_per_second" yaml:"rate_per_second" mapstructure:"rate_per_second"`

	// NCBIAPIKey raises the E-utilities rate limit for PubMed Central.
	NCBIAPIKey string `json:"ncbi_api_key,omitempty" yaml:"ncbi_api_key,omitempty" mapstructure:"ncbi_api_key"`

	// SemanticScholarAPIKey is an optional key for higher rate limits.
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty" mapstructure:"semantic_scholar_api_key"`

	// GoogleBooksAPIKey is an optional Books API key.
	GoogleBooksAPIKey string `json:"google_books_api_key,omitempty" yaml:"google_books_api_key,omitempty" mapstructure:"google_books_api_key"`

	// Mailto is the contact address sent to E-utilities as the email parameter.
	Mailto string `json:"mailto,omitempty" yaml:"mailto,omitempty" mapstructure:"mailto"`
}

// DownloadConfig holds settings for the download manager.
type DownloadConfig struct {
	// OutputDir is where downloaded files are written (default "downloads").
	OutputDir string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`

	// MaxConcurrent caps simultaneous downloads (default 3). Values above
	// MaxConcurrentLimit are lowered to it.
	MaxConcurrent int `json:"max_concurrent" yaml:"max_concurrent" mapstructure:"max_concurrent"`

	// MaxAttempts bounds download attempts per candidate (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts"`

	// BackoffBase is the delay before the second attempt; it doubles after that.
	BackoffBase time.Duration `json:"backoff_base" yaml:"backoff_base" mapstructure:"backoff_base"`

	// MaxBytes rejects files larger than this (default 100 MiB).
	MaxBytes int64 `json:"max_bytes" yaml:"max_bytes" mapstructure:"max_bytes"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum level: trace, debug, info, warn, error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is json or console.
	Format string `json:"format" yaml:"format" mapstructure:"format"`

	// Output is stdout or stderr.
	Output string `json:"output" yaml:"output" mapstructure:"output"`
}

// Config groups every setting of a paper-fetch run.
type Config struct {
	HTTP     HTTPConfig     `json:"http" yaml:"http" mapstructure:"http"`
	Sources  SourcesConfig  `json:"sources" yaml:"sources" mapstructure:"sources"`
	Download DownloadConfig `json:"download" yaml:"download" mapstructure:"download"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging" mapstructure:"logging"`
}

// Defaults used when a setting is left at its zero value.
const (
	DefaultTimeout       = 30 * time.Second
	DefaultUserAgent     = "Mozilla/5.0 (compatible; paper-fetch/0.1)"
	DefaultRatePerSecond = 1.0
	DefaultOutputDir     = "downloads"
	DefaultMaxConcurrent = 3
	MaxConcurrentLimit   = 3
	DefaultMaxAttempts   = 3
	DefaultBackoffBase   = 500 * time.Millisecond
	DefaultMaxBytes      = 100 << 20
)

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() Config {
	var c Config
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills zero-valued settings with their defaults.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Timeout <= 0 {
		c.HTTP.Timeout = DefaultTimeout
	}
	if c.HTTP.UserAgent == "" {
		c.HTTP.UserAgent = DefaultUserAgent
	}
	if c.Sources.RatePerSecond <= 0 {
		c.Sources.RatePerSecond = DefaultRatePerSecond
	}
	if c.Download.OutputDir == "" {
		c.Download.OutputDir = DefaultOutputDir
	}
	c.Download.MaxConcurrent = ClampConcurrency(c.Download.MaxConcurrent)
	if c.Download.MaxAttempts <= 0 {
		c.Download.MaxAttempts = DefaultMaxAttempts
	}
	if c.Download.BackoffBase <= 0 {
		c.Download.BackoffBase = DefaultBackoffBase
	}
	if c.Download.MaxBytes <= 0 {
		c.Download.MaxBytes = DefaultMaxBytes
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stderr"
	}
}

// ClampConcurrency returns n limited to 1..MaxConcurrentLimit, with
// DefaultMaxConcurrent for non-positive values.
func ClampConcurrency(n int) int {
	switch {
	case n <= 0:
		return DefaultMaxConcurrent
	case n > MaxConcurrentLimit:
		return MaxConcurrentLimit
	}
	return n
}
