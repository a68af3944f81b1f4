package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds crawler configuration.
type Config struct {
	Endpoint           string
	DetailBaseURL      string
	Timeout            time.Duration
	MaxAttempts        int // per page, including the first try
	RetryDelay         time.Duration
	Interval           time.Duration
	MaxResults         int
	OutputDir          string
	OutputFormat       string // csv, txt, json, or dual
	UserAgent          string
	CatalogFile        string
	LogFiltered        bool
	Dedupe             bool
	DedupeMaxSize      int
	BatchSize          int
	PipelineBufferSize int
	MetricsAddr        string
	Verbose            bool
}

// DefaultConfig returns the defaults used against the public market endpoint.
func DefaultConfig() *Config {
	return &Config{
		Endpoint:           "https://mall.bilibili.com/mall-magic-c/internet/c2c/v2/list",
		DetailBaseURL:      "https://mall.bilibili.com/neul-next/index.html?page=magic-market_detail&noTitleBar=1",
		Timeout:            15 * time.Second,
		MaxAttempts:        100,
		RetryDelay:         5 * time.Second,
		Interval:           1600 * time.Millisecond,
		MaxResults:         500,
		OutputDir:          "output",
		OutputFormat:       "dual",
		UserAgent:          "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
		LogFiltered:        true,
		Dedupe:             false,
		DedupeMaxSize:      100000,
		BatchSize:          64,
		PipelineBufferSize: 512,
		Verbose:            false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("endpoint URL must include a host")
	}
	if c.DetailBaseURL == "" {
		return fmt.Errorf("detail base URL cannot be empty")
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("max attempts must be positive")
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay cannot be negative")
	}
	if c.Interval < 0 {
		return fmt.Errorf("interval cannot be negative")
	}
	if c.MaxResults <= 0 {
		return fmt.Errorf("max results must be positive")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output directory cannot be empty")
	}
	switch c.OutputFormat {
	case "csv", "txt", "json", "dual":
	default:
		return fmt.Errorf("output format must be csv, txt, json, or dual")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.Dedupe && c.DedupeMaxSize <= 0 {
		return fmt.Errorf("dedupe max size must be positive when dedupe is enabled")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.PipelineBufferSize <= 0 {
		return fmt.Errorf("pipeline buffer size must be positive")
	}

	return nil
}
