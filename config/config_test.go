package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "empty endpoint",
			mutate: func(cfg *Config) {
				cfg.Endpoint = ""
			},
			wantErr: "endpoint URL",
		},
		{
			name: "endpoint without host",
			mutate: func(cfg *Config) {
				cfg.Endpoint = "http://"
			},
			wantErr: "endpoint URL",
		},
		{
			name: "zero timeout",
			mutate: func(cfg *Config) {
				cfg.Timeout = 0
			},
			wantErr: "timeout",
		},
		{
			name: "zero attempts",
			mutate: func(cfg *Config) {
				cfg.MaxAttempts = 0
			},
			wantErr: "max attempts",
		},
		{
			name: "negative retry delay",
			mutate: func(cfg *Config) {
				cfg.RetryDelay = -1 * time.Second
			},
			wantErr: "retry delay",
		},
		{
			name: "negative interval",
			mutate: func(cfg *Config) {
				cfg.Interval = -1 * time.Millisecond
			},
			wantErr: "interval",
		},
		{
			name: "zero max results",
			mutate: func(cfg *Config) {
				cfg.MaxResults = 0
			},
			wantErr: "max results",
		},
		{
			name: "unknown format",
			mutate: func(cfg *Config) {
				cfg.OutputFormat = "xml"
			},
			wantErr: "output format",
		},
		{
			name: "dedupe without size",
			mutate: func(cfg *Config) {
				cfg.Dedupe = true
				cfg.DedupeMaxSize = 0
			},
			wantErr: "dedupe",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
	if cfg.Timeout != 15*time.Second || cfg.MaxAttempts != 100 || cfg.RetryDelay != 5*time.Second {
		t.Fatalf("unexpected retry policy defaults: %v/%d/%v", cfg.Timeout, cfg.MaxAttempts, cfg.RetryDelay)
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("MARKET_TEST_INT", "42")
	t.Setenv("MARKET_TEST_BAD_INT", "forty")
	t.Setenv("MARKET_TEST_BOOL", "yes")
	t.Setenv("MARKET_TEST_SECONDS", "1.5")
	t.Setenv("MARKET_TEST_DURATION", "250ms")
	t.Setenv("MARKET_TEST_BLANK", "  ")

	if v, ok, err := EnvInt("MARKET_TEST_INT"); err != nil || !ok || v != 42 {
		t.Fatalf("EnvInt = %d/%v/%v, want 42/true/nil", v, ok, err)
	}
	if _, _, err := EnvInt("MARKET_TEST_BAD_INT"); err == nil {
		t.Fatalf("expected error for non-numeric int")
	}
	if _, ok, err := EnvInt("MARKET_TEST_MISSING"); err != nil || ok {
		t.Fatalf("missing key should be unset, got ok=%v err=%v", ok, err)
	}
	if v, ok, err := EnvBool("MARKET_TEST_BOOL"); err != nil || !ok || !v {
		t.Fatalf("EnvBool = %v/%v/%v, want true/true/nil", v, ok, err)
	}
	if d, ok, err := EnvDuration("MARKET_TEST_SECONDS"); err != nil || !ok || d != 1500*time.Millisecond {
		t.Fatalf("EnvDuration(seconds) = %v/%v/%v", d, ok, err)
	}
	if d, ok, err := EnvDuration("MARKET_TEST_DURATION"); err != nil || !ok || d != 250*time.Millisecond {
		t.Fatalf("EnvDuration(duration) = %v/%v/%v", d, ok, err)
	}
	if _, ok := EnvString("MARKET_TEST_BLANK"); ok {
		t.Fatalf("blank value should be treated as unset")
	}
}

func TestLoadCatalogDefaults(t *testing.T) {
	cat, err := LoadCatalog("")
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}

	if code, err := cat.Category("figure"); err != nil || code != "2312" {
		t.Fatalf("category figure = %q/%v, want 2312", code, err)
	}
	if _, err := cat.Category("unknown"); err == nil {
		t.Fatalf("expected error for unknown category")
	}
	if sort, err := cat.Sort("price-asc"); err != nil || sort != "PRICE_ASC" {
		t.Fatalf("sort = %q/%v, want PRICE_ASC", sort, err)
	}
	if pr, err := cat.PriceRange("all"); err != nil || pr != "" {
		t.Fatalf("price range all = %q/%v, want empty", pr, err)
	}
	if pr, err := cat.PriceRange("20-30"); err != nil || pr != "2000-3000" {
		t.Fatalf("price range 20-30 = %q/%v", pr, err)
	}
	if h := cat.Header(); h.Get("Origin") != "https://mall.bilibili.com" || h.Get("Content-Type") != "application/json" {
		t.Fatalf("unexpected headers: %v", h)
	}
}

func TestCatalogDiscount(t *testing.T) {
	cat, err := LoadCatalog("")
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}

	tests := []struct {
		name    string
		input   string
		low     int
		high    int
		ok      bool
		wantErr bool
	}{
		{name: "preset", input: "30-50", low: 30, high: 50, ok: true},
		{name: "named preset", input: "under-30", low: 0, high: 30, ok: true},
		{name: "all", input: "all", ok: false},
		{name: "literal", input: "15-45", low: 15, high: 45, ok: true},
		{name: "reversed literal", input: "50-10", wantErr: true},
		{name: "unknown", input: "cheap", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			low, high, ok, err := cat.Discount(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Discount(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if low != tt.low || high != tt.high || ok != tt.ok {
				t.Fatalf("Discount(%q) = %d-%d/%v, want %d-%d/%v", tt.input, low, high, ok, tt.low, tt.high, tt.ok)
			}
		})
	}
}

func TestLoadCatalogOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.toml")
	overlay := "[categories]\ncards = \"9999\"\nfigure = \"1111\"\n\n[headers]\nReferer = \"https://example.test/\"\n"
	if err := os.WriteFile(path, []byte(overlay), 0o644); err != nil {
		t.Fatalf("write overlay: %v", err)
	}

	cat, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	if code, _ := cat.Category("cards"); code != "9999" {
		t.Fatalf("overlay category missing, got %q", code)
	}
	if code, _ := cat.Category("figure"); code != "1111" {
		t.Fatalf("overlay should replace figure, got %q", code)
	}
	if code, _ := cat.Category("model"); code != "2066" {
		t.Fatalf("default category lost, got %q", code)
	}
	if got := cat.Header().Get("Referer"); got != "https://example.test/" {
		t.Fatalf("referer = %q", got)
	}
	if got := cat.Header().Get("Origin"); got == "" {
		t.Fatalf("default origin header lost")
	}
}
