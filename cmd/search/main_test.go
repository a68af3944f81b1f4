package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aluiziolira/go-market-search/config"
	"github.com/aluiziolira/go-market-search/models"
	"github.com/aluiziolira/go-market-search/pipeline"
)

func TestBuildCriteria(t *testing.T) {
	catalog, err := config.LoadCatalog("")
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	cfg := config.DefaultConfig()

	base := searchOptions{
		Cookie:   "SESSDATA=abc",
		Category: "figure",
		Price:    "all",
		MinPrice: -1,
		MaxPrice: -1,
		Discount: "all",
		Sort:     "default",
	}

	tests := []struct {
		name    string
		mutate  func(o *searchOptions)
		wantErr bool
		check   func(t *testing.T, c models.Criteria)
	}{
		{
			name: "defaults",
			check: func(t *testing.T, c models.Criteria) {
				if c.Category != "2312" || c.Sort != "TIME_DESC" || c.PriceRange != "" || c.Discount != nil {
					t.Fatalf("criteria = %+v", c)
				}
				if c.MaxResults != cfg.MaxResults || c.Interval != cfg.Interval {
					t.Fatalf("limits not taken from config: %+v", c)
				}
			},
		},
		{
			name:   "keywords trimmed",
			mutate: func(o *searchOptions) { o.Keywords = " 手办 , ,景品" },
			check: func(t *testing.T, c models.Criteria) {
				if len(c.Keywords) != 2 || c.Keywords[0] != "手办" || c.Keywords[1] != "景品" {
					t.Fatalf("keywords = %q", c.Keywords)
				}
			},
		},
		{
			name:    "too many keywords",
			mutate:  func(o *searchOptions) { o.Keywords = "a,b,c" },
			wantErr: true,
		},
		{
			name:   "price preset",
			mutate: func(o *searchOptions) { o.Price = "50-100" },
			check: func(t *testing.T, c models.Criteria) {
				if c.PriceRange != "5000-10000" {
					t.Fatalf("price range = %q", c.PriceRange)
				}
			},
		},
		{
			name:   "explicit bounds",
			mutate: func(o *searchOptions) { o.MinPrice, o.MaxPrice = 10, 20 },
			check: func(t *testing.T, c models.Criteria) {
				if c.PriceBounds == nil || c.PriceBounds.Min != 10 || c.PriceBounds.Max != 20 {
					t.Fatalf("bounds = %+v", c.PriceBounds)
				}
			},
		},
		{
			name:    "only one bound",
			mutate:  func(o *searchOptions) { o.MinPrice = 10 },
			wantErr: true,
		},
		{
			name:    "bounds with preset",
			mutate:  func(o *searchOptions) { o.MinPrice, o.MaxPrice, o.Price = 10, 20, "under-20" },
			wantErr: true,
		},
		{
			name:   "literal discount",
			mutate: func(o *searchOptions) { o.Discount = "30-50" },
			check: func(t *testing.T, c models.Criteria) {
				if c.Discount == nil || c.Discount.Low != 30 || c.Discount.High != 50 {
					t.Fatalf("discount = %+v", c.Discount)
				}
			},
		},
		{
			name:    "unknown category",
			mutate:  func(o *searchOptions) { o.Category = "books" },
			wantErr: true,
		},
		{
			name:    "missing cookie",
			mutate:  func(o *searchOptions) { o.Cookie = "  " },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := base
			if tt.mutate != nil {
				tt.mutate(&opts)
			}
			got, err := buildCriteria(catalog, cfg, opts)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("build criteria: %v", err)
			}
			if tt.check != nil {
				tt.check(t, got)
			}
		})
	}
}

func TestBuildCriteriaCookieFile(t *testing.T) {
	catalog, err := config.LoadCatalog("")
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	path := filepath.Join(t.TempDir(), "cookie.txt")
	if err := os.WriteFile(path, []byte("SESSDATA=from-file\n"), 0o600); err != nil {
		t.Fatalf("write cookie: %v", err)
	}

	got, err := buildCriteria(catalog, config.DefaultConfig(), searchOptions{
		CookieFile: path,
		Category:   "figure",
		Price:      "all",
		MinPrice:   -1,
		MaxPrice:   -1,
		Discount:   "all",
		Sort:       "default",
	})
	if err != nil {
		t.Fatalf("build criteria: %v", err)
	}
	if got.Cookie != "SESSDATA=from-file" {
		t.Fatalf("cookie = %q", got.Cookie)
	}
}

func TestPrintSummary(t *testing.T) {
	result := &models.CrawlResult{
		StopReason: models.StopLastPage,
		Items:      []models.ResultItem{{Name: "a", Price: 1}, {Name: "b", Price: -2}},
		Pages:      1,
		Requests:   1,
	}

	tests := []struct {
		name        string
		report      pipeline.ExportReport
		contains    []string
		notContains []string
	}{
		{
			name:        "all saved",
			report:      pipeline.ExportReport{Paths: []string{"out/a.csv"}, Written: 2},
			contains:    []string{"Results:       2", "Output file:   out/a.csv"},
			notContains: []string{"Not saved"},
		},
		{
			name:     "invalid records dropped",
			report:   pipeline.ExportReport{Paths: []string{"out/a.csv"}, Written: 1, Dropped: 1},
			contains: []string{"Not saved:     1 (invalid records)"},
		},
		{
			name:     "nothing found",
			contains: []string{"Output:        nothing to save"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			printSummary(&buf, result, tt.report)
			out := buf.String()
			for _, want := range tt.contains {
				if !strings.Contains(out, want) {
					t.Fatalf("summary missing %q:\n%s", want, out)
				}
			}
			for _, unwanted := range tt.notContains {
				if strings.Contains(out, unwanted) {
					t.Fatalf("summary should not contain %q:\n%s", unwanted, out)
				}
			}
		})
	}
}
