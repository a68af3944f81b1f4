// Package models defines data structures for the market search crawler.
package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Listing is one raw item record returned by the search endpoint.
// Prices are kept as decoded (number, string or nil) and parsed leniently later.
type Listing struct {
	ID            json.Number `json:"c2cItemsId"`
	Name          string      `json:"c2cItemsName"`
	ShowPrice     any         `json:"showPrice"`
	OriginalPrice any         `json:"originalPrice"`
}

// ResultItem is a listing that passed the filters.
type ResultItem struct {
	Name  string  `csv:"name" json:"name"`
	Price float64 `csv:"price" json:"price"`
	Link  string  `csv:"link" json:"link"`
}

// SearchResponse is the envelope returned by the search endpoint.
type SearchResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    *SearchPage `json:"data"`
}

// SearchPage holds one page of raw listings and the continuation token.
type SearchPage struct {
	Items  []json.RawMessage `json:"data"`
	NextID *string           `json:"nextId"`
}

// PriceBounds is an explicit client-side price window in currency units.
type PriceBounds struct {
	Min float64
	Max float64
}

// DiscountRange is an inclusive percent window, e.g. 30-50 for "3 to 5 tenths of list price".
type DiscountRange struct {
	Low  int
	High int
}

// String formats the range the way the endpoint expects it.
func (d DiscountRange) String() string {
	return fmt.Sprintf("%d-%d", d.Low, d.High)
}

// Criteria is the full set of filters and limits for one crawl. It is not
// modified once the crawl starts.
type Criteria struct {
	Category    string
	PriceRange  string
	PriceBounds *PriceBounds
	Keywords    []string
	Discount    *DiscountRange
	Sort        string
	Interval    time.Duration
	MaxResults  int
	Cookie      string
}

// ActiveKeywords returns the trimmed, non-blank keywords.
func (c *Criteria) ActiveKeywords() []string {
	out := make([]string, 0, len(c.Keywords))
	for _, kw := range c.Keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

// Validate checks the criteria before a crawl.
func (c *Criteria) Validate() error {
	if strings.TrimSpace(c.Cookie) == "" {
		return fmt.Errorf("cookie cannot be empty")
	}
	if c.Category == "" {
		return fmt.Errorf("category cannot be empty")
	}
	if c.Sort == "" {
		return fmt.Errorf("sort mode cannot be empty")
	}
	if len(c.Keywords) > 2 {
		return fmt.Errorf("at most 2 keywords are supported, got %d", len(c.Keywords))
	}
	if c.Interval < 0 {
		return fmt.Errorf("interval cannot be negative")
	}
	if c.MaxResults <= 0 {
		return fmt.Errorf("max results must be positive")
	}
	if c.PriceBounds != nil {
		if c.PriceRange != "" {
			return fmt.Errorf("price range preset and price bounds are mutually exclusive")
		}
		if c.PriceBounds.Min < 0 || c.PriceBounds.Max < 0 {
			return fmt.Errorf("price bounds cannot be negative")
		}
		if c.PriceBounds.Min > c.PriceBounds.Max {
			return fmt.Errorf("min price (%.2f) cannot exceed max price (%.2f)", c.PriceBounds.Min, c.PriceBounds.Max)
		}
	}
	if c.Discount != nil {
		if c.Discount.Low < 0 || c.Discount.High > 100 || c.Discount.Low > c.Discount.High {
			return fmt.Errorf("invalid discount range %s", c.Discount)
		}
	}
	return nil
}

// StopReason records why a crawl ended.
type StopReason string

const (
	StopLastPage     StopReason = "last_page"
	StopMaxResults   StopReason = "max_results"
	StopCancelled    StopReason = "cancelled"
	StopAntiScraping StopReason = "anti_scraping"
	StopHTTPError    StopReason = "http_error"
	StopProtocol     StopReason = "protocol_error"
	StopNetwork      StopReason = "network_error"
	StopEmptyPage    StopReason = "empty_page"
	StopPanic        StopReason = "internal_error"
)

// CrawlResult holds the overall result of one crawl.
type CrawlResult struct {
	Items      []ResultItem
	StopReason StopReason
	StartTime  time.Time
	EndTime    time.Time
	Pages      int
	Requests   int
	Retries    int
	Matched    int
	Filtered   int
	DataErrors int
	Duplicates int
}
