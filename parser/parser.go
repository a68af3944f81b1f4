package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-market-search/models"
)

var (
	// ErrMalformedBody is returned when the response body is not valid JSON.
	ErrMalformedBody = errors.New("malformed response body")
	// ErrMissingItems is returned when the page carries no item list at all.
	ErrMissingItems = errors.New("response has no item list")
)

// APIError is a non-zero status code embedded in an otherwise valid response.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Code, e.Message)
}

// DecodeResponse parses a search response and checks its embedded status code.
func DecodeResponse(body []byte) (*models.SearchResponse, error) {
	var resp models.SearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	if resp.Code != 0 {
		return nil, &APIError{Code: resp.Code, Message: resp.Message}
	}
	if resp.Data == nil || resp.Data.Items == nil {
		return &resp, ErrMissingItems
	}
	return &resp, nil
}

// DecodeListing decodes and validates one raw item record.
func DecodeListing(raw json.RawMessage) (*models.Listing, error) {
	var listing models.Listing
	if err := json.Unmarshal(raw, &listing); err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}
	if err := ValidateListing(&listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

// ValidateListing ensures the fields needed to report a match are present.
func ValidateListing(l *models.Listing) error {
	if l == nil {
		return fmt.Errorf("listing is nil")
	}
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("listing %s missing name", l.ID)
	}
	return nil
}

// ValidateResult ensures a result carries everything the exporters write.
func ValidateResult(r *models.ResultItem) error {
	if r == nil {
		return fmt.Errorf("result is nil")
	}
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("result missing name")
	}
	if strings.TrimSpace(r.Link) == "" {
		return fmt.Errorf("result missing link for %s", r.Name)
	}
	if math.IsNaN(r.Price) || math.IsInf(r.Price, 0) || r.Price < 0 {
		return fmt.Errorf("result has invalid price for %s", r.Name)
	}
	return nil
}

// ParsePrice converts a decoded price field to a float. Anything that is not
// a number or a numeric string yields 0.
func ParsePrice(v any) float64 {
	switch p := v.(type) {
	case nil:
		return 0
	case float64:
		return finite(p)
	case float32:
		return finite(float64(p))
	case int:
		return float64(p)
	case int64:
		return float64(p)
	case json.Number:
		f, err := p.Float64()
		if err != nil {
			return 0
		}
		return finite(f)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return 0
		}
		return finite(f)
	default:
		return 0
	}
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// ToResult converts a matched listing into a result record.
func ToResult(l *models.Listing, detailBase string) models.ResultItem {
	return models.ResultItem{
		Name:  l.Name,
		Price: ParsePrice(l.ShowPrice),
		Link:  DetailLink(detailBase, l.ID.String()),
	}
}

// DetailLink builds the item detail page link from the base URL and item id.
func DetailLink(base, id string) string {
	sep := "&"
	if !strings.Contains(base, "?") {
		sep = "?"
	}
	return base + sep + "itemsId=" + url.QueryEscape(id)
}

// FormatPriceBounds renders explicit bounds as the "<minCents>-<maxCents>"
// filter the endpoint expects.
func FormatPriceBounds(b models.PriceBounds) string {
	return fmt.Sprintf("%d-%d", int64(b.Min*100), int64(b.Max*100))
}
