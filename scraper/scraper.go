package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/aluiziolira/go-market-search/config"
	"github.com/aluiziolira/go-market-search/filter"
	"github.com/aluiziolira/go-market-search/models"
	"github.com/aluiziolira/go-market-search/parser"
)

// Scraper runs paginated searches against the market endpoint.
type Scraper struct {
	cfg     *config.Config
	catalog *config.Catalog
	client  *client
	Metrics *Metrics
}

// NewScraper builds a scraper instance configured from cfg. A nil catalog
// means the embedded defaults.
func NewScraper(cfg *config.Config, catalog *config.Catalog) (*Scraper, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if catalog == nil {
		var err error
		catalog, err = config.LoadCatalog("")
		if err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
	}

	metrics := NewMetrics()
	c, err := newClient(cfg, catalog, metrics)
	if err != nil {
		return nil, err
	}
	return &Scraper{
		cfg:     cfg,
		catalog: catalog,
		client:  c,
		Metrics: metrics,
	}, nil
}

// searchPayload is the request body of the search endpoint.
type searchPayload struct {
	CategoryFilter  string   `json:"categoryFilter"`
	PriceFilters    []string `json:"priceFilters"`
	DiscountFilters []string `json:"discountFilters"`
	NextID          *string  `json:"nextId"`
	SortType        string   `json:"sortType"`
	Keyword         string   `json:"keyword,omitempty"`
}

func buildPayload(c *models.Criteria, cursor Cursor) ([]byte, error) {
	p := searchPayload{
		CategoryFilter:  c.Category,
		PriceFilters:    []string{},
		DiscountFilters: []string{},
		NextID:          cursor.NextID(),
		SortType:        c.Sort,
		Keyword:         strings.Join(c.ActiveKeywords(), " "),
	}
	switch {
	case c.PriceBounds != nil:
		p.PriceFilters = append(p.PriceFilters, parser.FormatPriceBounds(*c.PriceBounds))
	case c.PriceRange != "":
		p.PriceFilters = append(p.PriceFilters, c.PriceRange)
	}
	if c.Discount != nil {
		p.DiscountFilters = append(p.DiscountFilters, c.Discount.String())
	}
	return json.Marshal(p)
}

// Run crawls until the last page, MaxResults, a fatal error or cancellation
// of ctx. It never returns an error: failures are reported through onEvent
// and the result's StopReason, and whatever was found so far is returned.
func (s *Scraper) Run(ctx context.Context, criteria models.Criteria, onEvent EventHandler) (result *models.CrawlResult) {
	if ctx == nil {
		ctx = context.Background()
	}
	emit := onEvent
	if emit == nil {
		emit = func(Event) {}
	}

	result = &models.CrawlResult{StartTime: time.Now()}
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("internal error: %v", r)
			slog.Error("crawl panic recovered",
				slog.Any("error", err),
				slog.String("stack", string(debug.Stack())),
			)
			s.Metrics.IncError("panic")
			emit(Event{Kind: EventError, Message: err.Error(), Err: err})
			result.StopReason = models.StopPanic
		}
		result.EndTime = time.Now()
	}()

	result.StopReason = s.crawl(ctx, &criteria, result, emit)
	return result
}

func (s *Scraper) crawl(ctx context.Context, c *models.Criteria, result *models.CrawlResult, emit EventHandler) models.StopReason {
	var seen *dedupeSet
	if s.cfg.Dedupe {
		var err error
		if seen, err = newDedupeSet(s.cfg.DedupeMaxSize); err != nil {
			slog.Warn("dedupe disabled", slog.Any("error", err))
		}
	}

	cursor := StartCursor()
	for {
		if ctx.Err() != nil {
			emit(Event{Kind: EventStopped, Message: "search stopped by user"})
			return models.StopCancelled
		}
		if len(result.Items) >= c.MaxResults {
			emit(Event{Kind: EventStopped, Message: fmt.Sprintf("reached max results (%d)", c.MaxResults)})
			return models.StopMaxResults
		}

		payload, err := buildPayload(c, cursor)
		if err != nil {
			return s.fail(emit, ErrProtocol{Err: fmt.Errorf("encode payload: %w", err)}, "", models.StopProtocol)
		}
		emit(Event{Kind: EventRequest, Message: "request payload: " + string(payload)})

		result.Requests++
		resp, err := s.client.fetch(ctx, payload, c.Cookie, func(attempt int, err error) {
			result.Retries++
			kind := "connection error"
			var timeout ErrTimeout
			if errors.As(err, &timeout) {
				kind = "connection timeout"
			}
			emit(Event{
				Kind:  EventRetry,
				Retry: true,
				Err:   err,
				Message: fmt.Sprintf("%s on attempt %d/%d, retry #%d in %s",
					kind, attempt, s.cfg.MaxAttempts, result.Retries, s.cfg.RetryDelay),
			})
		})
		if err != nil {
			var cancelled ErrCancelled
			if errors.As(err, &cancelled) {
				emit(Event{Kind: EventStopped, Message: "search stopped by user"})
				return models.StopCancelled
			}
			return s.fail(emit, err, "", models.StopNetwork)
		}

		switch {
		case resp.StatusCode == http.StatusPreconditionFailed:
			err := ErrAntiScraping{Err: fmt.Errorf("http status %d", resp.StatusCode)}
			return s.fail(emit, err, "anti-scraping triggered, change IP or cookie", models.StopAntiScraping)
		case resp.StatusCode != http.StatusOK:
			err := ErrHTTPStatus{StatusCode: resp.StatusCode}
			return s.fail(emit, err, fmt.Sprintf("HTTP error status %d", resp.StatusCode), models.StopHTTPError)
		}

		page, err := parser.DecodeResponse(resp.Body)
		if err != nil {
			var apiErr *parser.APIError
			switch {
			case errors.Is(err, parser.ErrMissingItems):
				return s.fail(emit, ErrProtocol{Err: err}, "API returned no item list", models.StopEmptyPage)
			case errors.As(err, &apiErr):
				return s.fail(emit, ErrProtocol{Err: err}, "API error: "+apiErr.Message, models.StopProtocol)
			default:
				return s.fail(emit, ErrProtocol{Err: err}, "invalid JSON response", models.StopProtocol)
			}
		}

		result.Pages++
		s.Metrics.IncPages()
		emit(Event{Kind: EventPage, Message: fmt.Sprintf("page returned %d items", len(page.Data.Items))})
		s.processPage(page.Data.Items, c, result, seen, emit)

		cursor = Advance(page.Data.NextID)
		if cursor.IsEnd() {
			emit(Event{Kind: EventLastPage, Message: "reached last page"})
			return models.StopLastPage
		}

		// A cancelled wait is picked up by the check at the top of the loop.
		_ = sleepContext(ctx, c.Interval)
	}
}

func (s *Scraper) processPage(items []json.RawMessage, c *models.Criteria, result *models.CrawlResult, seen *dedupeSet, emit EventHandler) {
	matched := 0
	for i, raw := range items {
		listing, err := parser.DecodeListing(raw)
		if err != nil {
			itemErr := ErrDataItem{Err: err}
			result.DataErrors++
			s.Metrics.IncItems("data_error")
			s.Metrics.IncError(errorTypeLabel(itemErr))
			emit(Event{
				Kind:    EventDataError,
				Err:     itemErr,
				Message: fmt.Sprintf("data processing error on item %d: %v", i, err),
			})
			continue
		}

		if !filter.Matches(listing, c) {
			result.Filtered++
			s.Metrics.IncItems("filtered")
			if s.cfg.LogFiltered {
				emit(Event{Kind: EventFiltered, Message: fmt.Sprintf("filtered: %s did not match", listing.Name)})
			}
			continue
		}

		if seen != nil && seen.Seen(listing) {
			result.Duplicates++
			s.Metrics.IncItems("duplicate")
			emit(Event{Kind: EventDuplicate, Message: fmt.Sprintf("duplicate: %s", listing.Name)})
			continue
		}

		item := parser.ToResult(listing, s.cfg.DetailBaseURL)
		result.Items = append(result.Items, item)
		result.Matched++
		matched++
		s.Metrics.IncItems("matched")
		emit(Event{
			Kind:    EventFound,
			Item:    &item,
			Message: fmt.Sprintf("found: %s | price: %.2f", item.Name, item.Price),
		})
	}

	if matched == 0 {
		emit(Event{Kind: EventNoMatch, Message: "no matching items on this page"})
	}
}

// fail records err and reports it as an error event. An empty message falls
// back to the error text.
func (s *Scraper) fail(emit EventHandler, err error, message string, reason models.StopReason) models.StopReason {
	s.Metrics.IncError(errorTypeLabel(err))
	if message == "" {
		message = err.Error()
	}
	emit(Event{Kind: EventError, Message: message, Err: err})
	return reason
}
