package scraper

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"syscall"
	"time"

	"github.com/aluiziolira/go-market-search/config"
	"github.com/gocolly/colly/v2"
)

const responseKey = "response"

// client issues one search POST per page through a synchronous collector.
type client struct {
	cfg       *config.Config
	catalog   *config.Catalog
	collector *colly.Collector
	metrics   *Metrics
}

func newClient(cfg *config.Config, catalog *config.Catalog, metrics *Metrics) (*client, error) {
	parsed, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("endpoint must include a host")
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Hostname()),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	collector.DisableCookies()
	collector.ParseHTTPErrorResponse = true
	collector.SetRequestTimeout(cfg.Timeout)
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}

	collector.OnResponse(func(r *colly.Response) {
		r.Ctx.Put(responseKey, r)
	})

	return &client{
		cfg:       cfg,
		catalog:   catalog,
		collector: collector,
		metrics:   metrics,
	}, nil
}

// fetch posts payload and retries timeouts and connection failures up to
// MaxAttempts times. onRetry is called before each wait with the number of
// the attempt that failed. Any HTTP status is returned as a response; the
// caller decides what it means.
func (c *client) fetch(ctx context.Context, payload []byte, cookie string, onRetry func(attempt int, err error)) (*colly.Response, error) {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, ErrCancelled{Err: err}
		}

		resp, err := c.post(payload, cookie)
		if err == nil {
			return resp, nil
		}
		if !isTransient(err) {
			return nil, err
		}
		lastErr = err
		if attempt == c.cfg.MaxAttempts {
			break
		}

		c.metrics.IncRetries()
		if onRetry != nil {
			onRetry(attempt, err)
		}
		if err := sleepContext(ctx, c.cfg.RetryDelay); err != nil {
			return nil, ErrCancelled{Err: err}
		}
	}
	return nil, ErrRetriesExhausted{Attempts: c.cfg.MaxAttempts, Err: lastErr}
}

func (c *client) post(payload []byte, cookie string) (*colly.Response, error) {
	hdr := c.catalog.Header()
	hdr.Set("User-Agent", c.cfg.UserAgent)
	hdr.Set("Cookie", cookie)

	reqCtx := colly.NewContext()
	start := time.Now()
	err := c.collector.Request(http.MethodPost, c.cfg.Endpoint, bytes.NewReader(payload), reqCtx, hdr)
	c.metrics.ObserveDuration(time.Since(start))
	if err != nil {
		c.metrics.IncRequest("error")
		return nil, classifyError(err)
	}

	resp, ok := reqCtx.GetAny(responseKey).(*colly.Response)
	if !ok || resp == nil {
		c.metrics.IncRequest("error")
		return nil, ErrProtocol{Err: errors.New("no response received")}
	}
	c.metrics.IncRequest(strconv.Itoa(resp.StatusCode))
	return resp, nil
}

func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	if isDroppedConnection(err) {
		return ErrConnection{Err: err}
	}
	return fmt.Errorf("request failed: %w", err)
}

// isDroppedConnection reports failures where the server or network went away
// mid-request: dial errors, resets, aborts, early EOF and broken TLS records.
func isDroppedConnection(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	var recordErr tls.RecordHeaderError
	return errors.As(err, &recordErr)
}

// sleepContext waits for d or until ctx is done, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
