package scraper

import (
	"errors"
	"fmt"
)

// ErrTimeout indicates a timeout while issuing a request.
type ErrTimeout struct {
	Err error
}

func (e ErrTimeout) Error() string {
	return fmt.Errorf("timeout: %w", e.Err).Error()
}

func (e ErrTimeout) Unwrap() error {
	return e.Err
}

// ErrConnection indicates a network connectivity failure.
type ErrConnection struct {
	Err error
}

func (e ErrConnection) Error() string {
	return fmt.Errorf("connection: %w", e.Err).Error()
}

func (e ErrConnection) Unwrap() error {
	return e.Err
}

// ErrAntiScraping indicates the endpoint rejected the request with HTTP 412.
type ErrAntiScraping struct {
	Err error
}

func (e ErrAntiScraping) Error() string {
	return fmt.Errorf("anti_scraping: %w", e.Err).Error()
}

func (e ErrAntiScraping) Unwrap() error {
	return e.Err
}

// ErrHTTPStatus indicates any other non-200 response.
type ErrHTTPStatus struct {
	StatusCode int
}

func (e ErrHTTPStatus) Error() string {
	return fmt.Sprintf("http_status: %d", e.StatusCode)
}

// ErrProtocol indicates a malformed body or a non-zero API status code.
type ErrProtocol struct {
	Err error
}

func (e ErrProtocol) Error() string {
	return fmt.Errorf("protocol: %w", e.Err).Error()
}

func (e ErrProtocol) Unwrap() error {
	return e.Err
}

// ErrDataItem indicates a single listing could not be processed. It never
// ends the crawl.
type ErrDataItem struct {
	Err error
}

func (e ErrDataItem) Error() string {
	return fmt.Errorf("data_item: %w", e.Err).Error()
}

func (e ErrDataItem) Unwrap() error {
	return e.Err
}

// ErrCancelled indicates the crawl was stopped by its caller.
type ErrCancelled struct {
	Err error
}

func (e ErrCancelled) Error() string {
	return fmt.Errorf("cancelled: %w", e.Err).Error()
}

func (e ErrCancelled) Unwrap() error {
	return e.Err
}

// ErrRetriesExhausted indicates every attempt for a page hit a network error.
type ErrRetriesExhausted struct {
	Attempts int
	Err      error
}

func (e ErrRetriesExhausted) Error() string {
	return fmt.Errorf("retries_exhausted after %d attempts: %w", e.Attempts, e.Err).Error()
}

func (e ErrRetriesExhausted) Unwrap() error {
	return e.Err
}

// isTransient reports whether err is worth another attempt.
func isTransient(err error) bool {
	var timeout ErrTimeout
	if errors.As(err, &timeout) {
		return true
	}
	var conn ErrConnection
	return errors.As(err, &conn)
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var exhausted ErrRetriesExhausted
	if errors.As(err, &exhausted) {
		return "retries_exhausted"
	}
	var timeout ErrTimeout
	if errors.As(err, &timeout) {
		return "timeout"
	}
	var conn ErrConnection
	if errors.As(err, &conn) {
		return "connection"
	}
	var antiScraping ErrAntiScraping
	if errors.As(err, &antiScraping) {
		return "anti_scraping"
	}
	var status ErrHTTPStatus
	if errors.As(err, &status) {
		return "http_status"
	}
	var protocol ErrProtocol
	if errors.As(err, &protocol) {
		return "protocol"
	}
	var item ErrDataItem
	if errors.As(err, &item) {
		return "data_item"
	}
	var cancelled ErrCancelled
	if errors.As(err, &cancelled) {
		return "cancelled"
	}
	return "other"
}
