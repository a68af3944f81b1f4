package scraper

import "github.com/aluiziolira/go-market-search/models"

// EventKind classifies crawl events.
type EventKind string

const (
	EventRequest   EventKind = "request"
	EventRetry     EventKind = "retry"
	EventPage      EventKind = "page"
	EventFound     EventKind = "found"
	EventFiltered  EventKind = "filtered"
	EventDuplicate EventKind = "duplicate"
	EventNoMatch   EventKind = "no_match"
	EventDataError EventKind = "data_error"
	EventLastPage  EventKind = "last_page"
	EventStopped   EventKind = "stopped"
	EventError     EventKind = "error"
)

// Event is one log-worthy occurrence during a crawl. Item is set for
// EventFound; Err is set for EventError, EventDataError and EventRetry.
type Event struct {
	Kind    EventKind
	Message string
	Retry   bool
	Item    *models.ResultItem
	Err     error
}

// EventHandler receives crawl events in order.
type EventHandler func(Event)
