package scraper

import (
	"context"

	"github.com/aluiziolira/go-market-search/models"
)

type commandKind int

const (
	cmdStop commandKind = iota
	cmdSnapshot
)

type command struct {
	kind  commandKind
	reply chan []models.ResultItem
}

// Session runs one crawl on a worker goroutine and lets another goroutine
// stop it or look at the results found so far. All crawl state stays with
// the worker; the controlling side only sends commands.
type Session struct {
	cancel   context.CancelFunc
	cmds     chan command
	resultCh chan *models.CrawlResult
	done     chan struct{}
	result   *models.CrawlResult
}

// StartSession starts a crawl with s. Events are delivered to onEvent one at
// a time from a single goroutine; onEvent must not call back into the
// session.
func StartSession(ctx context.Context, s *Scraper, criteria models.Criteria, onEvent EventHandler) *Session {
	if ctx == nil {
		ctx = context.Background()
	}
	runCtx, cancel := context.WithCancel(ctx)

	sess := &Session{
		cancel:   cancel,
		cmds:     make(chan command),
		resultCh: make(chan *models.CrawlResult, 1),
		done:     make(chan struct{}),
	}

	events := make(chan Event, 64)
	go func() {
		defer close(events)
		sess.resultCh <- s.Run(runCtx, criteria, func(ev Event) {
			events <- ev
		})
	}()
	go sess.monitor(events, onEvent)

	return sess
}

func (sess *Session) monitor(events <-chan Event, onEvent EventHandler) {
	defer close(sess.done)
	defer sess.cancel()

	var found []models.ResultItem
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				sess.result = <-sess.resultCh
				return
			}
			if ev.Kind == EventFound && ev.Item != nil {
				found = append(found, *ev.Item)
			}
			if onEvent != nil {
				onEvent(ev)
			}
		case cmd := <-sess.cmds:
			switch cmd.kind {
			case cmdStop:
				sess.cancel()
			case cmdSnapshot:
				out := make([]models.ResultItem, len(found))
				copy(out, found)
				cmd.reply <- out
			}
		}
	}
}

// Stop asks the crawl to end. It does not wait; use Wait for the result.
func (sess *Session) Stop() {
	select {
	case sess.cmds <- command{kind: cmdStop}:
	case <-sess.done:
	}
}

// Snapshot returns a copy of the results found so far. Once the crawl has
// finished it returns the final results.
func (sess *Session) Snapshot() []models.ResultItem {
	reply := make(chan []models.ResultItem, 1)
	select {
	case sess.cmds <- command{kind: cmdSnapshot, reply: reply}:
		return <-reply
	case <-sess.done:
		out := make([]models.ResultItem, len(sess.result.Items))
		copy(out, sess.result.Items)
		return out
	}
}

// Done is closed once the crawl has finished and every event was delivered.
func (sess *Session) Done() <-chan struct{} {
	return sess.done
}

// Wait blocks until the crawl finishes and returns its result.
func (sess *Session) Wait() *models.CrawlResult {
	<-sess.done
	return sess.result
}
