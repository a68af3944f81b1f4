// Package pipeline validates crawl results and writes them to export files.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aluiziolira/go-market-search/config"
	"github.com/aluiziolira/go-market-search/models"
	"github.com/aluiziolira/go-market-search/parser"
)

var (
	// ErrPipelineClosed is returned when Process is called after shutdown.
	ErrPipelineClosed = errors.New("pipeline: closed")
	// ErrPipelineCloseTimeout is returned when workers do not drain in time.
	ErrPipelineCloseTimeout = errors.New("pipeline: close timed out")
)

var drainTimeout = 30 * time.Second

// reportInterval is the progress log period of a verbose export.
var reportInterval = 10 * time.Second

// OutputWriter defines the interface for data output.
type OutputWriter interface {
	Write(items []*models.ResultItem) error
	Close() error
	Validate() error
}

// Pipeline coordinates validation and batched output writing.
type Pipeline struct {
	ctx       context.Context
	writer    OutputWriter
	itemCh    chan *models.ResultItem
	batchSize int

	wg       sync.WaitGroup
	reporter sync.WaitGroup

	metrics metrics

	mu     sync.Mutex // guards closed/err
	closed bool
	err    error

	closeOnce    sync.Once
	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// NewPipeline builds a pipeline sized from cfg.
func NewPipeline(ctx context.Context, writer OutputWriter, cfg *config.Config) *Pipeline {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Pipeline{
		ctx:       ctx,
		writer:    writer,
		itemCh:    make(chan *models.ResultItem, cfg.PipelineBufferSize),
		batchSize: cfg.BatchSize,
		metrics:   newMetrics(),
		shutdown:  make(chan struct{}),
	}
}

// Start launches worker goroutines. A single worker keeps items in order.
func (p *Pipeline) Start(workers int) {
	if workers <= 0 {
		workers = 1
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Process enqueues items for downstream processing.
func (p *Pipeline) Process(items ...*models.ResultItem) error {
	if len(items) == 0 {
		return nil
	}

	closed, err := p.state()
	if err != nil {
		return err
	}
	if closed {
		return ErrPipelineClosed
	}

	for _, item := range items {
		if item == nil {
			continue
		}
		if err := p.enqueue(item); err != nil {
			return err
		}
	}
	return nil
}

// Close stops accepting items and waits up to drainTimeout for the workers
// to flush what is queued.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.signalShutdown()
	p.closeOnce.Do(func() {
		close(p.itemCh)
	})

	drained := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
	case <-time.After(drainTimeout):
		return fmt.Errorf("%w after %s", ErrPipelineCloseTimeout, drainTimeout)
	}
	p.reporter.Wait()
	return p.Err()
}

// Err returns the first error encountered during processing.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// GetMetrics returns a snapshot of the internal counters.
func (p *Pipeline) GetMetrics() map[string]interface{} {
	return p.metrics.snapshot()
}

// StartMetricsReporting emits periodic progress logs until Close is called or
// the pipeline's context is done.
func (p *Pipeline) StartMetricsReporting(interval time.Duration) {
	if interval <= 0 {
		return
	}

	p.reporter.Add(1)
	go func() {
		defer p.reporter.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				metrics := p.GetMetrics()
				processed := metrics["processed_items"].(int64)
				validation := metrics["validation_errors"].(map[string]int)
				slog.Info("pipeline progress",
					slog.Int64("processed", processed),
					slog.Int("invalid", validation["invalid_record"]),
				)
			case <-p.shutdown:
				return
			case <-p.ctx.Done():
				return
			}
		}
	}()
}

func (p *Pipeline) worker() {
	defer p.wg.Done()

	batch := make([]*models.ResultItem, 0, p.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := p.writer.Write(batch); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	for item := range p.itemCh {
		if !p.accept(item) {
			continue
		}
		batch = append(batch, item)
		if len(batch) >= p.batchSize {
			if err := flush(); err != nil {
				p.setErr(fmt.Errorf("write batch: %w", err))
				return
			}
		}
	}

	if err := flush(); err != nil {
		p.setErr(fmt.Errorf("write batch: %w", err))
	}
}

func (p *Pipeline) accept(item *models.ResultItem) bool {
	if err := parser.ValidateResult(item); err != nil {
		p.metrics.addValidation("invalid_record")
		slog.Debug("dropping invalid result", slog.Any("error", err))
		return false
	}
	p.metrics.incrementProcessed()
	return true
}

func (p *Pipeline) enqueue(item *models.ResultItem) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrPipelineClosed
		}
	}()

	select {
	case <-p.shutdown:
		return ErrPipelineClosed
	case <-p.ctx.Done():
		return p.ctx.Err()
	case p.itemCh <- item:
		return nil
	}
}

func (p *Pipeline) setErr(err error) {
	if err == nil {
		return
	}

	p.mu.Lock()
	if p.err != nil {
		p.mu.Unlock()
		return
	}
	p.err = err
	p.closed = true
	p.mu.Unlock()

	p.signalShutdown()
}

func (p *Pipeline) state() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed, p.err
}

func (p *Pipeline) signalShutdown() {
	p.shutdownOnce.Do(func() {
		close(p.shutdown)
	})
}

type metrics struct {
	mu         sync.Mutex
	processed  int64
	validation map[string]int
}

func newMetrics() metrics {
	return metrics{
		validation: make(map[string]int),
	}
}

func (m *metrics) incrementProcessed() {
	m.mu.Lock()
	m.processed++
	m.mu.Unlock()
}

func (m *metrics) addValidation(kind string) {
	m.mu.Lock()
	m.validation[kind]++
	m.mu.Unlock()
}

func (m *metrics) snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	copyValidation := make(map[string]int, len(m.validation))
	for k, v := range m.validation {
		copyValidation[k] = v
	}

	return map[string]interface{}{
		"processed_items":   m.processed,
		"validation_errors": copyValidation,
	}
}
