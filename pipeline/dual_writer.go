package pipeline

import (
	"errors"
	"fmt"
	"sync"

	"github.com/aluiziolira/go-market-search/models"
)

// DualWriter writes the default export: a CSV table and a readable text file.
type DualWriter struct {
	csvWriter  *CSVWriter
	textWriter *TextWriter
	mu         sync.Mutex
}

// NewDualWriter creates both files.
func NewDualWriter(csvFilename, textFilename string) (*DualWriter, error) {
	csvWriter, err := NewCSVWriter(csvFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV writer: %w", err)
	}

	textWriter, err := NewTextWriter(textFilename)
	if err != nil {
		csvWriter.Close()
		return nil, fmt.Errorf("failed to create text writer: %w", err)
	}

	return &DualWriter{
		csvWriter:  csvWriter,
		textWriter: textWriter,
	}, nil
}

// Write writes items to both outputs.
func (dw *DualWriter) Write(items []*models.ResultItem) error {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if err := dw.csvWriter.Write(items); err != nil {
		return fmt.Errorf("CSV write failed: %w", err)
	}
	if err := dw.textWriter.Write(items); err != nil {
		return fmt.Errorf("text write failed: %w", err)
	}
	return nil
}

// Close closes both writers.
func (dw *DualWriter) Close() error {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	var errs []error
	if err := dw.csvWriter.Close(); err != nil {
		errs = append(errs, fmt.Errorf("CSV close failed: %w", err))
	}
	if err := dw.textWriter.Close(); err != nil {
		errs = append(errs, fmt.Errorf("text close failed: %w", err))
	}
	return errors.Join(errs...)
}

// Validate validates both outputs.
func (dw *DualWriter) Validate() error {
	var errs []error
	if err := dw.csvWriter.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("CSV validation failed: %w", err))
	}
	if err := dw.textWriter.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("text validation failed: %w", err))
	}
	return errors.Join(errs...)
}
