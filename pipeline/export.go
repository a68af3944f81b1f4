package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/aluiziolira/go-market-search/config"
	"github.com/aluiziolira/go-market-search/models"
)

const filePrefix = "market_results_"

// ExportPaths returns the files written for format, named after now.
func ExportPaths(dir, format string, now time.Time) ([]string, error) {
	base := filepath.Join(dir, filePrefix+now.Format("20060102_150405"))
	switch format {
	case "csv":
		return []string{base + ".csv"}, nil
	case "txt":
		return []string{base + ".txt"}, nil
	case "json":
		return []string{base + ".jsonl"}, nil
	case "dual":
		return []string{base + ".csv", base + ".txt"}, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
}

func createWriter(format string, paths []string) (OutputWriter, error) {
	switch format {
	case "csv":
		return NewCSVWriter(paths[0])
	case "txt":
		return NewTextWriter(paths[0])
	case "json":
		return NewJSONWriter(paths[0])
	case "dual":
		return NewDualWriter(paths[0], paths[1])
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
}

// ExportReport describes what Export wrote.
type ExportReport struct {
	Paths []string
	// Written counts records that reached the files.
	Written int
	// Dropped counts records rejected by validation, e.g. a negative price.
	Dropped int
}

// Export writes items to timestamped files under cfg.OutputDir. Nothing is
// written for an empty list. The report is filled in even when an error is
// returned so callers can still show what was saved.
func Export(ctx context.Context, cfg *config.Config, items []models.ResultItem, now time.Time) (ExportReport, error) {
	var report ExportReport
	if len(items) == 0 {
		return report, nil
	}

	paths, err := ExportPaths(cfg.OutputDir, cfg.OutputFormat, now)
	if err != nil {
		return report, err
	}
	writer, err := createWriter(cfg.OutputFormat, paths)
	if err != nil {
		return report, fmt.Errorf("create writer: %w", err)
	}
	report.Paths = paths

	p := NewPipeline(ctx, writer, cfg)
	p.Start(1)
	if cfg.Verbose {
		p.StartMetricsReporting(reportInterval)
	}

	var errs []error
	for i := range items {
		if err := p.Process(&items[i]); err != nil {
			errs = append(errs, fmt.Errorf("process result: %w", err))
			break
		}
	}
	if err := p.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close pipeline: %w", err))
	}
	if err := writer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close writer: %w", err))
	}

	metrics := p.GetMetrics()
	validation := metrics["validation_errors"].(map[string]int)
	report.Written = int(metrics["processed_items"].(int64))
	report.Dropped = validation["invalid_record"]

	if err := writer.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("validate output: %w", err))
	}

	if report.Dropped > 0 {
		slog.Warn("export dropped invalid results",
			slog.Int("dropped", report.Dropped),
			slog.Any("validation_errors", validation),
		)
	}
	slog.Info("export finished",
		slog.Int("written", report.Written),
		slog.Int("dropped", report.Dropped),
		slog.Any("files", paths),
	)

	return report, errors.Join(errs...)
}
