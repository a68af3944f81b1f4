package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/aluiziolira/go-market-search/models"
)

func formatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', 2, 64)
}

// CSVWriter writes records to CSV.
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
	rows   int
	mu     sync.Mutex
}

// NewCSVWriter initialises a CSV writer and writes the header row.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create csv file: %w", err)
	}

	writer := csv.NewWriter(f)
	if err := writer.Write([]string{"name", "price", "link"}); err != nil {
		f.Close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("flush csv header: %w", err)
	}

	return &CSVWriter{
		file:   f,
		writer: writer,
	}, nil
}

// Write appends items to the CSV output.
func (cw *CSVWriter) Write(items []*models.ResultItem) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	for _, item := range items {
		record := []string{item.Name, formatPrice(item.Price), item.Link}
		if err := cw.writer.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
		cw.rows++
	}
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

// Close flushes and closes the file handle.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv writer: %w", err)
	}
	return cw.file.Close()
}

// Validate ensures the file has rows besides the header.
func (cw *CSVWriter) Validate() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	if cw.rows == 0 {
		return fmt.Errorf("csv file has no records")
	}
	return nil
}

// TextWriter writes one human readable block per item.
type TextWriter struct {
	file   *os.File
	writer *bufio.Writer
	rows   int
	mu     sync.Mutex
}

// NewTextWriter initialises the text writer.
func NewTextWriter(filename string) (*TextWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create text file: %w", err)
	}

	return &TextWriter{
		file:   f,
		writer: bufio.NewWriter(f),
	}, nil
}

// Write appends items separated by blank lines.
func (tw *TextWriter) Write(items []*models.ResultItem) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	for _, item := range items {
		if _, err := fmt.Fprintf(tw.writer, "名称：%s\n价格：%s元\n链接：%s\n\n", item.Name, formatPrice(item.Price), item.Link); err != nil {
			return fmt.Errorf("write text record: %w", err)
		}
		tw.rows++
	}
	if err := tw.writer.Flush(); err != nil {
		return fmt.Errorf("flush text writer: %w", err)
	}
	return nil
}

// Close flushes buffers and closes the underlying file.
func (tw *TextWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if err := tw.writer.Flush(); err != nil {
		return fmt.Errorf("flush text writer: %w", err)
	}
	return tw.file.Close()
}

// Validate ensures the text file has data.
func (tw *TextWriter) Validate() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.rows == 0 {
		return fmt.Errorf("text file has no records")
	}
	return nil
}

// JSONWriter writes newline-delimited JSON records.
type JSONWriter struct {
	file    *os.File
	writer  *bufio.Writer
	encoder *json.Encoder
	rows    int
	mu      sync.Mutex
}

// NewJSONWriter initialises the JSON writer.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create json file: %w", err)
	}

	buffer := bufio.NewWriter(f)
	encoder := json.NewEncoder(buffer)
	encoder.SetEscapeHTML(false)
	return &JSONWriter{
		file:    f,
		writer:  buffer,
		encoder: encoder,
	}, nil
}

// Write appends items in JSONL format.
func (jw *JSONWriter) Write(items []*models.ResultItem) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	for _, item := range items {
		if err := jw.encoder.Encode(item); err != nil {
			return fmt.Errorf("encode json record: %w", err)
		}
		jw.rows++
	}

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}

	return nil
}

// Close flushes buffers and closes the underlying file.
func (jw *JSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return jw.file.Close()
}

// Validate ensures the JSON file has data.
func (jw *JSONWriter) Validate() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()
	if jw.rows == 0 {
		return fmt.Errorf("json file has no records")
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
