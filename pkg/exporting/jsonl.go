package exporting

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

const DefaultBufferSize = 64 * 1024

func init() {
	Register(&JSONLFormat{})
}

// JSONLFormat handles JSON Lines.
type JSONLFormat struct{}

func (f *JSONLFormat) Name() string        { return "jsonl" }
func (f *JSONLFormat) ContentType() string { return "application/x-ndjson" }

func (f *JSONLFormat) Writer(w io.Writer, _ []string) (Writer, error) {
	return &JSONLWriter{writer: bufio.NewWriterSize(w, DefaultBufferSize)}, nil
}

// JSONLWriter writes one JSON object per line.
type JSONLWriter struct {
	writer *bufio.Writer
}

func (w *JSONLWriter) Write(record Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	if _, err := w.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := w.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	return nil
}

func (w *JSONLWriter) Close() error {
	return w.writer.Flush()
}
