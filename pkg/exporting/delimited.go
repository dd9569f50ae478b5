package exporting

import (
	"encoding/csv"
	"fmt"
	"io"
)

func init() {
	Register(&DelimitedFormat{name: "csv", contentType: "text/csv", delimiter: ','})
	Register(&DelimitedFormat{name: "tsv", contentType: "text/tab-separated-values", delimiter: '\t'})
}

// DelimitedFormat handles CSV and TSV.
type DelimitedFormat struct {
	name        string
	contentType string
	delimiter   rune
}

func (f *DelimitedFormat) Name() string        { return f.name }
func (f *DelimitedFormat) ContentType() string { return f.contentType }

// Writer writes the header row immediately.
func (f *DelimitedFormat) Writer(w io.Writer, columns []string) (Writer, error) {
	cw := csv.NewWriter(w)
	cw.Comma = f.delimiter
	if err := cw.Write(columns); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	return &DelimitedWriter{writer: cw, header: columns}, nil
}

// DelimitedWriter writes rows in header order; missing keys are empty cells.
type DelimitedWriter struct {
	writer *csv.Writer
	header []string
}

func (w *DelimitedWriter) Write(record Record) error {
	row := make([]string, len(w.header))
	for i, key := range w.header {
		if val, ok := record[key]; ok {
			row[i] = FormatValue(val)
		}
	}
	if err := w.writer.Write(row); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}
	return nil
}

func (w *DelimitedWriter) Close() error {
	w.writer.Flush()
	return w.writer.Error()
}
