// Package exporting streams recorded phases in tabular formats.
package exporting

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Record is one flattened row, keyed by column name.
type Record = map[string]any

// Format is a named output encoding.
type Format interface {
	Name() string
	ContentType() string
	Writer(w io.Writer, columns []string) (Writer, error)
}

// Writer encodes records. Close flushes but leaves the underlying
// io.Writer open.
type Writer interface {
	Write(record Record) error
	Close() error
}

var registry = make(map[string]Format)

// Register adds a format to the registry.
func Register(f Format) {
	registry[strings.ToLower(f.Name())] = f
}

// Get returns a format by name.
func Get(name string) (Format, bool) {
	f, ok := registry[strings.ToLower(name)]
	return f, ok
}

// Names returns the registered format names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Columns returns the sorted union of keys across records.
func Columns(records []Record) []string {
	seen := make(map[string]struct{})
	for _, r := range records {
		for k := range r {
			seen[k] = struct{}{}
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// Export writes records to w in the named format.
func Export(w io.Writer, format string, records []Record) error {
	f, ok := Get(format)
	if !ok {
		return fmt.Errorf("unsupported format: %s", format)
	}

	writer, err := f.Writer(w, Columns(records))
	if err != nil {
		return fmt.Errorf("failed to initialize %s writer: %w", f.Name(), err)
	}
	for i, r := range records {
		if err := writer.Write(r); err != nil {
			writer.Close()
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	return writer.Close()
}
