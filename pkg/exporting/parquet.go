package exporting

import (
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"
)

const ParquetBatchSize = 1000

func init() {
	Register(&ParquetFormat{})
}

// ParquetFormat handles Parquet. Every column is an optional leaf typed from
// the first record; values of later records are converted to that type.
type ParquetFormat struct{}

func (f *ParquetFormat) Name() string        { return "parquet" }
func (f *ParquetFormat) ContentType() string { return "application/vnd.apache.parquet" }

func (f *ParquetFormat) Writer(w io.Writer, columns []string) (Writer, error) {
	return &ParquetWriter{out: w, columns: columns}, nil
}

// ParquetWriter buffers rows and builds its schema from the first record.
type ParquetWriter struct {
	out     io.Writer
	columns []string
	kinds   []parquet.Kind
	writer  *parquet.Writer
	buffer  []parquet.Row
}

func (w *ParquetWriter) initSchema(record Record) {
	group := make(parquet.Group, len(w.columns))
	for _, name := range w.columns {
		group[name] = valueToParquetNode(record[name])
	}
	schema := parquet.NewSchema("phase", group)

	// Group orders leaves by name; keep columns in the same order.
	fields := schema.Fields()
	w.columns = make([]string, 0, len(fields))
	w.kinds = make([]parquet.Kind, 0, len(fields))
	for _, f := range fields {
		w.columns = append(w.columns, f.Name())
		w.kinds = append(w.kinds, f.Type().Kind())
	}
	w.writer = parquet.NewWriter(w.out, schema, parquet.Compression(&parquet.Snappy))
	w.buffer = make([]parquet.Row, 0, ParquetBatchSize)
}

func valueToParquetNode(val any) parquet.Node {
	switch val.(type) {
	case int, int32, int64, uint, uint32, uint64:
		return parquet.Optional(parquet.Int(64))
	case float32, float64:
		return parquet.Optional(parquet.Leaf(parquet.DoubleType))
	case bool:
		return parquet.Optional(parquet.Leaf(parquet.BooleanType))
	default:
		return parquet.Optional(parquet.String())
	}
}

func (w *ParquetWriter) recordToRow(record Record) parquet.Row {
	row := make(parquet.Row, len(w.columns))
	for i, name := range w.columns {
		val, ok := record[name]
		if !ok || val == nil {
			row[i] = parquet.NullValue().Level(0, 0, i)
			continue
		}
		row[i] = toParquetValue(val, w.kinds[i]).Level(0, 1, i)
	}
	return row
}

// toParquetValue converts val to the physical kind of its column.
func toParquetValue(val any, kind parquet.Kind) parquet.Value {
	switch kind {
	case parquet.Int64:
		return parquet.Int64Value(toInt64(val))
	case parquet.Double:
		return parquet.DoubleValue(toFloat(val))
	case parquet.Boolean:
		b, _ := val.(bool)
		return parquet.BooleanValue(b)
	default:
		return parquet.ByteArrayValue([]byte(FormatValue(val)))
	}
}

func toInt64(val any) int64 {
	switch v := val.(type) {
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case uint:
		return int64(v)
	case uint32:
		return int64(v)
	case uint64:
		return int64(v)
	}
	return int64(toFloat(val))
}

func toFloat(val any) float64 {
	switch v := val.(type) {
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case uint:
		return float64(v)
	case uint32:
		return float64(v)
	case uint64:
		return float64(v)
	case float32:
		return float64(v)
	case float64:
		return v
	case bool:
		if v {
			return 1
		}
	}
	return 0
}

func (w *ParquetWriter) Write(record Record) error {
	if w.writer == nil {
		w.initSchema(record)
	}
	w.buffer = append(w.buffer, w.recordToRow(record))
	if len(w.buffer) >= ParquetBatchSize {
		return w.flushBuffer()
	}
	return nil
}

func (w *ParquetWriter) flushBuffer() error {
	if len(w.buffer) == 0 {
		return nil
	}
	if _, err := w.writer.WriteRows(w.buffer); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	w.buffer = w.buffer[:0]
	return nil
}

// Close writes the footer. With no records an empty file with the
// column-only schema is written.
func (w *ParquetWriter) Close() error {
	if w.writer == nil {
		w.initSchema(Record{})
	}
	if err := w.flushBuffer(); err != nil {
		return err
	}
	return w.writer.Close()
}
