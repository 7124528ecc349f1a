package formatters

import (
	"bytes"
	"fmt"
	"time"

	"github.com/parquet-go/parquet-go"
)

// ParquetFormatter handles Parquet format output
type ParquetFormatter struct {
	compression string
}

// NewParquetFormatter creates a new Parquet formatter with the default
// Snappy compression
func NewParquetFormatter() *ParquetFormatter {
	return &ParquetFormatter{compression: "snappy"}
}

// NewParquetFormatterWithCompression creates a Parquet formatter with specified compression
func NewParquetFormatterWithCompression(compression string) *ParquetFormatter {
	return &ParquetFormatter{compression: compression}
}

// Format converts rows to Parquet format. The schema follows the given
// column order; cell types are discovered from the first non-missing
// value per column.
func (f *ParquetFormatter) Format(columns []string, rows []map[string]interface{}) ([]byte, error) {
	if len(rows) == 0 {
		return []byte{}, nil
	}

	var buffer bytes.Buffer

	schema := buildSchema(columns, rows)

	var codec parquet.WriterOption
	switch f.compression {
	case "zstd":
		codec = parquet.Compression(&parquet.Zstd)
	case "gzip":
		codec = parquet.Compression(&parquet.Gzip)
	case "lz4":
		codec = parquet.Compression(&parquet.Lz4Raw)
	case "none":
		codec = parquet.Compression(&parquet.Uncompressed)
	default:
		// Snappy is the Parquet standard
		codec = parquet.Compression(&parquet.Snappy)
	}

	writer := parquet.NewGenericWriter[map[string]any](&buffer, schema, codec)

	// time.Time cells are stored as RFC 3339 strings; parquet-go's map
	// writer has no native timestamp mapping for interface values
	converted := make([]map[string]any, len(rows))
	for i, row := range rows {
		out := make(map[string]any, len(row))
		for col, val := range row {
			if t, ok := val.(time.Time); ok {
				out[col] = t.Format(time.RFC3339Nano)
				continue
			}
			out[col] = val
		}
		converted[i] = out
	}

	if _, err := writer.Write(converted); err != nil {
		return nil, fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close parquet writer: %w", err)
	}

	return buffer.Bytes(), nil
}

// buildSchema creates a Parquet schema in the given column order, typing
// each column from its first non-missing value
func buildSchema(columns []string, rows []map[string]interface{}) *parquet.Schema {
	columnTypes := make(map[string]interface{}, len(columns))
	for _, col := range columns {
		for _, row := range rows {
			if value := row[col]; value != nil {
				columnTypes[col] = value
				break
			}
		}
		if _, found := columnTypes[col]; !found {
			columnTypes[col] = "" // All-missing column defaults to string
		}
	}

	fields := make(parquet.Group, len(columns))
	for _, col := range columns {
		var field parquet.Node
		switch columnTypes[col].(type) {
		case bool:
			field = parquet.Optional(parquet.Leaf(parquet.BooleanType))
		case int, int32:
			field = parquet.Optional(parquet.Leaf(parquet.Int32Type))
		case int64:
			field = parquet.Optional(parquet.Leaf(parquet.Int64Type))
		case float32:
			field = parquet.Optional(parquet.Leaf(parquet.FloatType))
		case float64:
			field = parquet.Optional(parquet.Leaf(parquet.DoubleType))
		case []byte:
			field = parquet.Optional(parquet.Leaf(parquet.ByteArrayType))
		default:
			field = parquet.Optional(parquet.String())
		}
		fields[col] = field
	}

	return parquet.NewSchema("tabletool_export", fields)
}

// Extension returns the file extension for Parquet files
func (f *ParquetFormatter) Extension() string {
	return ".parquet"
}

// MIMEType returns the MIME type for Parquet
func (f *ParquetFormatter) MIMEType() string {
	return "application/vnd.apache.parquet"
}
