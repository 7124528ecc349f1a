package formatters

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/parquet-go/parquet-go"
)

// ParquetReader reads Parquet files. Cell values are widened onto the
// scalar model (int32 → int64, float32 → float64) and string cells are
// run through the same timestamp detection as CSV input.
type ParquetReader struct {
	file    *parquet.File
	closer  io.ReadCloser
	columns []string
}

// NewParquetReader creates a new Parquet reader
// Note: Parquet requires io.ReaderAt, so we read the entire file into memory
func NewParquetReader(r io.Reader) (*ParquetReader, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet data: %w", err)
	}

	file, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}

	return &ParquetReader{file: file, columns: schemaColumns(file)}, nil
}

// NewParquetReaderWithCloser creates a new Parquet reader with a closable reader
func NewParquetReaderWithCloser(r io.ReadCloser) (*ParquetReader, error) {
	reader, err := NewParquetReader(r)
	if err != nil {
		r.Close()
		return nil, err
	}
	reader.closer = r
	return reader, nil
}

// schemaColumns flattens the schema's column paths into names, keeping
// the file's column order
func schemaColumns(file *parquet.File) []string {
	paths := file.Schema().Columns()
	columns := make([]string, 0, len(paths))
	for _, path := range paths {
		if len(path) > 0 {
			columns = append(columns, path[len(path)-1])
		}
	}
	return columns
}

// Columns returns the schema's column order
func (r *ParquetReader) Columns() []string {
	return r.columns
}

// ReadAll reads all rows from the parquet file by iterating its row groups
func (r *ParquetReader) ReadAll() ([]map[string]interface{}, error) {
	var rows []map[string]interface{}

	for _, rowGroup := range r.file.RowGroups() {
		rowReader := rowGroup.Rows()

		batch := make([]parquet.Row, 1000)
		for {
			n, err := rowReader.ReadRows(batch)
			for i := 0; i < n; i++ {
				rows = append(rows, r.convertRow(batch[i]))
			}
			if err == io.EOF || n == 0 {
				break
			}
			if err != nil {
				rowReader.Close()
				return nil, fmt.Errorf("failed to read parquet rows: %w", err)
			}
		}

		if err := rowReader.Close(); err != nil {
			return nil, fmt.Errorf("failed to close parquet row reader: %w", err)
		}
	}

	return rows, nil
}

// convertRow maps one parquet.Row onto the scalar row shape. Values are
// ordered by column index.
func (r *ParquetReader) convertRow(parquetRow parquet.Row) map[string]interface{} {
	row := make(map[string]interface{}, len(r.columns))
	for i, val := range parquetRow {
		if i >= len(r.columns) {
			break
		}
		col := r.columns[i]

		if val.IsNull() {
			row[col] = nil
			continue
		}

		switch val.Kind() {
		case parquet.Boolean:
			row[col] = val.Boolean()
		case parquet.Int32:
			row[col] = int64(val.Int32())
		case parquet.Int64:
			row[col] = val.Int64()
		case parquet.Float:
			row[col] = float64(val.Float())
		case parquet.Double:
			row[col] = val.Double()
		default:
			// Byte arrays carry strings; unlike CSV, parquet cells are
			// already typed, so only timestamps need detection
			row[col] = convertStringCell(string(val.ByteArray()))
		}
	}
	return row
}

// convertStringCell detects RFC 3339 timestamps written by the
// formatter and leaves every other string alone
func convertStringCell(s string) interface{} {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	return s
}

// Close closes the underlying reader
func (r *ParquetReader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}
