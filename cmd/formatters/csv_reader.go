package formatters

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// CSVReader reads CSV files with a header row. The header supplies the
// dataset's column order; cells are converted to typed scalars.
type CSVReader struct {
	reader   *csv.Reader
	closer   io.ReadCloser
	headers  []string
	readOnce bool
}

// NewCSVReader creates a new CSV reader
func NewCSVReader(r io.Reader) *CSVReader {
	cr := csv.NewReader(r)
	// Ragged rows are tolerated; short rows produce missing cells
	cr.FieldsPerRecord = -1
	return &CSVReader{reader: cr}
}

// NewCSVReaderWithCloser creates a new CSV reader with a closable reader
func NewCSVReaderWithCloser(r io.ReadCloser) *CSVReader {
	reader := NewCSVReader(r)
	reader.closer = r
	return reader
}

// readHeaders reads the header row if not already read
func (r *CSVReader) readHeaders() error {
	if r.readOnce {
		return nil
	}

	headers, err := r.reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}

	r.headers = headers
	r.readOnce = true
	return nil
}

// Columns returns the header row in file order
func (r *CSVReader) Columns() []string {
	return r.headers
}

// ReadAll reads all rows from the CSV stream
func (r *CSVReader) ReadAll() ([]map[string]interface{}, error) {
	if err := r.readHeaders(); err != nil {
		return nil, err
	}

	var rows []map[string]interface{}

	for {
		record, err := r.reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}

		row := make(map[string]interface{}, len(r.headers))
		for i, header := range r.headers {
			if i >= len(record) {
				row[header] = nil // Short row
				continue
			}
			row[header] = convertValue(record[i])
		}

		rows = append(rows, row)
	}

	return rows, nil
}

// convertValue attempts to convert a string cell to an appropriate type
func convertValue(value string) interface{} {
	if value == "" {
		return nil
	}

	// Try integer
	if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
		return intVal
	}

	// Try float
	if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
		return floatVal
	}

	// Try boolean
	if boolVal, err := strconv.ParseBool(value); err == nil {
		return boolVal
	}

	// Try timestamp formats
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}

	// Default to string
	return value
}

// Close closes the underlying reader if it's closable
func (r *CSVReader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}
