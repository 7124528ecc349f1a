package formatters

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"
)

// JSONLReader reads JSONL format (one JSON object per line). Column
// order is the first-seen order of keys across all rows; numbers that
// are integral become int64 so JSONL and CSV input type identically.
type JSONLReader struct {
	scanner *bufio.Scanner
	closer  io.ReadCloser
	columns []string
	seen    map[string]bool
}

// NewJSONLReader creates a new JSONL reader
func NewJSONLReader(r io.Reader) *JSONLReader {
	return &JSONLReader{
		scanner: bufio.NewScanner(r),
		seen:    make(map[string]bool),
	}
}

// NewJSONLReaderWithCloser creates a new JSONL reader with a closable reader
func NewJSONLReaderWithCloser(r io.ReadCloser) *JSONLReader {
	reader := NewJSONLReader(r)
	reader.closer = r
	return reader
}

// Columns returns the keys in first-seen order. Only complete after
// ReadAll.
func (r *JSONLReader) Columns() []string {
	return r.columns
}

// ReadAll reads all rows from the JSONL stream
func (r *JSONLReader) ReadAll() ([]map[string]interface{}, error) {
	var rows []map[string]interface{}

	for r.scanner.Scan() {
		line := r.scanner.Bytes()
		if len(line) == 0 {
			continue // Skip empty lines
		}

		var raw map[string]interface{}
		decoder := json.NewDecoder(bytes.NewReader(line))
		decoder.UseNumber()
		if err := decoder.Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to parse JSON line: %w", err)
		}

		row := make(map[string]interface{}, len(raw))
		for key, val := range raw {
			row[key] = convertJSONValue(val)
		}
		rows = append(rows, row)

		// Track first-seen column order; within one object the decoder
		// loses order, so sweep line-by-line for stable results across runs
		trackColumns(r, line)
	}

	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner error: %w", err)
	}

	return rows, nil
}

// trackColumns records keys in the order they appear in the raw line,
// which json.Unmarshal into a map would not preserve
func trackColumns(r *JSONLReader, line []byte) {
	decoder := json.NewDecoder(bytes.NewReader(line))
	depth := 0
	expectKey := false
	for {
		tok, err := decoder.Token()
		if err != nil {
			return
		}
		switch t := tok.(type) {
		case json.Delim:
			switch t {
			case '{':
				depth++
				expectKey = depth == 1
			case '}':
				depth--
				expectKey = false
			case '[', ']':
				expectKey = false
			}
		case string:
			if depth == 1 && expectKey {
				if !r.seen[t] {
					r.seen[t] = true
					r.columns = append(r.columns, t)
				}
				// Value token follows; skip it wholesale
				if err := skipValue(decoder); err != nil {
					return
				}
			}
		default:
			// Top-level non-object line; nothing to track
			if depth == 0 {
				return
			}
		}
	}
}

func skipValue(decoder *json.Decoder) error {
	tok, err := decoder.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); ok && (delim == '{' || delim == '[') {
		depth := 1
		for depth > 0 {
			tok, err := decoder.Token()
			if err != nil {
				return err
			}
			if d, ok := tok.(json.Delim); ok {
				switch d {
				case '{', '[':
					depth++
				case '}', ']':
					depth--
				}
			}
		}
	}
	return nil
}

// convertJSONValue maps decoded JSON values onto the scalar model:
// integral numbers become int64, timestamps in RFC 3339 strings become
// time.Time, and structured values pass through for the comparator to
// reject if they ever reach it.
func convertJSONValue(val interface{}) interface{} {
	switch v := val.(type) {
	case json.Number:
		if intVal, err := v.Int64(); err == nil {
			return intVal
		}
		if floatVal, err := v.Float64(); err == nil {
			return floatVal
		}
		return v.String()
	case float64:
		if v == math.Trunc(v) {
			return int64(v)
		}
		return v
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t
		}
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
		return v
	default:
		return v
	}
}

// Close closes the underlying reader if it's closable
func (r *JSONLReader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}
