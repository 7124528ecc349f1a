package formatters

import (
	"bytes"
	"encoding/json"
)

// JSONLFormatter handles JSONL (JSON Lines) format output
type JSONLFormatter struct{}

// NewJSONLFormatter creates a new JSONL formatter
func NewJSONLFormatter() *JSONLFormatter {
	return &JSONLFormatter{}
}

// Format converts rows to JSONL format (one JSON object per line).
// JSON objects carry no field order, so columns only filters: cells for
// undeclared columns are dropped, missing cells are omitted entirely.
func (f *JSONLFormatter) Format(columns []string, rows []map[string]interface{}) ([]byte, error) {
	var buffer bytes.Buffer

	declared := make(map[string]bool, len(columns))
	for _, col := range columns {
		declared[col] = true
	}

	for _, row := range rows {
		filtered := make(map[string]interface{}, len(row))
		for col, val := range row {
			if declared[col] && val != nil {
				filtered[col] = val
			}
		}

		jsonData, err := json.Marshal(filtered)
		if err != nil {
			return nil, err
		}

		buffer.Write(jsonData)
		buffer.WriteByte('\n')
	}

	return buffer.Bytes(), nil
}

// Extension returns the file extension for JSONL files
func (f *JSONLFormatter) Extension() string {
	return ".jsonl"
}

// MIMEType returns the MIME type for JSONL
func (f *JSONLFormatter) MIMEType() string {
	return "application/x-ndjson"
}
