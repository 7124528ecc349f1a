package formatters

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestCSVRoundTrip(t *testing.T) {
	columns := []string{"id", "name", "score", "active"}
	rows := []map[string]interface{}{
		{"id": int64(1), "name": "Alice", "score": 99.5, "active": true},
		{"id": int64(2), "name": "Bob", "score": nil, "active": false},
	}

	data, err := NewCSVFormatter().Format(columns, rows)
	if err != nil {
		t.Fatalf("format failed: %v", err)
	}

	header := strings.SplitN(string(data), "\n", 2)[0]
	if header != "id,name,score,active" {
		t.Fatalf("header order not preserved: %q", header)
	}

	reader := NewCSVReader(bytes.NewReader(data))
	got, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	if !reflect.DeepEqual(reader.Columns(), columns) {
		t.Fatalf("columns = %v", reader.Columns())
	}
	if len(got) != 2 {
		t.Fatalf("rows = %d", len(got))
	}
	if got[0]["id"] != int64(1) || got[0]["score"] != 99.5 || got[0]["active"] != true {
		t.Fatalf("typed values lost: %+v", got[0])
	}
	if got[1]["score"] != nil {
		t.Fatalf("empty cell should read as missing, got %v", got[1]["score"])
	}
}

func TestCSVTimestamps(t *testing.T) {
	ts := time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC)
	data, err := NewCSVFormatter().Format([]string{"at"}, []map[string]interface{}{{"at": ts}})
	if err != nil {
		t.Fatalf("format failed: %v", err)
	}

	reader := NewCSVReader(bytes.NewReader(data))
	got, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	back, ok := got[0]["at"].(time.Time)
	if !ok {
		t.Fatalf("timestamp read back as %T", got[0]["at"])
	}
	if !back.Equal(ts) {
		t.Fatalf("timestamp round trip: %v != %v", back, ts)
	}
}

func TestCSVShortRows(t *testing.T) {
	input := "a,b,c\n1,2\n"
	reader := NewCSVReader(strings.NewReader(input))
	got, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if got[0]["c"] != nil {
		t.Fatalf("short row should yield missing cell, got %v", got[0]["c"])
	}
}

func TestJSONLRoundTrip(t *testing.T) {
	input := `{"id": 1, "name": "Alice", "score": 99.5}
{"id": 2, "name": "Bob", "extra": true}
`
	reader := NewJSONLReader(strings.NewReader(input))
	rows, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	if !reflect.DeepEqual(reader.Columns(), []string{"id", "name", "score", "extra"}) {
		t.Fatalf("columns = %v", reader.Columns())
	}
	// Integral JSON numbers read back as int64, like CSV
	if rows[0]["id"] != int64(1) {
		t.Fatalf("id = %v (%T)", rows[0]["id"], rows[0]["id"])
	}
	if rows[0]["score"] != 99.5 {
		t.Fatalf("score = %v", rows[0]["score"])
	}

	data, err := NewJSONLFormatter().Format(reader.Columns(), rows)
	if err != nil {
		t.Fatalf("format failed: %v", err)
	}
	if lines := strings.Count(string(data), "\n"); lines != 2 {
		t.Fatalf("expected 2 lines, got %d", lines)
	}
}

func TestJSONLTimestampDetection(t *testing.T) {
	input := `{"at": "2024-06-01T10:30:00Z", "note": "plain text"}
`
	reader := NewJSONLReader(strings.NewReader(input))
	rows, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if _, ok := rows[0]["at"].(time.Time); !ok {
		t.Fatalf("timestamp not detected: %T", rows[0]["at"])
	}
	if _, ok := rows[0]["note"].(string); !ok {
		t.Fatalf("plain string mistyped: %T", rows[0]["note"])
	}
}

func TestParquetRoundTrip(t *testing.T) {
	columns := []string{"id", "name", "score"}
	rows := []map[string]interface{}{
		{"id": int64(1), "name": "Alice", "score": 99.5},
		{"id": int64(2), "name": "Bob", "score": nil},
	}

	data, err := NewParquetFormatter().Format(columns, rows)
	if err != nil {
		t.Fatalf("format failed: %v", err)
	}

	reader, err := NewParquetReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	got, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("rows = %d", len(got))
	}
	if got[0]["id"] != int64(1) || got[0]["name"] != "Alice" || got[0]["score"] != 99.5 {
		t.Fatalf("row = %+v", got[0])
	}
	if got[1]["score"] != nil {
		t.Fatalf("null cell should read as missing, got %v", got[1]["score"])
	}
}

func TestGetFormatter(t *testing.T) {
	if _, ok := GetFormatter("csv").(*CSVFormatter); !ok {
		t.Fatal("csv should map to CSVFormatter")
	}
	if _, ok := GetFormatter("parquet").(*ParquetFormatter); !ok {
		t.Fatal("parquet should map to ParquetFormatter")
	}
	if _, ok := GetFormatter("anything-else").(*JSONLFormatter); !ok {
		t.Fatal("unknown formats default to JSONL")
	}
}
