package cmd

import (
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/tabulario/tabletool/cmd/tabular"
	"github.com/tabulario/tabletool/cmd/tablediff"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func compareForRender(t *testing.T, opts tablediff.Options) *tablediff.Result {
	t.Helper()

	left := tabular.FromMaps([]string{"id", "name", "score"}, []map[string]interface{}{
		{"id": int64(1), "name": "alice", "score": 95.5},
		{"id": int64(2), "name": "bob", "score": 87.0},
	})
	right := tabular.FromMaps([]string{"id", "name", "score"}, []map[string]interface{}{
		{"id": int64(1), "name": "alice", "score": 99.0},
		{"id": int64(3), "name": "carol", "score": 91.0},
	})

	result, err := tablediff.Compare(left, right, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return result
}

func TestRenderTextDiff(t *testing.T) {
	result := compareForRender(t, tablediff.Options{KeyColumns: []string{"id"}})
	text := renderTextDiff(result)

	if !strings.Contains(text, "+1 added") {
		t.Errorf("summary should report 1 added:\n%s", text)
	}
	if !strings.Contains(text, "-1 deleted") {
		t.Errorf("summary should report 1 deleted:\n%s", text)
	}
	if !strings.Contains(text, "~1 modified") {
		t.Errorf("summary should report 1 modified:\n%s", text)
	}
	if !strings.Contains(text, "carol") {
		t.Errorf("added row should be rendered:\n%s", text)
	}
	if !strings.Contains(text, "bob") {
		t.Errorf("deleted row should be rendered:\n%s", text)
	}
}

func TestRenderJSONDiff(t *testing.T) {
	result := compareForRender(t, tablediff.Options{KeyColumns: []string{"id"}, TrackColumns: true})

	data, err := renderJSONDiff(result)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded tablediff.Result
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Summary.Added != 1 || decoded.Summary.Modified != 1 {
		t.Fatalf("summary did not survive encoding: %+v", decoded.Summary)
	}
	if decoded.Summary.Columns["score"] != 1 {
		t.Fatalf("column counts did not survive encoding: %v", decoded.Summary.Columns)
	}
}

func TestDiffTable(t *testing.T) {
	result := compareForRender(t, tablediff.Options{KeyColumns: []string{"id"}})
	table := diffTable(result)

	if table.Columns[0] != diffStatusColumn {
		t.Fatalf("first column should be %s, got %s", diffStatusColumn, table.Columns[0])
	}

	// added + deleted + modified pair
	if len(table.Rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(table.Rows))
	}

	statuses := make(map[string]int)
	for _, row := range table.Rows {
		status, ok := row[diffStatusColumn].(string)
		if !ok {
			t.Fatalf("row missing %s cell: %v", diffStatusColumn, row)
		}
		statuses[status]++
	}
	if statuses["added"] != 1 || statuses["deleted"] != 1 || statuses["modified_old"] != 1 || statuses["modified_new"] != 1 {
		t.Fatalf("unexpected status counts: %v", statuses)
	}
}

func TestDiffTableTrackedColumns(t *testing.T) {
	result := compareForRender(t, tablediff.Options{KeyColumns: []string{"id"}, TrackColumns: true})
	table := diffTable(result)

	if table.Columns[0] != diffStatusColumn || table.Columns[1] != changedColumnsColumn {
		t.Fatalf("leading columns = %v, want [%s %s ...]", table.Columns[:2], diffStatusColumn, changedColumnsColumn)
	}

	for _, row := range table.Rows {
		status := row[diffStatusColumn].(string)
		changed, _ := row[changedColumnsColumn].(string)
		switch status {
		case "modified_old", "modified_new":
			if changed != "score" {
				t.Fatalf("%s row should carry changed_columns=score, got %q", status, changed)
			}
		default:
			if row[changedColumnsColumn] != nil {
				t.Fatalf("%s row should leave changed_columns empty, got %v", status, row[changedColumnsColumn])
			}
		}
	}
}

func TestDiffTableUntracked(t *testing.T) {
	// Without tracking the synthetic column stays out of the table
	result := compareForRender(t, tablediff.Options{KeyColumns: []string{"id"}})
	table := diffTable(result)
	for _, col := range table.Columns {
		if col == changedColumnsColumn {
			t.Fatal("changed_columns should only appear with tracking enabled")
		}
	}
}

func TestDifferEndToEnd(t *testing.T) {
	// Drive the full pipeline through the Differ using in-memory config
	config := &Config{
		OutputFormat: "json",
		Compression:  "none",
		KeyColumns:   []string{"id"},
	}
	differ := NewDiffer(config, testLogger())

	left := tabular.FromMaps([]string{"id", "name"}, []map[string]interface{}{
		{"id": int64(1), "name": "alice"},
	})
	right := tabular.FromMaps([]string{"id", "name"}, []map[string]interface{}{
		{"id": int64(1), "name": "alicia"},
		{"id": int64(2), "name": "bob"},
	})

	result, err := differ.compareLoaded(left, right)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Summary.Added != 1 || result.Summary.Modified != 1 {
		t.Fatalf("unexpected summary: %+v", result.Summary)
	}
}
