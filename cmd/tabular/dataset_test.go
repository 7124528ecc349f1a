package tabular

import (
	"math"
	"reflect"
	"testing"
)

func TestNewDataset(t *testing.T) {
	ds := NewDataset([]Row{
		{"b": int64(1), "a": int64(2)},
		{"a": int64(3), "c": int64(4)},
	})

	// First-seen order within a row is map order, so only assert the
	// cross-row property: c comes after the first row's columns
	if len(ds.Columns) != 3 || ds.Columns[2] != "c" {
		t.Fatalf("columns = %v", ds.Columns)
	}
}

func TestFromMaps(t *testing.T) {
	rows := []map[string]interface{}{
		{"id": int64(1), "name": "Alice"},
		{"id": int64(2), "name": "Bob", "extra": true},
	}

	ds := FromMaps([]string{"id", "name"}, rows)
	if !reflect.DeepEqual(ds.Columns, []string{"id", "name", "extra"}) {
		t.Fatalf("columns = %v", ds.Columns)
	}
	if len(ds.Rows) != 2 {
		t.Fatalf("rows = %d", len(ds.Rows))
	}
}

func TestIsMissing(t *testing.T) {
	if !IsMissing(nil) {
		t.Fatal("nil is missing")
	}
	if !IsMissing(math.NaN()) {
		t.Fatal("NaN is missing")
	}
	if IsMissing("") {
		t.Fatal("empty string is a value, not missing")
	}
	if IsMissing(int64(0)) {
		t.Fatal("zero is a value, not missing")
	}
}

func TestMissingColumns(t *testing.T) {
	ds := &Dataset{Columns: []string{"id", "name"}}
	missing := ds.MissingColumns([]string{"name", "zzz", "id", "yyy"})
	if !reflect.DeepEqual(missing, []string{"zzz", "yyy"}) {
		t.Fatalf("missing = %v", missing)
	}
}
