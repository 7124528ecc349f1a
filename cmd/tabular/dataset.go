package tabular

import (
	"math"
	"time"
)

// Row is a single record: column name to scalar value. Values are one of
// int64, float64, string, bool, time.Time, or nil for a missing cell.
type Row map[string]interface{}

// Dataset is an ordered sequence of rows plus the display order of its
// columns. Column order matters for output, not for comparison.
type Dataset struct {
	Columns []string
	Rows    []Row
}

// NewDataset builds a dataset from rows, deriving column order from the
// first appearance of each column across the rows. Used for sources that
// have no inherent header (JSONL, SQL results already provide order).
func NewDataset(rows []Row) *Dataset {
	ds := &Dataset{Rows: rows}
	seen := make(map[string]bool)
	for _, row := range rows {
		for col := range row {
			if !seen[col] {
				seen[col] = true
				ds.Columns = append(ds.Columns, col)
			}
		}
	}
	return ds
}

// FromMaps converts the generic row shape produced by the format readers
// into a Dataset, preserving the supplied column order. Columns that
// appear in rows but not in the column list are appended in first-seen
// order so no data is dropped.
func FromMaps(columns []string, rows []map[string]interface{}) *Dataset {
	ds := &Dataset{Columns: append([]string(nil), columns...)}
	seen := make(map[string]bool, len(columns))
	for _, col := range columns {
		seen[col] = true
	}

	ds.Rows = make([]Row, len(rows))
	for i, m := range rows {
		ds.Rows[i] = Row(m)
		for col := range m {
			if !seen[col] {
				seen[col] = true
				ds.Columns = append(ds.Columns, col)
			}
		}
	}
	return ds
}

// HasColumn reports whether the dataset declares the named column.
func (d *Dataset) HasColumn(name string) bool {
	for _, col := range d.Columns {
		if col == name {
			return true
		}
	}
	return false
}

// MissingColumns returns the subset of names not present in the dataset,
// in the order they were asked for.
func (d *Dataset) MissingColumns(names []string) []string {
	var missing []string
	for _, name := range names {
		if !d.HasColumn(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// IsMissing reports whether a cell value is the missing marker: nil or a
// floating-point NaN. Both sides missing counts as equal for diffing.
func IsMissing(v interface{}) bool {
	if v == nil {
		return true
	}
	if f, ok := v.(float64); ok {
		return math.IsNaN(f)
	}
	return false
}

// IsScalar reports whether a value is one of the supported scalar types.
// Structured values (maps, slices) can show up in JSONL input and cannot
// be compared.
func IsScalar(v interface{}) bool {
	switch v.(type) {
	case nil, int64, int, int32, float64, float32, string, bool, time.Time:
		return true
	default:
		return false
	}
}
