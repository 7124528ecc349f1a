package tablediff

import (
	"github.com/tabulario/tabletool/cmd/tabular"
)

// buildResult runs the row comparator over the common keys and assembles
// the annotated output table.
//
// Emission order: added (right dataset first-seen order), deleted (left
// first-seen), then each modified pair old-then-new (left first-seen).
// Unchanged rows are counted and, when requested, appended after all
// other categories. The positional fallback key is an internal row index
// and never appears as a data column.
func buildResult(left, right *tabular.Dataset, leftIndex, rightIndex *datasetIndex, sets keySets, opts Options) (*Result, error) {
	result := &Result{
		LeftColumns:  left.Columns,
		RightColumns: right.Columns,
	}

	shared := sharedColumns(left, right)

	// Verdicts first, so a comparison failure aborts before any rows
	// are emitted
	type modified struct {
		key     string
		changed []string
	}
	var modifiedKeys []modified
	var unchangedKeys []string

	for _, k := range sets.common {
		equal, changed, err := compareRows(leftIndex.rows[k], rightIndex.rows[k], shared, opts.TrackColumns)
		if err != nil {
			return nil, err
		}
		if equal {
			unchangedKeys = append(unchangedKeys, k)
		} else {
			modifiedKeys = append(modifiedKeys, modified{key: k, changed: changed})
		}
	}

	for _, k := range sets.onlyRight {
		result.Rows = append(result.Rows, AnnotatedRow{Status: StatusAdded, Row: rightIndex.rows[k]})
	}
	for _, k := range sets.onlyLeft {
		result.Rows = append(result.Rows, AnnotatedRow{Status: StatusDeleted, Row: leftIndex.rows[k]})
	}
	for _, m := range modifiedKeys {
		result.Rows = append(result.Rows,
			AnnotatedRow{Status: StatusModifiedOld, Row: leftIndex.rows[m.key], ChangedColumns: m.changed},
			AnnotatedRow{Status: StatusModifiedNew, Row: rightIndex.rows[m.key], ChangedColumns: m.changed},
		)
	}
	if opts.IncludeUnchanged {
		for _, k := range unchangedKeys {
			result.Rows = append(result.Rows, AnnotatedRow{Status: StatusUnchanged, Row: leftIndex.rows[k]})
		}
	}

	result.Summary = Summary{
		Added:     len(sets.onlyRight),
		Deleted:   len(sets.onlyLeft),
		Modified:  len(modifiedKeys),
		Unchanged: len(sets.common) - len(modifiedKeys),
	}

	if opts.TrackColumns {
		result.Summary.Columns = make(map[string]int)
		for _, m := range modifiedKeys {
			for _, col := range m.changed {
				result.Summary.Columns[col]++
			}
		}
	}

	return result, nil
}
