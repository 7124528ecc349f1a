// Package tablediff compares two in-memory tabular datasets and
// classifies every row as added, deleted, modified, or unchanged.
//
// Rows are matched by a caller-supplied compound key, or by position
// when no key columns are given. The comparison is a single synchronous
// pass per phase (index, classify, compare, build), holds no state
// between calls, and never mutates its inputs, so independent
// comparisons may run concurrently.
package tablediff

import (
	"github.com/tabulario/tabletool/cmd/tabular"
)

// DiffStatus tags each row of the comparison output.
type DiffStatus string

const (
	StatusAdded       DiffStatus = "added"
	StatusDeleted     DiffStatus = "deleted"
	StatusModifiedOld DiffStatus = "modified_old"
	StatusModifiedNew DiffStatus = "modified_new"
	StatusUnchanged   DiffStatus = "unchanged"
)

// Options controls a single comparison.
type Options struct {
	// KeyColumns are the columns whose values identify a row on both
	// sides. Empty means positional matching.
	KeyColumns []string

	// IncludeUnchanged emits unchanged rows (after all other
	// categories) instead of only counting them.
	IncludeUnchanged bool

	// TrackColumns disables the comparator's short-circuit and records
	// which columns changed for every modified row, at the cost of
	// always scanning all shared columns.
	TrackColumns bool
}

// AnnotatedRow is one row of the comparison output. For modified rows
// the old and new versions are emitted back to back, both carrying the
// same ChangedColumns when column tracking is on.
type AnnotatedRow struct {
	Status         DiffStatus  `json:"status"`
	Row            tabular.Row `json:"row"`
	ChangedColumns []string    `json:"changed_columns,omitempty"`
}

// Summary holds the comparison counts. Columns is only populated when
// Options.TrackColumns is set.
type Summary struct {
	Added     int            `json:"added"`
	Deleted   int            `json:"deleted"`
	Modified  int            `json:"modified"`
	Unchanged int            `json:"unchanged"`
	Columns   map[string]int `json:"columns,omitempty"`
}

// Result is the assembled comparison output: the annotated rows in
// deterministic order plus the summary counts, and the display column
// order of each side for rendering.
type Result struct {
	Rows    []AnnotatedRow `json:"rows"`
	Summary Summary        `json:"summary"`

	LeftColumns  []string `json:"left_columns"`
	RightColumns []string `json:"right_columns"`
}

// Compare classifies every row of right against left.
//
// It returns a *KeyColumnsNotFoundError before any indexing work when a
// key column is absent from either side, and a *ComparisonError when two
// values are fundamentally incomparable. Every other difference is
// classified, never errored. Both datasets are borrowed read-only; the
// caller must not mutate them for the duration of the call.
func Compare(left, right *tabular.Dataset, opts Options) (*Result, error) {
	key, err := resolveKey(left, right, opts.KeyColumns)
	if err != nil {
		return nil, err
	}

	leftIndex, err := buildIndex(left, key)
	if err != nil {
		return nil, err
	}
	rightIndex, err := buildIndex(right, key)
	if err != nil {
		return nil, err
	}

	sets := classifyKeys(leftIndex, rightIndex)

	return buildResult(left, right, leftIndex, rightIndex, sets, opts)
}

// sharedColumns returns the columns declared by both datasets, in the
// left dataset's display order. Only these participate in the
// modified/unchanged verdict; one-sided columns ride along in the output.
func sharedColumns(left, right *tabular.Dataset) []string {
	shared := make([]string, 0, len(left.Columns))
	for _, col := range left.Columns {
		if right.HasColumn(col) {
			shared = append(shared, col)
		}
	}
	return shared
}
