package tablediff

import (
	"time"

	"github.com/tabulario/tabletool/cmd/tabular"
)

// compareRows decides whether two rows matched by key differ, checking
// only the columns present in both rows. columns supplies a deterministic
// iteration order (shared columns in left display order).
//
// With trackColumns false the check short-circuits on the first
// difference. With it true, every differing column is collected so the
// caller can report per-column diffs.
func compareRows(leftRow, rightRow tabular.Row, columns []string, trackColumns bool) (bool, []string, error) {
	var changed []string

	for _, col := range columns {
		lv, inLeft := leftRow[col]
		rv, inRight := rightRow[col]
		if !inLeft || !inRight {
			// Column missing from one row entirely (ragged JSONL input);
			// it does not participate in the verdict
			continue
		}

		equal, err := valuesEqual(col, lv, rv)
		if err != nil {
			return false, nil, err
		}
		if !equal {
			if !trackColumns {
				return false, nil, nil
			}
			changed = append(changed, col)
		}
	}

	return len(changed) == 0, changed, nil
}

// valuesEqual is the null-aware equality rule: two missing values are
// equal (a cell that stays null is not a change), a missing value never
// equals a present one, and present values compare under their native
// type. Values of different scalar kinds are simply unequal; only a
// non-scalar value is an error.
func valuesEqual(column string, a, b interface{}) (bool, error) {
	aMissing, bMissing := tabular.IsMissing(a), tabular.IsMissing(b)
	if aMissing || bMissing {
		return aMissing && bMissing, nil
	}

	if !tabular.IsScalar(a) {
		return false, &ComparisonError{Column: column, Message: "left value is not a comparable scalar"}
	}
	if !tabular.IsScalar(b) {
		return false, &ComparisonError{Column: column, Message: "right value is not a comparable scalar"}
	}

	// Numbers compare numerically regardless of how the reader typed
	// them: CSV yields int64 for "1" where JSON yields float64
	if af, aNum := asFloat(a); aNum {
		if bf, bNum := asFloat(b); bNum {
			return af == bf, nil
		}
		return false, nil
	}

	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv, nil
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv, nil
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv), nil
	}

	return false, nil
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}
