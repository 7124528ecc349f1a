package tablediff

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tabulario/tabletool/cmd/tabular"
)

// keyFunc derives the identity of a row. position is the row's zero-based
// index in its dataset, used by the positional fallback.
type keyFunc func(row tabular.Row, position int) (string, error)

// resolveKey validates the requested key columns against both datasets and
// returns the key extraction function shared by both sides.
//
// With key columns, the key is the ordered tuple of those column values,
// encoded to a collision-free string. Without key columns, rows are
// matched by position: the key of row i is simply i, so comparison
// degenerates to positional diffing.
func resolveKey(left, right *tabular.Dataset, keyColumns []string) (keyFunc, error) {
	if len(keyColumns) == 0 {
		return func(_ tabular.Row, position int) (string, error) {
			return strconv.Itoa(position), nil
		}, nil
	}

	if missing := left.MissingColumns(keyColumns); len(missing) > 0 {
		return nil, newKeyColumnsNotFoundInLeft(missing, left.Columns)
	}
	if missing := right.MissingColumns(keyColumns); len(missing) > 0 {
		return nil, newKeyColumnsNotFoundInRight(missing, right.Columns)
	}

	columns := append([]string(nil), keyColumns...)
	return func(row tabular.Row, _ int) (string, error) {
		var b strings.Builder
		for i, col := range columns {
			if i > 0 {
				// Unit separator keeps ("a","b|c") distinct from ("a|b","c")
				b.WriteByte(0x1f)
			}
			part, err := encodeKeyValue(col, row[col])
			if err != nil {
				return "", err
			}
			b.WriteString(part)
		}
		return b.String(), nil
	}, nil
}

// encodeKeyValue renders a scalar as a type-tagged string so int64(1) and
// "1" never produce the same key. Numeric values are canonicalized: an
// integral float encodes the same as the matching integer, because JSON
// input yields float64 where CSV input yields int64 for the same cell.
func encodeKeyValue(column string, v interface{}) (string, error) {
	if tabular.IsMissing(v) {
		return "n:", nil
	}

	switch val := v.(type) {
	case int64:
		return "i:" + strconv.FormatInt(val, 10), nil
	case int:
		return "i:" + strconv.FormatInt(int64(val), 10), nil
	case int32:
		return "i:" + strconv.FormatInt(int64(val), 10), nil
	case float64:
		if val == math.Trunc(val) && val >= math.MinInt64 && val <= math.MaxInt64 {
			return "i:" + strconv.FormatInt(int64(val), 10), nil
		}
		return "f:" + strconv.FormatFloat(val, 'g', -1, 64), nil
	case float32:
		return encodeKeyValue(column, float64(val))
	case string:
		// Length prefix so strings containing the separator byte cannot
		// forge another component boundary
		return "s:" + strconv.Itoa(len(val)) + ":" + val, nil
	case bool:
		return "b:" + strconv.FormatBool(val), nil
	case time.Time:
		return "t:" + val.UTC().Format(time.RFC3339Nano), nil
	default:
		return "", &ComparisonError{
			Column:  column,
			Message: "key value is not a comparable scalar",
		}
	}
}
