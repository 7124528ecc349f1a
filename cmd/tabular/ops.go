package tabular

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Static errors for dataset operations
var (
	ErrColumnNotFound    = errors.New("column not found")
	ErrUnknownAggregate  = errors.New("aggregate must be one of: count, sum, min, max, mean")
	ErrUnknownJoinType   = errors.New("join type must be one of: inner, left")
	ErrIncomparableCells = errors.New("cannot order values of different types")
)

// Filter returns the rows for which the condition holds. Rows where the
// column is missing never match.
func Filter(ds *Dataset, expr SafeExpression) (*Dataset, error) {
	cond, err := parseCondition(expr)
	if err != nil {
		return nil, err
	}
	if !ds.HasColumn(cond.column) {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, cond.column)
	}

	out := &Dataset{Columns: ds.Columns}
	for _, row := range ds.Rows {
		match, err := cond.matches(row)
		if err != nil {
			return nil, err
		}
		if match {
			out.Rows = append(out.Rows, row)
		}
	}
	return out, nil
}

func (c *condition) matches(row Row) (bool, error) {
	v, ok := row[c.column]
	if !ok || IsMissing(v) {
		// null == null in a filter would be surprising; missing cells
		// simply never match
		return false, nil
	}

	switch c.op {
	case "==":
		return scalarEqual(v, c.value), nil
	case "!=":
		return !scalarEqual(v, c.value), nil
	case "contains":
		s, sok := v.(string)
		sub, subok := c.value.(string)
		return sok && subok && strings.Contains(s, sub), nil
	default:
		cmp, err := orderValues(v, c.value)
		if err != nil {
			return false, err
		}
		switch c.op {
		case ">":
			return cmp > 0, nil
		case ">=":
			return cmp >= 0, nil
		case "<":
			return cmp < 0, nil
		case "<=":
			return cmp <= 0, nil
		}
		return false, nil
	}
}

// SortBy stably sorts rows by the given columns. Missing cells sort
// before everything else so they group together at the top.
func SortBy(ds *Dataset, columns []string, descending bool) (*Dataset, error) {
	if missing := ds.MissingColumns(columns); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, strings.Join(missing, ", "))
	}

	out := &Dataset{Columns: ds.Columns, Rows: append([]Row(nil), ds.Rows...)}
	var sortErr error
	sort.SliceStable(out.Rows, func(i, j int) bool {
		for _, col := range columns {
			cmp, err := orderValues(out.Rows[i][col], out.Rows[j][col])
			if err != nil {
				if sortErr == nil {
					sortErr = err
				}
				return false
			}
			if cmp == 0 {
				continue
			}
			if descending {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	if sortErr != nil {
		return nil, sortErr
	}
	return out, nil
}

// GroupBy aggregates valueColumn per distinct combination of the group
// columns. Group order follows first appearance in the input.
func GroupBy(ds *Dataset, groupColumns []string, valueColumn, aggregate string) (*Dataset, error) {
	if missing := ds.MissingColumns(groupColumns); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, strings.Join(missing, ", "))
	}
	if aggregate != "count" && !ds.HasColumn(valueColumn) {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, valueColumn)
	}

	type group struct {
		key    Row
		values []interface{}
	}
	var order []string
	groups := make(map[string]*group)

	for _, row := range ds.Rows {
		k := groupKey(row, groupColumns)
		g, ok := groups[k]
		if !ok {
			key := make(Row, len(groupColumns))
			for _, col := range groupColumns {
				key[col] = row[col]
			}
			g = &group{key: key}
			groups[k] = g
			order = append(order, k)
		}
		g.values = append(g.values, row[valueColumn])
	}

	resultColumn := aggregate
	if valueColumn != "" {
		resultColumn = aggregate + "_" + valueColumn
	}

	out := &Dataset{Columns: append(append([]string(nil), groupColumns...), resultColumn)}
	for _, k := range order {
		g := groups[k]
		agg, err := aggregateValues(g.values, aggregate)
		if err != nil {
			return nil, err
		}
		row := make(Row, len(g.key)+1)
		for col, v := range g.key {
			row[col] = v
		}
		row[resultColumn] = agg
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// Pivot spreads the values of pivotColumn into new columns, one row per
// distinct index value. Later duplicates overwrite earlier ones, the
// same policy the diff indexer uses.
func Pivot(ds *Dataset, indexColumn, pivotColumn, valueColumn string) (*Dataset, error) {
	for _, col := range []string{indexColumn, pivotColumn, valueColumn} {
		if !ds.HasColumn(col) {
			return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, col)
		}
	}

	var indexOrder []string
	var columnOrder []string
	seenColumn := make(map[string]bool)
	cells := make(map[string]Row)

	for _, row := range ds.Rows {
		idx := groupKey(row, []string{indexColumn})
		if _, ok := cells[idx]; !ok {
			cells[idx] = Row{indexColumn: row[indexColumn]}
			indexOrder = append(indexOrder, idx)
		}

		header := fmt.Sprintf("%v", row[pivotColumn])
		if !seenColumn[header] {
			seenColumn[header] = true
			columnOrder = append(columnOrder, header)
		}
		cells[idx][header] = row[valueColumn]
	}

	out := &Dataset{Columns: append([]string{indexColumn}, columnOrder...)}
	for _, idx := range indexOrder {
		out.Rows = append(out.Rows, cells[idx])
	}
	return out, nil
}

// Join matches rows on the given columns. how is "inner" or "left"; a
// left join emits unmatched left rows with the right columns missing.
// Right-side join columns are dropped from the output since they
// duplicate the left ones.
func Join(left, right *Dataset, on []string, how string) (*Dataset, error) {
	if how != "inner" && how != "left" {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJoinType, how)
	}
	if missing := left.MissingColumns(on); len(missing) > 0 {
		return nil, fmt.Errorf("%w in left dataset: %s", ErrColumnNotFound, strings.Join(missing, ", "))
	}
	if missing := right.MissingColumns(on); len(missing) > 0 {
		return nil, fmt.Errorf("%w in right dataset: %s", ErrColumnNotFound, strings.Join(missing, ", "))
	}

	onSet := make(map[string]bool, len(on))
	for _, col := range on {
		onSet[col] = true
	}

	rightIndex := make(map[string][]Row)
	for _, row := range right.Rows {
		k := groupKey(row, on)
		rightIndex[k] = append(rightIndex[k], row)
	}

	out := &Dataset{Columns: append([]string(nil), left.Columns...)}
	for _, col := range right.Columns {
		if !onSet[col] {
			out.Columns = append(out.Columns, col)
		}
	}

	for _, lrow := range left.Rows {
		matches := rightIndex[groupKey(lrow, on)]
		if len(matches) == 0 {
			if how == "left" {
				out.Rows = append(out.Rows, lrow)
			}
			continue
		}
		for _, rrow := range matches {
			joined := make(Row, len(lrow)+len(rrow))
			for col, v := range lrow {
				joined[col] = v
			}
			for col, v := range rrow {
				if !onSet[col] {
					joined[col] = v
				}
			}
			out.Rows = append(out.Rows, joined)
		}
	}
	return out, nil
}

// Clean trims surrounding whitespace from string cells, converts
// empty strings to the missing marker, and drops rows where every cell
// is missing.
func Clean(ds *Dataset) *Dataset {
	out := &Dataset{Columns: ds.Columns}
	for _, row := range ds.Rows {
		cleaned := make(Row, len(row))
		allMissing := true
		for col, v := range row {
			if s, ok := v.(string); ok {
				s = strings.TrimSpace(s)
				if s == "" {
					cleaned[col] = nil
					continue
				}
				cleaned[col] = s
				allMissing = false
				continue
			}
			cleaned[col] = v
			if !IsMissing(v) {
				allMissing = false
			}
		}
		if !allMissing {
			out.Rows = append(out.Rows, cleaned)
		}
	}
	return out
}

// Transform sets targetColumn on every row to the value of a validated
// condition-shaped expression "column op literal" where op is one of
// + - * /, or to a plain literal when the expression has no operator.
func Transform(ds *Dataset, targetColumn string, expr SafeExpression) (*Dataset, error) {
	column, op, literal, isArithmetic := parseArithmetic(expr)
	if isArithmetic && !ds.HasColumn(column) {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, column)
	}

	out := &Dataset{Columns: ds.Columns}
	if !ds.HasColumn(targetColumn) {
		out.Columns = append(append([]string(nil), ds.Columns...), targetColumn)
	}

	for _, row := range ds.Rows {
		transformed := make(Row, len(row)+1)
		for col, v := range row {
			transformed[col] = v
		}

		if !isArithmetic {
			transformed[targetColumn] = parseLiteral(string(expr))
		} else {
			v, err := applyArithmetic(row[column], op, literal)
			if err != nil {
				return nil, err
			}
			transformed[targetColumn] = v
		}
		out.Rows = append(out.Rows, transformed)
	}
	return out, nil
}

func parseArithmetic(expr SafeExpression) (column, op string, literal interface{}, ok bool) {
	raw := string(expr)
	for _, candidate := range []string{"+", "-", "*", "/"} {
		idx := strings.Index(raw, " "+candidate+" ")
		if idx < 0 {
			continue
		}
		column = strings.TrimSpace(raw[:idx])
		literal = parseLiteral(strings.TrimSpace(raw[idx+3:]))
		if column == "" || !columnNamePattern.MatchString(column) {
			continue
		}
		return column, candidate, literal, true
	}
	return "", "", nil, false
}

func applyArithmetic(v interface{}, op string, literal interface{}) (interface{}, error) {
	if IsMissing(v) {
		return nil, nil
	}
	a, aok := toFloat(v)
	b, bok := toFloat(literal)
	if !aok || !bok {
		return nil, fmt.Errorf("%w: arithmetic on non-numeric value", ErrIncomparableCells)
	}
	switch op {
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	case "/":
		if b == 0 {
			return nil, nil
		}
		return a / b, nil
	}
	return nil, fmt.Errorf("unknown arithmetic operator %q", op)
}

// groupKey renders the named cells into a lookup key. Collisions across
// types ("1" vs 1) are acceptable for grouping and joining; the diff
// core uses its own stricter encoding.
func groupKey(row Row, columns []string) string {
	var b strings.Builder
	for i, col := range columns {
		if i > 0 {
			b.WriteByte(0x1f)
		}
		fmt.Fprintf(&b, "%v", row[col])
	}
	return b.String()
}

func aggregateValues(values []interface{}, aggregate string) (interface{}, error) {
	if aggregate == "count" {
		return int64(len(values)), nil
	}

	var nums []float64
	for _, v := range values {
		if f, ok := toFloat(v); ok {
			nums = append(nums, f)
		}
	}
	if len(nums) == 0 {
		return nil, nil
	}

	switch aggregate {
	case "sum", "mean":
		total := 0.0
		for _, f := range nums {
			total += f
		}
		if aggregate == "mean" {
			return total / float64(len(nums)), nil
		}
		return total, nil
	case "min":
		m := nums[0]
		for _, f := range nums[1:] {
			if f < m {
				m = f
			}
		}
		return m, nil
	case "max":
		m := nums[0]
		for _, f := range nums[1:] {
			if f > m {
				m = f
			}
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAggregate, aggregate)
	}
}

// orderValues orders two cells for sorting and range filters. Missing
// sorts first; numbers compare numerically across int/float; otherwise
// both sides must share a type.
func orderValues(a, b interface{}) (int, error) {
	aMissing, bMissing := IsMissing(a), IsMissing(b)
	switch {
	case aMissing && bMissing:
		return 0, nil
	case aMissing:
		return -1, nil
	case bMissing:
		return 1, nil
	}

	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			switch {
			case af < bf:
				return -1, nil
			case af > bf:
				return 1, nil
			default:
				return 0, nil
			}
		}
	}

	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv), nil
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0, nil
			case bv:
				return -1, nil
			default:
				return 1, nil
			}
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			switch {
			case av.Before(bv):
				return -1, nil
			case av.After(bv):
				return 1, nil
			default:
				return 0, nil
			}
		}
	}

	return 0, fmt.Errorf("%w: %T vs %T", ErrIncomparableCells, a, b)
}

// scalarEqual is loose equality for filters: numerics compare
// numerically, everything else by type and value.
func scalarEqual(a, b interface{}) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
		return false
	}
	return a == b
}

func toFloat(v interface{}) (float64, bool) {
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
