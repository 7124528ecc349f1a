package tablediff

import (
	"fmt"
	"strings"
)

// Side identifies which input dataset an error is about.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// KeyColumnsNotFoundError is returned when requested key columns are
// missing from one of the datasets. Side names the dataset to fix.
// Missing-from-left is always detected and reported before
// missing-from-right.
type KeyColumnsNotFoundError struct {
	Side      Side
	Missing   []string
	Available []string
}

func newKeyColumnsNotFoundInLeft(missing, available []string) *KeyColumnsNotFoundError {
	return &KeyColumnsNotFoundError{Side: SideLeft, Missing: missing, Available: available}
}

func newKeyColumnsNotFoundInRight(missing, available []string) *KeyColumnsNotFoundError {
	return &KeyColumnsNotFoundError{Side: SideRight, Missing: missing, Available: available}
}

func (e *KeyColumnsNotFoundError) Error() string {
	return fmt.Sprintf("key columns not found in %s dataset: %s (available columns: %s)",
		e.Side, strings.Join(e.Missing, ", "), strings.Join(e.Available, ", "))
}

// ComparisonError is returned when two values cannot be compared at all,
// e.g. a structured JSON value against a scalar. It aborts the whole
// comparison; every other difference is classified, not errored.
type ComparisonError struct {
	Column  string
	Message string
}

func (e *ComparisonError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("comparison failed on column %q: %s", e.Column, e.Message)
	}
	return fmt.Sprintf("comparison failed: %s", e.Message)
}
