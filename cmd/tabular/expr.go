package tabular

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Static errors for expression validation
var (
	ErrEmptyExpression   = errors.New("expression is empty")
	ErrExpressionTooLong = errors.New("expression exceeds maximum length")
	ErrBadCondition      = errors.New("condition must have the form: column operator value")
)

const maxExpressionLength = 1000

// SecurityError is returned when an expression matches a dangerous
// pattern. The expression is rejected before anything evaluates it.
type SecurityError struct {
	Pattern string
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("expression rejected: contains dangerous pattern %q", e.Pattern)
}

// SafeExpression is an expression string that has passed validation.
// Filter and Transform only accept this type, so an unvalidated string
// can never reach evaluation.
type SafeExpression string

// dangerousPatterns are substrings and shapes that have no business in a
// column comparison and suggest an attempt to smuggle code through the
// expression surface.
var dangerousPatterns = []string{
	"__",
	"`",
	";",
	"$(",
	"${",
	"import",
	"exec",
	"eval",
	"system",
	"subprocess",
	"os.",
	"open(",
	"lambda",
	"getattr",
	"setattr",
}

// ValidateExpression screens an expression for dangerous patterns and
// returns it as a SafeExpression. Pure function, no side effects.
func ValidateExpression(expr string) (SafeExpression, error) {
	trimmed := strings.TrimSpace(expr)
	if trimmed == "" {
		return "", ErrEmptyExpression
	}
	if len(trimmed) > maxExpressionLength {
		return "", ErrExpressionTooLong
	}

	lowered := strings.ToLower(trimmed)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lowered, pattern) {
			return "", &SecurityError{Pattern: pattern}
		}
	}

	return SafeExpression(trimmed), nil
}

// condition is a parsed single-comparison expression: column op literal.
type condition struct {
	column string
	op     string
	value  interface{}
}

// Ordered longest-first so ">=" is not read as ">"
var conditionOps = []string{"==", "!=", ">=", "<=", ">", "<", "contains"}

var columnNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_ ]*$`)

func parseCondition(expr SafeExpression) (*condition, error) {
	raw := string(expr)

	for _, op := range conditionOps {
		idx := strings.Index(raw, " "+op+" ")
		if idx < 0 {
			continue
		}

		column := strings.TrimSpace(raw[:idx])
		literal := strings.TrimSpace(raw[idx+len(op)+2:])
		if column == "" || literal == "" {
			return nil, ErrBadCondition
		}
		if !columnNamePattern.MatchString(column) {
			return nil, fmt.Errorf("%w: invalid column name %q", ErrBadCondition, column)
		}

		return &condition{
			column: column,
			op:     op,
			value:  parseLiteral(literal),
		}, nil
	}

	return nil, ErrBadCondition
}

// parseLiteral types a literal the same way the CSV reader types cells:
// quoted → string, then int, float, bool, null, falling back to string.
func parseLiteral(s string) interface{} {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	if s == "null" || s == "nil" {
		return nil
	}
	if intVal, err := strconv.ParseInt(s, 10, 64); err == nil {
		return intVal
	}
	if floatVal, err := strconv.ParseFloat(s, 64); err == nil {
		return floatVal
	}
	if boolVal, err := strconv.ParseBool(s); err == nil {
		return boolVal
	}
	return s
}
