package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/tabulario/tabletool/cmd/tabular"
	"github.com/tabulario/tabletool/cmd/tablediff"
)

// Synthetic columns added to table output. changedColumnsColumn only
// appears when per-column tracking is on.
const (
	diffStatusColumn     = "diff_status"
	changedColumnsColumn = "changed_columns"
)

var (
	addedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	deletedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87"))

	modifiedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFAA00"))

	unchangedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	summaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00D9FF")).
			Bold(true)
)

// statusColumns picks the display column order for a row: rows that live
// on the right side render in right order, left-side rows in left order
func statusColumns(result *tablediff.Result, status tablediff.DiffStatus) []string {
	switch status {
	case tablediff.StatusAdded, tablediff.StatusModifiedNew:
		return result.RightColumns
	default:
		return result.LeftColumns
	}
}

// formatCells renders a row as col=value pairs in display order
func formatCells(row tabular.Row, columns []string) string {
	parts := make([]string, 0, len(columns))
	for _, col := range columns {
		value, ok := row[col]
		if !ok {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%s", col, formatCellValue(value)))
	}
	return strings.Join(parts, " ")
}

func formatCellValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return "∅"
	case time.Time:
		return v.Format(time.RFC3339)
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

// renderTextDiff renders a colored human-readable report
func renderTextDiff(result *tablediff.Result) string {
	var b strings.Builder

	b.WriteString(summaryStyle.Render(fmt.Sprintf("Summary: +%d added  -%d deleted  ~%d modified  =%d unchanged",
		result.Summary.Added,
		result.Summary.Deleted,
		result.Summary.Modified,
		result.Summary.Unchanged,
	)))
	b.WriteString("\n")

	if len(result.Summary.Columns) > 0 {
		names := make([]string, 0, len(result.Summary.Columns))
		for name := range result.Summary.Columns {
			names = append(names, name)
		}
		sort.Strings(names)

		parts := make([]string, 0, len(names))
		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s:%d", name, result.Summary.Columns[name]))
		}
		b.WriteString(unchangedStyle.Render("Changed columns: " + strings.Join(parts, " ")))
		b.WriteString("\n")
	}

	if len(result.Rows) > 0 {
		b.WriteString("\n")
	}

	for _, annotated := range result.Rows {
		columns := statusColumns(result, annotated.Status)
		cells := formatCells(annotated.Row, columns)

		var line string
		switch annotated.Status {
		case tablediff.StatusAdded:
			line = addedStyle.Render("+ " + cells)
		case tablediff.StatusDeleted:
			line = deletedStyle.Render("- " + cells)
		case tablediff.StatusModifiedOld:
			line = modifiedStyle.Render("~ - " + cells)
		case tablediff.StatusModifiedNew:
			line = modifiedStyle.Render("~ + " + cells)
			if len(annotated.ChangedColumns) > 0 {
				line += unchangedStyle.Render(" (changed: " + strings.Join(annotated.ChangedColumns, ", ") + ")")
			}
		case tablediff.StatusUnchanged:
			line = unchangedStyle.Render("  " + cells)
		}

		b.WriteString(line)
		b.WriteString("\n")
	}

	return b.String()
}

// renderJSONDiff renders the full result as indented JSON
func renderJSONDiff(result *tablediff.Result) ([]byte, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return append(data, '\n'), nil
}

// diffTable converts the result to a dataset with a leading diff_status
// column, suitable for the table formatters. With column tracking on, a
// changed_columns column carries the comma-joined changed column names
// on each modified row.
func diffTable(result *tablediff.Result) *tabular.Dataset {
	// Summary.Columns is populated exactly when tracking was requested
	tracking := result.Summary.Columns != nil

	columns := make([]string, 0, len(result.LeftColumns)+len(result.RightColumns)+2)
	columns = append(columns, diffStatusColumn)
	if tracking {
		columns = append(columns, changedColumnsColumn)
	}
	columns = append(columns, result.LeftColumns...)

	seen := make(map[string]bool, len(columns))
	for _, col := range columns {
		seen[col] = true
	}
	for _, col := range result.RightColumns {
		if !seen[col] {
			columns = append(columns, col)
			seen[col] = true
		}
	}

	rows := make([]map[string]interface{}, 0, len(result.Rows))
	for _, annotated := range result.Rows {
		row := make(map[string]interface{}, len(annotated.Row)+2)
		for col, value := range annotated.Row {
			row[col] = value
		}
		row[diffStatusColumn] = string(annotated.Status)
		if tracking {
			if len(annotated.ChangedColumns) > 0 {
				row[changedColumnsColumn] = strings.Join(annotated.ChangedColumns, ",")
			} else {
				row[changedColumnsColumn] = nil
			}
		}
		rows = append(rows, row)
	}

	return tabular.FromMaps(columns, rows)
}
