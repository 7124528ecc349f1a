package formatters

// Format type constants
const (
	FormatCSV     = "csv"
	FormatJSONL   = "jsonl"
	FormatParquet = "parquet"
)

// Formatter defines the interface for table file writers. columns is the
// display order of the table; every writer preserves it, since datasets
// carry a meaningful column order (CSV headers, query select lists).
type Formatter interface {
	// Format renders the rows to the target format
	Format(columns []string, rows []map[string]interface{}) ([]byte, error)

	// Extension returns the file extension for this format (e.g., ".jsonl", ".csv", ".parquet")
	Extension() string

	// MIMEType returns the MIME type for this format
	MIMEType() string
}

// Reader defines the interface for table file readers. Readers convert
// cells to typed scalars: int64, float64, bool, time.Time, string, or
// nil for a missing cell.
type Reader interface {
	// ReadAll reads every row from the input
	ReadAll() ([]map[string]interface{}, error)

	// Columns returns the column display order. For CSV this is the
	// header; for JSONL the first-seen order across rows; for Parquet
	// the schema order. Only complete after ReadAll.
	Columns() []string

	// Close closes the underlying reader if it is closable
	Close() error
}

// GetFormatter returns the appropriate formatter based on the format string
func GetFormatter(format string) Formatter {
	switch format {
	case FormatCSV:
		return NewCSVFormatter()
	case FormatParquet:
		return NewParquetFormatter()
	default:
		return NewJSONLFormatter() // Default to JSONL
	}
}
