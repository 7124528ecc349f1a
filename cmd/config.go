package cmd

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Static errors for configuration validation
var (
	ErrLeftInputRequired       = errors.New("left input is required (path, s3:// URI, or --left-query)")
	ErrRightInputRequired      = errors.New("right input is required (path, s3:// URI, or --right-query)")
	ErrInputRequired           = errors.New("input is required (path, s3:// URI, or --query)")
	ErrDatabaseUserRequired    = errors.New("database user is required when loading from a query")
	ErrDatabaseNameRequired    = errors.New("database name is required when loading from a query")
	ErrDatabasePortInvalid     = errors.New("database port must be between 1 and 65535")
	ErrStatementTimeoutInvalid = errors.New("database statement timeout must be >= 0")
	ErrS3RegionInvalid         = errors.New("S3 region contains invalid characters or is too long")
	ErrOutputFormatInvalid     = errors.New("output format must be one of: text, json, csv, jsonl, parquet")
	ErrTableFormatInvalid      = errors.New("output format must be one of: csv, jsonl, parquet")
	ErrCompressionInvalid      = errors.New("compression must be one of: zstd, lz4, gzip, none")
	ErrCompressionLevelInvalid = errors.New("compression level must be between 1 and 22 (zstd), 1-9 (lz4/gzip)")
	ErrCompressionNeedsFile    = errors.New("compressed output requires --output-file")
	ErrTextFormatNeedsTTY      = errors.New("text output format cannot be combined with --output-file, use json or a table format")
	ErrKeyColumnEmpty          = errors.New("key column names must not be empty")
)

const regionAuto = "auto"

type Config struct {
	Debug     bool
	LogFormat string
	Progress  bool

	// Comparison inputs
	Left       string
	Right      string
	LeftQuery  string
	RightQuery string

	// Single-input operations (filter, sort, group, pivot, join, clean, transform)
	Input string
	Query string

	KeyColumns       []string
	IncludeUnchanged bool
	TrackColumns     bool

	OutputFormat     string
	OutputFile       string
	Compression      string
	CompressionLevel int

	Database DatabaseConfig
	S3       S3Config
}

type DatabaseConfig struct {
	Host             string
	Port             int
	User             string
	Password         string
	Name             string
	SSLMode          string
	StatementTimeout int // Statement timeout in seconds (0 = no timeout)
}

type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
}

// isValidRegion validates that an S3 region is reasonable
func isValidRegion(region string) bool {
	if region == "" {
		return false
	}
	if len(region) > 50 {
		return false
	}
	matched, _ := regexp.MatchString(`^[a-zA-Z0-9_-]+$`, region)
	return matched
}

// isValidOutputFormat validates a diff output format
func isValidOutputFormat(format string) bool {
	validFormats := map[string]bool{
		"text":    true,
		"json":    true,
		"csv":     true,
		"jsonl":   true,
		"parquet": true,
	}
	return validFormats[format]
}

// isValidTableFormat validates an output format for table-producing operations
func isValidTableFormat(format string) bool {
	validFormats := map[string]bool{
		"csv":     true,
		"jsonl":   true,
		"parquet": true,
	}
	return validFormats[format]
}

// isValidCompression validates the compression type
func isValidCompression(compression string) bool {
	validCompressions := map[string]bool{
		"zstd": true,
		"lz4":  true,
		"gzip": true,
		"none": true,
	}
	return validCompressions[compression]
}

// isValidCompressionLevel validates compression level based on compression type
func isValidCompressionLevel(compression string, level int) bool {
	switch compression {
	case "zstd":
		return level >= 1 && level <= 22
	case "lz4", "gzip":
		return level >= 1 && level <= 9
	case "none":
		return level == 0
	default:
		return false
	}
}

// usesDatabase reports whether any input comes from a SQL query
func (c *Config) usesDatabase() bool {
	return c.LeftQuery != "" || c.RightQuery != "" || c.Query != ""
}

// usesS3 reports whether any input is an s3:// URI
func (c *Config) usesS3() bool {
	for _, source := range []string{c.Left, c.Right, c.Input} {
		if strings.HasPrefix(source, "s3://") {
			return true
		}
	}
	return false
}

// ValidateDiff validates configuration for the diff command
func (c *Config) ValidateDiff() error {
	if c.Left == "" && c.LeftQuery == "" {
		return ErrLeftInputRequired
	}
	if c.Right == "" && c.RightQuery == "" {
		return ErrRightInputRequired
	}

	for _, col := range c.KeyColumns {
		if strings.TrimSpace(col) == "" {
			return ErrKeyColumnEmpty
		}
	}

	if !isValidOutputFormat(c.OutputFormat) {
		return fmt.Errorf("%w: '%s'", ErrOutputFormatInvalid, c.OutputFormat)
	}
	if c.OutputFormat == "text" && c.OutputFile != "" {
		return ErrTextFormatNeedsTTY
	}

	return c.validateCommon()
}

// ValidateTable validates configuration for single-input table operations
func (c *Config) ValidateTable() error {
	if c.Input == "" && c.Query == "" {
		return ErrInputRequired
	}

	if !isValidTableFormat(c.OutputFormat) {
		return fmt.Errorf("%w: '%s'", ErrTableFormatInvalid, c.OutputFormat)
	}

	return c.validateCommon()
}

func (c *Config) validateCommon() error {
	if !isValidCompression(c.Compression) {
		return fmt.Errorf("%w: '%s'", ErrCompressionInvalid, c.Compression)
	}
	// Level 0 means the codec default
	if c.CompressionLevel != 0 && !isValidCompressionLevel(c.Compression, c.CompressionLevel) {
		return fmt.Errorf("%w for compression %s: got %d", ErrCompressionLevelInvalid, c.Compression, c.CompressionLevel)
	}
	if c.Compression != "none" && c.OutputFile == "" {
		return ErrCompressionNeedsFile
	}

	if c.usesDatabase() {
		if c.Database.User == "" {
			return ErrDatabaseUserRequired
		}
		if c.Database.Name == "" {
			return ErrDatabaseNameRequired
		}
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			return fmt.Errorf("%w, got %d", ErrDatabasePortInvalid, c.Database.Port)
		}
		if c.Database.StatementTimeout < 0 {
			return fmt.Errorf("%w, got %d", ErrStatementTimeoutInvalid, c.Database.StatementTimeout)
		}
	}

	if c.usesS3() && c.S3.Region != "" && c.S3.Region != regionAuto {
		if !isValidRegion(c.S3.Region) {
			return fmt.Errorf("%w: %s", ErrS3RegionInvalid, c.S3.Region)
		}
	}

	return nil
}
