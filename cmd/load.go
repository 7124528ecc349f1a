package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tabulario/tabletool/cmd/compressors"
	"github.com/tabulario/tabletool/cmd/formatters"
	"github.com/tabulario/tabletool/cmd/tabular"
)

var ErrFormatNotDetected = errors.New("unable to detect format from filename")

// detectFormatAndCompression detects format and compression from a filename,
// handling stacked extensions like .csv.zst
func detectFormatAndCompression(filename string) (format string, compression string, err error) {
	lowerFilename := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lowerFilename, ".zst"):
		compression = "zstd"
	case strings.HasSuffix(lowerFilename, ".lz4"):
		compression = "lz4"
	case strings.HasSuffix(lowerFilename, ".gz"):
		compression = "gzip"
	default:
		compression = "none"
	}

	base := strings.TrimSuffix(filename, ".zst")
	base = strings.TrimSuffix(base, ".lz4")
	base = strings.TrimSuffix(base, ".gz")

	switch filepath.Ext(base) {
	case ".csv":
		format = "csv"
	case ".jsonl":
		format = "jsonl"
	case ".parquet":
		format = "parquet"
	default:
		return "", "", fmt.Errorf("%w: %s", ErrFormatNotDetected, filename)
	}

	return format, compression, nil
}

// LoadDataset loads a dataset from a SQL query, an s3:// URI, or a local
// file path. Query wins when both a query and a path are given.
func LoadDataset(ctx context.Context, config *Config, source, query string) (*tabular.Dataset, error) {
	if query != "" {
		return QueryDataset(ctx, config, query)
	}

	path := source
	if strings.HasPrefix(source, "s3://") {
		tempPath, err := downloadS3Object(ctx, config, source)
		if err != nil {
			return nil, err
		}
		defer os.Remove(tempPath)
		path = tempPath
		// Format detection uses the original URI, the temp file has no extension
		source = strings.TrimSuffix(source, "/")
	}

	format, compression, err := detectFormatAndCompression(filepath.Base(source))
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", source, err)
	}
	defer file.Close()

	compressor, err := compressors.GetCompressor(compression)
	if err != nil {
		return nil, err
	}

	decompressed, err := compressor.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress %s: %w", source, err)
	}
	defer decompressed.Close()

	var reader formatters.Reader
	switch format {
	case "csv":
		reader = formatters.NewCSVReaderWithCloser(decompressed)
	case "jsonl":
		reader = formatters.NewJSONLReaderWithCloser(decompressed)
	case "parquet":
		reader, err = formatters.NewParquetReaderWithCloser(decompressed)
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet from %s: %w", source, err)
		}
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", source, err)
	}

	return tabular.FromMaps(reader.Columns(), rows), nil
}

// rowMaps converts dataset rows back to plain maps for the formatters
func rowMaps(dataset *tabular.Dataset) []map[string]interface{} {
	rows := make([]map[string]interface{}, len(dataset.Rows))
	for i, row := range dataset.Rows {
		rows[i] = row
	}
	return rows
}

// WriteDataset renders a dataset with the configured format and compression
// and writes it to the output file, or stdout when none is set
func WriteDataset(config *Config, dataset *tabular.Dataset) error {
	formatter := formatters.GetFormatter(config.OutputFormat)

	data, err := formatter.Format(dataset.Columns, rowMaps(dataset))
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", config.OutputFormat, err)
	}

	return writeOutput(config, data)
}

// writeOutput compresses rendered bytes if configured and writes them out
func writeOutput(config *Config, data []byte) error {
	if config.Compression != "none" && config.Compression != "" {
		compressor, err := compressors.GetCompressor(config.Compression)
		if err != nil {
			return err
		}
		level := config.CompressionLevel
		if level == 0 {
			level = compressor.DefaultLevel()
		}
		data, err = compressor.Compress(data, level)
		if err != nil {
			return fmt.Errorf("failed to compress output: %w", err)
		}
	}

	if config.OutputFile == "" {
		_, err := os.Stdout.Write(data)
		return err
	}

	if err := os.WriteFile(config.OutputFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", config.OutputFile, err)
	}
	return nil
}
