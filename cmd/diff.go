package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/tabulario/tabletool/cmd/tabular"
	"github.com/tabulario/tabletool/cmd/tablediff"
)

// Differ drives a full comparison: load both sides, compare, render
type Differ struct {
	config *Config
	logger *slog.Logger
}

// NewDiffer creates a new Differ instance
func NewDiffer(config *Config, logger *slog.Logger) *Differ {
	return &Differ{
		config: config,
		logger: logger,
	}
}

// Run executes the comparison
func (d *Differ) Run(ctx context.Context) error {
	var result *tablediff.Result
	var err error

	if d.config.Progress && d.config.OutputFormat == "text" {
		result, err = d.runWithProgress(ctx)
	} else {
		result, err = d.compare(ctx)
	}
	if err != nil {
		return err
	}

	d.logSummary(result)
	return d.output(result)
}

// compare loads both datasets and classifies the rows
func (d *Differ) compare(ctx context.Context) (*tablediff.Result, error) {
	d.logger.Debug("Loading left dataset...")
	left, err := d.loadLeft(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load left dataset: %w", err)
	}
	d.logger.Info(fmt.Sprintf("📥 Left: %d rows, %d columns", len(left.Rows), len(left.Columns)))

	d.logger.Debug("Loading right dataset...")
	right, err := d.loadRight(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load right dataset: %w", err)
	}
	d.logger.Info(fmt.Sprintf("📥 Right: %d rows, %d columns", len(right.Rows), len(right.Columns)))

	return d.compareLoaded(left, right)
}

func (d *Differ) loadLeft(ctx context.Context) (*tabular.Dataset, error) {
	return LoadDataset(ctx, d.config, d.config.Left, d.config.LeftQuery)
}

func (d *Differ) loadRight(ctx context.Context) (*tabular.Dataset, error) {
	return LoadDataset(ctx, d.config, d.config.Right, d.config.RightQuery)
}

func (d *Differ) compareLoaded(left, right *tabular.Dataset) (*tablediff.Result, error) {
	opts := tablediff.Options{
		KeyColumns:       d.config.KeyColumns,
		IncludeUnchanged: d.config.IncludeUnchanged,
		TrackColumns:     d.config.TrackColumns,
	}
	return tablediff.Compare(left, right, opts)
}

func (d *Differ) logSummary(result *tablediff.Result) {
	d.logger.Info("")
	d.logger.Info(fmt.Sprintf("📊 Added: %d  Deleted: %d  Modified: %d  Unchanged: %d",
		result.Summary.Added,
		result.Summary.Deleted,
		result.Summary.Modified,
		result.Summary.Unchanged,
	))
}

// output renders the result in the configured format
func (d *Differ) output(result *tablediff.Result) error {
	switch d.config.OutputFormat {
	case "text":
		_, err := os.Stdout.WriteString(renderTextDiff(result))
		return err
	case "json":
		data, err := renderJSONDiff(result)
		if err != nil {
			return err
		}
		return writeOutput(d.config, data)
	default:
		// Table formats: csv, jsonl, parquet
		return WriteDataset(d.config, diffTable(result))
	}
}
