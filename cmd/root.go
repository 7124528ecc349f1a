package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tabulario/tabletool/cmd/tabular"
)

var (
	// Version information - set via ldflags during build
	// Example: go build -ldflags "-X github.com/tabulario/tabletool/cmd.Version=1.2.3"
	Version = "dev" // Default to "dev" if not set during build

	// signalContext is set by main() before Cobra initialization
	// This ensures signal handling is set up before any library can interfere
	signalContext context.Context

	// versionCheckResult stores the result of the background version check
	versionCheckResult *VersionCheckResult

	cfgFile      string
	debug        bool
	logFormat    string
	showProgress bool

	leftPath   string
	rightPath  string
	leftQuery  string
	rightQuery string
	inputPath  string
	inputQuery string

	keyColumns       []string
	includeUnchanged bool
	trackColumns     bool

	outputFormat     string
	outputFile       string
	compression      string
	compressionLevel int

	dbHost             string
	dbPort             int
	dbUser             string
	dbPassword         string
	dbName             string
	dbSSLMode          string
	dbStatementTimeout int

	s3Endpoint  string
	s3AccessKey string
	s3SecretKey string
	s3Region    string

	whereExpr string

	sortBy   []string
	sortDesc bool

	groupByColumns []string
	aggregateFn    string
	valueColumn    string

	pivotIndex  string
	pivotColumn string
	pivotValue  string

	joinWith    string
	joinColumns []string
	joinType    string

	transformColumn string
	transformExpr   string

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true).
			Underline(true)

	logger *slog.Logger
)

// SetSignalContext stores the signal-aware context created in main()
// This must be called before Execute() to ensure proper signal handling
func SetSignalContext(ctx context.Context) {
	signalContext = ctx
}

// textOnlyHandler is a custom slog handler that outputs human-readable text
// without key=value pairs, suitable for interactive terminal usage
type textOnlyHandler struct {
	opts   slog.HandlerOptions
	writer io.Writer
}

func newTextOnlyHandler(w io.Writer, opts *slog.HandlerOptions) *textOnlyHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &textOnlyHandler{
		opts:   *opts,
		writer: w,
	}
}

func (h *textOnlyHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

func (h *textOnlyHandler) Handle(_ context.Context, r slog.Record) error {
	// Format: YYYY-MM-DD HH:MM:SS LEVEL message
	timestamp := r.Time.Format("2006-01-02 15:04:05")
	level := r.Level.String()

	_, err := fmt.Fprintf(h.writer, "%s %s %s\n", timestamp, level, r.Message)
	return err
}

func (h *textOnlyHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	// For simplicity, we ignore attributes in text-only mode
	return h
}

func (h *textOnlyHandler) WithGroup(_ string) slog.Handler {
	return h
}

// initLogger initializes the slog logger based on debug flag and log format.
// Logs go to stderr so that rendered output on stdout stays machine-readable.
func initLogger(isDebug bool, format string) {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	if isDebug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	case "logfmt":
		// logfmt uses slog.TextHandler which outputs key=value pairs
		handler = slog.NewTextHandler(os.Stderr, opts)
	default: // "text" or anything else
		handler = newTextOnlyHandler(os.Stderr, opts)
	}

	logger = slog.New(handler)
}

var rootCmd = &cobra.Command{
	Use:     "tabletool",
	Version: Version,
	Short:   "📊 Compare and reshape tabular datasets (CSV, JSONL, Parquet, PostgreSQL, S3)",
	Long: titleStyle.Render("Table Tool") + `

A CLI toolkit for tabular data. Compares two datasets row by row and reports
added, deleted, modified and unchanged rows, with key-based or positional
matching. Also filters, sorts, groups, pivots, joins, cleans and transforms
single datasets. Reads CSV/JSONL/Parquet from local files, S3 or PostgreSQL
queries, optionally compressed with zstd/lz4/gzip.`,
	Run: func(cmd *cobra.Command, _ []string) {
		// Show help when no subcommand is specified
		cmd.Help()
	},
}

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Compare two datasets and classify every row",
	Long: `Compare two datasets and classify every row as added, deleted, modified or
unchanged. Rows are matched by the configured key columns, or by position when
no keys are given. Output is a colored summary, JSON, or a table file with a
diff_status column.`,
	Run: func(_ *cobra.Command, _ []string) {
		runDiff()
	},
}

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Keep rows matching a condition",
	Long:  `Keep only the rows matching a condition such as "age >= 30" or "name contains 'smith'". Rows with a missing value in the tested column never match.`,
	Run: func(_ *cobra.Command, _ []string) {
		runTableOp("filter", applyFilter)
	},
}

var sortCmd = &cobra.Command{
	Use:   "sort",
	Short: "Sort rows by one or more columns",
	Long:  `Sort rows by one or more columns. The sort is stable and missing values order before present ones.`,
	Run: func(_ *cobra.Command, _ []string) {
		runTableOp("sort", applySort)
	},
}

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Group rows and aggregate a value column",
	Long:  `Group rows by a column and aggregate a value column with count, sum, min, max or mean. Groups appear in first-seen order.`,
	Run: func(_ *cobra.Command, _ []string) {
		runTableOp("group", applyGroup)
	},
}

var pivotCmd = &cobra.Command{
	Use:   "pivot",
	Short: "Pivot a long table into a wide one",
	Long:  `Pivot a long table into a wide one: one row per index value, one column per distinct pivot value.`,
	Run: func(_ *cobra.Command, _ []string) {
		runTableOp("pivot", applyPivot)
	},
}

var joinCmd = &cobra.Command{
	Use:   "join",
	Short: "Join the input with a second dataset",
	Long:  `Join the input dataset with a second one on shared columns. Supports inner and left joins.`,
	Run: func(_ *cobra.Command, _ []string) {
		runTableOp("join", applyJoin)
	},
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Normalize messy cells and drop empty rows",
	Long:  `Trim whitespace from string cells, convert empty strings to missing values, and drop rows where every cell is missing.`,
	Run: func(_ *cobra.Command, _ []string) {
		runTableOp("clean", applyClean)
	},
}

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Derive or overwrite a column from an expression",
	Long:  `Derive or overwrite a column from an arithmetic expression such as "price * 1.2" or a literal assignment.`,
	Run: func(_ *cobra.Command, _ []string) {
		runTableOp("transform", applyTransform)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

// addOutputFlags registers the output flags shared by every subcommand
func addOutputFlags(cmd *cobra.Command, defaultFormat string) {
	cmd.Flags().StringVar(&outputFormat, "output-format", defaultFormat, "output format")
	cmd.Flags().StringVar(&outputFile, "output-file", "", "output file path (default stdout)")
	cmd.Flags().StringVar(&compression, "compression", "none", "output compression: zstd, lz4, gzip, none")
	cmd.Flags().IntVar(&compressionLevel, "compression-level", 0, "compression level (zstd: 1-22, lz4/gzip: 1-9, none: 0)")

	_ = viper.BindPFlag("output_format", cmd.Flags().Lookup("output-format"))
	_ = viper.BindPFlag("output_file", cmd.Flags().Lookup("output-file"))
	_ = viper.BindPFlag("compression", cmd.Flags().Lookup("compression"))
	_ = viper.BindPFlag("compression_level", cmd.Flags().Lookup("compression-level"))
}

// addDatabaseFlags registers the PostgreSQL connection flags
func addDatabaseFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&dbHost, "db-host", "localhost", "PostgreSQL host")
	cmd.Flags().IntVar(&dbPort, "db-port", 5432, "PostgreSQL port")
	cmd.Flags().StringVar(&dbUser, "db-user", "", "PostgreSQL user")
	cmd.Flags().StringVar(&dbPassword, "db-password", "", "PostgreSQL password")
	cmd.Flags().StringVar(&dbName, "db-name", "", "PostgreSQL database name")
	cmd.Flags().StringVar(&dbSSLMode, "db-sslmode", "disable", "PostgreSQL SSL mode (disable, require, verify-ca, verify-full)")
	cmd.Flags().IntVar(&dbStatementTimeout, "db-statement-timeout", 300, "PostgreSQL statement timeout in seconds (0 = no timeout)")

	_ = viper.BindPFlag("db.host", cmd.Flags().Lookup("db-host"))
	_ = viper.BindPFlag("db.port", cmd.Flags().Lookup("db-port"))
	_ = viper.BindPFlag("db.user", cmd.Flags().Lookup("db-user"))
	_ = viper.BindPFlag("db.password", cmd.Flags().Lookup("db-password"))
	_ = viper.BindPFlag("db.name", cmd.Flags().Lookup("db-name"))
	_ = viper.BindPFlag("db.sslmode", cmd.Flags().Lookup("db-sslmode"))
	_ = viper.BindPFlag("db.statement_timeout", cmd.Flags().Lookup("db-statement-timeout"))
}

// addS3Flags registers the S3 connection flags used for s3:// inputs
func addS3Flags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s3Endpoint, "s3-endpoint", "", "S3-compatible endpoint URL")
	cmd.Flags().StringVar(&s3AccessKey, "s3-access-key", "", "S3 access key")
	cmd.Flags().StringVar(&s3SecretKey, "s3-secret-key", "", "S3 secret key")
	cmd.Flags().StringVar(&s3Region, "s3-region", "auto", "S3 region")

	_ = viper.BindPFlag("s3.endpoint", cmd.Flags().Lookup("s3-endpoint"))
	_ = viper.BindPFlag("s3.access_key", cmd.Flags().Lookup("s3-access-key"))
	_ = viper.BindPFlag("s3.secret_key", cmd.Flags().Lookup("s3-secret-key"))
	_ = viper.BindPFlag("s3.region", cmd.Flags().Lookup("s3-region"))
}

// addInputFlags registers the single-input flags used by table operations
func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&inputPath, "input", "", "input dataset (file path or s3:// URI)")
	cmd.Flags().StringVar(&inputQuery, "query", "", "SQL query to load the input from PostgreSQL instead of a file")

	_ = viper.BindPFlag("input", cmd.Flags().Lookup("input"))
	_ = viper.BindPFlag("query", cmd.Flags().Lookup("query"))
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(filterCmd)
	rootCmd.AddCommand(sortCmd)
	rootCmd.AddCommand(groupCmd)
	rootCmd.AddCommand(pivotCmd)
	rootCmd.AddCommand(joinCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(transformCmd)

	// Persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.tabletool.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, logfmt, json)")
	rootCmd.PersistentFlags().BoolVar(&showProgress, "progress", false, "show an interactive progress display")

	// Diff-specific flags
	diffCmd.Flags().StringVar(&leftPath, "left", "", "left (old) dataset: file path or s3:// URI")
	diffCmd.Flags().StringVar(&rightPath, "right", "", "right (new) dataset: file path or s3:// URI")
	diffCmd.Flags().StringVar(&leftQuery, "left-query", "", "SQL query to load the left dataset from PostgreSQL")
	diffCmd.Flags().StringVar(&rightQuery, "right-query", "", "SQL query to load the right dataset from PostgreSQL")
	diffCmd.Flags().StringSliceVar(&keyColumns, "key-columns", nil, "columns identifying a row across both datasets (default: positional matching)")
	diffCmd.Flags().BoolVar(&includeUnchanged, "include-unchanged", false, "include unchanged rows in the output")
	diffCmd.Flags().BoolVar(&trackColumns, "track-columns", false, "count modifications per column in the summary")
	addOutputFlags(diffCmd, "text")
	addDatabaseFlags(diffCmd)
	addS3Flags(diffCmd)

	// Filter-specific flags
	addInputFlags(filterCmd)
	filterCmd.Flags().StringVar(&whereExpr, "where", "", "filter condition, e.g. \"age >= 30\" (required)")
	addOutputFlags(filterCmd, "csv")
	addDatabaseFlags(filterCmd)
	addS3Flags(filterCmd)

	// Sort-specific flags
	addInputFlags(sortCmd)
	sortCmd.Flags().StringSliceVar(&sortBy, "by", nil, "columns to sort by (required)")
	sortCmd.Flags().BoolVar(&sortDesc, "desc", false, "sort in descending order")
	addOutputFlags(sortCmd, "csv")
	addDatabaseFlags(sortCmd)
	addS3Flags(sortCmd)

	// Group-specific flags
	addInputFlags(groupCmd)
	groupCmd.Flags().StringSliceVar(&groupByColumns, "by", nil, "columns to group by (required)")
	groupCmd.Flags().StringVar(&aggregateFn, "aggregate", "count", "aggregate function: count, sum, min, max, mean")
	groupCmd.Flags().StringVar(&valueColumn, "value-column", "", "column to aggregate (required for sum, min, max, mean)")
	addOutputFlags(groupCmd, "csv")
	addDatabaseFlags(groupCmd)
	addS3Flags(groupCmd)

	// Pivot-specific flags
	addInputFlags(pivotCmd)
	pivotCmd.Flags().StringVar(&pivotIndex, "index", "", "column whose values become output rows (required)")
	pivotCmd.Flags().StringVar(&pivotColumn, "columns", "", "column whose values become output columns (required)")
	pivotCmd.Flags().StringVar(&pivotValue, "values", "", "column providing the cell values (required)")
	addOutputFlags(pivotCmd, "csv")
	addDatabaseFlags(pivotCmd)
	addS3Flags(pivotCmd)

	// Join-specific flags
	addInputFlags(joinCmd)
	joinCmd.Flags().StringVar(&joinWith, "with", "", "second dataset to join against: file path or s3:// URI (required)")
	joinCmd.Flags().StringSliceVar(&joinColumns, "on", nil, "columns to join on (required)")
	joinCmd.Flags().StringVar(&joinType, "type", "inner", "join type: inner, left")
	addOutputFlags(joinCmd, "csv")
	addDatabaseFlags(joinCmd)
	addS3Flags(joinCmd)

	// Clean has no operation-specific flags
	addInputFlags(cleanCmd)
	addOutputFlags(cleanCmd, "csv")
	addDatabaseFlags(cleanCmd)
	addS3Flags(cleanCmd)

	// Transform-specific flags
	addInputFlags(transformCmd)
	transformCmd.Flags().StringVar(&transformColumn, "column", "", "column to create or overwrite (required)")
	transformCmd.Flags().StringVar(&transformExpr, "expr", "", "expression, e.g. \"price * 1.2\" (required)")
	addOutputFlags(transformCmd, "csv")
	addDatabaseFlags(transformCmd)
	addS3Flags(transformCmd)

	// Note: We don't use MarkFlagRequired because it checks before viper loads the config file.
	// Instead, validation happens in Config validation which runs after all config sources are loaded.

	// Bind persistent flags
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("progress", rootCmd.PersistentFlags().Lookup("progress"))

	// Bind diff flags
	_ = viper.BindPFlag("left", diffCmd.Flags().Lookup("left"))
	_ = viper.BindPFlag("right", diffCmd.Flags().Lookup("right"))
	_ = viper.BindPFlag("left_query", diffCmd.Flags().Lookup("left-query"))
	_ = viper.BindPFlag("right_query", diffCmd.Flags().Lookup("right-query"))
	_ = viper.BindPFlag("key_columns", diffCmd.Flags().Lookup("key-columns"))
	_ = viper.BindPFlag("include_unchanged", diffCmd.Flags().Lookup("include-unchanged"))
	_ = viper.BindPFlag("track_columns", diffCmd.Flags().Lookup("track-columns"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".tabletool")
	}

	viper.SetEnvPrefix("TABLETOOL")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && debug {
		// Initialize logger early if reading config in debug mode
		if logger == nil {
			initLogger(debug, logFormat)
		}
		logger.Debug(fmt.Sprintf("📄 Using config file: %s", viper.ConfigFileUsed()))
	}
}

// buildConfig assembles the effective configuration from viper after all
// sources (flags, env, config file) are merged
func buildConfig() *Config {
	return &Config{
		Debug:     viper.GetBool("debug"),
		LogFormat: viper.GetString("log_format"),
		Progress:  viper.GetBool("progress"),

		Left:       viper.GetString("left"),
		Right:      viper.GetString("right"),
		LeftQuery:  viper.GetString("left_query"),
		RightQuery: viper.GetString("right_query"),
		Input:      viper.GetString("input"),
		Query:      viper.GetString("query"),

		KeyColumns:       viper.GetStringSlice("key_columns"),
		IncludeUnchanged: viper.GetBool("include_unchanged"),
		TrackColumns:     viper.GetBool("track_columns"),

		OutputFormat:     viper.GetString("output_format"),
		OutputFile:       viper.GetString("output_file"),
		Compression:      viper.GetString("compression"),
		CompressionLevel: viper.GetInt("compression_level"),

		Database: DatabaseConfig{
			Host:             viper.GetString("db.host"),
			Port:             viper.GetInt("db.port"),
			User:             viper.GetString("db.user"),
			Password:         viper.GetString("db.password"),
			Name:             viper.GetString("db.name"),
			SSLMode:          viper.GetString("db.sslmode"),
			StatementTimeout: viper.GetInt("db.statement_timeout"),
		},
		S3: S3Config{
			Endpoint:  viper.GetString("s3.endpoint"),
			AccessKey: viper.GetString("s3.access_key"),
			SecretKey: viper.GetString("s3.secret_key"),
			Region:    viper.GetString("s3.region"),
		},
	}
}

// runContext returns the signal-aware context created in main(), with a
// fallback if SetSignalContext was never called
func runContext() (context.Context, context.CancelFunc) {
	if signalContext != nil {
		return signalContext, func() {}
	}
	logger.Warn("Signal context not set, creating fallback...")
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runDiff() {
	// Add panic recovery to catch any unexpected crashes
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "\n❌ PANIC: %v\n", r)
			os.Exit(1)
		}
	}()

	config := buildConfig()

	initLogger(config.Debug, config.LogFormat)

	// Log startup banner
	logger.Info("")
	logger.Info(fmt.Sprintf("🚀 Table Tool v%s", Version))
	logger.Info("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	logger.Debug("Validating configuration...")
	if err := config.ValidateDiff(); err != nil {
		logger.Error(fmt.Sprintf("❌ Configuration error: %s", err.Error()))
		os.Exit(1)
	}
	logger.Debug("Configuration validated successfully")

	// Check for updates in background (non-blocking)
	updateCheckDone := make(chan struct{})
	go func() {
		defer close(updateCheckDone)
		result := checkForUpdates(context.Background(), Version)
		versionCheckResult = &result

		if result.UpdateAvailable {
			logger.Info("")
			logger.Info(fmt.Sprintf("💡 %s", formatUpdateMessage(result)))
		} else if result.Error != nil && config.Debug {
			logger.Debug(fmt.Sprintf("Version check failed: %v", result.Error))
		}
	}()

	// Give version check a short time to complete, but don't block startup
	select {
	case <-updateCheckDone:
	case <-time.After(2 * time.Second):
		logger.Debug("Version check taking longer than expected, continuing...")
	}

	ctx, stop := runContext()
	defer stop()

	logger.Debug("Creating differ...")
	differ := NewDiffer(config, logger)
	logger.Debug("Starting comparison...")

	err := differ.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("")
			logger.Info("⚠️  Comparison cancelled by user")
			os.Exit(130)
		}
		logger.Error(fmt.Sprintf("❌ Diff failed: %s", err.Error()))
		os.Exit(1)
	}

	logger.Info("")
	logger.Info("✅ Comparison completed successfully!")
}

// tableOp transforms one dataset into another
type tableOp func(ctx context.Context, config *Config, dataset *tabular.Dataset) (*tabular.Dataset, error)

// runTableOp is the shared driver for the single-input table operations:
// load, apply, write
func runTableOp(name string, op tableOp) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "\n❌ PANIC: %v\n", r)
			os.Exit(1)
		}
	}()

	config := buildConfig()

	initLogger(config.Debug, config.LogFormat)

	logger.Debug("Validating configuration...")
	if err := config.ValidateTable(); err != nil {
		logger.Error(fmt.Sprintf("❌ Configuration error: %s", err.Error()))
		os.Exit(1)
	}

	ctx, stop := runContext()
	defer stop()

	dataset, err := LoadDataset(ctx, config, config.Input, config.Query)
	if err != nil {
		logger.Error(fmt.Sprintf("❌ Failed to load input: %s", err.Error()))
		os.Exit(1)
	}
	logger.Debug(fmt.Sprintf("Loaded %d rows, %d columns", len(dataset.Rows), len(dataset.Columns)))

	result, err := op(ctx, config, dataset)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("⚠️  Cancelled by user")
			os.Exit(130)
		}
		logger.Error(fmt.Sprintf("❌ %s failed: %s", name, err.Error()))
		os.Exit(1)
	}

	if err := WriteDataset(config, result); err != nil {
		logger.Error(fmt.Sprintf("❌ Failed to write output: %s", err.Error()))
		os.Exit(1)
	}

	logger.Info(fmt.Sprintf("✅ %s completed: %d rows", name, len(result.Rows)))
}
