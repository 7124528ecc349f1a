package cmd

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/tabulario/tabletool/cmd/tabular"
)

// connectionString builds a lib/pq connection string from the database config
func connectionString(config *Config) string {
	sslMode := config.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Database.Host,
		config.Database.Port,
		config.Database.User,
		config.Database.Password,
		config.Database.Name,
		sslMode,
	)

	if config.Database.StatementTimeout > 0 {
		timeoutMs := config.Database.StatementTimeout * 1000
		connStr += fmt.Sprintf(" statement_timeout=%d", timeoutMs)
	}

	return connStr
}

// QueryDataset loads a dataset from a PostgreSQL query
func QueryDataset(ctx context.Context, config *Config, query string) (*tabular.Dataset, error) {
	db, err := sql.Open("postgres", connectionString(config))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return queryDataset(ctx, db, query)
}

// queryDataset runs the query against an open handle. Split from
// QueryDataset so tests can drive it with a mock connection.
func queryDataset(ctx context.Context, db *sql.DB, query string) (*tabular.Dataset, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read query columns: %w", err)
	}

	var result []map[string]interface{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}

		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			row[col] = convertDBValue(values[i])
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating query rows: %w", err)
	}

	return tabular.FromMaps(columns, result), nil
}

// convertDBValue normalizes driver values to the dataset scalar types.
// lib/pq returns text and numeric-ish columns as []byte.
func convertDBValue(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
