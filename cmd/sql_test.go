package cmd

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

var errTest = errors.New("connection reset")

func TestQueryDataset(t *testing.T) {
	t.Run("TypedRows", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create mock: %v", err)
		}
		defer db.Close()

		rows := sqlmock.NewRows([]string{"id", "name", "score"}).
			AddRow(int64(1), []byte("alice"), 95.5).
			AddRow(int64(2), []byte("bob"), nil)
		mock.ExpectQuery("SELECT id, name, score FROM users").WillReturnRows(rows)

		dataset, err := queryDataset(context.Background(), db, "SELECT id, name, score FROM users")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		wantColumns := []string{"id", "name", "score"}
		if len(dataset.Columns) != len(wantColumns) {
			t.Fatalf("columns = %v, want %v", dataset.Columns, wantColumns)
		}
		for i, col := range wantColumns {
			if dataset.Columns[i] != col {
				t.Fatalf("columns = %v, want %v", dataset.Columns, wantColumns)
			}
		}

		if len(dataset.Rows) != 2 {
			t.Fatalf("expected 2 rows, got %d", len(dataset.Rows))
		}
		if dataset.Rows[0]["id"] != int64(1) {
			t.Errorf("id = %T(%v), want int64(1)", dataset.Rows[0]["id"], dataset.Rows[0]["id"])
		}
		if dataset.Rows[0]["name"] != "alice" {
			t.Errorf("text column should decode to string, got %T(%v)", dataset.Rows[0]["name"], dataset.Rows[0]["name"])
		}
		if dataset.Rows[1]["score"] != nil {
			t.Errorf("NULL should load as nil, got %v", dataset.Rows[1]["score"])
		}

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})

	t.Run("QueryError", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create mock: %v", err)
		}
		defer db.Close()

		mock.ExpectQuery("SELECT broken").WillReturnError(errTest)

		if _, err := queryDataset(context.Background(), db, "SELECT broken"); err == nil {
			t.Fatal("expected query error")
		}
	})

	t.Run("EmptyResult", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create mock: %v", err)
		}
		defer db.Close()

		rows := sqlmock.NewRows([]string{"id", "name"})
		mock.ExpectQuery("SELECT id, name FROM empty").WillReturnRows(rows)

		dataset, err := queryDataset(context.Background(), db, "SELECT id, name FROM empty")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(dataset.Rows) != 0 {
			t.Fatalf("expected 0 rows, got %d", len(dataset.Rows))
		}
		// Column order survives even with no rows
		if len(dataset.Columns) != 2 || dataset.Columns[0] != "id" || dataset.Columns[1] != "name" {
			t.Fatalf("columns = %v, want [id name]", dataset.Columns)
		}
	})
}

func TestConnectionString(t *testing.T) {
	config := &Config{
		Database: DatabaseConfig{
			Host:             "db.example.com",
			Port:             5433,
			User:             "reader",
			Password:         "secret",
			Name:             "analytics",
			SSLMode:          "require",
			StatementTimeout: 60,
		},
	}

	got := connectionString(config)
	want := "host=db.example.com port=5433 user=reader password=secret dbname=analytics sslmode=require statement_timeout=60000"
	if got != want {
		t.Fatalf("connection string = %q, want %q", got, want)
	}
}
