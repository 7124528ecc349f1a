package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tabulario/tabletool/cmd/tabular"
)

func sampleDataset() *tabular.Dataset {
	return tabular.FromMaps([]string{"id", "name", "score"}, []map[string]interface{}{
		{"id": int64(1), "name": "alice", "score": 95.5},
		{"id": int64(2), "name": "bob", "score": 87.0},
	})
}

func TestDetectFormatAndCompression(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		format      string
		compression string
	}{
		{name: "plain csv", filename: "users.csv", format: "csv", compression: "none"},
		{name: "plain jsonl", filename: "users.jsonl", format: "jsonl", compression: "none"},
		{name: "plain parquet", filename: "users.parquet", format: "parquet", compression: "none"},
		{name: "zstd csv", filename: "users.csv.zst", format: "csv", compression: "zstd"},
		{name: "lz4 jsonl", filename: "users.jsonl.lz4", format: "jsonl", compression: "lz4"},
		{name: "gzip parquet", filename: "users.parquet.gz", format: "parquet", compression: "gzip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			format, compression, err := detectFormatAndCompression(tt.filename)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if format != tt.format {
				t.Errorf("format = %s, want %s", format, tt.format)
			}
			if compression != tt.compression {
				t.Errorf("compression = %s, want %s", compression, tt.compression)
			}
		})
	}

	t.Run("UnknownExtension", func(t *testing.T) {
		_, _, err := detectFormatAndCompression("users.xlsx")
		if !errors.Is(err, ErrFormatNotDetected) {
			t.Fatalf("expected ErrFormatNotDetected, got %v", err)
		}
	})
}

func TestLoadDatasetCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.csv")
	content := "id,name,score\n1,alice,95.5\n2,bob,\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	config := &Config{}
	dataset, err := LoadDataset(context.Background(), config, path, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(dataset.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(dataset.Rows))
	}
	wantColumns := []string{"id", "name", "score"}
	for i, col := range wantColumns {
		if dataset.Columns[i] != col {
			t.Fatalf("columns = %v, want %v", dataset.Columns, wantColumns)
		}
	}
	if dataset.Rows[0]["id"] != int64(1) {
		t.Errorf("id should be int64(1), got %T(%v)", dataset.Rows[0]["id"], dataset.Rows[0]["id"])
	}
	if dataset.Rows[0]["score"] != 95.5 {
		t.Errorf("score should be 95.5, got %v", dataset.Rows[0]["score"])
	}
	if dataset.Rows[1]["score"] != nil {
		t.Errorf("empty cell should load as nil, got %v", dataset.Rows[1]["score"])
	}
}

func TestLoadDatasetCompressed(t *testing.T) {
	// Write a gzip-compressed JSONL file through the output path, then
	// load it back through the input path
	dir := t.TempDir()
	path := filepath.Join(dir, "users.jsonl.gz")

	config := &Config{
		OutputFormat: "jsonl",
		OutputFile:   path,
		Compression:  "gzip",
	}

	source := sampleDataset()
	if err := WriteDataset(config, source); err != nil {
		t.Fatalf("failed to write compressed output: %v", err)
	}

	loaded, err := LoadDataset(context.Background(), &Config{}, path, "")
	if err != nil {
		t.Fatalf("failed to load compressed file: %v", err)
	}

	if len(loaded.Rows) != len(source.Rows) {
		t.Fatalf("expected %d rows, got %d", len(source.Rows), len(loaded.Rows))
	}
	if loaded.Rows[0]["name"] != "alice" {
		t.Errorf("name = %v, want alice", loaded.Rows[0]["name"])
	}
	if loaded.Rows[1]["id"] != int64(2) {
		t.Errorf("id should round trip as int64(2), got %T(%v)", loaded.Rows[1]["id"], loaded.Rows[1]["id"])
	}
}

func TestParseS3URI(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		bucket, key, err := parseS3URI("s3://my-bucket/exports/users.csv.zst")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if bucket != "my-bucket" {
			t.Errorf("bucket = %s, want my-bucket", bucket)
		}
		if key != "exports/users.csv.zst" {
			t.Errorf("key = %s, want exports/users.csv.zst", key)
		}
	})

	t.Run("MissingKey", func(t *testing.T) {
		if _, _, err := parseS3URI("s3://my-bucket"); !errors.Is(err, ErrInvalidS3URI) {
			t.Fatalf("expected ErrInvalidS3URI, got %v", err)
		}
	})

	t.Run("NotS3", func(t *testing.T) {
		if _, _, err := parseS3URI("/tmp/users.csv"); !errors.Is(err, ErrInvalidS3URI) {
			t.Fatalf("expected ErrInvalidS3URI, got %v", err)
		}
	})
}
