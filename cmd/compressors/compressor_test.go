package compressors

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("tabular data compresses well\n"), 200)

	for _, name := range []string{"zstd", "gzip", "lz4", "none"} {
		t.Run(name, func(t *testing.T) {
			c, err := GetCompressor(name)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			compressed, err := c.Compress(payload, c.DefaultLevel())
			if err != nil {
				t.Fatalf("compress failed: %v", err)
			}
			if name != "none" && len(compressed) >= len(payload) {
				t.Fatalf("compression did not shrink payload: %d >= %d", len(compressed), len(payload))
			}

			reader, err := c.NewReader(bytes.NewReader(compressed))
			if err != nil {
				t.Fatalf("reader failed: %v", err)
			}
			defer reader.Close()

			decompressed, err := io.ReadAll(reader)
			if err != nil {
				t.Fatalf("decompress failed: %v", err)
			}
			if !bytes.Equal(decompressed, payload) {
				t.Fatal("round trip did not reproduce payload")
			}
		})
	}
}

func TestLZ4Levels(t *testing.T) {
	// Every level the config validator accepts must be usable; the lz4
	// constants are bit flags, so passing the raw 1-9 would error
	payload := bytes.Repeat([]byte("level sweep\n"), 100)
	c := NewLZ4Compressor()

	for level := 1; level <= 9; level++ {
		compressed, err := c.Compress(payload, level)
		if err != nil {
			t.Fatalf("level %d: compress failed: %v", level, err)
		}

		reader, err := c.NewReader(bytes.NewReader(compressed))
		if err != nil {
			t.Fatalf("level %d: reader failed: %v", level, err)
		}
		decompressed, err := io.ReadAll(reader)
		reader.Close()
		if err != nil {
			t.Fatalf("level %d: decompress failed: %v", level, err)
		}
		if !bytes.Equal(decompressed, payload) {
			t.Fatalf("level %d: round trip did not reproduce payload", level)
		}
	}
}

func TestGetCompressor(t *testing.T) {
	t.Run("EmptyMeansNone", func(t *testing.T) {
		c, err := GetCompressor("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := c.(*NoneCompressor); !ok {
			t.Fatalf("empty compression should map to none, got %T", c)
		}
	})

	t.Run("Unsupported", func(t *testing.T) {
		if _, err := GetCompressor("brotli"); !errors.Is(err, ErrUnsupportedCompression) {
			t.Fatalf("expected ErrUnsupportedCompression, got %v", err)
		}
	})
}
