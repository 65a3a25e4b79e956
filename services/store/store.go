package store

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
)

// Store persists the catalog as a single json document.
type Store struct {
	Path string
}

// Load reads the full catalog into memory. a missing file yields an
// empty catalog, and so does an unreadable or corrupt one, it is
// logged but never fatal.
func (s Store) Load(ctx context.Context) []AppRecord {
	contents, err := os.ReadFile(s.Path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to read catalog", "path", s.Path, "err", err)
		return nil
	}

	var records []AppRecord
	err = json.Unmarshal(contents, &records)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse catalog", "path", s.Path, "err", err)
		return nil
	}
	return records
}

// Save writes the full catalog back, replacing the document atomically.
func (s Store) Save(ctx context.Context, records []AppRecord) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	// keeps urls and non-ascii text literal in the output file
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	err := enc.Encode(records)
	if err != nil {
		return err
	}

	tmp := s.Path + ".tmp"
	err = os.WriteFile(tmp, buf.Bytes(), 0644)
	if err != nil {
		return err
	}
	err = os.Rename(tmp, s.Path)
	if err != nil {
		os.Remove(tmp)
		return err
	}

	slog.InfoContext(ctx, "saved catalog", "path", s.Path, "records", len(records))
	return nil
}
