package reporting

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// A Sink stores trace records durably. Persist returns where the record was
// written.
type Sink interface {
	Persist(ctx context.Context, r Record) (string, error)
}

// JSONSink writes every record into its own JSON file, named after the
// sanitized trace name, the trace timestamp, and the trace ID.
type JSONSink struct {
	Dir string
}

// NewJSONSink creates a JSONSink that writes into dir.
func NewJSONSink(dir string) *JSONSink {
	return &JSONSink{Dir: dir}
}

// Filename returns the file name a record is written to. Records that share
// a name and a timestamp still get distinct files through their IDs.
func (s *JSONSink) Filename(r Record) string {
	base := SanitizeName(r.Name) + "_" + FormatTimestamp(r.Timestamp)
	if r.ID != "" {
		base += "_" + SanitizeName(r.ID)
	}

	return filepath.Join(s.Dir, base+".json")
}

// Persist writes the record.
func (s *JSONSink) Persist(ctx context.Context, r Record) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", s.Dir, err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode trace %s: %w", r.Name, err)
	}

	filename := s.Filename(r)
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", filename, err)
	}

	return filename, nil
}
