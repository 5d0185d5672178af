// Package export writes the serialized document out as a dated JSON file.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mcncl/jsonform/internal/errors"
)

// ContentType is the media type of exported files.
const ContentType = "application/json"

// Filename returns the export file name for the given moment, data-YYYY-MM-DD.json.
// The date is taken in UTC.
func Filename(now time.Time) string {
	return fmt.Sprintf("data-%s.json", now.UTC().Format(time.DateOnly))
}

// Write copies text to w.
func Write(w io.Writer, text string) error {
	if _, err := io.WriteString(w, text); err != nil {
		return errors.NewExportError("failed to write export", err)
	}
	return nil
}

// ToDir writes text into dir under Filename(now) and returns the full path.
// An existing file of the same name is overwritten.
func ToDir(dir, text string, now time.Time) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.NewExportError(fmt.Sprintf("failed to create directory %s", dir), err)
	}

	path := filepath.Join(dir, Filename(now))
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", errors.NewExportError(fmt.Sprintf("failed to write %s", path), err)
	}
	return path, nil
}
