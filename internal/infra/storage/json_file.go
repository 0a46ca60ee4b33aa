// Package storage implements the repositories on top of human-editable JSON
// files. Each file is rewritten in full on every mutation.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrCorruptFile is returned by reads of a file that exists but does not decode.
var ErrCorruptFile = errors.New("corrupt JSON file")

// readJSON decodes path into v. A missing file leaves v untouched and is not an error.
func readJSON(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w %s: %v", ErrCorruptFile, path, err)
	}
	return nil
}

// writeJSON replaces path with the indented encoding of v via a temp file
// in the same directory, so readers never observe a half-written file.
func writeJSON(path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(append(raw, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// moveAside renames a corrupt file to path.corrupt-<timestamp> so the next
// write cannot replace what the operator had in it. It returns the new name.
func moveAside(path string, at time.Time) (string, error) {
	aside := fmt.Sprintf("%s.corrupt-%s", path, at.Format("20060102T150405"))
	if err := os.Rename(path, aside); err != nil {
		return "", fmt.Errorf("failed to move corrupt %s aside: %w", path, err)
	}
	return aside, nil
}
