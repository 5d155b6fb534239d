package files

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
)

// Save atomically writes content to rel within root. Parent directories are
// created. If the file already holds exactly content it is left untouched,
// so repeated generation keeps timestamps stable.
func Save(root, rel string, content []byte, perm os.FileMode) (string, error) {
	resolved, err := ValidatePath(root, rel)
	if err != nil {
		return "", err
	}
	if old, err := os.ReadFile(resolved); err == nil && bytes.Equal(old, content) {
		return resolved, nil
	}

	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating directory %s: %w", dir, err)
	}

	// Write to a temp file in the same directory so the rename stays on
	// one filesystem.
	tmp, err := os.CreateTemp(dir, ".bzlpkg-*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return "", fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return "", fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpPath, resolved); err != nil {
		return "", fmt.Errorf("renaming temp file to %s: %w", resolved, err)
	}

	success = true
	return resolved, nil
}
