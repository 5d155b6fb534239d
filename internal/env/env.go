package env

import (
	"os"
	"path/filepath"
)

// EnvWorkspace overrides the workspace root.
const EnvWorkspace = "BZLPKG_HOME"

// WorkDir returns the workspace root holding build folders and caches.
func WorkDir() (string, error) {
	if dir := os.Getenv(EnvWorkspace); dir != "" {
		return filepath.Abs(dir)
	}
	userCacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(userCacheDir, ".bzlpkg"), nil
}

// BuildsDir returns the directory holding build folders, creating it.
func BuildsDir() (string, error) {
	work, err := WorkDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(work, "builds")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return dir, nil
}
