package files

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Remove deletes every file under root, at any depth, whose base name
// matches pattern. It never touches anything outside root and returns the
// removed paths in walk order.
func Remove(pattern, root string) ([]string, error) {
	realRoot, err := resolveRoot(root)
	if err != nil {
		return nil, err
	}

	var removed []string
	err = filepath.WalkDir(realRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !Match(pattern, d.Name()) {
			return nil
		}
		if !within(realRoot, path) {
			return fmt.Errorf("path %s is outside %s", path, realRoot)
		}
		if err := os.Remove(path); err != nil {
			return err
		}
		removed = append(removed, path)
		return nil
	})
	if os.IsNotExist(err) {
		return removed, nil
	}
	return removed, err
}

// ValidatePath checks that rel, joined to root, stays within root after
// symlink resolution, and returns the resolved absolute path. The target
// does not need to exist.
func ValidatePath(root, rel string) (string, error) {
	realRoot, err := resolveRoot(root)
	if err != nil {
		return "", err
	}
	candidate := filepath.Clean(filepath.Join(realRoot, rel))
	resolved, err := resolveExistingPath(candidate)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", candidate, err)
	}
	if !within(realRoot, resolved) {
		return "", fmt.Errorf("path %q resolves to %q which is outside %q", rel, resolved, realRoot)
	}
	return resolved, nil
}

func resolveRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving root %s: %w", root, err)
	}
	return resolveExistingPath(abs)
}

// resolveExistingPath resolves symlinks for the longest existing prefix of
// path and appends the remaining suffix.
func resolveExistingPath(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}
	dir, base := filepath.Dir(path), filepath.Base(path)
	if dir == path {
		return path, nil
	}
	resolvedDir, err := resolveExistingPath(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedDir, base), nil
}

func within(root, path string) bool {
	if path == root {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(root, string(filepath.Separator))+string(filepath.Separator))
}
