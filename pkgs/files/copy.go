package files

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Copy copies every regular file under src whose slash-separated path
// relative to src matches pattern into dst, keeping the relative path.
// Missing directories under dst are created. A missing src or a pattern
// matching nothing is not an error. src may be a symlink, as Bazel's output
// folders are. Copy returns the destination paths in lexical order.
func Copy(pattern, src, dst string) ([]string, error) {
	if _, err := os.Stat(src); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if resolved, err := filepath.EvalSymlinks(src); err == nil {
		src = resolved
	}

	var rels []string
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if Match(pattern, filepath.ToSlash(rel)) {
			rels = append(rels, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", src, err)
	}
	sort.Strings(rels)

	copied := make([]string, 0, len(rels))
	for _, rel := range rels {
		target := filepath.Join(dst, rel)
		if err := copyFile(filepath.Join(src, rel), target); err != nil {
			return copied, err
		}
		copied = append(copied, target)
	}
	return copied, nil
}

// copyFile copies the content and permission bits of src to dst, keeping
// dst writable by its owner. Symlinks are followed; symlinks to directories
// are skipped.
func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", filepath.Dir(dst), err)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm()|0o200)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return out.Close()
}
