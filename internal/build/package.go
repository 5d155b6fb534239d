package build

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/goplus/bzlpkg/formula"
	pkgerrors "github.com/goplus/bzlpkg/pkgs/errors"
	"github.com/goplus/bzlpkg/pkgs/files"
	"github.com/goplus/bzlpkg/pkgs/layout"
)

// packageArtifacts assembles the package root of l from set: the rules run
// in kind order (licenses, headers, binaries), then the cleanup patterns
// are removed from the whole package root. The package root is emptied
// first. It returns the package files relative to the package root.
func packageArtifacts(l layout.Descriptor, set formula.ArtifactSet) ([]string, error) {
	if err := os.RemoveAll(l.Package); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.KindLayout, "package", err)
	}
	if err := os.MkdirAll(l.Package, 0o755); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.KindLayout, "package", err)
	}

	for _, rule := range set.Ordered() {
		root := l.Source
		if rule.Root == formula.RootBuild {
			root = l.Build
		}
		src := filepath.Join(root, filepath.FromSlash(rule.Subdir))
		dst := filepath.Join(l.Package, filepath.FromSlash(rule.Dest))
		if _, err := files.Copy(rule.Pattern, src, dst); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.KindLayout, "package."+rule.Kind.String(), err)
		}
	}
	for _, pattern := range set.Cleanup {
		if _, err := files.Remove(pattern, l.Package); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.KindLayout, "package.cleanup", err)
		}
	}
	return listFiles(l.Package)
}

// listFiles returns the slash-separated paths of the regular files below
// root, sorted.
func listFiles(root string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	sort.Strings(out)
	return out, err
}
