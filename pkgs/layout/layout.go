// Package layout maps the logical roots of a recipe build onto directories.
//
// A build folder looks like:
//
//	base/
//	  export_sources/   # recipe files as exported for source builds
//	  src/              # source root, read-only once exported
//	  build/            # build root, written by the build tool
//	    conan/          # generated toolchain and dependency descriptors
//	    bazel-bin/      # build outputs (symlink created by Bazel)
//	  package/          # package root, written by the packager
package layout

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	pkgerrors "github.com/goplus/bzlpkg/pkgs/errors"
)

// Bazel markers that must be present in a source root.
const (
	MarkerWorkspace = "WORKSPACE"
	MarkerVersion   = ".bazelversion"
)

// Descriptor holds the concrete directories of one build. It is a value;
// phases receive copies and never change it.
type Descriptor struct {
	Base          string   `json:"base" yaml:"base"`
	Source        string   `json:"source" yaml:"source"`
	Build         string   `json:"build" yaml:"build"`
	Generators    string   `json:"generators" yaml:"generators"`
	Package       string   `json:"package" yaml:"package"`
	ExportSources string   `json:"export_sources" yaml:"export_sources"`
	Markers       []string `json:"markers,omitempty" yaml:"markers,omitempty"`
}

// Bazel returns the layout used for Bazel workspaces. srcFolder names the
// source root below base.
func Bazel(base, srcFolder string) Descriptor {
	build := filepath.Join(base, "build")
	return Descriptor{
		Base:          base,
		Source:        filepath.Join(base, srcFolder),
		Build:         build,
		Generators:    filepath.Join(build, "conan"),
		Package:       filepath.Join(base, "package"),
		ExportSources: filepath.Join(base, "export_sources"),
		Markers:       []string{MarkerWorkspace, MarkerVersion},
	}
}

// Roots returns the named roots of d.
func (d Descriptor) Roots() map[string]string {
	return map[string]string{
		"base":           d.Base,
		"source":         d.Source,
		"build":          d.Build,
		"generators":     d.Generators,
		"package":        d.Package,
		"export_sources": d.ExportSources,
	}
}

// Validate checks that every root is set and absolute.
func (d Descriptor) Validate() error {
	roots := d.Roots()
	names := make([]string, 0, len(roots))
	for name := range roots {
		names = append(names, name)
	}
	slices.Sort(names)

	var problems []string
	for _, name := range names {
		p := roots[name]
		switch {
		case p == "":
			problems = append(problems, name+" root is empty")
		case !filepath.IsAbs(p):
			problems = append(problems, name+" root "+p+" is not absolute")
		}
	}
	if len(problems) > 0 {
		return pkgerrors.New(pkgerrors.KindLayout, "layout.roots", "%s", strings.Join(problems, "; "))
	}
	return nil
}

// CheckMarkers reports a LayoutError naming every marker file missing from
// the source root.
func (d Descriptor) CheckMarkers() error {
	var missing []string
	for _, m := range d.Markers {
		_, err := os.Stat(filepath.Join(d.Source, m))
		if errors.Is(err, fs.ErrNotExist) {
			missing = append(missing, m)
			continue
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.KindLayout, "layout.markers", err)
		}
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.KindLayout, "layout.markers",
			"source root %s is missing %s", d.Source, strings.Join(missing, ", "))
	}
	return nil
}

// Prepare creates the writable roots.
func (d Descriptor) Prepare() error {
	for _, dir := range []string{d.Source, d.Build, d.Generators, d.Package} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return pkgerrors.Wrap(pkgerrors.KindLayout, "layout.prepare", err)
		}
	}
	return nil
}
