// Package module defines the module.Version type along with the
// requirement traits a recipe attaches to its dependencies.
package module

import (
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/mod/semver"
)

// A Version (for clients, a module.Version) represents a specific version
// of a package identified by its path.
type Version struct {
	Path    string `json:"path" yaml:"path"`       // Package name, e.g. "boost"
	Version string `json:"version" yaml:"version"` // Exact version, e.g. "1.81.0"
}

// String returns "path/version", the reference form used by recipes.
func (v Version) String() string {
	return v.Path + "/" + v.Version
}

// Requirement is a dependency of a recipe together with its propagation
// traits.
type Requirement struct {
	Version `yaml:",inline"`

	// TransitiveHeaders exposes the dependency's headers to consumers of
	// the requiring package.
	TransitiveHeaders bool `json:"transitive_headers" yaml:"transitive_headers"`
	// TransitiveLibs exposes the dependency's libraries to consumers of
	// the requiring package.
	TransitiveLibs bool `json:"transitive_libs" yaml:"transitive_libs"`
}

// Visible reports whether consumers of the requiring package see the
// dependency at all.
func (r Requirement) Visible() bool {
	return r.TransitiveHeaders || r.TransitiveLibs
}

// Trait modifies a Requirement at declaration time.
type Trait func(*Requirement)

// TransitiveHeaders propagates the dependency's headers.
func TransitiveHeaders(r *Requirement) { r.TransitiveHeaders = true }

// TransitiveLibs propagates the dependency's libraries.
func TransitiveLibs(r *Requirement) { r.TransitiveLibs = true }

// ParseRef parses a "path/version" reference.
func ParseRef(ref string) (Version, error) {
	path, ver, ok := strings.Cut(ref, "/")
	if !ok || path == "" || ver == "" {
		return Version{}, fmt.Errorf("invalid reference %q: want path/version", ref)
	}
	return Version{Path: path, Version: ver}, nil
}

// CheckExact reports an error unless version is an exact pin: a full
// semantic version such as "1.81.0", without ranges or build metadata.
func CheckExact(version string) error {
	v := "v" + strings.TrimPrefix(version, "v")
	if !semver.IsValid(v) || semver.Canonical(v) != v || semver.Build(v) != "" {
		return fmt.Errorf("version %q is not an exact pin", version)
	}
	return nil
}

// EscapePath returns the escaped form of the given path as a valid
// file system path. It fails if the path is invalid.
func EscapePath(path string) (escaped string, err error) {
	return filepath.Localize(path)
}
