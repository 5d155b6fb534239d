package bazel

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goplus/bzlpkg/formula"
	"github.com/goplus/bzlpkg/pkgs/buildsys"
	pkgerrors "github.com/goplus/bzlpkg/pkgs/errors"
	"github.com/goplus/bzlpkg/pkgs/files"
	"github.com/goplus/bzlpkg/pkgs/mod/module"
)

// DependenciesFile is the Starlark file declaring the dependency
// repositories.
const DependenciesFile = "dependencies.bzl"

// Deps generates Bazel repositories for the requirements of a build. Each
// requirement becomes a new_local_repository rooted at its package folder
// with a generated BUILD file.
type Deps struct {
	ctx *formula.Context
}

var _ buildsys.Generator = (*Deps)(nil)

// NewDeps creates a dependency generator for ctx. The package root of a
// requirement is the Dir of its build result in ctx.
func NewDeps(ctx *formula.Context) *Deps {
	return &Deps{ctx: ctx}
}

// library is one prebuilt library of a dependency.
type library struct {
	name   string
	static string // path relative to the dependency root
	shared string
}

// Generate writes dependencies.bzl and one BUILD.bazel per requirement.
func (d *Deps) Generate() error {
	gen := d.ctx.Layout.Generators
	var bzl bytes.Buffer
	bzl.WriteString("# Automatic bazel dependencies file created by bzlpkg\n")
	bzl.WriteString("def load_conan_dependencies():\n")
	if len(d.ctx.Requires) == 0 {
		bzl.WriteString("    pass\n")
	}

	for _, req := range d.ctx.Requires {
		root, err := d.root(req.Version)
		if err != nil {
			return err
		}
		libs, err := findLibraries(root)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.KindLayout, "bazel.deps", err)
		}
		build := buildFile(req, libs)
		buildRel := filepath.Join(req.Path, "BUILD.bazel")
		buildPath, err := files.Save(gen, buildRel, build, 0o644)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.KindLayout, "bazel.deps", err)
		}

		fmt.Fprintf(&bzl, "    native.new_local_repository(\n")
		fmt.Fprintf(&bzl, "        name=%q,\n", req.Path)
		fmt.Fprintf(&bzl, "        path=%q,\n", filepath.ToSlash(root))
		fmt.Fprintf(&bzl, "        build_file=%q,\n", filepath.ToSlash(buildPath))
		fmt.Fprintf(&bzl, "    )\n")
	}

	if _, err := files.Save(gen, DependenciesFile, bzl.Bytes(), 0o644); err != nil {
		return pkgerrors.Wrap(pkgerrors.KindLayout, "bazel.deps", err)
	}
	// The generators root is a Bazel package so dependencies.bzl can be
	// loaded from it.
	if _, err := files.Save(gen, "BUILD.bazel", nil, 0o644); err != nil {
		return pkgerrors.Wrap(pkgerrors.KindLayout, "bazel.deps", err)
	}
	return nil
}

func (d *Deps) root(mod module.Version) (string, error) {
	r, ok := d.ctx.BuildResult(mod)
	if !ok || r.Dir == "" {
		return "", pkgerrors.New(pkgerrors.KindConfiguration, "bazel.deps",
			"no package folder for %s", mod)
	}
	root, err := filepath.Abs(r.Dir)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.KindConfiguration, "bazel.deps", err)
	}
	fi, err := os.Stat(root)
	if err != nil {
		return "", pkgerrors.New(pkgerrors.KindConfiguration, "bazel.deps",
			"package folder of %s: %v", mod, err)
	}
	if !fi.IsDir() {
		return "", pkgerrors.New(pkgerrors.KindConfiguration, "bazel.deps",
			"package folder of %s is not a directory: %s", mod, root)
	}
	return root, nil
}

// findLibraries lists the libraries under root/lib, sorted by name. A
// missing lib folder means a header-only dependency.
func findLibraries(root string) ([]library, error) {
	entries, err := os.ReadDir(filepath.Join(root, "lib"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	byName := make(map[string]*library)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name, shared, ok := libraryName(e.Name())
		if !ok {
			continue
		}
		lib := byName[name]
		if lib == nil {
			lib = &library{name: name}
			byName[name] = lib
		}
		rel := "lib/" + e.Name()
		// Keep the first file in lexical order for each kind.
		if shared && lib.shared == "" {
			lib.shared = rel
		} else if !shared && lib.static == "" {
			lib.static = rel
		}
	}

	libs := make([]library, 0, len(byName))
	for _, lib := range byName {
		libs = append(libs, *lib)
	}
	sort.Slice(libs, func(i, j int) bool { return libs[i].name < libs[j].name })
	return libs, nil
}

// libraryName maps a library file name to its link name.
func libraryName(file string) (name string, shared, ok bool) {
	base := file
	switch {
	case strings.HasSuffix(base, ".a"):
		base = strings.TrimSuffix(base, ".a")
	case strings.HasSuffix(base, ".lib"):
		base = strings.TrimSuffix(base, ".lib")
	case strings.HasSuffix(base, ".dylib"):
		base, shared = strings.TrimSuffix(base, ".dylib"), true
	case strings.HasSuffix(base, ".dll"):
		base, shared = strings.TrimSuffix(base, ".dll"), true
	case strings.Contains(base, ".so"):
		i := strings.Index(base, ".so")
		rest := base[i+len(".so"):]
		if rest != "" && rest[0] != '.' {
			return "", false, false
		}
		base, shared = base[:i], true
	default:
		return "", false, false
	}
	base = strings.TrimPrefix(base, "lib")
	if base == "" {
		return "", false, false
	}
	return base, shared, true
}

func buildFile(req module.Requirement, libs []library) []byte {
	var b bytes.Buffer
	b.WriteString("load(\"@rules_cc//cc:defs.bzl\", \"cc_import\", \"cc_library\")\n\n")
	b.WriteString("package(default_visibility = [\"//visibility:public\"])\n\n")
	for _, lib := range libs {
		b.WriteString("cc_import(\n")
		fmt.Fprintf(&b, "    name = %q,\n", lib.name+"_precompiled")
		if lib.static != "" {
			fmt.Fprintf(&b, "    static_library = %q,\n", lib.static)
		}
		if lib.shared != "" {
			fmt.Fprintf(&b, "    shared_library = %q,\n", lib.shared)
		}
		b.WriteString(")\n\n")
	}

	b.WriteString("cc_library(\n")
	fmt.Fprintf(&b, "    name = %q,\n", req.Path)
	b.WriteString("    hdrs = glob([\"include/**\"]),\n")
	b.WriteString("    includes = [\"include\"],\n")
	b.WriteString("    visibility = [\"//visibility:public\"],\n")
	if len(libs) > 0 {
		b.WriteString("    deps = [\n")
		for _, lib := range libs {
			fmt.Fprintf(&b, "        %q,\n", ":"+lib.name+"_precompiled")
		}
		b.WriteString("    ],\n")
	}
	b.WriteString(")\n")
	return b.Bytes()
}
