package build

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/goplus/bzlpkg/formula"
	"github.com/goplus/bzlpkg/internal/config"
	pkgerrors "github.com/goplus/bzlpkg/pkgs/errors"
	"github.com/goplus/bzlpkg/recipes/embag"
)

func TestStateNames(t *testing.T) {
	for s := Initial; s <= MetadataExported; s++ {
		got, err := ParseState(s.String())
		if err != nil {
			t.Fatalf("ParseState(%q) error = %v", s, err)
		}
		if got != s {
			t.Errorf("ParseState(%q) = %v", s, got)
		}
	}
	if _, err := ParseState("Shipped"); err == nil {
		t.Errorf("ParseState(Shipped) succeeded")
	}
	if got := State(42).String(); got != "State(42)" {
		t.Errorf("State(42) = %q", got)
	}
}

func TestPhasesAdvanceOneStateEach(t *testing.T) {
	want := Initial
	for _, p := range phases {
		if p.from != want {
			t.Fatalf("phase %s starts at %s, want %s", p.name, p.from, want)
		}
		if p.to != p.from+1 {
			t.Fatalf("phase %s moves %s -> %s", p.name, p.from, p.to)
		}
		want = p.to
	}
	if want != MetadataExported {
		t.Fatalf("last phase ends at %s", want)
	}
}

func TestRunFullLifecycle(t *testing.T) {
	skipWithoutShell(t)
	b := newTestBuilder(t)
	bazel := writeScript(t, fakeBazel)

	res, err := b.Run(context.Background(), embag.New(), Options{
		Profile:   linuxProfile(t, bazel),
		RecipeDir: newRecipeDir(t),
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.State != MetadataExported {
		t.Fatalf("State = %s, want MetadataExported", res.State)
	}
	if len(res.PackageID) != 40 {
		t.Fatalf("PackageID = %q", res.PackageID)
	}
	if want := map[string]string{"shared": "False", "fPIC": "True"}; !reflect.DeepEqual(res.Options, want) {
		t.Errorf("Options = %v, want %v", res.Options, want)
	}

	t.Run("package contents", func(t *testing.T) {
		want := []string{
			"include/embag/embag.h",
			"include/embag/util/span.hpp",
			"lib/libembag.a",
			"licenses/LICENSE",
		}
		if !reflect.DeepEqual(res.Files, want) {
			t.Fatalf("Files = %v, want %v", res.Files, want)
		}
		onDisk, err := listFiles(res.Layout.Package)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(onDisk, want) {
			t.Fatalf("package root = %v, want %v", onDisk, want)
		}
	})

	t.Run("metadata", func(t *testing.T) {
		pkg := res.Layout.Package
		want := "-I" + filepath.Join(pkg, "include") + " -L" + filepath.Join(pkg, "lib") + " -lembag -lm"
		if res.Metadata != want {
			t.Fatalf("Metadata = %q, want %q", res.Metadata, want)
		}
		if !reflect.DeepEqual(res.CppInfo.Requires, []string{"boost", "lz4", "bzip2"}) {
			t.Fatalf("Requires = %v", res.CppInfo.Requires)
		}
	})

	t.Run("generated files", func(t *testing.T) {
		rc, err := os.ReadFile(filepath.Join(res.Layout.Generators, "conan_bzl.rc"))
		if err != nil {
			t.Fatal(err)
		}
		for _, flag := range []string{"--cxxopt=-std=c++17", "--force_pic=true", "--dynamic_mode=off", "--compilation_mode=opt"} {
			if !strings.Contains(string(rc), "build:conan-config "+flag+"\n") {
				t.Errorf("conan_bzl.rc misses %s:\n%s", flag, rc)
			}
		}
		if _, err := os.Stat(filepath.Join(res.Layout.Generators, "dependencies.bzl")); err != nil {
			t.Error(err)
		}
	})

	t.Run("source root untouched by bazel", func(t *testing.T) {
		matches, _ := filepath.Glob(filepath.Join(res.Layout.Source, "bazel-*"))
		if len(matches) != 0 {
			t.Fatalf("bazel symlinks in source root: %v", matches)
		}
		if _, err := os.Stat(filepath.Join(res.Layout.Source, "test")); !os.IsNotExist(err) {
			t.Fatalf("unexported folder populated: %v", err)
		}
	})

	t.Run("bazel invocations", func(t *testing.T) {
		calls, err := os.ReadFile(filepath.Join(filepath.Dir(bazel), "calls"))
		if err != nil {
			t.Fatal(err)
		}
		lines := strings.Split(strings.TrimSpace(string(calls)), "\n")
		if len(lines) != 2 || lines[0] != "version" {
			t.Fatalf("calls = %q", lines)
		}
		if !strings.Contains(lines[1], " build --config=conan-config ") || !strings.HasSuffix(lines[1], "//lib:embag") {
			t.Fatalf("build call = %q", lines[1])
		}
	})

	t.Run("cache", func(t *testing.T) {
		cached, ok := b.Lookup("embag", "0.0.42", res.PackageID)
		if !ok {
			t.Fatalf("Lookup() found nothing")
		}
		if cached.Dir != res.Layout.Package || cached.RunID != res.RunID || cached.Metadata != res.Metadata {
			t.Fatalf("cached = %+v", cached)
		}
		builds, err := b.List()
		if err != nil {
			t.Fatal(err)
		}
		if len(builds) != 1 || builds[0].Name != "embag" || builds[0].Version != "0.0.42" {
			t.Fatalf("List() = %+v", builds)
		}
	})

	t.Run("metrics", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bzlpkg.prom")
		if err := b.metrics.WriteFile(path); err != nil {
			t.Fatal(err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		for _, p := range phases {
			line := `bzlpkg_phase_total{phase="` + p.name + `",status="success"} 1`
			if !strings.Contains(string(data), line) {
				t.Errorf("metrics miss %s", line)
			}
		}
	})
}

func TestRunAgainRebuildsPackageRoot(t *testing.T) {
	skipWithoutShell(t)
	b := newTestBuilder(t)
	opts := Options{
		Profile:   linuxProfile(t, writeScript(t, fakeBazel)),
		RecipeDir: newRecipeDir(t),
	}

	first, err := b.Run(context.Background(), embag.New(), opts)
	if err != nil {
		t.Fatal(err)
	}
	stale := filepath.Join(first.Layout.Package, "lib", "libstale.a")
	if err := os.WriteFile(stale, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	second, err := b.Run(context.Background(), embag.New(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if first.PackageID != second.PackageID {
		t.Fatalf("package id changed: %s != %s", first.PackageID, second.PackageID)
	}
	if !reflect.DeepEqual(first.Files, second.Files) {
		t.Fatalf("Files changed: %v != %v", first.Files, second.Files)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("stale package file survived: %v", err)
	}
	builds, err := b.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(builds) != 1 || builds[0].RunID != second.RunID {
		t.Fatalf("List() = %+v, want the second run only", builds)
	}
}

func TestRunUntil(t *testing.T) {
	skipWithoutShell(t)
	b := newTestBuilder(t)
	bazel := writeScript(t, fakeBazel)

	res, err := b.Run(context.Background(), embag.New(), Options{
		Profile:   linuxProfile(t, bazel),
		RecipeDir: newRecipeDir(t),
		Until:     ToolchainGenerated,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.State != ToolchainGenerated {
		t.Fatalf("State = %s", res.State)
	}
	if res.Files != nil || res.CppInfo != nil {
		t.Fatalf("run went past generation: %+v", res)
	}
	if _, err := os.Stat(filepath.Join(res.Layout.Generators, "conan_bzl.rc")); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(bazel), "calls")); !os.IsNotExist(err) {
		t.Fatalf("bazel was invoked")
	}
}

func TestRunBuildFailure(t *testing.T) {
	skipWithoutShell(t)
	b := newTestBuilder(t)

	res, err := b.Run(context.Background(), embag.New(), Options{
		Profile:   linuxProfile(t, writeScript(t, failingBazel)),
		RecipeDir: newRecipeDir(t),
	})
	if res != nil {
		t.Fatalf("Run() result = %+v, want nil", res)
	}
	if !errors.Is(err, pkgerrors.ErrBuild) {
		t.Fatalf("Run() error = %v, want BuildError", err)
	}
	var perr *pkgerrors.Error
	if !errors.As(err, &perr) {
		t.Fatalf("Run() error %T is not a *pkgerrors.Error", err)
	}
	if !strings.Contains(perr.Output, "expected unqualified-id") {
		t.Fatalf("error output = %q", perr.Output)
	}
	if builds, _ := b.List(); len(builds) != 0 {
		t.Fatalf("failed run was cached: %+v", builds)
	}
}

func TestRunCppstdTooLow(t *testing.T) {
	skipWithoutShell(t)
	b := newTestBuilder(t)
	bazel := writeScript(t, fakeBazel)
	profile := linuxProfile(t, bazel)
	profile.Settings.Cppstd = "11"

	_, err := b.Run(context.Background(), embag.New(), Options{Profile: profile, RecipeDir: newRecipeDir(t)})
	if !errors.Is(err, pkgerrors.ErrValidation) {
		t.Fatalf("Run() error = %v, want ValidationError", err)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(bazel), "calls")); !os.IsNotExist(err) {
		t.Fatalf("bazel was invoked after a failed validation")
	}
}

func TestRunMissingMarker(t *testing.T) {
	b := newTestBuilder(t)
	dir := newRecipeDir(t)
	if err := os.Remove(filepath.Join(dir, ".bazelversion")); err != nil {
		t.Fatal(err)
	}

	_, err := b.Run(context.Background(), embag.New(), Options{Profile: linuxProfile(t, "bazel"), RecipeDir: dir})
	if !errors.Is(err, pkgerrors.ErrLayout) {
		t.Fatalf("Run() error = %v, want LayoutError", err)
	}
	if !strings.Contains(err.Error(), ".bazelversion") {
		t.Fatalf("error does not name the marker: %v", err)
	}
}

func TestRunMissingDependencyFolder(t *testing.T) {
	b := newTestBuilder(t)

	t.Run("profile folder", func(t *testing.T) {
		profile := linuxProfile(t, "bazel")
		profile.Deps["lz4/1.9.4"] = filepath.Join(t.TempDir(), "nope")
		_, err := b.Run(context.Background(), embag.New(), Options{
			Profile:   profile,
			RecipeDir: newRecipeDir(t),
			Until:     ToolchainGenerated,
		})
		if !errors.Is(err, pkgerrors.ErrConfiguration) {
			t.Fatalf("Run() error = %v, want ConfigurationError", err)
		}
		if !strings.Contains(err.Error(), "lz4/1.9.4") {
			t.Fatalf("error does not name the dependency: %v", err)
		}
	})

	t.Run("workspace default", func(t *testing.T) {
		profile := linuxProfile(t, "bazel")
		profile.Deps = nil
		_, err := b.Run(context.Background(), embag.New(), Options{
			Profile:   profile,
			RecipeDir: newRecipeDir(t),
			Until:     ToolchainGenerated,
		})
		if !errors.Is(err, pkgerrors.ErrConfiguration) {
			t.Fatalf("Run() error = %v, want ConfigurationError", err)
		}
	})

	t.Run("workspace default present", func(t *testing.T) {
		for _, req := range embag.Requirements {
			dir := filepath.Join(b.WorkspaceDir(), req.Path+"@"+req.Version, "package", "lib")
			if err := os.MkdirAll(dir, 0o755); err != nil {
				t.Fatal(err)
			}
		}
		profile := linuxProfile(t, "bazel")
		profile.Deps = nil
		res, err := b.Run(context.Background(), embag.New(), Options{
			Profile:   profile,
			RecipeDir: newRecipeDir(t),
			Until:     ToolchainGenerated,
		})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		bzl, err := os.ReadFile(filepath.Join(res.Layout.Generators, "dependencies.bzl"))
		if err != nil {
			t.Fatal(err)
		}
		want := filepath.ToSlash(filepath.Join(b.WorkspaceDir(), "boost@1.81.0", "package"))
		if !strings.Contains(string(bzl), `path="`+want+`"`) {
			t.Fatalf("dependencies.bzl does not use the workspace folder:\n%s", bzl)
		}
	})
}

// fakePatch appends the patch file to lib/embag.h of the -d folder.
const fakePatch = `#!/bin/sh
while [ $# -gt 0 ]; do
	case "$1" in
	-d) dir="$2"; shift ;;
	-i) file="$2"; shift ;;
	esac
	shift
done
cat "$file" >> "$dir/lib/embag.h"
`

func TestRunAppliesPatches(t *testing.T) {
	skipWithoutShell(t)
	bin := t.TempDir()
	if err := os.WriteFile(filepath.Join(bin, "patch"), []byte(fakePatch), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))

	dir := newRecipeDir(t)
	writeTree(t, dir, map[string]string{"patches/0001-export.patch": "#define EMBAG_EXPORT\n"})

	def := embag.Definition
	def.Patches = []string{"patches/0001-export.patch"}
	r := formula.New(def)
	r.OnPatchSources(func(ctx *formula.Context, proj *formula.Project) error {
		return r.ApplyPatches(ctx)
	})

	res, err := newTestBuilder(t).Run(context.Background(), r, Options{
		Profile:   linuxProfile(t, writeScript(t, fakeBazel)),
		RecipeDir: dir,
		Until:     Built,
	})
	if err != nil {
		t.Fatalf("Run() = %v", err)
	}
	l := res.Layout
	if _, err := os.Stat(filepath.Join(l.ExportSources, "patches", "0001-export.patch")); err != nil {
		t.Fatalf("patch not exported: %v", err)
	}
	if _, err := os.Stat(filepath.Join(l.Source, "patches")); !os.IsNotExist(err) {
		t.Fatalf("patches copied into the source root: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(l.Source, "lib", "embag.h"))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(data), "#pragma once\n#define EMBAG_EXPORT\n"; got != want {
		t.Fatalf("patched header = %q, want %q", got, want)
	}
}

func TestRunRequiredVersion(t *testing.T) {
	b := newTestBuilder(t)
	_, err := b.Run(context.Background(), embag.New(), Options{
		Profile:     linuxProfile(t, "bazel"),
		HostVersion: "0.0.9",
	})
	if !errors.Is(err, pkgerrors.ErrConfiguration) {
		t.Fatalf("Run() error = %v, want ConfigurationError", err)
	}
}

func TestRunUnknownOverride(t *testing.T) {
	b := newTestBuilder(t)
	profile := linuxProfile(t, "bazel")
	profile.Options = map[string]string{"sharde": "True"}

	_, err := b.Run(context.Background(), embag.New(), Options{Profile: profile})
	if !errors.Is(err, pkgerrors.ErrConfiguration) {
		t.Fatalf("Run() error = %v, want ConfigurationError", err)
	}
	if !strings.Contains(err.Error(), "shared") {
		t.Fatalf("error has no suggestion: %v", err)
	}
}

func TestRunCanceled(t *testing.T) {
	b := newTestBuilder(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Run(ctx, embag.New(), Options{Profile: linuxProfile(t, "bazel")})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
}

func TestInfo(t *testing.T) {
	b := newTestBuilder(t)

	tests := []struct {
		name       string
		profile    *config.Profile
		systemLibs []string
		options    map[string]string
	}{
		{
			name:       "linux",
			profile:    linuxProfile(t, ""),
			systemLibs: []string{"m"},
			options:    map[string]string{"shared": "False", "fPIC": "True"},
		},
		{
			name: "windows shared",
			profile: &config.Profile{
				Settings: linuxProfile(t, "").Settings,
				Options:  map[string]string{"shared": "True"},
			},
			options: map[string]string{"shared": "True"},
		},
	}
	tests[1].profile.Settings.OS = "Windows"
	tests[1].profile.Settings.Compiler = "msvc"

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, res, err := b.Info(context.Background(), embag.New(), Options{Profile: tt.profile})
			if err != nil {
				t.Fatalf("Info() error = %v", err)
			}
			if res.State != Configured {
				t.Fatalf("State = %s", res.State)
			}
			if !reflect.DeepEqual(info.Libs, []string{"embag"}) {
				t.Errorf("Libs = %v", info.Libs)
			}
			if !reflect.DeepEqual(info.SystemLibs, tt.systemLibs) {
				t.Errorf("SystemLibs = %v, want %v", info.SystemLibs, tt.systemLibs)
			}
			if !reflect.DeepEqual(res.Options, tt.options) {
				t.Errorf("Options = %v, want %v", res.Options, tt.options)
			}
		})
	}

	entries, err := os.ReadDir(b.WorkspaceDir())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("Info() wrote to the workspace: %v", entries)
	}
}

func TestPackageIDFollowsConfiguration(t *testing.T) {
	b := newTestBuilder(t)
	id := func(p *config.Profile) string {
		t.Helper()
		_, res, err := b.Info(context.Background(), embag.New(), Options{Profile: p})
		if err != nil {
			t.Fatal(err)
		}
		return res.PackageID
	}

	base := id(linuxProfile(t, ""))
	if again := id(linuxProfile(t, "")); again != base {
		t.Fatalf("package id not stable: %s != %s", base, again)
	}

	shared := linuxProfile(t, "")
	shared.Options = map[string]string{"shared": "True"}
	debug := linuxProfile(t, "")
	debug.Settings.BuildType = "Debug"
	for name, p := range map[string]*config.Profile{"shared": shared, "debug": debug} {
		if got := id(p); got == base {
			t.Errorf("%s: package id did not change", name)
		}
	}
}

func TestLockBuildWaits(t *testing.T) {
	folder := filepath.Join(t.TempDir(), "embag@0.0.42", "abc")
	unlock, err := lockBuild(context.Background(), folder)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if _, err := lockBuild(ctx, folder); err == nil {
		t.Fatalf("second lock succeeded while the first is held")
	}

	unlock()
	again, err := lockBuild(context.Background(), folder)
	if err != nil {
		t.Fatalf("lock after unlock: %v", err)
	}
	again()
}
