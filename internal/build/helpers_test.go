package build

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/goplus/bzlpkg/formula"
	"github.com/goplus/bzlpkg/internal/config"
	"github.com/goplus/bzlpkg/recipes/embag"
)

// fakeBazel stands in for bazel: "version" succeeds, "build" lays out a
// bazel-bin tree below the --symlink_prefix the way Bazel does, with a
// convenience symlink pointing into an output base.
const fakeBazel = `#!/bin/sh
echo "$@" >> "$(dirname "$0")/calls"
prefix=""
for a in "$@"; do
	case "$a" in
	--symlink_prefix=*) prefix="${a#--symlink_prefix=}" ;;
	esac
done
if [ -z "$prefix" ]; then
	echo "Build label: ${USE_BAZEL_VERSION:-unknown}"
	exit 0
fi
out="${prefix}out"
mkdir -p "$out/lib"
echo archive > "$out/lib/libembag.a"
echo params > "$out/lib/libembag.a-2.params"
echo pdb > "$out/lib/embag.pdb"
echo object > "$out/lib/embag.o"
ln -sfn "$out" "${prefix}bin"
echo "INFO: Build completed successfully"
`

const failingBazel = `#!/bin/sh
case "$1" in
version) echo "Build label: 6.2.0"; exit 0 ;;
esac
echo "ERROR: lib/embag.cc:1:1: expected unqualified-id" >&2
exit 1
`

// recipeSources are the files of the embag recipe folder.
var recipeSources = map[string]string{
	"WORKSPACE":          "workspace(name = \"embag\")\n",
	".bazelversion":      "6.2.0\n",
	".bazelproject":      "directories:\n  .\n",
	"LICENSE":            "MIT License\n",
	"lib/BUILD":          "cc_library(name = \"embag\")\n",
	"lib/embag.h":        "#pragma once\n",
	"lib/embag.cc":       "#include \"embag.h\"\n",
	"lib/util/span.hpp":  "#pragma once\n",
	"CMakeLists.txt":     "cmake_minimum_required(VERSION 3.15)\n",
	"test/embag_test.cc": "int main() {}\n",
}

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake bazel is a shell script")
	}
}

func writeTree(t *testing.T, root string, tree map[string]string) {
	t.Helper()
	for rel, content := range tree {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func writeScript(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bazel")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func newRecipeDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeTree(t, dir, recipeSources)
	return dir
}

// linuxProfile returns a Linux profile whose dependency folders exist,
// each holding one static library.
func linuxProfile(t *testing.T, bazel string) *config.Profile {
	t.Helper()
	deps := map[string]string{}
	root := t.TempDir()
	for _, req := range embag.Requirements {
		dir := filepath.Join(root, req.Path)
		writeTree(t, dir, map[string]string{
			"include/" + req.Path + ".h": "",
			"lib/lib" + req.Path + ".a":  "",
		})
		deps[req.String()] = dir
	}
	return &config.Profile{
		Settings: formula.Settings{
			OS:        "Linux",
			Arch:      "x86_64",
			Compiler:  "gcc",
			Cppstd:    "17",
			BuildType: "Release",
		},
		Deps:  deps,
		Bazel: bazel,
	}
}

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	b, err := NewBuilder(t.TempDir(), NewMetrics())
	if err != nil {
		t.Fatal(err)
	}
	return b
}
