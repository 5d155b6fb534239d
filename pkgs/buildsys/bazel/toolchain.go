package bazel

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/goplus/bzlpkg/formula"
	"github.com/goplus/bzlpkg/pkgs/buildsys"
	"github.com/goplus/bzlpkg/pkgs/cppstd"
	pkgerrors "github.com/goplus/bzlpkg/pkgs/errors"
	"github.com/goplus/bzlpkg/pkgs/files"
	"github.com/goplus/bzlpkg/pkgs/options"
)

// Names of the generated toolchain.
const (
	RCFile = "conan_bzl.rc"
	Config = "conan-config"
)

// Toolchain generates the bazelrc that maps settings and options onto
// Bazel flags.
type Toolchain struct {
	ctx *formula.Context
}

var _ buildsys.Generator = (*Toolchain)(nil)

// NewToolchain creates a toolchain generator for ctx.
func NewToolchain(ctx *formula.Context) *Toolchain {
	return &Toolchain{ctx: ctx}
}

// Flags returns the Bazel flags of the configuration, in a fixed order:
// language standard, PIC, linking mode, compilation mode.
func (t *Toolchain) Flags() []string {
	var flags []string
	s := t.ctx.Settings

	std := s.Cppstd
	if std == "" && t.ctx.MinCppstd > 0 {
		std = strconv.Itoa(t.ctx.MinCppstd)
	}
	if std != "" {
		if s.Compiler == "msvc" {
			flags = append(flags, "--cxxopt=/std:c++"+strings.TrimPrefix(std, "gnu"))
		} else {
			flags = append(flags, "--cxxopt=-std="+cppstd.Flag(std))
		}
	}

	if pic, ok := t.ctx.Option("fPIC"); ok {
		flags = append(flags, "--force_pic="+boolFlag(pic))
	}
	if shared, ok := t.ctx.Option("shared"); ok {
		mode := "off"
		if shared == options.True {
			mode = "fully"
		}
		flags = append(flags, "--dynamic_mode="+mode)
	}
	flags = append(flags, "--compilation_mode="+CompilationMode(s.BuildType))
	return flags
}

// Content returns the bazelrc text.
func (t *Toolchain) Content() []byte {
	var b bytes.Buffer
	b.WriteString("# Automatic bazelrc file created by bzlpkg\n")
	for _, f := range t.Flags() {
		fmt.Fprintf(&b, "build:%s %s\n", Config, f)
	}
	return b.Bytes()
}

// Generate writes the bazelrc into the generators root.
func (t *Toolchain) Generate() error {
	if _, err := files.Save(t.ctx.Layout.Generators, RCFile, t.Content(), 0o644); err != nil {
		return pkgerrors.Wrap(pkgerrors.KindLayout, "bazel.toolchain", err)
	}
	return nil
}

// CompilationMode maps a build type onto a Bazel compilation mode.
func CompilationMode(buildType string) string {
	switch buildType {
	case "Release", "RelWithDebInfo", "MinSizeRel":
		return "opt"
	case "Debug":
		return "dbg"
	}
	return "fastbuild"
}

func boolFlag(v string) string {
	if v == options.True {
		return "true"
	}
	return "false"
}
