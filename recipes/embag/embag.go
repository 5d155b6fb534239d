// Package embag is the recipe of embag, a schema and dependency free ROS
// bag reader built with Bazel.
package embag

import (
	"github.com/goplus/bzlpkg/formula"
	"github.com/goplus/bzlpkg/pkgs/buildsys/bazel"
	"github.com/goplus/bzlpkg/pkgs/cppstd"
	"github.com/goplus/bzlpkg/pkgs/layout"
	"github.com/goplus/bzlpkg/pkgs/mod/module"
	"github.com/goplus/bzlpkg/pkgs/options"
)

// Target is the Bazel label of the library.
const Target = "//lib:embag"

// Definition is the static definition of the recipe.
var Definition = formula.Definition{
	Identity: formula.Identity{
		Name:        "embag",
		Version:     "0.0.42",
		Description: "Schema and dependency free ROS bag reader",
		License:     "MIT",
		URL:         "https://github.com/conan-io/conan-center-index",
		Homepage:    "https://github.com/embarktrucks/embag",
		Topics:      []string{"rosbag", "ros", "robotics"},
		PackageType: "library",
	},
	Settings: []string{"os", "arch", "compiler", "build_type"},
	Options: options.Domain{
		"shared": options.Boolean,
		"fPIC":   options.Boolean,
	},
	DefaultOptions: map[string]string{
		"shared": options.False,
		"fPIC":   options.True,
	},
	ExportsSources:  layout.DefaultManifest,
	SrcFolder:       "src",
	MinCppstd:       14,
	RequiredVersion: ">=0.1.0",
	BuildTarget:     Target,
	Package: formula.ArtifactSet{
		Rules: []formula.CopyRule{
			{Kind: formula.ArtifactLicense, Pattern: "LICENSE", Root: formula.RootSource, Dest: "licenses"},
			{Kind: formula.ArtifactHeaders, Pattern: "*.h", Root: formula.RootSource, Subdir: "lib", Dest: "include/embag"},
			{Kind: formula.ArtifactHeaders, Pattern: "*.hpp", Root: formula.RootSource, Subdir: "lib", Dest: "include/embag"},
			{Kind: formula.ArtifactBinaries, Pattern: "libembag*", Root: formula.RootBuild, Subdir: "bazel-bin/lib", Dest: "lib"},
		},
		Cleanup: []string{"*.params", "*.pdb"},
	},
}

// Requirements are the libraries embag links against. Their types appear
// in embag's public headers, so both headers and libraries propagate.
var Requirements = []module.Version{
	{Path: "boost", Version: "1.81.0"},
	{Path: "lz4", Version: "1.9.4"},
	{Path: "bzip2", Version: "1.0.8"},
}

// New returns the embag recipe.
func New() *formula.Recipe {
	r := formula.New(Definition)

	r.OnConfigOptions(func(ctx *formula.Context, opts *options.Set) {
		if !ctx.Settings.HasPIC() {
			opts.Remove("fPIC")
		}
	})

	r.OnConfigure(func(ctx *formula.Context, opts *options.Set) {
		if opts.Bool("shared") {
			opts.Remove("fPIC")
		}
	})

	r.OnRequire(func(proj *formula.Project, deps *formula.ModuleDeps) {
		for _, req := range Requirements {
			deps.Require(req.Path, req.Version, module.TransitiveHeaders, module.TransitiveLibs)
		}
		deps.ToolRequire("bazel", "6.2.0")
	})

	r.OnLayout(func(ctx *formula.Context, base string) layout.Descriptor {
		return layout.Bazel(base, "src")
	})

	r.OnGenerate(func(ctx *formula.Context) error {
		if err := bazel.NewToolchain(ctx).Generate(); err != nil {
			return err
		}
		return bazel.NewDeps(ctx).Generate()
	})

	r.OnValidate(func(ctx *formula.Context) error {
		return cppstd.CheckMin(ctx.Settings.Cppstd, ctx.MinCppstd)
	})

	r.OnPatchSources(func(ctx *formula.Context, proj *formula.Project) error {
		return r.ApplyPatches(ctx)
	})

	r.OnBuild(func(ctx *formula.Context, proj *formula.Project, out *formula.BuildResult) {
		b := bazel.New(ctx)
		if err := b.Configure(ctx.Context()); err != nil {
			out.AddErr(err)
			return
		}
		if err := b.Build(ctx.Context(), Target); err != nil {
			out.AddErr(err)
		}
	})

	r.OnPackageInfo(func(ctx *formula.Context, info *formula.CppInfo) {
		info.Libs = []string{"embag"}
		if ctx.Settings.IsLinuxLike() {
			info.AddSystemLib("m")
		}
		for _, req := range ctx.Requires {
			if req.Visible() {
				info.Requires = append(info.Requires, req.Path)
			}
		}
	})

	return r
}
