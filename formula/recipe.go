package formula

import (
	"maps"
	"slices"

	"github.com/goplus/bzlpkg/pkgs/layout"
	"github.com/goplus/bzlpkg/pkgs/options"
	"github.com/qiniu/x/gsh"
)

// APIVersion tags every metadata record a recipe emits.
const APIVersion = "bzlpkg/v1"

// -----------------------------------------------------------------------------

// Identity names and describes the packaged library.
type Identity struct {
	Name        string   `json:"name" yaml:"name"`
	Version     string   `json:"version" yaml:"version"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	License     string   `json:"license,omitempty" yaml:"license,omitempty"`
	URL         string   `json:"url,omitempty" yaml:"url,omitempty"`
	Homepage    string   `json:"homepage,omitempty" yaml:"homepage,omitempty"`
	Topics      []string `json:"topics,omitempty" yaml:"topics,omitempty"`
	PackageType string   `json:"package_type,omitempty" yaml:"package_type,omitempty"`
}

// Definition is the static part of a recipe: everything the host can read
// before any phase runs.
type Definition struct {
	Identity

	// Settings lists the setting axes the binary depends on.
	Settings       []string
	Options        options.Domain
	DefaultOptions map[string]string

	// ExportsSources lists the patterns exported with the recipe.
	ExportsSources []string
	// SrcFolder is the source root below the build folder.
	SrcFolder string
	// Patches lists patch files, relative to the recipe folder, applied to
	// the sources before the build. They are exported with the recipe.
	Patches []string

	MinCppstd       int
	RequiredVersion string
	BuildTarget     string

	Package ArtifactSet
}

func (d Definition) clone() Definition {
	d.Topics = slices.Clone(d.Topics)
	d.Settings = slices.Clone(d.Settings)
	d.Options = d.Options.Clone()
	d.DefaultOptions = maps.Clone(d.DefaultOptions)
	d.ExportsSources = slices.Clone(d.ExportsSources)
	d.Patches = slices.Clone(d.Patches)
	d.Package = d.Package.clone()
	return d
}

// Matrix returns every binary configuration the option domain allows.
// Settings are not enumerated; their values come from the profile.
func (d Definition) Matrix() Matrix {
	m := Matrix{
		Options:        make(map[string][]string, len(d.Options)),
		DefaultOptions: make(map[string][]string, len(d.DefaultOptions)),
	}
	for name, allowed := range d.Options {
		for _, v := range allowed {
			m.Options[name] = append(m.Options[name], name+"="+v)
		}
	}
	for name, v := range d.DefaultOptions {
		m.DefaultOptions[name] = []string{name + "=" + v}
	}
	return m
}

// -----------------------------------------------------------------------------

// Recipe is the build formula of a package. The engine drives it through
// the lifecycle by calling the registered hooks; unset hooks are no-ops.
type Recipe struct {
	gsh.App

	def Definition

	fOnConfigOptions func(ctx *Context, opts *options.Set)
	fOnConfigure     func(ctx *Context, opts *options.Set)
	fOnRequire       func(proj *Project, deps *ModuleDeps)
	fOnLayout        func(ctx *Context, base string) layout.Descriptor
	fOnGenerate      func(ctx *Context) error
	fOnValidate      func(ctx *Context) error
	fOnPatchSources  func(ctx *Context, proj *Project) error
	fOnBuild         func(ctx *Context, proj *Project, out *BuildResult)
	fOnPackageInfo   func(ctx *Context, info *CppInfo)
}

// New creates a recipe for def. The definition is copied; later changes to
// def do not affect the recipe.
func New(def Definition) *Recipe {
	r := &Recipe{def: def.clone()}
	if r.def.SrcFolder == "" {
		r.def.SrcFolder = "src"
	}
	gsh.InitApp(&r.App)
	return r
}

// Definition returns a copy of the recipe's static definition.
func (p *Recipe) Definition() Definition {
	return p.def.clone()
}

// Name returns "name/version".
func (p *Recipe) Name() string {
	return p.def.Name + "/" + p.def.Version
}

// OnConfigOptions registers the platform rules run on the option set before
// explicit overrides are applied.
func (p *Recipe) OnConfigOptions(f func(ctx *Context, opts *options.Set)) {
	p.fOnConfigOptions = f
}

// OnConfigure registers the rules derived from resolved option values.
func (p *Recipe) OnConfigure(f func(ctx *Context, opts *options.Set)) {
	p.fOnConfigure = f
}

// OnRequire event is used to retrieve all direct dependencies of a
// project. proj is the project being built, deps is used to declare
// dependencies.
func (p *Recipe) OnRequire(f func(proj *Project, deps *ModuleDeps)) {
	p.fOnRequire = f
}

// OnLayout registers the function mapping a build folder to its roots.
// Without it the Bazel layout is used.
func (p *Recipe) OnLayout(f func(ctx *Context, base string) layout.Descriptor) {
	p.fOnLayout = f
}

// OnGenerate registers the toolchain and dependency generators.
func (p *Recipe) OnGenerate(f func(ctx *Context) error) {
	p.fOnGenerate = f
}

// OnValidate registers the pre-build checks.
func (p *Recipe) OnValidate(f func(ctx *Context) error) {
	p.fOnValidate = f
}

// OnPatchSources registers the source patching step run right before the
// build.
func (p *Recipe) OnPatchSources(f func(ctx *Context, proj *Project) error) {
	p.fOnPatchSources = f
}

// OnBuild event is used to instruct the recipe to compile a project.
func (p *Recipe) OnBuild(f func(ctx *Context, proj *Project, out *BuildResult)) {
	p.fOnBuild = f
}

// OnPackageInfo registers the consumer metadata exporter.
func (p *Recipe) OnPackageInfo(f func(ctx *Context, info *CppInfo)) {
	p.fOnPackageInfo = f
}

// -----------------------------------------------------------------------------

// ConfigOptions runs the OnConfigOptions hook.
func (p *Recipe) ConfigOptions(ctx *Context, opts *options.Set) {
	if p.fOnConfigOptions != nil {
		p.fOnConfigOptions(ctx, opts)
	}
}

// Configure runs the OnConfigure hook.
func (p *Recipe) Configure(ctx *Context, opts *options.Set) {
	if p.fOnConfigure != nil {
		p.fOnConfigure(ctx, opts)
	}
}

// Require runs the OnRequire hook and returns the declared dependencies.
func (p *Recipe) Require(proj *Project) (*ModuleDeps, error) {
	deps := &ModuleDeps{}
	if p.fOnRequire != nil {
		p.fOnRequire(proj, deps)
	}
	if err := deps.Err(); err != nil {
		return nil, err
	}
	return deps, nil
}

// Layout returns the roots of the build folder base.
func (p *Recipe) Layout(ctx *Context, base string) layout.Descriptor {
	if p.fOnLayout != nil {
		return p.fOnLayout(ctx, base)
	}
	return layout.Bazel(base, p.def.SrcFolder)
}

// Generate runs the OnGenerate hook.
func (p *Recipe) Generate(ctx *Context) error {
	if p.fOnGenerate != nil {
		return p.fOnGenerate(ctx)
	}
	return nil
}

// Validate runs the OnValidate hook.
func (p *Recipe) Validate(ctx *Context) error {
	if p.fOnValidate != nil {
		return p.fOnValidate(ctx)
	}
	return nil
}

// PatchSources runs the OnPatchSources hook.
func (p *Recipe) PatchSources(ctx *Context, proj *Project) error {
	if p.fOnPatchSources != nil {
		return p.fOnPatchSources(ctx, proj)
	}
	return nil
}

// Build runs the OnBuild hook.
func (p *Recipe) Build(ctx *Context, proj *Project, out *BuildResult) {
	if p.fOnBuild != nil {
		p.fOnBuild(ctx, proj, out)
	}
}

// PackageInfo runs the OnPackageInfo hook on a fresh CppInfo.
func (p *Recipe) PackageInfo(ctx *Context) *CppInfo {
	info := NewCppInfo()
	if p.fOnPackageInfo != nil {
		p.fOnPackageInfo(ctx, info)
	}
	return info
}
