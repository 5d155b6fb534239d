// Package build runs recipes through their lifecycle.
//
// A run is an ordered table of phases. Each phase moves the build from one
// State to the next; the runner checks the current state before every
// phase, so phases cannot be skipped or reordered. A failing phase stops
// the run: files written by earlier phases stay, no package result is
// produced.
package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/goplus/bzlpkg/formula"
	"github.com/goplus/bzlpkg/internal/config"
	"github.com/goplus/bzlpkg/internal/log"
	"github.com/goplus/bzlpkg/internal/version"
	pkgerrors "github.com/goplus/bzlpkg/pkgs/errors"
	"github.com/goplus/bzlpkg/pkgs/files"
	"github.com/goplus/bzlpkg/pkgs/layout"
	"github.com/goplus/bzlpkg/pkgs/mod/module"
	"github.com/goplus/bzlpkg/pkgs/options"
	"github.com/sirupsen/logrus"
)

// Options configures one run.
type Options struct {
	// Profile supplies settings, option overrides, dependency folders and
	// the bazel binary. Unset settings default to the host.
	Profile *config.Profile

	// RecipeDir holds the exported sources. When empty, the source root
	// must already be populated.
	RecipeDir string

	// Until stops the run once this state is reached. The zero value runs
	// the whole lifecycle.
	Until State

	// HostVersion is checked against the recipe's required version. It
	// defaults to the version of this binary.
	HostVersion string

	Stdout io.Writer
	Stderr io.Writer
}

// Result describes a run that reached its target state.
type Result struct {
	RunID     string
	State     State
	PackageID string

	Settings     formula.Settings
	Options      map[string]string
	Requires     []module.Requirement
	ToolRequires []module.Version
	Layout       layout.Descriptor

	// Files lists the package contents relative to the package root.
	Files   []string
	CppInfo *formula.CppInfo
	// Metadata is the pkg-config form of CppInfo for the package root.
	Metadata string
}

// Builder runs recipes in a workspace. Build folders live below the
// workspace as <name>@<version>/<package id>.
type Builder struct {
	workspaceDir string
	metrics      *Metrics
}

// NewBuilder creates a Builder rooted at workspaceDir. metrics may be nil.
func NewBuilder(workspaceDir string, metrics *Metrics) (*Builder, error) {
	abs, err := filepath.Abs(workspaceDir)
	if err != nil {
		return nil, err
	}
	return &Builder{workspaceDir: abs, metrics: metrics}, nil
}

// WorkspaceDir returns the workspace root.
func (b *Builder) WorkspaceDir() string {
	return b.workspaceDir
}

// phase is one step of the lifecycle.
type phase struct {
	name     string
	from, to State
	run      func(r *run, ctx context.Context) error
}

var phases = []phase{
	{"declare", Initial, Declared, (*run).declare},
	{"configure", Declared, Configured, (*run).configure},
	{"layout", Configured, LayoutResolved, (*run).layout},
	{"generate", LayoutResolved, ToolchainGenerated, (*run).generate},
	{"validate", ToolchainGenerated, Validated, (*run).validate},
	{"build", Validated, Built, (*run).build},
	{"package", Built, Packaged, (*run).pack},
	{"export", Packaged, MetadataExported, (*run).export},
}

// run is the state of one recipe run.
type run struct {
	b      *Builder
	recipe *formula.Recipe
	def    formula.Definition
	opts   Options
	fctx   *formula.Context
	state  State
	log    *logrus.Entry
	result *Result

	unlock func()
}

// Run drives recipe through the lifecycle until opts.Until, or to the end.
func (b *Builder) Run(ctx context.Context, recipe *formula.Recipe, opts Options) (*Result, error) {
	r := b.newRun(recipe, opts)
	defer r.release()

	until := opts.Until
	if until == Initial {
		until = MetadataExported
	}
	if err := r.advance(ctx, until); err != nil {
		return nil, err
	}
	r.result.State = r.state
	return r.result, nil
}

// Info resolves the configuration of recipe and returns the consumer
// metadata it would publish, without touching the filesystem.
func (b *Builder) Info(ctx context.Context, recipe *formula.Recipe, opts Options) (*formula.CppInfo, *Result, error) {
	r := b.newRun(recipe, opts)
	defer r.release()

	if err := r.advance(ctx, Configured); err != nil {
		return nil, nil, err
	}
	r.result.State = r.state
	return recipe.PackageInfo(r.fctx), r.result, nil
}

func (b *Builder) newRun(recipe *formula.Recipe, opts Options) *run {
	if opts.Profile == nil {
		opts.Profile = &config.Profile{}
	}
	if opts.HostVersion == "" {
		opts.HostVersion = version.Version
	}
	def := recipe.Definition()
	runID := uuid.NewString()

	fctx := &formula.Context{
		Settings:  opts.Profile.Settings.Merge(formula.DetectSettings()),
		MinCppstd: def.MinCppstd,
		Tools:     map[string]string{},
		Stdout:    opts.Stdout,
		Stderr:    opts.Stderr,
	}
	if opts.Profile.Bazel != "" {
		fctx.Tools["bazel"] = opts.Profile.Bazel
	}

	return &run{
		b:      b,
		recipe: recipe,
		def:    def,
		opts:   opts,
		fctx:   fctx,
		log:    log.Get("build").WithFields(logrus.Fields{"pkg": recipe.Name(), "run": runID[:8]}),
		result: &Result{RunID: runID},
	}
}

// advance runs phases until the state reaches until.
func (r *run) advance(ctx context.Context, until State) error {
	for _, p := range phases {
		if r.state >= until {
			return nil
		}
		if r.state != p.from {
			panic(fmt.Sprintf("build: phase %s expects state %s, have %s", p.name, p.from, r.state))
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		logger := r.log.WithField("phase", p.name)
		logger.Debugf("%s -> %s", p.from, p.to)
		start := time.Now()
		err := p.run(r, ctx)
		r.b.metrics.observe(p.name, time.Since(start), err)
		if err != nil {
			logger.WithError(err).Debug("phase failed")
			return err
		}
		r.state = p.to
	}
	return nil
}

func (r *run) release() {
	if r.unlock != nil {
		r.unlock()
		r.unlock = nil
	}
}

// -----------------------------------------------------------------------------

func (r *run) project() *formula.Project {
	if r.opts.RecipeDir == "" {
		return &formula.Project{DirFS: emptyFS{}}
	}
	return &formula.Project{DirFS: os.DirFS(r.opts.RecipeDir), Dir: r.opts.RecipeDir}
}

func (r *run) declare(ctx context.Context) error {
	if err := formula.CheckRequiredVersion(r.def.RequiredVersion, r.opts.HostVersion); err != nil {
		return err
	}
	deps, err := r.recipe.Require(r.project())
	if err != nil {
		return err
	}
	r.fctx.Requires = deps.Deps()
	r.fctx.ToolRequires = deps.ToolDeps()
	r.result.Requires = r.fctx.Requires
	r.result.ToolRequires = r.fctx.ToolRequires
	return nil
}

func (r *run) configure(ctx context.Context) error {
	opts, err := options.Resolve(r.def.Options, r.def.DefaultOptions, r.opts.Profile.Options,
		func(s *options.Set) { r.recipe.ConfigOptions(r.fctx, s) },
		func(s *options.Set) { r.recipe.Configure(r.fctx, s) },
	)
	if err != nil {
		return err
	}
	r.fctx.Options = opts

	matrix := formula.MatrixOf(r.fctx.Settings.Map(r.def.Settings), opts.Values())
	r.fctx.SetCurrentMatrix(matrix)

	r.result.Settings = r.fctx.Settings
	r.result.Options = opts.Values()
	r.result.PackageID = matrix.PackageID()
	r.log.Debugf("options %s, package %s", opts, r.result.PackageID)
	return nil
}

// buildDir returns <workspace>/<escaped name>@<version>.
func (r *run) buildDir() (string, error) {
	escaped, err := module.EscapePath(r.def.Name)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.KindLayout, "layout", err)
	}
	return filepath.Join(r.b.workspaceDir, escaped+"@"+r.def.Version), nil
}

func (r *run) layout(ctx context.Context) error {
	dir, err := r.buildDir()
	if err != nil {
		return err
	}
	base := filepath.Join(dir, r.result.PackageID)

	l := r.recipe.Layout(r.fctx, base)
	if err := l.Validate(); err != nil {
		return err
	}

	unlock, err := lockBuild(ctx, base)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.KindLayout, "layout.lock", err)
	}
	r.unlock = unlock

	if err := l.Prepare(); err != nil {
		return err
	}
	if r.opts.RecipeDir != "" {
		manifest := append(slices.Clone(r.def.ExportsSources), r.def.Patches...)
		exported, err := layout.ExportSources(r.opts.RecipeDir, manifest, l.ExportSources)
		if err != nil {
			return err
		}
		r.log.Debugf("exported %d files", len(exported))
		if err := populateSources(l, r.def.ExportsSources); err != nil {
			return err
		}
	}

	r.fctx.Layout = l
	r.result.Layout = l
	return nil
}

func (r *run) generate(ctx context.Context) error {
	if err := r.fctx.Layout.CheckMarkers(); err != nil {
		return err
	}
	folders := r.opts.Profile.DepFolders()
	for _, req := range r.fctx.Requires {
		dir := folders[req.Version]
		if dir == "" {
			escaped, err := module.EscapePath(req.Path)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.KindConfiguration, "generate", err)
			}
			dir = filepath.Join(r.b.workspaceDir, escaped+"@"+req.Version.Version, "package")
		}
		r.fctx.AddBuildResult(req.Version, formula.BuildResult{Dir: dir})
	}
	return r.recipe.Generate(r.fctx)
}

func (r *run) validate(ctx context.Context) error {
	return r.recipe.Validate(r.fctx)
}

func (r *run) build(ctx context.Context) error {
	proj := r.fctx.Project()
	if err := r.recipe.PatchSources(r.fctx, proj); err != nil {
		return err
	}
	out := &formula.BuildResult{Dir: r.fctx.Layout.Build}
	r.fctx.SetContext(ctx)
	r.recipe.Build(r.fctx, proj, out)
	switch errs := out.Errs(); len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return errors.Join(errs...)
	}
}

func (r *run) pack(ctx context.Context) error {
	packaged, err := packageArtifacts(r.fctx.Layout, r.def.Package)
	if err != nil {
		return err
	}
	r.result.Files = packaged
	return nil
}

func (r *run) export(ctx context.Context) error {
	info := r.recipe.PackageInfo(r.fctx)
	pkg := formula.BuildResult{Dir: r.fctx.Layout.Package}
	pkg.SetMetadata(info.PkgConfig(pkg.Dir))
	r.result.CppInfo = info
	r.result.Metadata = pkg.Metadata()

	matrix := r.fctx.CurrentMatrix()
	entry := &buildEntry{
		Metadata:  pkg.Metadata(),
		Matrix:    matrix.String(),
		PackageID: r.result.PackageID,
		Dir:       pkg.Dir,
		RunID:     r.result.RunID,
		CppInfo:   info,
		BuildTime: time.Now(),
	}
	return r.b.updateCache(ctx, r.def.Name, func(c *buildCache) {
		c.set(r.def.Version, r.result.PackageID, entry)
	})
}

// -----------------------------------------------------------------------------

// populateSources copies the exported files into the source root.
func populateSources(l layout.Descriptor, manifest []string) error {
	for _, pattern := range manifest {
		if _, err := files.Copy(pattern, l.ExportSources, l.Source); err != nil {
			return pkgerrors.Wrap(pkgerrors.KindLayout, "layout.sources", err)
		}
	}
	return nil
}

type emptyFS struct{}

func (emptyFS) Open(name string) (fs.File, error) {
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}
