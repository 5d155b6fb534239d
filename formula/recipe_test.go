package formula

import (
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	pkgerrors "github.com/goplus/bzlpkg/pkgs/errors"
	"github.com/goplus/bzlpkg/pkgs/options"
	"gopkg.in/yaml.v3"
)

func testDefinition() Definition {
	return Definition{
		Identity: Identity{
			Name:    "demo",
			Version: "1.0.0",
			License: "MIT",
			Topics:  []string{"a", "b"},
		},
		Settings:       []string{"os", "arch", "compiler", "build_type"},
		Options:        options.Domain{"shared": options.Boolean, "fPIC": options.Boolean},
		DefaultOptions: map[string]string{"shared": "False", "fPIC": "True"},
		ExportsSources: []string{"WORKSPACE", "lib/*"},
		MinCppstd:      14,
		BuildTarget:    "//lib:demo",
		Package: ArtifactSet{
			Rules: []CopyRule{
				{Kind: ArtifactBinaries, Pattern: "libdemo*", Root: RootBuild, Dest: "lib"},
				{Kind: ArtifactHeaders, Pattern: "*.h", Root: RootSource, Dest: "include"},
				{Kind: ArtifactLicense, Pattern: "LICENSE", Root: RootSource, Dest: "licenses"},
				{Kind: ArtifactHeaders, Pattern: "*.hpp", Root: RootSource, Dest: "include"},
			},
			Cleanup: []string{"*.pdb"},
		},
	}
}

func TestNew_CopiesDefinition(t *testing.T) {
	def := testDefinition()
	r := New(def)
	def.Topics[0] = "changed"
	def.Options["extra"] = options.Boolean

	got := r.Definition()
	if got.Topics[0] != "a" {
		t.Fatalf("Definition().Topics = %v, want unchanged", got.Topics)
	}
	if _, ok := got.Options["extra"]; ok {
		t.Fatalf("Definition().Options shares storage with the input")
	}
	if got.SrcFolder != "src" {
		t.Fatalf("Definition().SrcFolder = %q, want %q", got.SrcFolder, "src")
	}
	if r.Name() != "demo/1.0.0" {
		t.Fatalf("Name() = %q", r.Name())
	}
}

func TestRecipe_DefaultHooks(t *testing.T) {
	r := New(testDefinition())
	ctx := &Context{}

	deps, err := r.Require(&Project{})
	if err != nil || len(deps.Deps()) != 0 {
		t.Fatalf("Require() = %v, %v", deps, err)
	}
	base := filepath.Join(t.TempDir(), "b")
	if got := r.Layout(ctx, base); got.Source != filepath.Join(base, "src") {
		t.Fatalf("Layout().Source = %q", got.Source)
	}
	if err := r.Generate(ctx); err != nil {
		t.Fatal(err)
	}
	if err := r.Validate(ctx); err != nil {
		t.Fatal(err)
	}
	if err := r.PatchSources(ctx, &Project{}); err != nil {
		t.Fatal(err)
	}
	out := &BuildResult{}
	r.Build(ctx, &Project{}, out)
	if len(out.Errs()) != 0 {
		t.Fatal(out.Errs())
	}
	info := r.PackageInfo(ctx)
	if !reflect.DeepEqual(info.IncludeDirs, []string{"include"}) || !reflect.DeepEqual(info.LibDirs, []string{"lib"}) {
		t.Fatalf("PackageInfo() = %+v", info)
	}
}

func TestRecipe_Hooks(t *testing.T) {
	r := New(testDefinition())
	var calls []string
	r.OnConfigOptions(func(ctx *Context, opts *options.Set) {
		calls = append(calls, "config_options")
		opts.Remove("fPIC")
	})
	r.OnConfigure(func(ctx *Context, opts *options.Set) { calls = append(calls, "configure") })
	r.OnRequire(func(proj *Project, deps *ModuleDeps) {
		calls = append(calls, "require")
		deps.Require("dep", "latest")
	})
	r.OnValidate(func(ctx *Context) error {
		calls = append(calls, "validate")
		return pkgerrors.New(pkgerrors.KindValidation, "test", "nope")
	})
	r.OnPackageInfo(func(ctx *Context, info *CppInfo) {
		info.Libs = []string{"demo"}
	})

	ctx := &Context{}
	opts, err := options.New(r.Definition().Options, r.Definition().DefaultOptions)
	if err != nil {
		t.Fatal(err)
	}
	r.ConfigOptions(ctx, opts)
	r.Configure(ctx, opts)
	if opts.Has("fPIC") {
		t.Fatalf("fPIC not removed")
	}

	if _, err := r.Require(&Project{}); !errors.Is(err, pkgerrors.ErrConfiguration) {
		t.Fatalf("Require() = %v, want ConfigurationError", err)
	}
	if err := r.Validate(ctx); !errors.Is(err, pkgerrors.ErrValidation) {
		t.Fatalf("Validate() = %v, want ValidationError", err)
	}
	if got := r.PackageInfo(ctx).Libs; !reflect.DeepEqual(got, []string{"demo"}) {
		t.Fatalf("PackageInfo().Libs = %v", got)
	}
	want := []string{"config_options", "configure", "require", "validate"}
	if !reflect.DeepEqual(calls, want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
}

func TestRecipe_Metadata(t *testing.T) {
	r := New(testDefinition())
	md := r.Metadata()
	if md.APIVersion != APIVersion {
		t.Fatalf("APIVersion = %q", md.APIVersion)
	}
	var kinds []ArtifactKind
	for _, rule := range md.Package {
		kinds = append(kinds, rule.Kind)
	}
	wantKinds := []ArtifactKind{ArtifactLicense, ArtifactHeaders, ArtifactHeaders, ArtifactBinaries}
	if !reflect.DeepEqual(kinds, wantKinds) {
		t.Fatalf("Package kinds = %v, want %v", kinds, wantKinds)
	}
	if md.Package[1].Pattern != "*.h" || md.Package[2].Pattern != "*.hpp" {
		t.Fatalf("same-kind rules reordered: %v", md.Package)
	}

	data, err := yaml.Marshal(md)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"apiVersion: bzlpkg/v1", "name: demo", "kind: license", "root: build", "min_cppstd: 14"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("metadata YAML lacks %q:\n%s", want, data)
		}
	}
}

func TestDefinition_Matrix(t *testing.T) {
	m := testDefinition().Matrix()
	if got := m.CombinationCount(); got != 4 {
		t.Fatalf("CombinationCount() = %d, want 4", got)
	}
	if got := m.DefaultOptions["shared"]; !reflect.DeepEqual(got, []string{"shared=False"}) {
		t.Fatalf("DefaultOptions[shared] = %v", got)
	}
}

func TestCppInfo_PkgConfig(t *testing.T) {
	info := NewCppInfo()
	info.Libs = []string{"embag"}
	info.AddSystemLib("m")
	info.AddSystemLib("m")

	prefix := filepath.Join(string(filepath.Separator)+"pkg", "embag")
	want := "-I" + filepath.Join(prefix, "include") + " -L" + filepath.Join(prefix, "lib") + " -lembag -lm"
	if got := info.PkgConfig(prefix); got != want {
		t.Fatalf("PkgConfig() = %q, want %q", got, want)
	}
}

func TestCheckRequiredVersion(t *testing.T) {
	tests := []struct {
		constraint, version string
		ok                  bool
	}{
		{"", "0.0.1", true},
		{">=0.1.0", "0.1.0", true},
		{">=0.1.0", "1.2.3", true},
		{">=0.1.0", "0.0.9", false},
		{">1.0.0", "1.0.0", false},
		{"<2.0.0", "1.9.9", true},
		{"<=1.0.0", "1.0.1", false},
		{"==1.0.0", "1.0.0", true},
		{"1.0.0", "v1.0.0", true},
		{">=banana", "1.0.0", false},
		{">=1.0.0", "devel", false},
	}
	for _, tt := range tests {
		err := CheckRequiredVersion(tt.constraint, tt.version)
		if (err == nil) != tt.ok {
			t.Errorf("CheckRequiredVersion(%q, %q) = %v, want ok=%v", tt.constraint, tt.version, err, tt.ok)
		}
		if err != nil && !errors.Is(err, pkgerrors.ErrConfiguration) {
			t.Errorf("CheckRequiredVersion(%q, %q) = %v, want ConfigurationError", tt.constraint, tt.version, err)
		}
	}
}
