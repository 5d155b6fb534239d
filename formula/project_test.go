package formula

import (
	"errors"
	"reflect"
	"testing"
	"testing/fstest"

	pkgerrors "github.com/goplus/bzlpkg/pkgs/errors"
	"github.com/goplus/bzlpkg/pkgs/mod/module"
)

func TestModuleDeps_Require(t *testing.T) {
	deps := &ModuleDeps{}

	deps.Require("boost", "1.81.0", module.TransitiveHeaders, module.TransitiveLibs)
	deps.Require("lz4", "1.9.4")

	want := []module.Requirement{
		{Version: module.Version{Path: "boost", Version: "1.81.0"}, TransitiveHeaders: true, TransitiveLibs: true},
		{Version: module.Version{Path: "lz4", Version: "1.9.4"}},
	}
	if got := deps.Deps(); !reflect.DeepEqual(got, want) {
		t.Fatalf("ModuleDeps.Deps() = %#v, want %#v", got, want)
	}
	if err := deps.Err(); err != nil {
		t.Fatalf("ModuleDeps.Err() = %v", err)
	}

	got := deps.Deps()
	got[0].Path = "changed"
	if deps.Deps()[0].Path != "boost" {
		t.Fatalf("ModuleDeps.Deps() returned shared storage")
	}
}

func TestModuleDeps_RejectsRanges(t *testing.T) {
	deps := &ModuleDeps{}
	deps.Require("boost", "[>=1.80 <2]")
	deps.ToolRequire("bazel", "6.x")

	if len(deps.Deps()) != 0 || len(deps.ToolDeps()) != 0 {
		t.Fatalf("ranges were recorded: %v %v", deps.Deps(), deps.ToolDeps())
	}
	if err := deps.Err(); !errors.Is(err, pkgerrors.ErrConfiguration) {
		t.Fatalf("ModuleDeps.Err() = %v, want ConfigurationError", err)
	}
}

func TestModuleDeps_ToolRequire(t *testing.T) {
	deps := &ModuleDeps{}
	deps.ToolRequire("bazel", "6.2.0")

	want := []module.Version{{Path: "bazel", Version: "6.2.0"}}
	if got := deps.ToolDeps(); !reflect.DeepEqual(got, want) {
		t.Fatalf("ModuleDeps.ToolDeps() = %#v, want %#v", got, want)
	}
	if len(deps.Deps()) != 0 {
		t.Fatalf("tool requirement leaked into Deps()")
	}
}

func TestBuildResult_ErrsAndMetadata(t *testing.T) {
	result := &BuildResult{}
	errA := errors.New("first")
	errB := errors.New("second")

	result.AddErr(errA)
	result.AddErr(errB)

	if got := result.Errs(); len(got) != 2 || got[0] != errA || got[1] != errB {
		t.Fatalf("BuildResult.Errs() = %#v, want [%v %v]", got, errA, errB)
	}

	if result.Metadata() != "" {
		t.Fatalf("BuildResult.Metadata() = %q, want empty string", result.Metadata())
	}
	result.SetMetadata("-lembag")
	if result.Metadata() != "-lembag" {
		t.Fatalf("BuildResult.Metadata() = %q, want %q", result.Metadata(), "-lembag")
	}
}

func TestProject_ReadFile(t *testing.T) {
	proj := &Project{
		DirFS: fstest.MapFS{
			"hello.txt": {Data: []byte("hello")},
		},
	}

	t.Run("existing file", func(t *testing.T) {
		got, err := proj.ReadFile("hello.txt")
		if err != nil {
			t.Fatalf("Project.ReadFile() error = %v", err)
		}
		if string(got) != "hello" {
			t.Fatalf("Project.ReadFile() = %q, want %q", string(got), "hello")
		}
		if !proj.Exists("hello.txt") {
			t.Fatalf("Project.Exists() = false, want true")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := proj.ReadFile("missing.txt"); err == nil {
			t.Fatalf("Project.ReadFile() error = nil, want error")
		}
		if proj.Exists("missing.txt") {
			t.Fatalf("Project.Exists() = true, want false")
		}
	})
}

func TestContext_CurrentMatrix(t *testing.T) {
	ctx := &Context{}
	matrix := MatrixOf(map[string]string{"os": "Linux"}, map[string]string{"shared": "False"})

	ctx.SetCurrentMatrix(matrix)
	if got := ctx.CurrentMatrix(); !reflect.DeepEqual(got, matrix) {
		t.Fatalf("Context.CurrentMatrix() = %#v, want %#v", got, matrix)
	}
}

func TestContext_BuildResult(t *testing.T) {
	ctx := &Context{}
	mod := module.Version{Path: "boost", Version: "1.81.0"}

	if _, ok := ctx.BuildResult(mod); ok {
		t.Fatalf("Context.BuildResult() ok = true, want false")
	}

	result := BuildResult{Dir: "/deps/boost"}
	result.SetMetadata("metadata")

	ctx.AddBuildResult(mod, result)
	got, ok := ctx.BuildResult(mod)
	if !ok {
		t.Fatalf("Context.BuildResult() ok = false, want true")
	}
	if got.Metadata() != "metadata" || got.Dir != "/deps/boost" {
		t.Fatalf("Context.BuildResult() = %+v", got)
	}
}

func TestContext_Tool(t *testing.T) {
	ctx := &Context{}
	if got := ctx.Tool("bazel"); got != "bazel" {
		t.Fatalf("Context.Tool() = %q, want %q", got, "bazel")
	}
	ctx.Tools = map[string]string{"bazel": "/opt/bazelisk"}
	if got := ctx.Tool("bazel"); got != "/opt/bazelisk" {
		t.Fatalf("Context.Tool() = %q, want %q", got, "/opt/bazelisk")
	}
	if _, ok := ctx.Option("shared"); ok {
		t.Fatalf("Context.Option() ok = true before resolution")
	}
}
