package formula

import (
	"context"
	"io"
	"os"

	"github.com/goplus/bzlpkg/pkgs/layout"
	"github.com/goplus/bzlpkg/pkgs/mod/module"
	"github.com/goplus/bzlpkg/pkgs/options"
)

// Context carries the state of one build through the recipe hooks. The
// engine fills it phase by phase; hooks read it.
type Context struct {
	Settings Settings
	Options  *options.Set // nil until options are resolved
	Layout   layout.Descriptor

	Requires     []module.Requirement
	ToolRequires []module.Version

	// MinCppstd is the oldest C++ standard revision the recipe accepts.
	MinCppstd int

	// Tools maps a tool name such as "bazel" to the binary to run.
	Tools map[string]string

	// BuildResults holds the results of already built dependencies. Dir
	// of each result is the dependency's package root.
	BuildResults map[module.Version]BuildResult

	Stdout io.Writer
	Stderr io.Writer

	matrix Matrix
	cancel context.Context
}

// Project returns the project rooted at the source root of the build.
func (c *Context) Project() *Project {
	return &Project{DirFS: os.DirFS(c.Layout.Source), Dir: c.Layout.Source}
}

// Tool returns the binary configured for name, or name itself.
func (c *Context) Tool(name string) string {
	if bin := c.Tools[name]; bin != "" {
		return bin
	}
	return name
}

// Option returns the resolved value of an option, ok is false if the
// option does not exist.
func (c *Context) Option(name string) (string, bool) {
	if c.Options == nil {
		return "", false
	}
	return c.Options.Get(name)
}

// Context returns the context bounding blocking work of the current phase,
// such as running the build tool.
func (c *Context) Context() context.Context {
	if c.cancel == nil {
		return context.Background()
	}
	return c.cancel
}

// SetContext sets the context returned by Context.
func (c *Context) SetContext(ctx context.Context) {
	c.cancel = ctx
}

// CurrentMatrix returns the matrix of the configuration being built.
func (c *Context) CurrentMatrix() Matrix {
	return c.matrix
}

// SetCurrentMatrix sets the matrix of the configuration being built.
func (c *Context) SetCurrentMatrix(m Matrix) {
	c.matrix = m
}

// BuildResult returns the build result of a dependency.
func (c *Context) BuildResult(mod module.Version) (BuildResult, bool) {
	r, ok := c.BuildResults[mod]
	return r, ok
}

// AddBuildResult records the build result of a dependency.
func (c *Context) AddBuildResult(mod module.Version, r BuildResult) {
	if c.BuildResults == nil {
		c.BuildResults = make(map[module.Version]BuildResult)
	}
	c.BuildResults[mod] = r
}

// Stdio returns the output writers, defaulting to the process streams.
func (c *Context) Stdio() (stdout, stderr io.Writer) {
	stdout, stderr = c.Stdout, c.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return
}
