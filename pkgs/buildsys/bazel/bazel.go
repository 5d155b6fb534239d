// Package bazel drives Bazel builds: it generates the toolchain and
// dependency files Bazel reads and invokes the bazel binary.
package bazel

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/goplus/bzlpkg/formula"
	"github.com/goplus/bzlpkg/pkgs/buildsys"
	pkgerrors "github.com/goplus/bzlpkg/pkgs/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/execabs"
)

// EnvBinary overrides the bazel binary when the context names none.
const EnvBinary = "BAZEL"

// Bazel wraps the bazel command line for one build.
type Bazel struct {
	ctx       *formula.Context
	SourceDir string
	bin       string
	env       map[string]string

	configured bool
}

var _ buildsys.BuildSystem = (*Bazel)(nil)

// New creates a Bazel helper running in the source root of ctx.
func New(ctx *formula.Context) *Bazel {
	b := &Bazel{
		ctx:       ctx,
		SourceDir: ctx.Layout.Source,
		env:       map[string]string{},
	}
	b.bin = ctx.Tool("bazel")
	if ctx.Tools["bazel"] == "" {
		if bin := os.Getenv(EnvBinary); bin != "" {
			b.bin = bin
		}
	}
	return b
}

func (b *Bazel) Source(dir string) {
	b.SourceDir = dir
}

func (b *Bazel) Env(key, value string) {
	b.env[key] = value
}

// Version returns the Bazel version pinned for the build: the bazel tool
// requirement if declared, else the .bazelversion of the sources.
func (b *Bazel) Version() string {
	for _, tool := range b.ctx.ToolRequires {
		if tool.Path == "bazel" {
			return tool.Version
		}
	}
	data, err := b.ctx.Project().ReadFile(".bazelversion")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// Configure bootstraps the tool by running "bazel version". It runs once;
// later calls return nil.
func (b *Bazel) Configure(ctx context.Context, args ...string) error {
	if b.configured {
		return nil
	}
	if v := b.Version(); v != "" {
		b.Env("USE_BAZEL_VERSION", v)
	}
	if _, err := b.run(ctx, "bazel.configure", append([]string{"version"}, args...)); err != nil {
		return err
	}
	b.configured = true
	return nil
}

// Build builds targets with the generated toolchain config. Convenience
// symlinks are placed in the build root so the source root stays clean.
func (b *Bazel) Build(ctx context.Context, targets ...string) error {
	if len(targets) == 0 {
		return pkgerrors.New(pkgerrors.KindBuild, "bazel.build", "no target")
	}
	l := b.ctx.Layout
	args := []string{
		"--bazelrc=" + filepath.Join(l.Generators, RCFile),
		"build",
		"--config=" + Config,
		"--symlink_prefix=" + filepath.Join(l.Build, "bazel-"),
	}
	args = append(args, targets...)
	_, err := b.run(ctx, "bazel.build", args)
	return err
}

// OutputDir returns the bazel-bin folder in the build root.
func (b *Bazel) OutputDir() string {
	return filepath.Join(b.ctx.Layout.Build, "bazel-bin")
}

// run executes bazel in the source root. Output is streamed to the context
// writers and captured; a failure carries the captured output verbatim.
func (b *Bazel) run(ctx context.Context, op string, args []string) (string, error) {
	path, err := execabs.LookPath(b.bin)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.KindBuild, op, err)
	}

	cmd := execabs.CommandContext(ctx, path, args...)
	cmd.Dir = b.SourceDir
	cmd.Env = mergeEnv(os.Environ(), b.env)

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.KindBuild, op, err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.KindBuild, op, err)
	}
	if err := cmd.Start(); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.KindBuild, op, err)
	}

	var captured lockedBuffer
	stdout, stderr := b.ctx.Stdio()
	var g errgroup.Group
	g.Go(func() error {
		_, err := io.Copy(io.MultiWriter(stdout, &captured), stdoutPipe)
		return err
	})
	g.Go(func() error {
		_, err := io.Copy(io.MultiWriter(stderr, &captured), stderrPipe)
		return err
	})
	copyErr := g.Wait()
	waitErr := cmd.Wait()

	out := captured.String()
	if waitErr != nil {
		msg := fmt.Sprintf("%s %s failed", filepath.Base(path), strings.Join(args, " "))
		if ctxErr := ctx.Err(); ctxErr != nil {
			waitErr = errors.Join(waitErr, ctxErr)
		}
		return out, &pkgerrors.Error{
			Kind:   pkgerrors.KindBuild,
			Op:     op,
			Msg:    msg,
			Output: out,
			Err:    waitErr,
		}
	}
	if copyErr != nil {
		return out, pkgerrors.Wrap(pkgerrors.KindBuild, op, copyErr)
	}
	return out, nil
}

// lockedBuffer is a bytes.Buffer shared by the stdout and stderr copiers.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (l *lockedBuffer) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.Write(p)
}

func (l *lockedBuffer) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.String()
}

func mergeEnv(base []string, override map[string]string) []string {
	envMap := make(map[string]string, len(base))
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok {
			envMap[k] = v
		}
	}
	for k, v := range override {
		envMap[k] = v
	}
	keys := make([]string, 0, len(envMap))
	for k := range envMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+envMap[k])
	}
	return out
}
