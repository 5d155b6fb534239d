package formula

import (
	"fmt"
	"path/filepath"

	pkgerrors "github.com/goplus/bzlpkg/pkgs/errors"
)

// ApplyPatches applies the recipe's patch files to the source root in
// order, running patch(1) through the recipe's shell. Patch paths are
// relative to the exported sources.
func (p *Recipe) ApplyPatches(ctx *Context) error {
	tool := ctx.Tool("patch")
	for _, name := range p.def.Patches {
		file := filepath.Join(ctx.Layout.ExportSources, filepath.FromSlash(name))
		out, err := p.Capout(func() {
			p.Exec__0(nil, tool, "-p1", "-N", "-s", "-d", ctx.Layout.Source, "-i", file)
		})
		if err != nil {
			return &pkgerrors.Error{
				Kind:   pkgerrors.KindBuild,
				Op:     "patch",
				Msg:    fmt.Sprintf("%s: exit code %d", name, p.ExitCode()),
				Output: out,
				Err:    err,
			}
		}
	}
	return nil
}
