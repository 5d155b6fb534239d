package formula

import (
	"errors"
	"slices"

	pkgerrors "github.com/goplus/bzlpkg/pkgs/errors"
	"github.com/goplus/bzlpkg/pkgs/mod/module"
)

// ModuleDeps represents the dependencies of a module.
type ModuleDeps struct {
	deps  []module.Requirement
	tools []module.Version
	errs  []error
}

// Deps returns the collected module dependencies in declaration order.
func (p *ModuleDeps) Deps() []module.Requirement {
	return slices.Clone(p.deps)
}

// ToolDeps returns the collected build tool requirements.
func (p *ModuleDeps) ToolDeps() []module.Version {
	return slices.Clone(p.tools)
}

// Require declares that the module being built depends on the specified
// module (by its path and exact version). traits control what consumers of
// this module see of the dependency.
func (p *ModuleDeps) Require(path, ver string, traits ...module.Trait) {
	if err := module.CheckExact(ver); err != nil {
		p.errs = append(p.errs, pkgerrors.Wrap(pkgerrors.KindConfiguration, "require "+path, err))
		return
	}
	req := module.Requirement{Version: module.Version{Path: path, Version: ver}}
	for _, t := range traits {
		t(&req)
	}
	p.deps = append(p.deps, req)
}

// ToolRequire declares a tool needed to build the module. Tools are not
// linked and never visible to consumers.
func (p *ModuleDeps) ToolRequire(path, ver string) {
	if err := module.CheckExact(ver); err != nil {
		p.errs = append(p.errs, pkgerrors.Wrap(pkgerrors.KindConfiguration, "tool_require "+path, err))
		return
	}
	p.tools = append(p.tools, module.Version{Path: path, Version: ver})
}

// Err returns the declaration errors, joined.
func (p *ModuleDeps) Err() error {
	return errors.Join(p.errs...)
}
