package formula

import (
	"path/filepath"
	"slices"
	"strings"
)

// CppInfo is the consumer metadata of a C/C++ package: what to link and
// where to find it, relative to the package root.
type CppInfo struct {
	Libs        []string `json:"libs" yaml:"libs"`
	SystemLibs  []string `json:"system_libs,omitempty" yaml:"system_libs,omitempty"`
	Requires    []string `json:"requires,omitempty" yaml:"requires,omitempty"`
	IncludeDirs []string `json:"includedirs" yaml:"includedirs"`
	LibDirs     []string `json:"libdirs" yaml:"libdirs"`
}

// NewCppInfo returns a CppInfo with the conventional include and lib dirs.
func NewCppInfo() *CppInfo {
	return &CppInfo{
		IncludeDirs: []string{"include"},
		LibDirs:     []string{"lib"},
	}
}

// AddSystemLib appends lib unless it is already present.
func (c *CppInfo) AddSystemLib(lib string) {
	if !slices.Contains(c.SystemLibs, lib) {
		c.SystemLibs = append(c.SystemLibs, lib)
	}
}

// PkgConfig renders the compile and link flags of a package installed at
// prefix, in pkg-config --cflags --libs form.
func (c *CppInfo) PkgConfig(prefix string) string {
	var flags []string
	for _, dir := range c.IncludeDirs {
		flags = append(flags, "-I"+filepath.Join(prefix, dir))
	}
	for _, dir := range c.LibDirs {
		flags = append(flags, "-L"+filepath.Join(prefix, dir))
	}
	for _, lib := range c.Libs {
		flags = append(flags, "-l"+lib)
	}
	for _, lib := range c.SystemLibs {
		flags = append(flags, "-l"+lib)
	}
	return strings.Join(flags, " ")
}
