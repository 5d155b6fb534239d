package formula

import (
	"fmt"
	"runtime"
	"slices"
)

// Setting keys.
const (
	SettingOS              = "os"
	SettingArch            = "arch"
	SettingCompiler        = "compiler"
	SettingCompilerVersion = "compiler.version"
	SettingCppstd          = "compiler.cppstd"
	SettingBuildType       = "build_type"
)

// Settings are the platform and toolchain axes a binary is built for.
// Values follow the host package manager's spelling ("Linux", "x86_64",
// "Release").
type Settings struct {
	OS              string `json:"os,omitempty" yaml:"os,omitempty"`
	Arch            string `json:"arch,omitempty" yaml:"arch,omitempty"`
	Compiler        string `json:"compiler,omitempty" yaml:"compiler,omitempty"`
	CompilerVersion string `json:"compiler.version,omitempty" yaml:"compiler.version,omitempty"`
	Cppstd          string `json:"compiler.cppstd,omitempty" yaml:"compiler.cppstd,omitempty"`
	BuildType       string `json:"build_type,omitempty" yaml:"build_type,omitempty"`
}

// DetectSettings returns the settings of the host.
func DetectSettings() Settings {
	s := Settings{
		OS:        osNames[runtime.GOOS],
		Arch:      archNames[runtime.GOARCH],
		BuildType: "Release",
	}
	if s.OS == "" {
		s.OS = runtime.GOOS
	}
	if s.Arch == "" {
		s.Arch = runtime.GOARCH
	}
	switch s.OS {
	case "Windows":
		s.Compiler = "msvc"
	case "Macos":
		s.Compiler = "apple-clang"
	default:
		s.Compiler = "gcc"
	}
	return s
}

var osNames = map[string]string{
	"linux":   "Linux",
	"darwin":  "Macos",
	"windows": "Windows",
	"freebsd": "FreeBSD",
	"android": "Android",
	"ios":     "iOS",
}

var archNames = map[string]string{
	"amd64":   "x86_64",
	"386":     "x86",
	"arm64":   "armv8",
	"arm":     "armv7",
	"ppc64le": "ppc64le",
	"s390x":   "s390x",
	"riscv64": "riscv64",
}

// Merge returns s with every empty field taken from def.
func (s Settings) Merge(def Settings) Settings {
	pick := func(a, b string) string {
		if a != "" {
			return a
		}
		return b
	}
	return Settings{
		OS:              pick(s.OS, def.OS),
		Arch:            pick(s.Arch, def.Arch),
		Compiler:        pick(s.Compiler, def.Compiler),
		CompilerVersion: pick(s.CompilerVersion, def.CompilerVersion),
		Cppstd:          pick(s.Cppstd, def.Cppstd),
		BuildType:       pick(s.BuildType, def.BuildType),
	}
}

func (s *Settings) field(key string) (*string, bool) {
	switch key {
	case SettingOS:
		return &s.OS, true
	case SettingArch:
		return &s.Arch, true
	case SettingCompiler:
		return &s.Compiler, true
	case SettingCompilerVersion:
		return &s.CompilerVersion, true
	case SettingCppstd:
		return &s.Cppstd, true
	case SettingBuildType:
		return &s.BuildType, true
	}
	return nil, false
}

// Get returns the value of a setting key such as "compiler.cppstd".
func (s Settings) Get(key string) (string, bool) {
	f, ok := s.field(key)
	if !ok {
		return "", false
	}
	return *f, true
}

// Set assigns a setting key.
func (s *Settings) Set(key, value string) error {
	f, ok := s.field(key)
	if !ok {
		return fmt.Errorf("unknown setting %q", key)
	}
	*f = value
	return nil
}

// Map returns the non-empty settings restricted to axes. Sub-settings of an
// axis ("compiler.version" under "compiler") are kept with their axis.
func (s Settings) Map(axes []string) map[string]string {
	out := make(map[string]string)
	for _, key := range []string{SettingOS, SettingArch, SettingCompiler, SettingCompilerVersion, SettingCppstd, SettingBuildType} {
		axis := key
		if key == SettingCompilerVersion || key == SettingCppstd {
			axis = SettingCompiler
		}
		if !slices.Contains(axes, axis) {
			continue
		}
		if v, _ := s.Get(key); v != "" {
			out[key] = v
		}
	}
	return out
}

// HasPIC reports whether the target platform has a position independent
// code concept.
func (s Settings) HasPIC() bool {
	return s.OS != "Windows"
}

// IsLinuxLike reports whether the target is a member of the Linux/BSD
// family.
func (s Settings) IsLinuxLike() bool {
	return s.OS == "Linux" || s.OS == "FreeBSD"
}
