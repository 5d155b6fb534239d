// Package config loads build profiles: the settings, option overrides,
// dependency folders and tool paths of one build.
package config

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/goplus/bzlpkg/formula"
	"github.com/goplus/bzlpkg/pkgs/cppstd"
	pkgerrors "github.com/goplus/bzlpkg/pkgs/errors"
	"github.com/goplus/bzlpkg/pkgs/mod/module"
	"gopkg.in/yaml.v3"
)

// Profile is the YAML document describing a build configuration:
//
//	settings:
//	  os: Linux
//	  compiler.cppstd: "17"
//	options:
//	  shared: "True"
//	deps:
//	  boost/1.81.0: /opt/pkgs/boost
//	bazel: /usr/local/bin/bazelisk
type Profile struct {
	Settings formula.Settings  `yaml:"settings,omitempty"`
	Options  map[string]string `yaml:"options,omitempty"`
	// Deps maps a "path/version" reference to its package folder.
	Deps  map[string]string `yaml:"deps,omitempty"`
	Bazel string            `yaml:"bazel,omitempty"`
}

var buildTypes = []string{"Debug", "Release", "RelWithDebInfo", "MinSizeRel"}

// Load reads and validates a profile file. An empty path yields an empty
// profile.
func Load(path string) (*Profile, error) {
	if path == "" {
		return &Profile{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse decodes and validates a profile. name is used in messages.
func Parse(data []byte, name string) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.KindConfiguration, "profile",
			fmt.Errorf("parsing %s: %w", name, err))
	}
	if errs := Validate(&p); len(errs) > 0 {
		return nil, pkgerrors.Wrap(pkgerrors.KindConfiguration, "profile", &ValidationError{Errors: errs})
	}
	return &p, nil
}

// ValidationError holds multiple validation failures.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("profile validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Validate checks a Profile for semantic correctness.
// Returns a list of validation error messages (empty if valid).
func Validate(p *Profile) []string {
	var errs []string

	s := p.Settings
	if s.BuildType != "" && !slices.Contains(buildTypes, s.BuildType) {
		errs = append(errs, fmt.Sprintf("settings: invalid build_type '%s': must be one of %s",
			s.BuildType, strings.Join(buildTypes, ", ")))
	}
	if s.Cppstd != "" {
		if _, ok := cppstd.Year(s.Cppstd); !ok {
			errs = append(errs, fmt.Sprintf("settings: invalid compiler.cppstd '%s'", s.Cppstd))
		}
	}
	if s.CompilerVersion != "" && s.Compiler == "" {
		errs = append(errs, "settings: 'compiler.version' requires 'compiler'")
	}

	for _, name := range sortedKeys(p.Options) {
		if p.Options[name] == "" {
			errs = append(errs, fmt.Sprintf("option '%s': value is empty", name))
		}
	}

	for _, ref := range sortedKeys(p.Deps) {
		v, err := module.ParseRef(ref)
		if err != nil {
			errs = append(errs, fmt.Sprintf("deps: %v", err))
			continue
		}
		if err := module.CheckExact(v.Version); err != nil {
			errs = append(errs, fmt.Sprintf("deps '%s': %v", ref, err))
		}
		if p.Deps[ref] == "" {
			errs = append(errs, fmt.Sprintf("deps '%s': folder is empty", ref))
		}
	}

	return errs
}

// Apply merges "key=value" settings and option assignments from the command
// line into p. Command line values win.
func (p *Profile) Apply(settings, options []string) error {
	for _, kv := range settings {
		k, v, err := splitAssignment(kv)
		if err != nil {
			return err
		}
		if err := p.Settings.Set(k, v); err != nil {
			return pkgerrors.Wrap(pkgerrors.KindConfiguration, "profile", err)
		}
	}
	for _, kv := range options {
		k, v, err := splitAssignment(kv)
		if err != nil {
			return err
		}
		if p.Options == nil {
			p.Options = make(map[string]string)
		}
		p.Options[k] = v
	}
	if errs := Validate(p); len(errs) > 0 {
		return pkgerrors.Wrap(pkgerrors.KindConfiguration, "profile", &ValidationError{Errors: errs})
	}
	return nil
}

// DepFolders returns the dependency folders keyed by module version.
func (p *Profile) DepFolders() map[module.Version]string {
	out := make(map[module.Version]string, len(p.Deps))
	for ref, dir := range p.Deps {
		if v, err := module.ParseRef(ref); err == nil {
			out[v] = dir
		}
	}
	return out
}

func splitAssignment(kv string) (string, string, error) {
	k, v, ok := strings.Cut(kv, "=")
	k, v = strings.TrimSpace(k), strings.TrimSpace(v)
	if !ok || k == "" || v == "" {
		return "", "", pkgerrors.New(pkgerrors.KindConfiguration, "profile",
			"invalid assignment %q: want key=value", kv)
	}
	return k, v, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
