// Package options implements the option model of a recipe: a domain of
// allowed values per option and the currently selected value of each.
package options

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/agnivade/levenshtein"

	pkgerrors "github.com/goplus/bzlpkg/pkgs/errors"
)

// Common option values.
const (
	True  = "True"
	False = "False"
)

// Boolean is the domain of a True/False option.
var Boolean = []string{True, False}

// Domain maps an option name to its allowed values.
type Domain map[string][]string

// Clone returns a deep copy of d.
func (d Domain) Clone() Domain {
	out := make(Domain, len(d))
	for k, v := range d {
		out[k] = slices.Clone(v)
	}
	return out
}

// Set is the option state of one build. It is mutable until Freeze is
// called.
type Set struct {
	domain Domain
	values map[string]string
	frozen bool
}

// New returns a Set over a copy of domain with every option selected to
// its default. An option without a default selects the first allowed value.
func New(domain Domain, defaults map[string]string) (*Set, error) {
	s := &Set{domain: domain.Clone(), values: make(map[string]string, len(domain))}
	for name, allowed := range s.domain {
		if len(allowed) == 0 {
			return nil, pkgerrors.New(pkgerrors.KindConfiguration, "options.new", "option %q has an empty domain", name)
		}
		s.values[name] = allowed[0]
	}
	for _, name := range sortedKeys(defaults) {
		if err := s.Set(name, defaults[name]); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Has reports whether name is part of the set.
func (s *Set) Has(name string) bool {
	_, ok := s.domain[name]
	return ok
}

// Get returns the selected value of name.
func (s *Set) Get(name string) (string, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Bool reports whether name is present and selected to True.
func (s *Set) Bool(name string) bool {
	v, ok := s.values[name]
	return ok && v == True
}

// Names returns the option names in sorted order.
func (s *Set) Names() []string {
	return sortedKeys(s.domain)
}

// Allowed returns the allowed values of name.
func (s *Set) Allowed(name string) []string {
	return slices.Clone(s.domain[name])
}

// Values returns a copy of the selected values.
func (s *Set) Values() map[string]string {
	return maps.Clone(s.values)
}

// Frozen reports whether the set rejects further changes.
func (s *Set) Frozen() bool {
	return s.frozen
}

// Set selects value for option name. The value is matched against the
// domain case-insensitively and stored in the domain's spelling.
func (s *Set) Set(name, value string) error {
	if s.frozen {
		return pkgerrors.New(pkgerrors.KindConfiguration, "options.set", "cannot set option %q: options are frozen", name)
	}
	allowed, ok := s.domain[name]
	if !ok {
		return s.unknown(name)
	}
	for _, v := range allowed {
		if strings.EqualFold(v, value) {
			s.values[name] = v
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.KindConfiguration, "options.set",
		"%q is not a valid value for option %q; possible values are %v", value, name, allowed)
}

// Remove drops name from the set. Removing an absent option, or removing
// from a frozen set, is a no-op.
func (s *Set) Remove(name string) {
	if s.frozen {
		return
	}
	delete(s.domain, name)
	delete(s.values, name)
}

// Freeze makes the set immutable.
func (s *Set) Freeze() {
	s.frozen = true
}

// String renders the selection as "a=x, b=y" in name order.
func (s *Set) String() string {
	parts := make([]string, 0, len(s.values))
	for _, name := range sortedKeys(s.values) {
		parts = append(parts, name+"="+s.values[name])
	}
	return strings.Join(parts, ", ")
}

func (s *Set) unknown(name string) error {
	names := s.Names()
	msg := fmt.Sprintf("option %q doesn't exist; possible options are %v", name, names)
	if hint := closest(name, names); hint != "" {
		msg += fmt.Sprintf(", did you mean %q?", hint)
	}
	return &pkgerrors.Error{Kind: pkgerrors.KindConfiguration, Op: "options.set", Msg: msg}
}

// closest returns the candidate within edit distance 2 of name, if any.
func closest(name string, candidates []string) string {
	best, bestDist := "", 3
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(strings.ToLower(name), strings.ToLower(c))
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
