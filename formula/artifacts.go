package formula

import (
	"fmt"
	"slices"
)

// ArtifactKind classifies a packaging rule. Rules run in kind order.
type ArtifactKind int

const (
	ArtifactLicense ArtifactKind = iota
	ArtifactHeaders
	ArtifactBinaries
)

var artifactKinds = [...]string{"license", "headers", "binaries"}

func (k ArtifactKind) String() string {
	if int(k) < len(artifactKinds) {
		return artifactKinds[k]
	}
	return fmt.Sprintf("ArtifactKind(%d)", int(k))
}

func (k ArtifactKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Root names the build root a rule copies from.
type Root int

const (
	RootSource Root = iota
	RootBuild
)

func (r Root) String() string {
	if r == RootBuild {
		return "build"
	}
	return "source"
}

func (r Root) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// CopyRule copies files matching Pattern below Root/Subdir to Dest in the
// package root.
type CopyRule struct {
	Kind    ArtifactKind `json:"kind" yaml:"kind"`
	Pattern string       `json:"pattern" yaml:"pattern"`
	Root    Root         `json:"root" yaml:"root"`
	Subdir  string       `json:"subdir,omitempty" yaml:"subdir,omitempty"`
	Dest    string       `json:"dest" yaml:"dest"`
}

// ArtifactSet describes how a package folder is assembled.
type ArtifactSet struct {
	Rules   []CopyRule
	Cleanup []string // patterns removed from the package root afterwards
}

func (a ArtifactSet) clone() ArtifactSet {
	return ArtifactSet{Rules: slices.Clone(a.Rules), Cleanup: slices.Clone(a.Cleanup)}
}

// Ordered returns the rules sorted by kind: licenses, then headers, then
// binaries. Rules of the same kind keep their declaration order.
func (a ArtifactSet) Ordered() []CopyRule {
	rules := slices.Clone(a.Rules)
	slices.SortStableFunc(rules, func(x, y CopyRule) int {
		return int(x.Kind) - int(y.Kind)
	})
	return rules
}
