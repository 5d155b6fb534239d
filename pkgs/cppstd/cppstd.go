// Package cppstd compares C++ language standard revisions.
package cppstd

import (
	"fmt"
	"strings"

	pkgerrors "github.com/goplus/bzlpkg/pkgs/errors"
)

// revisions maps the two-digit spelling of each published C++ standard to
// its year.
var revisions = map[string]int{
	"98": 1998,
	"03": 2003,
	"11": 2011,
	"14": 2014,
	"17": 2017,
	"20": 2020,
	"23": 2023,
	"26": 2026,
}

// Year returns the revision year of a cppstd setting value such as "14",
// "gnu17" or "98". ok is false for values that are not a known revision.
func Year(value string) (year int, ok bool) {
	year, ok = revisions[strings.TrimPrefix(strings.ToLower(value), "gnu")]
	return
}

// IsGNU reports whether value selects the GNU dialect.
func IsGNU(value string) bool {
	return strings.HasPrefix(strings.ToLower(value), "gnu")
}

// Flag returns the compiler flag value for a standard, e.g. "c++14" or
// "gnu++17".
func Flag(value string) string {
	v := strings.TrimPrefix(strings.ToLower(value), "gnu")
	if IsGNU(value) {
		return "gnu++" + v
	}
	return "c++" + v
}

// CheckMin fails with a ValidationError when current is set and older than
// min. An empty current or a zero min skips the check; the standard is
// never inferred. A min that is not a known revision is an error.
func CheckMin(current string, min int) error {
	if current == "" {
		return nil
	}
	have, ok := Year(current)
	if !ok {
		return pkgerrors.New(pkgerrors.KindValidation, "cppstd",
			"unknown compiler standard %q", current)
	}
	if min == 0 {
		return nil
	}
	want, ok := 0, false
	if min >= 0 && min < 100 {
		want, ok = Year(fmt.Sprintf("%02d", min))
	}
	if !ok {
		return pkgerrors.New(pkgerrors.KindValidation, "cppstd",
			"unknown minimum compiler standard %d", min)
	}
	if have < want {
		return pkgerrors.New(pkgerrors.KindValidation, "cppstd",
			"compiler standard too low: %s, requires at least %d", current, min)
	}
	return nil
}
