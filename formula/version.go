package formula

import (
	"strings"

	pkgerrors "github.com/goplus/bzlpkg/pkgs/errors"
	"golang.org/x/mod/semver"
)

// CheckRequiredVersion reports a ConfigurationError unless version satisfies
// constraint. constraint is an operator (">=", ">", "<=", "<", "==") followed
// by a version, or a bare version meaning "==". An empty constraint always
// holds.
func CheckRequiredVersion(constraint, version string) error {
	constraint = strings.TrimSpace(constraint)
	if constraint == "" {
		return nil
	}
	op, want := "==", constraint
	for _, prefix := range []string{">=", "<=", "==", ">", "<"} {
		if strings.HasPrefix(constraint, prefix) {
			op, want = prefix, strings.TrimSpace(constraint[len(prefix):])
			break
		}
	}

	w, h := canonical(want), canonical(version)
	if !semver.IsValid(w) {
		return pkgerrors.New(pkgerrors.KindConfiguration, "required_version",
			"invalid constraint %q", constraint)
	}
	if !semver.IsValid(h) {
		return pkgerrors.New(pkgerrors.KindConfiguration, "required_version",
			"invalid host version %q", version)
	}

	c := semver.Compare(h, w)
	var ok bool
	switch op {
	case ">=":
		ok = c >= 0
	case "<=":
		ok = c <= 0
	case ">":
		ok = c > 0
	case "<":
		ok = c < 0
	default:
		ok = c == 0
	}
	if !ok {
		return pkgerrors.New(pkgerrors.KindConfiguration, "required_version",
			"host version %s does not satisfy %s", version, constraint)
	}
	return nil
}

func canonical(v string) string {
	return "v" + strings.TrimPrefix(v, "v")
}
