// Package version holds the bzlpkg release version.
package version

// Version is the version of this build of bzlpkg, checked against the
// required version of recipes. It is set at link time with
//
//	-ldflags "-X github.com/goplus/bzlpkg/internal/version.Version=1.2.3"
var Version = "0.1.0"
