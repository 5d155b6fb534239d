// Package buildsys defines what the engine expects from a build tool
// wrapper.
package buildsys

import "context"

// BuildSystem captures shared capabilities of build helpers (Bazel today).
// It keeps the common lifecycle and env setup; implementations add their
// own extras.
type BuildSystem interface {
	// Basic paths.
	Source(dir string)

	// Environment helper.
	Env(key, val string)

	// Lifecycle. Both block until the tool exits or ctx is done.
	Configure(ctx context.Context, args ...string) error
	Build(ctx context.Context, args ...string) error

	// Where artifacts land.
	OutputDir() string
}

// Generator writes files a build tool reads, such as toolchain or
// dependency descriptors.
type Generator interface {
	Generate() error
}
