package internal

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/goplus/bzlpkg/formula"
	"github.com/goplus/bzlpkg/internal/build"
	"github.com/goplus/bzlpkg/internal/config"
	"github.com/goplus/bzlpkg/internal/env"
	"github.com/goplus/bzlpkg/recipes/embag"
)

// recipes lists the recipes built into the binary.
var recipes = map[string]func() *formula.Recipe{
	"embag": embag.New,
}

func recipeNames() []string {
	names := make([]string, 0, len(recipes))
	for name := range recipes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// parseModuleArg parses a recipe argument in the form "name@version" or "name".
func parseModuleArg(arg string) (name, version string) {
	for i := len(arg) - 1; i >= 0; i-- {
		if arg[i] == '@' {
			return arg[:i], arg[i+1:]
		}
	}
	return arg, ""
}

// loadRecipe returns the recipe named by arg. An empty version matches the
// recipe's own version.
func loadRecipe(arg string) (*formula.Recipe, error) {
	name, version := parseModuleArg(arg)
	newRecipe, ok := recipes[name]
	if !ok {
		return nil, fmt.Errorf("unknown recipe %q; available recipes are %v", name, recipeNames())
	}
	r := newRecipe()
	if def := r.Definition(); version != "" && version != def.Version {
		return nil, fmt.Errorf("recipe %s has version %s, not %s", name, def.Version, version)
	}
	return r, nil
}

// session is the state shared by the commands that run a recipe.
type session struct {
	recipe  *formula.Recipe
	profile *config.Profile
	builder *build.Builder
	metrics *build.Metrics
}

// newSession loads the recipe and profile and opens the builder on
// workspaceDir, or on the default workspace when empty.
func newSession(arg, workspaceDir string) (*session, error) {
	r, err := loadRecipe(arg)
	if err != nil {
		return nil, err
	}
	profile, err := config.Load(flagProfile)
	if err != nil {
		return nil, err
	}
	if err := profile.Apply(flagSettings, flagOptions); err != nil {
		return nil, err
	}
	if workspaceDir == "" {
		if workspaceDir, err = env.BuildsDir(); err != nil {
			return nil, fmt.Errorf("failed to get workspace dir: %w", err)
		}
	}

	metrics := build.NewMetrics()
	builder, err := build.NewBuilder(workspaceDir, metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create builder: %w", err)
	}
	return &session{recipe: r, profile: profile, builder: builder, metrics: metrics}, nil
}

// options returns the run options for the session.
func (s *session) options(until build.State) (build.Options, error) {
	opts := build.Options{
		Profile: s.profile,
		Until:   until,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if flagVerbose {
		opts.Stdout, opts.Stderr = os.Stdout, os.Stderr
	}
	if flagRecipeDir != "" {
		dir, err := filepath.Abs(flagRecipeDir)
		if err != nil {
			return opts, fmt.Errorf("failed to resolve recipe dir: %w", err)
		}
		opts.RecipeDir = dir
	}
	return opts, nil
}

// finish writes the metrics file if one was requested.
func (s *session) finish() error {
	if flagMetricsFile == "" {
		return nil
	}
	if err := s.metrics.WriteFile(flagMetricsFile); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}

func recipeArg(args []string) string {
	if len(args) == 0 {
		return "embag"
	}
	return args[0]
}
