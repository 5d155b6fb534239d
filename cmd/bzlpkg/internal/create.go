package internal

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goplus/bzlpkg/internal/build"
	"github.com/spf13/cobra"
)

var createOutput string

var createCmd = &cobra.Command{
	Use:   "create [recipe[@version]]",
	Short: "Build and package a recipe",
	Long: `Create runs the whole lifecycle of a recipe: it builds the library with
Bazel, assembles the package and prints the consumer metadata.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCreate,
}

func init() {
	createCmd.Flags().StringVar(&createOutput, "output", "", "Output path (directory, .zip or .tar.xz file)")
	rootCmd.AddCommand(createCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	// Resolve output path to absolute before build
	if createOutput != "" {
		abs, err := filepath.Abs(createOutput)
		if err != nil {
			return fmt.Errorf("failed to resolve output path: %w", err)
		}
		createOutput = abs
	}

	// When --output is specified, use a temp workspace so we don't pollute the cache
	var workspaceDir string
	if createOutput != "" {
		tmpDir, err := os.MkdirTemp("", "bzlpkg-create-*")
		if err != nil {
			return fmt.Errorf("failed to create temp workspace: %w", err)
		}
		defer os.RemoveAll(tmpDir)
		workspaceDir = tmpDir
	}

	s, err := newSession(recipeArg(args), workspaceDir)
	if err != nil {
		return err
	}
	opts, err := s.options(build.MetadataExported)
	if err != nil {
		return err
	}

	res, err := s.builder.Run(cmd.Context(), s.recipe, opts)
	if ferr := s.finish(); err == nil {
		err = ferr
	}
	if err != nil {
		return fmt.Errorf("failed to build %s: %w", s.recipe.Name(), err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s:%s\n", s.recipe.Name(), res.PackageID)
	for _, f := range res.Files {
		fmt.Fprintln(out, "  "+f)
	}
	fmt.Fprintln(out, res.Metadata)

	if createOutput != "" {
		if err := outputResult(res.Layout.Package, createOutput); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}
