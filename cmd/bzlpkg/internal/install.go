package internal

import (
	"fmt"

	"github.com/goplus/bzlpkg/internal/build"
	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install [recipe[@version]]",
	Short: "Generate the toolchain and dependency files of a recipe",
	Long: `Install resolves the configuration and layout of a recipe and writes the
generated Bazel files, without building. Point Bazel at the printed
folder to build by hand.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInstall,
}

func init() {
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	s, err := newSession(recipeArg(args), "")
	if err != nil {
		return err
	}
	opts, err := s.options(build.ToolchainGenerated)
	if err != nil {
		return err
	}

	res, err := s.builder.Run(cmd.Context(), s.recipe, opts)
	if ferr := s.finish(); err == nil {
		err = ferr
	}
	if err != nil {
		return fmt.Errorf("failed to install %s: %w", s.recipe.Name(), err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.Layout.Generators)
	return nil
}
