package internal

import (
	"fmt"
	"path/filepath"

	"github.com/goplus/bzlpkg/pkgs/layout"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export <dir> [recipe[@version]]",
	Short: "Copy the exported sources of a recipe into a folder",
	Long: `Export copies the files of the recipe folder named by the recipe's export
manifest into dir, the way a source build receives them.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	r, err := loadRecipe(recipeArg(args[1:]))
	if err != nil {
		return err
	}
	src, err := filepath.Abs(flagRecipeDir)
	if err != nil {
		return fmt.Errorf("failed to resolve recipe dir: %w", err)
	}
	dst, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve export dir: %w", err)
	}

	exported, err := layout.ExportSources(src, r.Definition().ExportsSources, dst)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, p := range exported {
		rel, err := filepath.Rel(dst, p)
		if err != nil {
			rel = p
		}
		fmt.Fprintln(out, filepath.ToSlash(rel))
	}
	return nil
}
