package internal

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/goplus/bzlpkg/internal/build"
	"github.com/goplus/bzlpkg/internal/env"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the packages built in the workspace",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	dir, err := env.BuildsDir()
	if err != nil {
		return fmt.Errorf("failed to get workspace dir: %w", err)
	}
	builder, err := build.NewBuilder(dir, nil)
	if err != nil {
		return err
	}
	builds, err := builder.List()
	if err != nil {
		return err
	}
	return printBuilds(cmd, builds)
}

func printBuilds(cmd *cobra.Command, builds []build.CachedBuild) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "REFERENCE\tPACKAGE ID\tBUILT\tCONFIGURATION")
	for _, b := range builds {
		fmt.Fprintf(w, "%s/%s\t%s\t%s\t%s\n", b.Name, b.Version, b.PackageID, b.BuildTime.Format(time.DateTime), b.Matrix)
	}
	return w.Flush()
}
