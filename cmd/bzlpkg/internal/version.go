package internal

import (
	"fmt"

	"github.com/goplus/bzlpkg/internal/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the bzlpkg version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "bzlpkg", version.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
