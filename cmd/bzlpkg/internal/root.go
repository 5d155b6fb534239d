package internal

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/goplus/bzlpkg/internal/log"
	"github.com/spf13/cobra"
)

var (
	flagProfile     string
	flagSettings    []string
	flagOptions     []string
	flagRecipeDir   string
	flagVerbose     bool
	flagMetricsFile string
)

var rootCmd = &cobra.Command{
	Use:   "bzlpkg",
	Short: "bzlpkg runs Bazel-built C/C++ recipes through their package lifecycle",
	Long: `bzlpkg drives a recipe through options, dependency declaration, layout,
toolchain generation, validation, the Bazel build, packaging and consumer
metadata export.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if flagVerbose {
			log.SetDebug(true)
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagProfile, "profile", "p", "", "Profile file (YAML)")
	pf.StringArrayVarP(&flagSettings, "settings", "s", nil, "Setting override, key=value")
	pf.StringArrayVarP(&flagOptions, "options", "o", nil, "Option override, key=value")
	pf.StringVar(&flagRecipeDir, "recipe-dir", ".", "Folder holding the recipe's exported sources")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging and build tool output")
	pf.StringVar(&flagMetricsFile, "metrics-file", "", "Write phase metrics to this file")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "bzlpkg:", err)
		stop()
		os.Exit(1)
	}
}
