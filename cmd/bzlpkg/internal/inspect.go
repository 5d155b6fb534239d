package internal

import (
	"encoding/json"
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	inspectJSON bool
	inspectDump bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [recipe[@version]]",
	Short: "Print the metadata record of a recipe",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "Print JSON instead of YAML")
	inspectCmd.Flags().BoolVar(&inspectDump, "dump", false, "Dump the recipe definition as Go values")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	r, err := loadRecipe(recipeArg(args))
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if inspectDump {
		cfg := spew.ConfigState{Indent: "  ", SortKeys: true, DisablePointerAddresses: true}
		cfg.Fdump(out, r.Definition())
		return nil
	}

	md := r.Metadata()
	if inspectJSON {
		data, err := json.MarshalIndent(md, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
	} else {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(md); err != nil {
			return err
		}
		if err := enc.Close(); err != nil {
			return err
		}
	}
	matrix := r.Definition().Matrix()
	fmt.Fprintf(cmd.ErrOrStderr(), "%d binary configurations per platform\n", matrix.CombinationCount())
	return nil
}
