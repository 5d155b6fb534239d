package internal

import (
	"fmt"

	"github.com/goplus/bzlpkg/formula"
	"github.com/goplus/bzlpkg/internal/build"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var infoCmd = &cobra.Command{
	Use:   "info [recipe[@version]]",
	Short: "Print the consumer metadata of a recipe without building",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

type infoOutput struct {
	Reference string            `yaml:"reference"`
	PackageID string            `yaml:"package_id"`
	Settings  formula.Settings  `yaml:"settings"`
	Options   map[string]string `yaml:"options"`
	CppInfo   *formula.CppInfo  `yaml:"cpp_info"`
	Package   string            `yaml:"package,omitempty"`
	Metadata  string            `yaml:"metadata,omitempty"`
}

func runInfo(cmd *cobra.Command, args []string) error {
	s, err := newSession(recipeArg(args), "")
	if err != nil {
		return err
	}
	opts, err := s.options(build.Configured)
	if err != nil {
		return err
	}
	opts.RecipeDir = ""

	info, res, err := s.builder.Info(cmd.Context(), s.recipe, opts)
	if ferr := s.finish(); err == nil {
		err = ferr
	}
	if err != nil {
		return err
	}

	def := s.recipe.Definition()
	out := infoOutput{
		Reference: s.recipe.Name(),
		PackageID: res.PackageID,
		Settings:  res.Settings,
		Options:   res.Options,
		CppInfo:   info,
	}
	if cached, ok := s.builder.Lookup(def.Name, def.Version, res.PackageID); ok {
		out.Package = cached.Dir
		out.Metadata = cached.Metadata
	}
	data, err := yaml.Marshal(out)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}
