package formula

// Metadata is the versioned record describing a recipe to the host.
type Metadata struct {
	APIVersion string `json:"apiVersion" yaml:"apiVersion"`
	Identity   `yaml:",inline"`

	Settings        []string            `json:"settings" yaml:"settings"`
	Options         map[string][]string `json:"options" yaml:"options"`
	DefaultOptions  map[string]string   `json:"default_options" yaml:"default_options"`
	ExportsSources  []string            `json:"exports_sources" yaml:"exports_sources"`
	MinCppstd       int                 `json:"min_cppstd,omitempty" yaml:"min_cppstd,omitempty"`
	RequiredVersion string              `json:"required_version,omitempty" yaml:"required_version,omitempty"`
	BuildTarget     string              `json:"build_target,omitempty" yaml:"build_target,omitempty"`
	Package         []CopyRule          `json:"package" yaml:"package"`
	Cleanup         []string            `json:"cleanup,omitempty" yaml:"cleanup,omitempty"`
}

// Metadata returns the recipe's metadata record.
func (p *Recipe) Metadata() Metadata {
	def := p.Definition()
	opts := make(map[string][]string, len(def.Options))
	for name, allowed := range def.Options {
		opts[name] = allowed
	}
	return Metadata{
		APIVersion:      APIVersion,
		Identity:        def.Identity,
		Settings:        def.Settings,
		Options:         opts,
		DefaultOptions:  def.DefaultOptions,
		ExportsSources:  def.ExportsSources,
		MinCppstd:       def.MinCppstd,
		RequiredVersion: def.RequiredVersion,
		BuildTarget:     def.BuildTarget,
		Package:         def.Package.Ordered(),
		Cleanup:         def.Package.Cleanup,
	}
}
