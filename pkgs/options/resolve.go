package options

// Hook edits a Set during resolution.
type Hook func(s *Set)

// Resolve computes the final option set of a build:
//
//  1. start from domain and defaults,
//  2. run configOptions (rules that depend only on the platform),
//  3. apply the explicit overrides of the invoking environment,
//  4. run configure (rules derived from resolved values),
//  5. freeze.
//
// An override naming an option removed in step 2 fails with a
// ConfigurationError. Nil hooks are skipped.
func Resolve(domain Domain, defaults, overrides map[string]string, configOptions, configure Hook) (*Set, error) {
	s, err := New(domain, defaults)
	if err != nil {
		return nil, err
	}
	if configOptions != nil {
		configOptions(s)
	}
	for _, name := range sortedKeys(overrides) {
		if err := s.Set(name, overrides[name]); err != nil {
			return nil, err
		}
	}
	if configure != nil {
		configure(s)
	}
	s.Freeze()
	return s, nil
}
