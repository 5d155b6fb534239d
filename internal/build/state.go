package build

import "fmt"

// State is a point in the recipe lifecycle. A build moves through the
// states in order; each phase advances it by exactly one.
type State int

const (
	Initial State = iota
	Declared
	Configured
	LayoutResolved
	ToolchainGenerated
	Validated
	Built
	Packaged
	MetadataExported
)

var stateNames = [...]string{
	"Initial",
	"Declared",
	"Configured",
	"LayoutResolved",
	"ToolchainGenerated",
	"Validated",
	"Built",
	"Packaged",
	"MetadataExported",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ParseState returns the state named s, case-sensitively.
func ParseState(s string) (State, error) {
	for i, name := range stateNames {
		if name == s {
			return State(i), nil
		}
	}
	return 0, fmt.Errorf("unknown state %q", s)
}
