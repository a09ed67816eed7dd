package compliance

import "fmt"

// ComplianceMode selects how aggressively decoding rejects ambiguity.
//
// Strict mode prefers explicit failure over silent acceptance: a
// publications file whose identifiers repeat or go backwards is refused.
// Permissive mode accepts such files and resolves lookups to the first
// matching entry found.
type ComplianceMode int

const (
	Permissive ComplianceMode = iota
	Strict
)

func (m ComplianceMode) String() string {
	switch m {
	case Permissive:
		return "permissive"
	case Strict:
		return "strict"
	default:
		return fmt.Sprintf("ComplianceMode(%d)", int(m))
	}
}

// ParseMode accepts the names returned by String. The empty string selects
// Permissive.
func ParseMode(s string) (ComplianceMode, error) {
	switch s {
	case "", "permissive":
		return Permissive, nil
	case "strict":
		return Strict, nil
	default:
		return Permissive, fmt.Errorf("unknown compliance mode %q", s)
	}
}
