package system

import "fmt"

// Mode is the device mode of one boot cycle.
type Mode int

const (
	ModeBooting Mode = iota
	ModeProvisioning
	ModeOperational
)

func (m Mode) String() string {
	switch m {
	case ModeBooting:
		return "BOOTING"
	case ModeProvisioning:
		return "PROVISIONING"
	case ModeOperational:
		return "OPERATIONAL"
	default:
		return "UNKNOWN"
	}
}

// ValidateTransition checks a mode change. Provisioning and Operational are
// terminal; only a restart leaves them.
func ValidateTransition(from, to Mode) error {
	validTransitions := map[Mode][]Mode{
		ModeBooting:      {ModeProvisioning, ModeOperational},
		ModeProvisioning: {},
		ModeOperational:  {},
	}

	allowed, exists := validTransitions[from]
	if !exists {
		return fmt.Errorf("invalid current mode: %s", from)
	}

	for _, validTo := range allowed {
		if validTo == to {
			return nil
		}
	}

	return fmt.Errorf("invalid mode transition: %s -> %s", from, to)
}
