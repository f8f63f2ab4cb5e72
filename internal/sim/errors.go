package sim

import "fmt"

// InvariantViolation is raised when an asserted runtime invariant —
// conservation, non-negativity, symmetric pairing — is violated. It is
// always fatal: the driver flushes telemetry before returning it.
type InvariantViolation struct {
	Tick      uint64
	Invariant string
	Detail    string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation at tick %d (%s): %s", e.Tick, e.Invariant, e.Detail)
}
