package types

import "fmt"

// ExpirationMode governs whether unused prior-cycle credits survive a new
// cycle grant.
type ExpirationMode string

const (
	// ExpirationModeNever keeps the prior balance; credits simply stop
	// accruing past the rollover cap.
	ExpirationModeNever ExpirationMode = "never"
	// ExpirationModeEndOfCycle zeroes the prior balance on every grant.
	ExpirationModeEndOfCycle ExpirationMode = "end_of_cycle"
	// ExpirationModeRollingWindow is treated identically to end_of_cycle.
	// Kept as a distinct mode because plan configuration distinguishes them.
	ExpirationModeRollingWindow ExpirationMode = "rolling_window"
)

func (m ExpirationMode) Validate() error {
	switch m {
	case ExpirationModeNever, ExpirationModeEndOfCycle, ExpirationModeRollingWindow:
		return nil
	default:
		return fmt.Errorf("invalid expiration mode: %s", m)
	}
}

// Expires reports whether a grant under this mode replaces the prior balance.
func (m ExpirationMode) Expires() bool {
	return m == ExpirationModeEndOfCycle || m == ExpirationModeRollingWindow
}
