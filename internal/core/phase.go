package core

import "fmt"

// Phase represents a stage of the trading day.
type Phase string

const (
	// PhasePreMarket covers system checks and risk setup before the
	// market opens. It loops on itself until the open predicate is true.
	PhasePreMarket Phase = "pre_market"

	// PhaseSessionOpen is the initial analysis window right after open:
	// market structure, trend and strength/weakness are established.
	PhaseSessionOpen Phase = "session_open"

	// PhaseActiveTrading is the main window where setups are scanned,
	// entries placed and open trades managed.
	PhaseActiveTrading Phase = "active_trading"

	// PhasePostMarket runs after the session window closes: performance
	// analytics and the session review.
	PhasePostMarket Phase = "post_market"

	// PhaseShutdown is the terminal state. It has no outgoing edges and
	// no step chain — it signals "session fully done".
	PhaseShutdown Phase = "shutdown"
)

// AllPhases returns all phases in execution order.
func AllPhases() []Phase {
	return []Phase{PhasePreMarket, PhaseSessionOpen, PhaseActiveTrading, PhasePostMarket, PhaseShutdown}
}

// PhaseOrder returns the numeric order of a phase (0-indexed).
func PhaseOrder(p Phase) int {
	switch p {
	case PhasePreMarket:
		return 0
	case PhaseSessionOpen:
		return 1
	case PhaseActiveTrading:
		return 2
	case PhasePostMarket:
		return 3
	case PhaseShutdown:
		return 4
	default:
		return -1
	}
}

// NextPhase returns the phase following the given phase.
// Returns empty string if the phase is terminal.
func NextPhase(p Phase) Phase {
	switch p {
	case PhasePreMarket:
		return PhaseSessionOpen
	case PhaseSessionOpen:
		return PhaseActiveTrading
	case PhaseActiveTrading:
		return PhasePostMarket
	case PhasePostMarket:
		return PhaseShutdown
	default:
		return ""
	}
}

// PrevPhase returns the phase preceding the given phase.
// Returns empty string if the phase is the first.
func PrevPhase(p Phase) Phase {
	switch p {
	case PhaseSessionOpen:
		return PhasePreMarket
	case PhaseActiveTrading:
		return PhaseSessionOpen
	case PhasePostMarket:
		return PhaseActiveTrading
	case PhaseShutdown:
		return PhasePostMarket
	default:
		return ""
	}
}

// ValidPhase checks if a phase string is valid.
func ValidPhase(p Phase) bool {
	switch p {
	case PhasePreMarket, PhaseSessionOpen, PhaseActiveTrading, PhasePostMarket, PhaseShutdown:
		return true
	default:
		return false
	}
}

// ValidTransition reports whether moving from one phase to another is
// legal: forward by exactly one, the pre-market self-loop, or an
// emergency short-circuit to shutdown.
func ValidTransition(from, to Phase) bool {
	if from == PhasePreMarket && to == PhasePreMarket {
		return true
	}
	if to == PhaseShutdown && ValidPhase(from) {
		return true
	}
	return NextPhase(from) == to
}

// ParsePhase converts a string to a Phase with validation.
func ParsePhase(s string) (Phase, error) {
	p := Phase(s)
	if !ValidPhase(p) {
		return "", fmt.Errorf("invalid phase: %s", s)
	}
	return p, nil
}

// String returns the string representation of the phase.
func (p Phase) String() string {
	return string(p)
}

// Description returns a human-readable description of the phase.
func (p Phase) Description() string {
	switch p {
	case PhasePreMarket:
		return "System checks and risk setup before market open"
	case PhaseSessionOpen:
		return "Initial market structure and trend analysis"
	case PhaseActiveTrading:
		return "Scan setups, execute entries and manage trades"
	case PhasePostMarket:
		return "Performance analytics and session review"
	case PhaseShutdown:
		return "Session completed"
	default:
		return "Unknown phase"
	}
}
