package approval

// validTransitions defines every status change the routing engine may
// persist. ESCALATED appears among its own targets: a non-admin approving
// an already escalated high-value expense routes it to an admin again.
var validTransitions = map[State][]State{
	StatePending: {
		StateApproved,
		StateRejected,
		StateEscalated,
	},
	StateEscalated: {
		StateApproved,
		StateRejected,
		StateEscalated,
	},
	StateApproved: {
		// Terminal state - no transitions allowed
	},
	StateRejected: {
		// Terminal state - no transitions allowed
	},
}

// CanTransition returns true if moving from one state to the other is a
// defined transition
func CanTransition(from, to State) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}
