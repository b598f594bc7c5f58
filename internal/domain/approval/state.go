package approval

// State represents where an expense sits in the approval lifecycle.
// PENDING and ESCALATED both mean "awaiting a decision from the current
// approver"; ESCALATED additionally records that at least one escalation
// happened. APPROVED and REJECTED are terminal.
type State string

const (
	StatePending   State = "PENDING"
	StateEscalated State = "ESCALATED"
	StateApproved  State = "APPROVED"
	StateRejected  State = "REJECTED"
)

var validStates = map[State]bool{
	StatePending:   true,
	StateEscalated: true,
	StateApproved:  true,
	StateRejected:  true,
}

var terminalStates = map[State]bool{
	StateApproved: true,
	StateRejected: true,
}

// IsValid returns true if the state is a known lifecycle state
func (s State) IsValid() bool {
	return validStates[s]
}

// IsTerminal returns true if no further transition is defined for the state
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// AwaitingDecision returns true while an approver still has to act
func (s State) AwaitingDecision() bool {
	return s == StatePending || s == StateEscalated
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}
