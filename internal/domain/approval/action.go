package approval

// Action is an entry type in an expense's audit trail. SUBMITTED and
// ESCALATED are recorded by the engine itself; APPROVE and REJECT are
// the two decisions an actor can take.
type Action string

const (
	ActionSubmitted Action = "SUBMITTED"
	ActionApprove   Action = "APPROVE"
	ActionReject    Action = "REJECT"
	ActionEscalated Action = "ESCALATED"
)

// IsDecision returns true for the actions an approver may submit
func (a Action) IsDecision() bool {
	return a == ActionApprove || a == ActionReject
}

// String returns the string representation of the action
func (a Action) String() string {
	return string(a)
}
