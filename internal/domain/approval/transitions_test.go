package approval

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from State
		to   State
		want bool
	}{
		{
			name: "pending to approved",
			from: StatePending,
			to:   StateApproved,
			want: true,
		},
		{
			name: "pending to rejected",
			from: StatePending,
			to:   StateRejected,
			want: true,
		},
		{
			name: "pending to escalated",
			from: StatePending,
			to:   StateEscalated,
			want: true,
		},
		{
			name: "escalated to approved",
			from: StateEscalated,
			to:   StateApproved,
			want: true,
		},
		{
			name: "escalated to rejected",
			from: StateEscalated,
			to:   StateRejected,
			want: true,
		},
		{
			name: "escalated can re-escalate",
			from: StateEscalated,
			to:   StateEscalated,
			want: true,
		},
		{
			name: "approved is terminal",
			from: StateApproved,
			to:   StatePending,
			want: false,
		},
		{
			name: "approved cannot be rejected",
			from: StateApproved,
			to:   StateRejected,
			want: false,
		},
		{
			name: "rejected is terminal",
			from: StateRejected,
			to:   StateApproved,
			want: false,
		},
		{
			name: "pending cannot loop to pending",
			from: StatePending,
			to:   StatePending,
			want: false,
		},
		{
			name: "unknown state has no transitions",
			from: State("UNKNOWN"),
			to:   StateApproved,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanTransition(tt.from, tt.to)
			if got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestStateIsTerminal(t *testing.T) {
	tests := []struct {
		state State
		want  bool
	}{
		{StatePending, false},
		{StateEscalated, false},
		{StateApproved, true},
		{StateRejected, true},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			if got := tt.state.IsTerminal(); got != tt.want {
				t.Errorf("IsTerminal(%s) = %v, want %v", tt.state, got, tt.want)
			}
		})
	}
}

func TestActionIsDecision(t *testing.T) {
	tests := []struct {
		action Action
		want   bool
	}{
		{ActionApprove, true},
		{ActionReject, true},
		{ActionSubmitted, false},
		{ActionEscalated, false},
		{Action("DELETE"), false},
	}

	for _, tt := range tests {
		t.Run(tt.action.String(), func(t *testing.T) {
			if got := tt.action.IsDecision(); got != tt.want {
				t.Errorf("IsDecision(%s) = %v, want %v", tt.action, got, tt.want)
			}
		})
	}
}
