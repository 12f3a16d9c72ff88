package state

type ActionStatus string

const (
	StatusPending   ActionStatus = "pending"
	StatusSyncing   ActionStatus = "syncing"
	StatusSucceeded ActionStatus = "succeeded"
	StatusFailed    ActionStatus = "failed"
	StatusAbandoned ActionStatus = "abandoned"
)

type StateTransition struct {
	From ActionStatus
	To   ActionStatus
}

// ValidTransitions is the full status state machine. Succeeded is terminal:
// the action leaves the queue and becomes an immutable history record.
// Abandoned is terminal for the executor; an explicit operator resurrection
// is the only path back to pending once dispatch has been attempted.
// A dispatch failure that exhausts the retry budget parks the syncing item
// directly as abandoned, without passing through failed.
var ValidTransitions = []StateTransition{
	{From: StatusPending, To: StatusSyncing},
	{From: StatusSyncing, To: StatusSucceeded},
	{From: StatusSyncing, To: StatusFailed},
	{From: StatusSyncing, To: StatusAbandoned},
	{From: StatusFailed, To: StatusSyncing},
	{From: StatusFailed, To: StatusAbandoned},
	{From: StatusAbandoned, To: StatusPending},
}

func IsValidTransition(from, to ActionStatus) bool {
	for _, t := range ValidTransitions {
		if t.From == from && t.To == to {
			return true
		}
	}
	return false
}

// Eligible reports whether an action in this status should be picked up by
// the next executor pass. Pending and failed are treated identically.
func Eligible(s ActionStatus) bool {
	return s == StatusPending || s == StatusFailed
}
