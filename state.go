package bulktransition

// State is a step of one invocation.
type State string

const (
	StateStart           State = "START"
	StateCapacityChecked State = "CAPACITY_CHECKED"
	StateFetched         State = "FETCHED"
	StateUsageRecorded   State = "USAGE_RECORDED"
	StateDispatched      State = "DISPATCHED"
	StateComplete        State = "COMPLETE"
	StateFailed          State = "FAILED"
)

var stateTransitions = map[State][]State{
	StateStart:           {StateCapacityChecked, StateFailed},
	StateCapacityChecked: {StateFetched, StateFailed},
	StateFetched:         {StateUsageRecorded, StateComplete, StateFailed},
	StateUsageRecorded:   {StateDispatched, StateFailed},
	StateDispatched:      {StateComplete, StateFailed},
}

// CanTransition reports whether next directly follows s.
//
// Backend errors may fail any non-terminal state.
func (s State) CanTransition(next State) bool {
	for _, allowed := range stateTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether s ends an invocation.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateFailed
}
