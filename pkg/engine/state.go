package engine

// State is where the engine is in a request's life.
type State int

const (
	// Idle has no pending request nor selection window.
	Idle State = iota
	// Predicting has a request queued or running.
	Predicting
	// AwaitingSelection has delivered a list and accepts a selection for it.
	AwaitingSelection
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Predicting:
		return "predicting"
	case AwaitingSelection:
		return "awaiting-selection"
	default:
		return "unknown"
	}
}
