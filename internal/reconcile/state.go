package reconcile

// State names the stage a pass is currently in. Passes move linearly from
// Idle through the stages and back to Idle; there is no reentry within a
// pass.
type State string

const (
	StateIdle               State = "idle"
	StateFetching           State = "fetching"
	StateNormalizing        State = "normalizing"
	StateMatching           State = "matching"
	StateDeduping           State = "deduping"
	StateTimestampAssigning State = "timestamp-assigning"
	StateSubmitting         State = "submitting"
	StateRecording          State = "recording"
	StatePruning            State = "pruning"
)
