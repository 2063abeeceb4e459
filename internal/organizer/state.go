package organizer

// State is a step of the organizer state machine:
//
//	Idle → Bootstrapping → Scanning → Processing → {Succeeded | Failed | Aborted} → CleanedUp
//
// Aborted is entered straight from Bootstrapping when the output or workspace
// already exists. Failed may be entered from any step after Bootstrapping.
type State string

const (
	StateIdle          State = "idle"
	StateBootstrapping State = "bootstrapping"
	StateScanning      State = "scanning"
	StateProcessing    State = "processing"
	StateSucceeded     State = "succeeded"
	StateFailed        State = "failed"
	StateAborted       State = "aborted"
	StateCleanedUp     State = "cleaned_up"
)

// Terminal reports whether s is one of the run outcomes.
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateAborted:
		return true
	default:
		return false
	}
}
