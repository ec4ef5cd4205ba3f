package store

import "fmt"

// =============================================================================
// State Machine Definition
// =============================================================================

// State is the flush state of the store.
type State int32

const (
	// StateIdle: the backend holds the in-memory record.
	StateIdle State = iota

	// StateChanged: a mutation was applied; the debounce timer is armed.
	StateChanged

	// StateChangedWaiting: one extra tick that absorbs the initial arm.
	StateChangedWaiting

	// StateErasing: the record area is being erased.
	StateErasing

	// StateErasedWaiting: erase done, one tick before writing.
	StateErasedWaiting

	// StateErased: the timer is collapsed to every tick.
	StateErased

	// StateWriting: the snapshot is being programmed.
	StateWriting
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateChanged:
		return "changed"
	case StateChangedWaiting:
		return "changed_waiting"
	case StateErasing:
		return "erasing"
	case StateErasedWaiting:
		return "erased_waiting"
	case StateErased:
		return "erased"
	case StateWriting:
		return "writing"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Busy reports whether an erase/write cycle is in flight.
func (s State) Busy() bool {
	return s >= StateErasing
}

type stateTransition struct {
	from State
	to   State
}

// validTransitions defines all allowed state transitions.
var validTransitions = map[stateTransition]bool{
	{StateIdle, StateChanged}: true,

	{StateChanged, StateChangedWaiting}: true,
	{StateChangedWaiting, StateErasing}: true,
	{StateErasing, StateErasedWaiting}:  true,
	{StateErasedWaiting, StateErased}:   true,
	{StateErased, StateWriting}:         true,

	// Writing completes; Changed when the record moved on meanwhile.
	{StateWriting, StateIdle}:    true,
	{StateWriting, StateChanged}: true,
}

// Transition is one recorded state change, stamped with the timer clock.
type Transition struct {
	AtMs uint32
	From State
	To   State
}

// History returns the most recent transitions, oldest first.
func (s *Store) History() []Transition {
	return s.history.Snapshot()
}
