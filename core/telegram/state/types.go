package state

import "time"

// State identifies a finite-state-machine step used in conversations.
type State string

const (
	// StateIdle indicates there is no active conversation with the user.
	StateIdle State = "idle"
)

// Session is a snapshot of one user's conversation.
//
// Data is copied by value; slices inside it are shared with the stored
// session, so callers replace them instead of mutating in place.
type Session[T any] struct {
	State   State
	Data    T
	Touched time.Time
}

// Idle reports whether no conversation is active.
func (s Session[T]) Idle() bool {
	return s.State == "" || s.State == StateIdle
}
