package matchhub

import (
	"errors"
	"sync"
)

// State is a participant's local view over the matchmaking queue.
type State string

const (
	StateIdle    State = "idle"
	StateJoining State = "joining"
	StateWaiting State = "waiting"
	StateMatched State = "matched"
	StateError   State = "error"
)

// ErrInvalidTransition is returned when a state change is not legal.
var ErrInvalidTransition = errors.New("invalid state transition")

// StateMachine tracks one participant's projection of the queue:
// idle -> joining -> waiting -> matched | error, with leave returning to
// idle. It owns no shared state; duplicate event delivery is harmless
// because every transition is idempotent.
type StateMachine struct {
	mu        sync.Mutex
	state     State
	sessionID string
	lastErr   error
}

func NewStateMachine() *StateMachine {
	return &StateMachine{state: StateIdle}
}

func (sm *StateMachine) State() State {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.state
}

func (sm *StateMachine) SessionID() string {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.sessionID
}

func (sm *StateMachine) Err() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.lastErr
}

// Begin starts a join. Legal from idle and error (join is retryable after a
// failure); a repeat call while already joining or waiting is a no-op.
func (sm *StateMachine) Begin() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	switch sm.state {
	case StateIdle, StateError:
		sm.state = StateJoining
		sm.lastErr = nil
		return nil
	case StateJoining, StateWaiting:
		return nil
	}
	return ErrInvalidTransition
}

// ToWaiting records a successful queue insert. A late waiting event arriving
// after the match is ignored.
func (sm *StateMachine) ToWaiting() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	switch sm.state {
	case StateJoining, StateWaiting:
		sm.state = StateWaiting
		return nil
	case StateMatched:
		return nil
	}
	return ErrInvalidTransition
}

// ToMatched records the pairing outcome. Duplicate delivery of the same
// session is a no-op; a second, different session is rejected.
func (sm *StateMachine) ToMatched(sessionID string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.state == StateMatched {
		if sm.sessionID == sessionID {
			return nil
		}
		return ErrInvalidTransition
	}
	switch sm.state {
	case StateJoining, StateWaiting:
		sm.state = StateMatched
		sm.sessionID = sessionID
		return nil
	}
	return ErrInvalidTransition
}

// Fail surfaces a join failure. The participant can retry by joining again.
func (sm *StateMachine) Fail(err error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.state == StateMatched {
		return
	}
	sm.state = StateError
	sm.lastErr = err
}

// Reset returns the projection to idle, e.g. after an explicit leave or when
// the session ends. Resetting an already idle machine is a no-op.
func (sm *StateMachine) Reset() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.state = StateIdle
	sm.sessionID = ""
	sm.lastErr = nil
}
