package winloop

import (
	"sync/atomic"
)

// LoopState is the lifecycle state of a Loop, readable from any goroutine.
//
//	StateAwake → StateRunning          [RunReturn]
//	StateRunning ⇄ StateSleeping       [blocking WaitNext]
//	StateRunning → StateExiting        [ExitWithCode observed]
//	StateExiting → StateDestroyed      [teardown complete]
//	StateDestroyed → (terminal)
//
// Use TryTransition for Running and Sleeping, Store for Exiting and
// Destroyed, which are irreversible.
type LoopState uint64

const (
	StateAwake LoopState = iota
	StateRunning
	StateSleeping
	StateExiting
	StateDestroyed
)

func (s LoopState) String() string {
	switch s {
	case StateAwake:
		return "Awake"
	case StateRunning:
		return "Running"
	case StateSleeping:
		return "Sleeping"
	case StateExiting:
		return "Exiting"
	case StateDestroyed:
		return "Destroyed"
	default:
		return "Unknown"
	}
}

// fastState is a lock-free lifecycle cell, padded against false sharing with
// the producer-side mailbox fields.
type fastState struct { // betteralign:ignore
	_ [64]byte //nolint:unused
	v atomic.Uint64
	_ [56]byte //nolint:unused
}

func (s *fastState) Load() LoopState {
	return LoopState(s.v.Load())
}

func (s *fastState) Store(state LoopState) {
	s.v.Store(uint64(state))
}

func (s *fastState) TryTransition(from, to LoopState) bool {
	return s.v.CompareAndSwap(uint64(from), uint64(to))
}

// IsRunning returns true while the loop is dispatching or waiting.
func (s *fastState) IsRunning() bool {
	state := s.Load()
	return state == StateRunning || state == StateSleeping
}
