// Package transcription runs batch transcription jobs: upload, provider job,
// status polling and grouping of the finished transcript into utterances.
package transcription

import (
	"errors"
	"fmt"
)

// State represents the lifecycle state of a transcription job.
type State string

const (
	// StateSubmitted - Recording uploaded and provider job started.
	StateSubmitted State = "SUBMITTED"
	// StateInProgress - Provider reported the job as running.
	StateInProgress State = "IN_PROGRESS"
	// StateCompleted - Transcript fetched and grouped.
	StateCompleted State = "COMPLETED"
	// StateFailed - Provider failed the job or its output was unusable.
	StateFailed State = "FAILED"
	// StateCancelled - Polling stopped on request. Nothing is undone on the provider.
	StateCancelled State = "CANCELLED"
)

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// IsTerminal returns true for COMPLETED, FAILED and CANCELLED.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	switch s {
	case StateSubmitted, StateInProgress, StateCompleted, StateFailed, StateCancelled:
		return true
	}
	return false
}

// Errors for invalid state transitions.
var (
	ErrJobTerminal       = errors.New("job is in a terminal state")
	ErrInvalidTransition = errors.New("invalid job state transition")
)

// CanTransition checks a move from s to next.
//
// State transitions:
//
//	SUBMITTED → IN_PROGRESS → COMPLETED
//	    │            │
//	    │            ├──────→ FAILED
//	    │            └──────→ CANCELLED
//	    └── directly to COMPLETED, FAILED or CANCELLED
//
// Same-state moves are allowed and change nothing.
func (s State) CanTransition(next State) error {
	if !next.Valid() {
		return fmt.Errorf("%w: unknown state %q", ErrInvalidTransition, next)
	}
	if s == next {
		return nil
	}
	if s.IsTerminal() {
		return fmt.Errorf("%w: %s → %s", ErrJobTerminal, s, next)
	}
	switch s {
	case StateSubmitted:
		return nil
	case StateInProgress:
		if next != StateSubmitted {
			return nil
		}
	}
	return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, s, next)
}
