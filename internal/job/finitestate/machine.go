// Package finitestate provides the state machine that tracks a print
// job's processing lifecycle.
package finitestate

import (
	"log/slog"

	"github.com/robbyt/go-fsm"
)

// Job state constants
const (
	StateCreated    = "created"    // Initial state when the job is accepted
	StateExtracting = "extracting" // Containers are being opened and segmented
	StateAssembling = "assembling" // The looped script is being built and checked
	StatePackaged   = "packaged"   // Output container produced (terminal state)
	StateFailed     = "failed"     // Pipeline failure (terminal state)
	StateInvalid    = "invalid"    // Request rejected before any work (terminal state)
)

// JobTransitions defines the valid state transitions for a print job.
var JobTransitions = map[string][]string{
	StateCreated:    {StateExtracting, StateInvalid},
	StateExtracting: {StateAssembling, StateFailed},
	StateAssembling: {StatePackaged, StateFailed},

	// Terminal states
	StatePackaged: {},
	StateFailed:   {},
	StateInvalid:  {},
}

// Machine is the interface the job layer needs from the state machine.
// The abstraction keeps tests independent of the fsm implementation.
type Machine interface {
	// Transition attempts to transition the state machine to the specified state.
	Transition(state string) error

	// GetState returns the current state of the state machine.
	GetState() string
}

// New creates a job state machine starting in StateCreated.
func New(handler slog.Handler) (Machine, error) {
	return fsm.New(handler, StateCreated, JobTransitions)
}
