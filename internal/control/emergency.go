// Package control holds the emergency-stop switch the command center uses
// to halt FailoverAgent and DisputeAgent's periodic/event-driven loops
// within a one-second bound, without needing either agent to import the
// API package.
package control

import "sync/atomic"

// EmergencyStop is a process-wide halt flag. Zero value is "running".
type EmergencyStop struct {
	halted atomic.Bool
}

// Stop halts agent loops immediately.
func (e *EmergencyStop) Stop() { e.halted.Store(true) }

// Resume clears the halt.
func (e *EmergencyStop) Resume() { e.halted.Store(false) }

// Halted reports the current state.
func (e *EmergencyStop) Halted() bool { return e.halted.Load() }
