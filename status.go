package launchagent

import (
	"fmt"
	"strconv"
)

// State represents the reconciled state of a launch agent
type State int

const (
	// StateNotLoaded means launchd does not know the agent
	StateNotLoaded State = iota
	// StateRunning means the agent has a live process
	StateRunning
	// StateLoaded means the agent is loaded but has no process and exited cleanly
	StateLoaded
	// StateError means the agent is loaded, has no process and last exited nonzero
	StateError
)

// State string constants
const (
	stateNotLoadedStr = "not_loaded"
	stateRunningStr   = "running"
	stateLoadedStr    = "loaded"
	stateErrorStr     = "error"
)

// String returns the string representation of a State
func (s State) String() string {
	switch s {
	case StateRunning:
		return stateRunningStr
	case StateLoaded:
		return stateLoadedStr
	case StateError:
		return stateErrorStr
	case StateNotLoaded:
		fallthrough
	default:
		return stateNotLoadedStr
	}
}

// ParseState maps a State string back to its value
func ParseState(s string) State {
	switch s {
	case stateRunningStr:
		return StateRunning
	case stateLoadedStr:
		return StateLoaded
	case stateErrorStr:
		return StateError
	default:
		return StateNotLoaded
	}
}

// Presentation color keys. Mapping a key to an actual color is left to the display layer.
const (
	ColorGreen  = "green"
	ColorYellow = "yellow"
	ColorGray   = "gray"
	ColorOrange = "orange"
)

// AgentStatus is the live status of an agent as reported by launchd.
// PID is set only for StateRunning; ExitCode only for StateLoaded and StateError.
type AgentStatus struct {
	State    State
	PID      int
	ExitCode int
}

// Running returns a status for an agent with a live process
func Running(pid int) AgentStatus {
	return AgentStatus{State: StateRunning, PID: pid}
}

// Loaded returns a status for a loaded agent without a process
func Loaded(exitCode int) AgentStatus {
	return AgentStatus{State: StateLoaded, ExitCode: exitCode}
}

// NotLoaded returns the status of an agent unknown to launchd
func NotLoaded() AgentStatus {
	return AgentStatus{State: StateNotLoaded}
}

// Errored returns a status for a loaded agent whose last run exited nonzero
func Errored(exitCode int) AgentStatus {
	return AgentStatus{State: StateError, ExitCode: exitCode}
}

// ParseStatus interprets the pid and exit-status columns of a launchctl list line.
// A live pid always wins over a recorded exit code.
func ParseStatus(pid, exitStatus string) AgentStatus {
	exitCode, err := strconv.Atoi(exitStatus)
	if err != nil {
		exitCode = 0
	}

	if pid != "-" {
		if n, err := strconv.Atoi(pid); err == nil && n > 0 {
			return Running(n)
		}
	}

	if exitCode != 0 {
		return Errored(exitCode)
	}
	return Loaded(exitCode)
}

// IsRunning reports whether the agent has a live process
func (s AgentStatus) IsRunning() bool {
	return s.State == StateRunning
}

// IsLoaded reports whether launchd knows the agent at all
func (s AgentStatus) IsLoaded() bool {
	return s.State != StateNotLoaded
}

// String returns the display text for the status
func (s AgentStatus) String() string {
	switch s.State {
	case StateRunning:
		return fmt.Sprintf("Running (PID: %d)", s.PID)
	case StateLoaded:
		return "Loaded (stopped)"
	case StateError:
		return fmt.Sprintf("Error (exit: %d)", s.ExitCode)
	default:
		return "Not loaded"
	}
}

// ColorKey returns the presentation color key for the status
func (s AgentStatus) ColorKey() string {
	switch s.State {
	case StateRunning:
		return ColorGreen
	case StateLoaded:
		return ColorYellow
	case StateError:
		return ColorOrange
	default:
		return ColorGray
	}
}
