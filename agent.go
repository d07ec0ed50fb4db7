package launchagent

import (
	"path/filepath"
	"strings"
)

// LogStream selects one of an agent's log files
type LogStream int

const (
	// Stdout selects StandardOutPath
	Stdout LogStream = iota
	// Stderr selects StandardErrorPath
	Stderr
)

// String returns the stream name
func (s LogStream) String() string {
	if s == Stderr {
		return "stderr"
	}
	return "stdout"
}

// LaunchAgent is one descriptor merged with its live status.
// Label identifies the agent; only Status changes after parsing.
type LaunchAgent struct {
	// Label is the launchd identity of the agent
	Label string `json:"label" yaml:"label"`
	// Path is the descriptor file location
	Path string `json:"path" yaml:"path"`
	// ProgramArguments is the invocation; the first element is the executable
	ProgramArguments []string `json:"program_arguments" yaml:"program_arguments"`
	// Schedule is derived once when the descriptor is parsed
	Schedule ScheduleType `json:"-" yaml:"-"`
	// StdoutPath is the configured stdout log, empty when absent
	StdoutPath string `json:"stdout_path,omitempty" yaml:"stdout_path,omitempty"`
	// StderrPath is the configured stderr log, empty when absent
	StderrPath string `json:"stderr_path,omitempty" yaml:"stderr_path,omitempty"`
	// Status is filled in by reconciliation
	Status AgentStatus `json:"-" yaml:"-"`
}

// ExecutableName returns the base name of the program, or "" when there are no arguments
func (a LaunchAgent) ExecutableName() string {
	if len(a.ProgramArguments) == 0 {
		return ""
	}
	return filepath.Base(a.ProgramArguments[0])
}

// ShortLabel drops the first two label segments ("com.vendor.") when more remain
func (a LaunchAgent) ShortLabel() string {
	parts := labelSegments(a.Label)
	if len(parts) > 2 {
		return strings.Join(parts[2:], ".")
	}
	return a.Label
}

// LogPath returns the path configured for stream, or "" when none is set
func (a LaunchAgent) LogPath(stream LogStream) string {
	if stream == Stderr {
		return a.StderrPath
	}
	return a.StdoutPath
}

// labelSegments splits a label on dots, dropping empty segments
func labelSegments(label string) []string {
	return strings.FieldsFunc(label, func(r rune) bool { return r == '.' })
}
