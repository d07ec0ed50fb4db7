package launchagent

import (
	"os"
	"path/filepath"
	"time"
)

// launchd directory and file constants
const (
	// AgentsSubdir is the per-user descriptor directory relative to the home directory
	AgentsSubdir = "Library/LaunchAgents"

	// DescriptorExt is the file extension of launchd descriptors
	DescriptorExt = ".plist"

	// DefaultPollInterval is the default interval between status refreshes
	DefaultPollInterval = 5 * time.Second

	// DefaultWatchDebounce is the default debounce time for descriptor directory watching
	DefaultWatchDebounce = 250 * time.Millisecond

	// DefaultTailLines is the default number of log lines returned by TailLog
	DefaultTailLines = 50

	// DefaultConcurrency is the default bound for bulk load/unload operations
	DefaultConcurrency = 4
)

// Binary names resolved through PATH
const (
	// LaunchctlPath is the launchd control utility
	LaunchctlPath = "launchctl"

	// TailPath is the file-tailing utility used for log excerpts
	TailPath = "tail"
)

// Descriptor keys read from launchd plists
const (
	keyLabel                 = "Label"
	keyProgramArguments      = "ProgramArguments"
	keyStandardOutPath       = "StandardOutPath"
	keyStandardErrorPath     = "StandardErrorPath"
	keyKeepAlive             = "KeepAlive"
	keyStartInterval         = "StartInterval"
	keyStartCalendarInterval = "StartCalendarInterval"
	keyRunAtLoad             = "RunAtLoad"
)

// DefaultAgentsDir returns ~/Library/LaunchAgents for the current user
func DefaultAgentsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, AgentsSubdir), nil
}

// Operation represents a launchd operation type
type Operation int

const (
	// OpUnknown represents an unknown operation
	OpUnknown Operation = iota
	// OpParse reads a single descriptor
	OpParse
	// OpScan lists a descriptor directory
	OpScan
	// OpStatus queries launchd for the status dump
	OpStatus
	// OpLoad bootstraps an agent
	OpLoad
	// OpUnload boots an agent out
	OpUnload
	// OpTailLog reads the tail of a log file
	OpTailLog
	// OpWatch watches the descriptor directory
	OpWatch
)

// Operation string constants
const (
	opUnknownStr = "unknown"
	opParseStr   = "parse"
	opScanStr    = "scan"
	opStatusStr  = "status"
	opLoadStr    = "load"
	opUnloadStr  = "unload"
	opTailLogStr = "tail"
	opWatchStr   = "watch"
)

// String returns the string representation of an Operation
func (op Operation) String() string {
	switch op {
	case OpParse:
		return opParseStr
	case OpScan:
		return opScanStr
	case OpStatus:
		return opStatusStr
	case OpLoad:
		return opLoadStr
	case OpUnload:
		return opUnloadStr
	case OpTailLog:
		return opTailLogStr
	case OpWatch:
		return opWatchStr
	case OpUnknown:
		fallthrough
	default:
		return opUnknownStr
	}
}
