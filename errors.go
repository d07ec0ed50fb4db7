package launchagent

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors returned by launchagent operations
var (
	// ErrNotFound indicates the descriptor path does not exist
	ErrNotFound = errors.New("launchagent: descriptor not found")

	// ErrInvalidFormat indicates the descriptor is not a decodable property list dictionary
	ErrInvalidFormat = errors.New("launchagent: invalid descriptor format")

	// ErrMissingIdentity indicates the descriptor has no Label
	ErrMissingIdentity = errors.New("launchagent: descriptor missing label")

	// ErrUnknownAgent indicates no agent with the requested label is known
	ErrUnknownAgent = errors.New("launchagent: unknown agent")
)

// OpError represents an error from a launchagent operation
type OpError struct {
	// Op is the operation that failed
	Op Operation
	// Path is the descriptor, directory or label involved in the operation
	Path string
	// Err is the underlying error
	Err error
}

// Error returns a formatted error message
func (e *OpError) Error() string {
	return fmt.Sprintf("launchagent %s %q: %v", e.Op.String(), e.Path, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *OpError) Unwrap() error {
	return e.Err
}

// CommandError reports an external command that exited nonzero
type CommandError struct {
	// Args is the argument vector that was executed
	Args []string
	// Output is the combined stdout and stderr of the command
	Output string
	// Err is the underlying exec error, if any
	Err error
}

// Error returns a formatted error message including the command output
func (e *CommandError) Error() string {
	out := strings.TrimSpace(e.Output)
	if out == "" {
		return fmt.Sprintf("command %q failed: %v", strings.Join(e.Args, " "), e.Err)
	}
	return fmt.Sprintf("command %q failed: %v: %s", strings.Join(e.Args, " "), e.Err, out)
}

// Unwrap returns the underlying exec error
func (e *CommandError) Unwrap() error {
	return e.Err
}

// MultiError aggregates multiple errors from bulk operations
type MultiError struct {
	// Errors contains all accumulated errors
	Errors []error
}

// Error returns a summary of the accumulated errors
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors occurred", len(m.Errors))
}

// Add appends an error to the collection if it's not nil
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// Err returns nil if no errors occurred, otherwise returns the MultiError itself
func (m *MultiError) Err() error {
	if len(m.Errors) == 0 {
		return nil
	}
	return m
}

// Unwrap exposes the collected errors to errors.Is and errors.As
func (m *MultiError) Unwrap() []error {
	return m.Errors
}
