package launchagent

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// Runner executes an argument vector and returns its combined output.
// A nonzero exit must be reported as a *CommandError carrying that output.
type Runner interface {
	Run(ctx context.Context, args []string) (string, error)
}

// RunnerFunc adapts a function to the Runner interface
type RunnerFunc func(ctx context.Context, args []string) (string, error)

// Run calls f(ctx, args)
func (f RunnerFunc) Run(ctx context.Context, args []string) (string, error) {
	return f(ctx, args)
}

// ExecRunner runs commands with os/exec. No timeout is applied; the context
// is the only way to abandon a hung command.
type ExecRunner struct{}

// Run executes args[0] with the remaining arguments
func (ExecRunner) Run(ctx context.Context, args []string) (string, error) {
	if len(args) == 0 {
		return "", &CommandError{Err: errors.New("empty command")}
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		return out.String(), &CommandError{Args: args, Output: out.String(), Err: err}
	}

	return out.String(), nil
}
