package launchagent

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"
)

// Control issues launchctl and tail commands for agents in the caller's GUI domain.
//
// Load and Unload try the modern bootstrap/bootout subcommands first and fall back
// to the legacy load/unload subcommands once. The modern failure is only logged;
// when both fail the legacy error is returned.
type Control struct {
	// Runner executes the built commands
	Runner Runner

	// UID selects the gui/<uid> launchd domain
	UID int
}

// ControlOption configures a Control
type ControlOption func(*Control)

// WithRunner sets the command runner
func WithRunner(r Runner) ControlOption {
	return func(c *Control) {
		c.Runner = r
	}
}

// WithUID overrides the effective user id used for the launchd domain
func WithUID(uid int) ControlOption {
	return func(c *Control) {
		c.UID = uid
	}
}

// NewControl creates a Control for the current user backed by ExecRunner
func NewControl(opts ...ControlOption) *Control {
	c := &Control{
		Runner: ExecRunner{},
		UID:    os.Geteuid(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// QueryStatus runs `launchctl list` and parses the dump
func (c *Control) QueryStatus(ctx context.Context) (map[string]AgentStatus, error) {
	out, err := c.Runner.Run(ctx, StatusCommand())
	if err != nil {
		return nil, &OpError{Op: OpStatus, Path: LaunchctlPath, Err: err}
	}
	return ParseStatusDump(out), nil
}

// Load bootstraps the agent's descriptor, falling back to `launchctl load`
func (c *Control) Load(ctx context.Context, agent LaunchAgent) error {
	return c.withFallback(ctx, OpLoad, agent,
		BootstrapCommand(c.UID, agent.Path),
		LegacyLoadCommand(agent.Path),
	)
}

// Unload boots the agent out by label, falling back to `launchctl unload`
func (c *Control) Unload(ctx context.Context, agent LaunchAgent) error {
	return c.withFallback(ctx, OpUnload, agent,
		BootoutCommand(c.UID, agent.Label),
		LegacyUnloadCommand(agent.Path),
	)
}

// TailLog returns the last lines of the file at path
func (c *Control) TailLog(ctx context.Context, path string, lines int) (string, error) {
	out, err := c.Runner.Run(ctx, TailLogCommand(path, lines))
	if err != nil {
		return "", &OpError{Op: OpTailLog, Path: path, Err: err}
	}
	return out, nil
}

func (c *Control) withFallback(ctx context.Context, op Operation, agent LaunchAgent, primary, legacy []string) error {
	_, err := c.Runner.Run(ctx, primary)
	if err == nil {
		return nil
	}

	log.Debug().Err(err).Str("label", agent.Label).Str("op", op.String()).Msg("modern launchctl failed, trying legacy")

	if _, err := c.Runner.Run(ctx, legacy); err != nil {
		return &OpError{Op: op, Path: agent.Label, Err: err}
	}
	return nil
}
