package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/axondata/go-launchagent"
)

var controlGroup string

var loadCmd = &cobra.Command{
	Use:   "load [label...]",
	Short: "Load agents with launchctl bootstrap (falls back to launchctl load)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runControl(cmd, args, "loaded", (*launchagent.Service).Load, (*launchagent.Service).LoadAll)
	},
}

var unloadCmd = &cobra.Command{
	Use:   "unload [label...]",
	Short: "Unload agents with launchctl bootout (falls back to launchctl unload)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runControl(cmd, args, "unloaded", (*launchagent.Service).Unload, (*launchagent.Service).UnloadAll)
	},
}

var toggleCmd = &cobra.Command{
	Use:   "toggle <label>",
	Short: "Unload a loaded agent or load an unloaded one",
	Args:  cobra.ExactArgs(1),
	RunE:  runToggle,
}

func init() {
	for _, c := range []*cobra.Command{loadCmd, unloadCmd} {
		c.Flags().StringVarP(&controlGroup, "group", "g", "", "Apply to every agent in this group")
		rootCmd.AddCommand(c)
	}
	rootCmd.AddCommand(toggleCmd)
}

type singleOp func(*launchagent.Service, context.Context, launchagent.LaunchAgent) error
type bulkOp func(*launchagent.Service, context.Context, []launchagent.LaunchAgent) error

func runControl(cmd *cobra.Command, args []string, verb string, one singleOp, many bulkOp) error {
	ctx := cmd.Context()
	svc, err := refreshedService(ctx)
	if err != nil {
		return err
	}

	targets, err := selectTargets(svc, args, controlGroup)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(targets) == 1 {
		if err := one(svc, ctx, targets[0]); err != nil {
			return err
		}
	} else if err := many(svc, ctx, targets); err != nil {
		return err
	}

	for _, t := range targets {
		if a, err := svc.Agent(t.Label); err == nil {
			fmt.Fprintf(out, "%s %s %s: %s\n", statusDot(a.Status), verb, a.Label, statusText(a.Status))
		}
	}
	return nil
}

// selectTargets resolves labels or a whole group to agents
func selectTargets(svc *launchagent.Service, labels []string, group string) ([]launchagent.LaunchAgent, error) {
	if group != "" {
		if len(labels) > 0 {
			return nil, fmt.Errorf("pass either labels or --group, not both")
		}
		agents := svc.GroupedAgents()[group]
		if len(agents) == 0 {
			return nil, fmt.Errorf("group %q has no agents", group)
		}
		return agents, nil
	}

	if len(labels) == 0 {
		return nil, fmt.Errorf("at least one label or --group is required")
	}

	targets := make([]launchagent.LaunchAgent, 0, len(labels))
	for _, label := range labels {
		a, err := lookupAgent(svc, label)
		if err != nil {
			return nil, err
		}
		targets = append(targets, a)
	}
	return targets, nil
}

func runToggle(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	svc, err := refreshedService(ctx)
	if err != nil {
		return err
	}

	agent, err := lookupAgent(svc, args[0])
	if err != nil {
		return err
	}

	if err := svc.Toggle(ctx, agent); err != nil {
		return err
	}

	a, err := svc.Agent(agent.Label)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s\n", statusDot(a.Status), a.Label, statusText(a.Status))
	return nil
}
