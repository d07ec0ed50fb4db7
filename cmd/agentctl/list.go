package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/axondata/go-launchagent"
)

var listOutput string

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List agents grouped by namespace",
	Long: `List agents grouped by label prefix.

Owned groups (ORI, Iceland, Epoch, Orchid, Personal) come first, the rest
follow alphabetically. Use --all to include vendor agents and -o json or
-o yaml for machine-readable output.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "Show group names with agent counts",
	Args:  cobra.NoArgs,
	RunE:  runGroups,
}

func init() {
	listCmd.Flags().StringVarP(&listOutput, "output", "o", "table", "Output format: table, json, yaml")
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(groupsCmd)
}

// agentView is the serialized form of an agent
type agentView struct {
	Label      string   `json:"label" yaml:"label"`
	Group      string   `json:"group" yaml:"group"`
	State      string   `json:"state" yaml:"state"`
	PID        int      `json:"pid,omitempty" yaml:"pid,omitempty"`
	ExitCode   int      `json:"exit_code,omitempty" yaml:"exit_code,omitempty"`
	Schedule   string   `json:"schedule" yaml:"schedule"`
	Path       string   `json:"path" yaml:"path"`
	Program    []string `json:"program" yaml:"program"`
	StdoutPath string   `json:"stdout_path,omitempty" yaml:"stdout_path,omitempty"`
	StderrPath string   `json:"stderr_path,omitempty" yaml:"stderr_path,omitempty"`
}

func newAgentView(g *launchagent.Grouper, a launchagent.LaunchAgent) agentView {
	return agentView{
		Label:      a.Label,
		Group:      g.GroupName(a.Label),
		State:      a.Status.State.String(),
		PID:        a.Status.PID,
		ExitCode:   a.Status.ExitCode,
		Schedule:   a.Schedule.String(),
		Path:       a.Path,
		Program:    a.ProgramArguments,
		StdoutPath: a.StdoutPath,
		StderrPath: a.StderrPath,
	}
}

func runList(cmd *cobra.Command, _ []string) error {
	svc, err := refreshedService(cmd.Context())
	if err != nil {
		return err
	}

	groups := svc.FilteredGroupedAgents()
	names := launchagent.SortedGroupNames(groups)
	out := cmd.OutOrStdout()

	switch strings.ToLower(listOutput) {
	case "table", "":
		printGroups(out, names, groups)
		return nil
	default:
		views := make([]agentView, 0, len(svc.FilteredAgents()))
		for _, name := range names {
			for _, a := range groups[name] {
				views = append(views, newAgentView(svc.Grouper(), a))
			}
		}
		return encode(out, listOutput, views)
	}
}

func printGroups(out io.Writer, names []string, groups map[string][]launchagent.LaunchAgent) {
	if len(names) == 0 {
		fmt.Fprintln(out, dimStyle.Render("No agents found."))
		return
	}

	for i, name := range names {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintln(out, groupStyle.Render(name))

		tw := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
		for _, a := range groups[name] {
			fmt.Fprintf(tw, "  %s %s\t%s\t%s\n", statusDot(a.Status), a.ShortLabel(), statusText(a.Status), dimStyle.Render(a.Schedule.String()))
		}
		_ = tw.Flush()
	}
}

func runGroups(cmd *cobra.Command, _ []string) error {
	svc, err := refreshedService(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	groups := svc.FilteredGroupedAgents()
	tw := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
	for _, name := range launchagent.SortedGroupNames(groups) {
		running := 0
		for _, a := range groups[name] {
			if a.Status.IsRunning() {
				running++
			}
		}
		fmt.Fprintf(tw, "%s\t%d agents\t%d running\n", name, len(groups[name]), running)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	overrides := svc.Grouper().Overrides()
	if len(overrides) == 0 {
		return nil
	}
	prefixes := make([]string, 0, len(overrides))
	for prefix := range overrides {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)

	fmt.Fprintln(out)
	fmt.Fprintln(out, dimStyle.Render("Custom prefixes:"))
	for _, prefix := range prefixes {
		fmt.Fprintf(out, "  %s* -> %s\n", prefix, overrides[prefix])
	}
	return nil
}

// encode writes v as json or yaml; any other format is an error
func encode(out io.Writer, format string, v any) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
