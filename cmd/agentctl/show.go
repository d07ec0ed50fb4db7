package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var showOutput string

var showCmd = &cobra.Command{
	Use:   "show <label>",
	Short: "Show details for one agent",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().StringVarP(&showOutput, "output", "o", "text", "Output format: text, json, yaml")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	svc, err := refreshedService(cmd.Context())
	if err != nil {
		return err
	}

	agent, err := lookupAgent(svc, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !strings.EqualFold(showOutput, "text") {
		return encode(out, showOutput, newAgentView(svc.Grouper(), agent))
	}

	fmt.Fprintf(out, "%s %s\n", statusDot(agent.Status), labelStyle.Render(agent.Label))

	tw := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
	fmt.Fprintf(tw, "  Status:\t%s\n", statusText(agent.Status))
	fmt.Fprintf(tw, "  Group:\t%s\n", svc.Grouper().GroupName(agent.Label))
	fmt.Fprintf(tw, "  Schedule:\t%s\n", agent.Schedule)
	fmt.Fprintf(tw, "  Descriptor:\t%s\n", agent.Path)
	if exe := agent.ExecutableName(); exe != "" {
		fmt.Fprintf(tw, "  Executable:\t%s\n", exe)
		fmt.Fprintf(tw, "  Arguments:\t%s\n", strings.Join(agent.ProgramArguments, " "))
	}
	if agent.StdoutPath != "" {
		fmt.Fprintf(tw, "  Stdout:\t%s\n", agent.StdoutPath)
	}
	if agent.StderrPath != "" {
		fmt.Fprintf(tw, "  Stderr:\t%s\n", agent.StderrPath)
	}
	return tw.Flush()
}
