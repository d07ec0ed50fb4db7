package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/axondata/go-launchagent"
	"github.com/axondata/go-launchagent/internal/config"
	"github.com/axondata/go-launchagent/internal/journal"
)

var (
	historyLimit  int
	historyOutput string
)

var historyCmd = &cobra.Command{
	Use:   "history [label]",
	Short: "Show status transitions recorded by 'agentctl watch --journal'",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 50, "Maximum number of transitions")
	historyCmd.Flags().StringVarP(&historyOutput, "output", "o", "table", "Output format: table, json, yaml")
	rootCmd.AddCommand(historyCmd)
}

// journalPath returns the configured journal, or journal.db next to the config file
func journalPath() (string, error) {
	if cfg.JournalPath != "" {
		return cfg.JournalPath, nil
	}
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "journal.db"), nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	path, err := journalPath()
	if err != nil {
		return err
	}

	j, err := journal.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = j.Close() }()

	label := ""
	if len(args) == 1 {
		label = args[0]
	}

	ts, err := j.Recent(cmd.Context(), label, historyLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !strings.EqualFold(historyOutput, "table") {
		return encode(out, historyOutput, ts)
	}

	if len(ts) == 0 {
		fmt.Fprintln(out, dimStyle.Render("No transitions recorded."))
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
	for _, t := range ts {
		to := launchagent.AgentStatus{State: launchagent.ParseState(t.To), PID: t.PID, ExitCode: t.ExitCode}
		fmt.Fprintf(tw, "%s\t%s\t%s -> %s\n", dimStyle.Render(t.ObservedAt.Format(time.DateTime)), t.Label, t.From, statusText(to))
	}
	return tw.Flush()
}
