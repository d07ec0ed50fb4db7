package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/axondata/go-launchagent"
)

var (
	logsStderr bool
	logsLines  int
)

var logsCmd = &cobra.Command{
	Use:   "logs <label>",
	Short: "Print the tail of an agent's stdout or stderr log",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogs,
}

func init() {
	logsCmd.Flags().BoolVar(&logsStderr, "stderr", false, "Read StandardErrorPath instead of StandardOutPath")
	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 0, "Number of lines (default from config, 50)")
	rootCmd.AddCommand(logsCmd)
}

func runLogs(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	svc, err := refreshedService(ctx)
	if err != nil {
		return err
	}

	agent, err := lookupAgent(svc, args[0])
	if err != nil {
		return err
	}

	stream := launchagent.Stdout
	if logsStderr {
		stream = launchagent.Stderr
	}

	lines := logsLines
	if lines <= 0 {
		lines = cfg.TailLines
	}

	text, err := svc.TailLog(ctx, agent, stream, lines)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), text)
	return nil
}
