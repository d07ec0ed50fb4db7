package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/axondata/go-launchagent"
	"github.com/axondata/go-launchagent/internal/config"
	"github.com/axondata/go-launchagent/internal/logging"
)

var (
	configPath   string
	agentsDir    string
	showAllFlag  bool
	logLevelFlag string

	// cfg is resolved in PersistentPreRunE from the config file and flags
	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "agentctl",
	Short: "Inventory, monitor and control launchd agents",
	Long: `agentctl reads launchd descriptors from ~/Library/LaunchAgents, reconciles
them with 'launchctl list' and loads or unloads them through launchctl.

By default only agents in owned namespaces are shown; pass --all to include
vendor and system agents.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
	Version:           launchagent.Version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/agentctl/config.toml)")
	rootCmd.PersistentFlags().StringVar(&agentsDir, "dir", "", "Descriptor directory (default ~/Library/LaunchAgents)")
	rootCmd.PersistentFlags().BoolVarP(&showAllFlag, "all", "a", false, "Include vendor and system agents")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level (debug, info, warn, error)")
}

// Execute runs the root command
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error:"), err)
		return err
	}
	return nil
}

func loadSettings(cmd *cobra.Command, _ []string) error {
	path := configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return fmt.Errorf("resolve config path: %w", err)
		}
		path = p
	}

	c, err := config.Load(path)
	if err != nil {
		return err
	}

	if agentsDir != "" {
		c.AgentsDir = agentsDir
	}
	if cmd.Flags().Changed("all") {
		c.ShowAll = showAllFlag
	}
	if logLevelFlag != "" {
		c.LogLevel = logLevelFlag
	}

	logging.Init("agentctl", c.LogLevel, os.Stderr)
	log.Debug().Str("config", path).Str("dir", c.AgentsDir).Msg("settings loaded")

	cfg = c
	return nil
}

// newService builds a Service from the resolved settings
func newService(opts ...launchagent.ServiceOption) *launchagent.Service {
	base := []launchagent.ServiceOption{
		launchagent.WithGrouper(cfg.Grouper()),
		launchagent.WithShowOnlyOwned(!cfg.ShowAll),
		launchagent.WithConcurrency(cfg.Concurrency),
	}
	return launchagent.NewService(cfg.AgentsDir, append(base, opts...)...)
}

// refreshedService builds a Service and performs the initial refresh
func refreshedService(ctx context.Context) (*launchagent.Service, error) {
	svc := newService()
	if err := svc.Refresh(ctx); err != nil {
		return nil, err
	}
	return svc, nil
}

// lookupAgent finds an agent by exact label, including non-owned agents
func lookupAgent(svc *launchagent.Service, label string) (launchagent.LaunchAgent, error) {
	agent, err := svc.Agent(label)
	if err != nil {
		return launchagent.LaunchAgent{}, fmt.Errorf("no agent labelled %q in %s", label, svc.Dir())
	}
	return agent, nil
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}
