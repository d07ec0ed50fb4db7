package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/axondata/go-launchagent"
	"github.com/axondata/go-launchagent/internal/config"
	"github.com/axondata/go-launchagent/internal/journal"
	"github.com/axondata/go-launchagent/internal/metrics"
)

var (
	watchInterval    time.Duration
	watchJournal     bool
	watchMetricsAddr string
	watchNoFSEvents  bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll launchd and report agent status changes until interrupted",
	Long: `Poll launchd on an interval and print every status change.

Descriptor changes in the agents directory trigger an immediate refresh.
With --journal, transitions are stored for 'agentctl history'. With
--metrics-addr, prometheus metrics are served on /metrics.

Only one watch may run per user; a lock file in the config directory
enforces this.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVarP(&watchInterval, "interval", "i", 0, "Poll interval (default from config, 5s)")
	watchCmd.Flags().BoolVar(&watchJournal, "journal", false, "Record transitions in the journal database")
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "Serve prometheus metrics on this address")
	watchCmd.Flags().BoolVar(&watchNoFSEvents, "no-fsevents", false, "Do not watch the descriptor directory")
	rootCmd.AddCommand(watchCmd)
}

func acquireWatchLock() (*flock.Flock, error) {
	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}
	lock := flock.New(filepath.Join(dir, "watch.lock"))
	if err := ensureDir(dir); err != nil {
		return nil, err
	}
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire watch lock: %w", err)
	}
	if !locked {
		return nil, errors.New("another agentctl watch is already running")
	}
	return lock, nil
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	lock, err := acquireWatchLock()
	if err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	out := cmd.OutOrStdout()
	opts := []launchagent.ServiceOption{
		launchagent.WithRefreshHook(printTransitions(out)),
	}

	if watchJournal {
		path, err := journalPath()
		if err != nil {
			return err
		}
		j, err := journal.Open(path)
		if err != nil {
			return err
		}
		defer func() { _ = j.Close() }()
		opts = append(opts, launchagent.WithRefreshHook(j.Hook()))
		log.Info().Str("path", path).Msg("journaling transitions")
	}

	addr := watchMetricsAddr
	if addr == "" {
		addr = cfg.MetricsAddr
	}
	var collector *metrics.Collector
	if addr != "" {
		collector = metrics.NewCollector()
		opts = append(opts, launchagent.WithRefreshHook(collector.Observe))
	}

	svc := newService(opts...)
	var refresher launchagent.Refresher = svc
	if collector != nil {
		refresher = collector.Refresher(svc)
		stopMetrics := serveMetrics(addr, collector.Handler())
		defer stopMetrics()
	}

	if err := refresher.Refresh(ctx); err != nil {
		return err
	}
	printSummary(out, svc)

	interval := watchInterval
	if interval <= 0 {
		interval = cfg.PollInterval
	}
	poller := launchagent.NewPoller(refresher, interval)
	poller.Start(ctx)
	defer poller.Stop()

	if !watchNoFSEvents {
		cleanup, err := launchagent.WatchDirectory(ctx, svc.Dir(), refresher, cfg.WatchDebounce)
		if err != nil {
			log.Warn().Err(err).Msg("descriptor watch unavailable, relying on polling")
		} else {
			defer func() { _ = cleanup() }()
		}
	}

	log.Info().Dur("interval", interval).Str("dir", svc.Dir()).Msg("watching agents")
	<-ctx.Done()
	return nil
}

// printTransitions returns a hook printing each status change
func printTransitions(out io.Writer) launchagent.RefreshHook {
	return func(prev, next []launchagent.LaunchAgent) {
		if prev == nil {
			return
		}
		byLabel := make(map[string]launchagent.AgentStatus, len(next))
		for _, a := range next {
			byLabel[a.Label] = a.Status
		}
		for _, t := range journal.Diff(prev, next, time.Now()) {
			st := byLabel[t.Label]
			fmt.Fprintf(out, "%s %s %s: %s -> %s\n",
				dimStyle.Render(t.ObservedAt.Format(time.TimeOnly)), statusDot(st), t.Label, t.From, statusText(st))
		}
	}
}

func printSummary(out io.Writer, svc *launchagent.Service) {
	agents := svc.FilteredAgents()
	running := 0
	for _, a := range agents {
		if a.Status.IsRunning() {
			running++
		}
	}
	fmt.Fprintf(out, "%d agents, %d running\n", len(agents), running)
}

// serveMetrics starts an HTTP server for /metrics and returns its shutdown func
func serveMetrics(addr string, h http.Handler) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("metrics server failed")
		}
	}()
	log.Info().Str("addr", addr).Msg("serving metrics")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
