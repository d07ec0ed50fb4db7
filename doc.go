// Package launchagent inventories, monitors and controls launchd agents.
//
// Descriptors (plist files) are read from a directory, reconciled against the
// live status reported by `launchctl list`, and controlled through launchctl:
//
//	dir, _ := launchagent.DefaultAgentsDir()
//	svc := launchagent.NewService(dir)
//	if err := svc.Refresh(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	for _, name := range svc.SortedGroupNames() {
//	    for _, agent := range svc.FilteredGroupedAgents()[name] {
//	        fmt.Printf("%s %s\n", agent.Label, agent.Status)
//	    }
//	}
//
// # Control
//
// Load and Unload use `launchctl bootstrap` and `launchctl bootout` in the
// caller's gui/<uid> domain and fall back to the legacy `load`/`unload`
// subcommands once when the modern form fails. Commands run through a Runner,
// so the fallback logic can be exercised without launchd.
//
// # Polling
//
// A Poller calls Service.Refresh on an interval and WatchDirectory refreshes
// when descriptors change on disk. Both funnel into the same Refresh, which
// serializes updates to the agent list.
//
// External commands have no built-in timeout. A hung launchctl blocks the
// refresh that started it until the caller's context is cancelled.
package launchagent
