package launchagent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Controller is the subset of Control used by Service
type Controller interface {
	QueryStatus(ctx context.Context) (map[string]AgentStatus, error)
	Load(ctx context.Context, agent LaunchAgent) error
	Unload(ctx context.Context, agent LaunchAgent) error
	TailLog(ctx context.Context, path string, lines int) (string, error)
}

// Refresher is anything that can rebuild its agent list on demand
type Refresher interface {
	Refresh(ctx context.Context) error
}

// RefreshHook observes each successful refresh. prev and next are copies.
// Hooks run one at a time in the order refresh results were applied, so each
// prev is the previous call's next. A hook must not call Refresh.
type RefreshHook func(prev, next []LaunchAgent)

// Service owns the authoritative agent list. All reads and writes of agent state
// go through its methods; callers only ever receive copies.
//
// Refresh calls may overlap. Scanning and status queries run without the lock and
// results are applied under it, so the last refresh to finish wins.
type Service struct {
	dir     string
	control Controller
	grouper *Grouper
	bulk    *Bulk
	scan    func(dir string) ([]LaunchAgent, error)
	hooks   []RefreshHook

	hookMu sync.Mutex

	mu        sync.RWMutex
	agents    []LaunchAgent
	groups    map[string][]LaunchAgent
	lastErr   error
	inflight  int
	ownedOnly bool
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithControl sets the controller used for status and load/unload
func WithControl(c Controller) ServiceOption {
	return func(s *Service) {
		s.control = c
	}
}

// WithGrouper sets the grouper, typically one with custom prefixes registered
func WithGrouper(g *Grouper) ServiceOption {
	return func(s *Service) {
		s.grouper = g
	}
}

// WithShowOnlyOwned sets the initial owned-only filter
func WithShowOnlyOwned(v bool) ServiceOption {
	return func(s *Service) {
		s.ownedOnly = v
	}
}

// WithConcurrency bounds LoadAll and UnloadAll
func WithConcurrency(n int) ServiceOption {
	return func(s *Service) {
		s.bulk = NewBulk(n)
	}
}

// WithRefreshHook registers a hook called after every successful refresh
func WithRefreshHook(h RefreshHook) ServiceOption {
	return func(s *Service) {
		s.hooks = append(s.hooks, h)
	}
}

// NewService creates a Service scanning dir. By default it controls the current
// user's agents with NewControl and shows only owned agents.
func NewService(dir string, opts ...ServiceOption) *Service {
	s := &Service{
		dir:       dir,
		grouper:   NewGrouper(),
		bulk:      NewBulk(DefaultConcurrency),
		scan:      ScanDirectory,
		groups:    make(map[string][]LaunchAgent),
		ownedOnly: true,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.control == nil {
		s.control = NewControl()
	}

	return s
}

// Dir returns the scanned descriptor directory
func (s *Service) Dir() string {
	return s.dir
}

// Refresh rescans descriptors, queries launchd and replaces the agent list.
// On failure the previous list is kept and the error is recorded.
func (s *Service) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.inflight++
	s.lastErr = nil
	s.mu.Unlock()

	agents, err := s.scan(s.dir)
	var statuses map[string]AgentStatus
	if err == nil {
		statuses, err = s.control.QueryStatus(ctx)
	}

	if err != nil {
		s.mu.Lock()
		s.lastErr = err
		s.inflight--
		s.mu.Unlock()
		return err
	}

	next := Reconcile(agents, statuses)
	sortByLabel(next)
	groups := s.grouper.Group(next)

	// hookMu spans apply and notify so hooks see lists in the order they were applied.
	s.hookMu.Lock()
	defer s.hookMu.Unlock()

	s.mu.Lock()
	prev := s.agents
	s.agents = next
	s.groups = groups
	s.inflight--
	hooks := s.hooks
	s.mu.Unlock()

	for _, h := range hooks {
		h(cloneAgents(prev), cloneAgents(next))
	}

	return nil
}

// Load loads agent and refreshes on success
func (s *Service) Load(ctx context.Context, agent LaunchAgent) error {
	return s.controlAndRefresh(ctx, agent, s.control.Load)
}

// Unload unloads agent and refreshes on success
func (s *Service) Unload(ctx context.Context, agent LaunchAgent) error {
	return s.controlAndRefresh(ctx, agent, s.control.Unload)
}

// Toggle unloads a loaded agent, otherwise loads it
func (s *Service) Toggle(ctx context.Context, agent LaunchAgent) error {
	if agent.Status.IsLoaded() {
		return s.Unload(ctx, agent)
	}
	return s.Load(ctx, agent)
}

// LoadAll loads agents concurrently, then refreshes once if any succeeded
func (s *Service) LoadAll(ctx context.Context, agents []LaunchAgent) error {
	return s.bulkControl(ctx, agents, s.control.Load)
}

// UnloadAll unloads agents concurrently, then refreshes once if any succeeded
func (s *Service) UnloadAll(ctx context.Context, agents []LaunchAgent) error {
	return s.bulkControl(ctx, agents, s.control.Unload)
}

func (s *Service) controlAndRefresh(ctx context.Context, agent LaunchAgent, op func(context.Context, LaunchAgent) error) error {
	if err := op(ctx, agent); err != nil {
		s.setError(err)
		return err
	}
	return s.Refresh(ctx)
}

func (s *Service) bulkControl(ctx context.Context, agents []LaunchAgent, op func(context.Context, LaunchAgent) error) error {
	err := s.bulk.Run(ctx, agents, op)
	if err != nil {
		s.setError(err)
		var merr *MultiError
		if errors.As(err, &merr) && len(merr.Errors) >= len(agents) {
			return err
		}
	}
	if rerr := s.Refresh(ctx); rerr != nil {
		return rerr
	}
	if err != nil {
		// Refresh clears the error field; keep the partial failure visible.
		s.setError(err)
	}
	return err
}

// TailLog returns the last lines of the agent's stdout or stderr log
func (s *Service) TailLog(ctx context.Context, agent LaunchAgent, stream LogStream, lines int) (string, error) {
	path := agent.LogPath(stream)
	if path == "" {
		return fmt.Sprintf("No %s log configured for this agent.", stream), nil
	}
	return s.control.TailLog(ctx, path, lines)
}

func (s *Service) setError(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

// LastError returns the error of the most recent failed operation, or nil
func (s *Service) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// IsLoading reports whether a refresh is in flight
func (s *Service) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inflight > 0
}

// ShowOnlyOwned reports whether the filtered views hide non-owned agents
func (s *Service) ShowOnlyOwned() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ownedOnly
}

// SetShowOnlyOwned toggles the owned-only filter
func (s *Service) SetShowOnlyOwned(v bool) {
	s.mu.Lock()
	s.ownedOnly = v
	s.mu.Unlock()
}

// Grouper returns the grouper used for views
func (s *Service) Grouper() *Grouper {
	return s.grouper
}

// Agents returns all agents sorted by label
func (s *Service) Agents() []LaunchAgent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAgents(s.agents)
}

// Agent looks up an agent by label
func (s *Service) Agent(label string) (LaunchAgent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := sort.Search(len(s.agents), func(i int) bool { return s.agents[i].Label >= label })
	if i < len(s.agents) && s.agents[i].Label == label {
		return s.agents[i], nil
	}
	return LaunchAgent{}, &OpError{Op: OpUnknown, Path: label, Err: ErrUnknownAgent}
}

// GroupedAgents returns every group, unfiltered
func (s *Service) GroupedAgents() map[string][]LaunchAgent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneGroups(s.groups)
}

// FilteredAgents returns Agents, restricted to owned agents when the filter is on
func (s *Service) FilteredAgents() []LaunchAgent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ownedOnly {
		return cloneAgents(s.agents)
	}
	out := make([]LaunchAgent, 0, len(s.agents))
	for _, a := range s.agents {
		if IsUserAgent(a.Label) {
			out = append(out, a)
		}
	}
	return out
}

// FilteredGroupedAgents returns GroupedAgents; with the filter on, vendor groups,
// non-owned agents and groups left empty are removed
func (s *Service) FilteredGroupedAgents() map[string][]LaunchAgent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ownedOnly {
		return cloneGroups(s.groups)
	}

	out := make(map[string][]LaunchAgent)
	for name, bucket := range s.groups {
		if IsVendorGroup(name) {
			continue
		}
		var kept []LaunchAgent
		for _, a := range bucket {
			if IsUserAgent(a.Label) {
				kept = append(kept, a)
			}
		}
		if len(kept) > 0 {
			out[name] = kept
		}
	}
	return out
}

// SortedGroupNames returns the names of FilteredGroupedAgents in display order
func (s *Service) SortedGroupNames() []string {
	return SortedGroupNames(s.FilteredGroupedAgents())
}

func cloneAgents(in []LaunchAgent) []LaunchAgent {
	if in == nil {
		return nil
	}
	out := make([]LaunchAgent, len(in))
	copy(out, in)
	return out
}

func cloneGroups(in map[string][]LaunchAgent) map[string][]LaunchAgent {
	out := make(map[string][]LaunchAgent, len(in))
	for k, v := range in {
		out[k] = cloneAgents(v)
	}
	return out
}
