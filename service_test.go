package launchagent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

const (
	timeoutShort = 2 * time.Second
	tick         = 5 * time.Millisecond
)

// fakeController keeps launchd state in memory
type fakeController struct {
	mu        sync.Mutex
	statuses  map[string]AgentStatus
	queryErr  error
	failLoad  map[string]bool
	queries   int
	hold      chan struct{}
	loadCalls []string
}

func newFakeController(statuses map[string]AgentStatus) *fakeController {
	return &fakeController{statuses: statuses, failLoad: map[string]bool{}}
}

func (f *fakeController) QueryStatus(_ context.Context) (map[string]AgentStatus, error) {
	f.mu.Lock()
	f.queries++
	hold := f.hold
	f.hold = nil
	err := f.queryErr
	out := make(map[string]AgentStatus, len(f.statuses))
	for k, v := range f.statuses {
		out[k] = v
	}
	f.mu.Unlock()

	// The snapshot is taken before blocking, so a held query reports stale state.
	if hold != nil {
		<-hold
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (f *fakeController) Load(_ context.Context, a LaunchAgent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadCalls = append(f.loadCalls, a.Label)
	if f.failLoad[a.Label] {
		return &OpError{Op: OpLoad, Path: a.Label, Err: errors.New("bootstrap refused")}
	}
	f.statuses[a.Label] = Running(100 + len(f.loadCalls))
	return nil
}

func (f *fakeController) Unload(_ context.Context, a LaunchAgent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.statuses, a.Label)
	return nil
}

func (f *fakeController) TailLog(_ context.Context, path string, lines int) (string, error) {
	return "tail of " + path, nil
}

func (f *fakeController) queryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries
}

type ServiceSuite struct {
	suite.Suite
	dir  string
	ctrl *fakeController
	svc  *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.dir = s.T().TempDir()
	writeDescriptor(s.T(), s.dir, "com.ori.sync.plist", `<dict>
	<key>Label</key><string>com.ori.sync</string>
	<key>StandardOutPath</key><string>/tmp/sync.out</string>
</dict>`)
	writeDescriptor(s.T(), s.dir, "com.ori.backup.plist", `<dict><key>Label</key><string>com.ori.backup</string></dict>`)
	writeDescriptor(s.T(), s.dir, "com.apple.Safari.plist", `<dict><key>Label</key><string>com.apple.Safari</string></dict>`)
	writeDescriptor(s.T(), s.dir, "com.example.tool.plist", `<dict><key>Label</key><string>com.example.tool</string></dict>`)
	writeDescriptor(s.T(), s.dir, "com.david.notes.plist", `<dict><key>Label</key><string>com.david.notes</string></dict>`)

	s.ctrl = newFakeController(map[string]AgentStatus{
		"com.ori.sync":     Running(10),
		"com.apple.Safari": Loaded(0),
		"com.example.tool": Errored(1),
		"ghost":            Running(99),
	})
	s.svc = NewService(s.dir, WithControl(s.ctrl))
}

func (s *ServiceSuite) labels(agents []LaunchAgent) []string {
	return labelsOf(agents)
}

func (s *ServiceSuite) TestRefreshReconciles() {
	s.Require().NoError(s.svc.Refresh(context.Background()))

	agents := s.svc.Agents()
	s.Equal([]string{"com.apple.Safari", "com.david.notes", "com.example.tool", "com.ori.backup", "com.ori.sync"}, s.labels(agents))

	syncAgent, err := s.svc.Agent("com.ori.sync")
	s.Require().NoError(err)
	s.Equal(Running(10), syncAgent.Status)

	backup, err := s.svc.Agent("com.ori.backup")
	s.Require().NoError(err)
	s.Equal(NotLoaded(), backup.Status)

	s.NoError(s.svc.LastError())
	s.False(s.svc.IsLoading())
}

func (s *ServiceSuite) TestRefreshFailureKeepsPreviousList() {
	s.Require().NoError(s.svc.Refresh(context.Background()))
	before := s.svc.Agents()

	s.ctrl.mu.Lock()
	s.ctrl.queryErr = errors.New("launchctl exploded")
	s.ctrl.mu.Unlock()

	err := s.svc.Refresh(context.Background())
	s.Require().Error(err)
	s.Equal(before, s.svc.Agents())
	s.Equal(err, s.svc.LastError())

	s.ctrl.mu.Lock()
	s.ctrl.queryErr = nil
	s.ctrl.mu.Unlock()

	s.Require().NoError(s.svc.Refresh(context.Background()))
	s.NoError(s.svc.LastError())
}

func (s *ServiceSuite) TestScanFailureKeepsPreviousList() {
	s.Require().NoError(s.svc.Refresh(context.Background()))
	s.Require().NoError(os.RemoveAll(s.dir))

	err := s.svc.Refresh(context.Background())
	s.Require().Error(err)

	var opErr *OpError
	s.Require().True(errors.As(err, &opErr))
	s.Equal(OpScan, opErr.Op)
	s.Len(s.svc.Agents(), 5)
}

func (s *ServiceSuite) TestIsLoadingDuringRefresh() {
	gate := make(chan struct{})
	s.ctrl.mu.Lock()
	s.ctrl.hold = gate
	s.ctrl.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- s.svc.Refresh(context.Background()) }()

	s.Eventually(s.svc.IsLoading, timeoutShort, tick)
	close(gate)
	s.Require().NoError(<-done)
	s.False(s.svc.IsLoading())
}

func (s *ServiceSuite) TestLoadRefreshesOnSuccess() {
	s.Require().NoError(s.svc.Refresh(context.Background()))
	backup, err := s.svc.Agent("com.ori.backup")
	s.Require().NoError(err)

	s.Require().NoError(s.svc.Load(context.Background(), backup))

	backup, err = s.svc.Agent("com.ori.backup")
	s.Require().NoError(err)
	s.True(backup.Status.IsRunning())
}

func (s *ServiceSuite) TestLoadFailureSetsError() {
	s.Require().NoError(s.svc.Refresh(context.Background()))
	queries := s.ctrl.queryCount()
	s.ctrl.failLoad["com.ori.backup"] = true

	backup, err := s.svc.Agent("com.ori.backup")
	s.Require().NoError(err)

	err = s.svc.Load(context.Background(), backup)
	s.Require().Error(err)
	s.Equal(err, s.svc.LastError())
	s.Equal(queries, s.ctrl.queryCount(), "failed load must not refresh")
}

func (s *ServiceSuite) TestToggle() {
	s.Require().NoError(s.svc.Refresh(context.Background()))

	syncAgent, err := s.svc.Agent("com.ori.sync")
	s.Require().NoError(err)
	s.Require().NoError(s.svc.Toggle(context.Background(), syncAgent))

	syncAgent, err = s.svc.Agent("com.ori.sync")
	s.Require().NoError(err)
	s.Equal(NotLoaded(), syncAgent.Status)

	s.Require().NoError(s.svc.Toggle(context.Background(), syncAgent))
	syncAgent, err = s.svc.Agent("com.ori.sync")
	s.Require().NoError(err)
	s.True(syncAgent.Status.IsRunning())
}

func (s *ServiceSuite) TestToggleUnloadsErroredAgent() {
	s.Require().NoError(s.svc.Refresh(context.Background()))

	tool, err := s.svc.Agent("com.example.tool")
	s.Require().NoError(err)
	s.Require().NoError(s.svc.Toggle(context.Background(), tool))

	tool, err = s.svc.Agent("com.example.tool")
	s.Require().NoError(err)
	s.Equal(NotLoaded(), tool.Status)
}

func (s *ServiceSuite) TestLoadAllPartialFailure() {
	s.Require().NoError(s.svc.Refresh(context.Background()))
	s.ctrl.failLoad["com.ori.backup"] = true

	targets := []LaunchAgent{}
	for _, label := range []string{"com.ori.backup", "com.david.notes"} {
		a, err := s.svc.Agent(label)
		s.Require().NoError(err)
		targets = append(targets, a)
	}

	err := s.svc.LoadAll(context.Background(), targets)
	s.Require().Error(err)

	var merr *MultiError
	s.Require().True(errors.As(err, &merr))
	s.Len(merr.Errors, 1)
	s.Equal(err, s.svc.LastError())

	notes, lerr := s.svc.Agent("com.david.notes")
	s.Require().NoError(lerr)
	s.True(notes.Status.IsRunning(), "successful loads are refreshed")
}

func (s *ServiceSuite) TestLoadAllTotalFailureSkipsRefresh() {
	s.Require().NoError(s.svc.Refresh(context.Background()))
	queries := s.ctrl.queryCount()
	s.ctrl.failLoad["com.ori.backup"] = true

	backup, err := s.svc.Agent("com.ori.backup")
	s.Require().NoError(err)

	s.Require().Error(s.svc.LoadAll(context.Background(), []LaunchAgent{backup}))
	s.Equal(queries, s.ctrl.queryCount())
}

func (s *ServiceSuite) TestUnloadAll() {
	s.Require().NoError(s.svc.Refresh(context.Background()))

	s.Require().NoError(s.svc.UnloadAll(context.Background(), s.svc.GroupedAgents()["ORI"]))

	for _, a := range s.svc.GroupedAgents()["ORI"] {
		s.Equal(NotLoaded(), a.Status, a.Label)
	}
}

func (s *ServiceSuite) TestTailLog() {
	s.Require().NoError(s.svc.Refresh(context.Background()))

	syncAgent, err := s.svc.Agent("com.ori.sync")
	s.Require().NoError(err)

	out, err := s.svc.TailLog(context.Background(), syncAgent, Stdout, 10)
	s.Require().NoError(err)
	s.Equal("tail of /tmp/sync.out", out)

	out, err = s.svc.TailLog(context.Background(), syncAgent, Stderr, 10)
	s.Require().NoError(err)
	s.Equal("No stderr log configured for this agent.", out)
}

func (s *ServiceSuite) TestUnknownAgent() {
	s.Require().NoError(s.svc.Refresh(context.Background()))

	_, err := s.svc.Agent("ghost")
	s.True(errors.Is(err, ErrUnknownAgent))
}

func (s *ServiceSuite) TestFilteredViews() {
	g := NewGrouper()
	g.RegisterPrefix("com.example", "Personal")
	svc := NewService(s.dir, WithControl(s.ctrl), WithGrouper(g))
	s.Require().NoError(svc.Refresh(context.Background()))

	s.True(svc.ShowOnlyOwned())
	s.Equal([]string{"com.david.notes", "com.ori.backup", "com.ori.sync"}, s.labels(svc.FilteredAgents()))

	filtered := svc.FilteredGroupedAgents()
	s.Len(filtered, 2)
	s.Equal([]string{"com.ori.backup", "com.ori.sync"}, s.labels(filtered["ORI"]))
	s.Equal([]string{"com.david.notes"}, s.labels(filtered["Personal"]), "non-owned agents are removed from owned groups")
	s.Equal([]string{"ORI", "Personal"}, svc.SortedGroupNames())

	svc.SetShowOnlyOwned(false)
	s.Len(svc.FilteredAgents(), 5)
	s.Equal([]string{"ORI", "Personal", "Apple"}, svc.SortedGroupNames())
	s.Equal(svc.GroupedAgents(), svc.FilteredGroupedAgents())
}

func (s *ServiceSuite) TestFilteredDropsEmptyGroups() {
	s.Require().NoError(s.svc.Refresh(context.Background()))

	filtered := s.svc.FilteredGroupedAgents()
	_, hasExample := filtered["example"]
	_, hasApple := filtered["Apple"]
	s.False(hasExample)
	s.False(hasApple)

	s.Contains(s.svc.GroupedAgents(), "example")
}

func (s *ServiceSuite) TestRefreshHooks() {
	var calls [][2][]LaunchAgent
	svc := NewService(s.dir, WithControl(s.ctrl), WithRefreshHook(func(prev, next []LaunchAgent) {
		calls = append(calls, [2][]LaunchAgent{prev, next})
	}))

	s.Require().NoError(svc.Refresh(context.Background()))
	s.Require().NoError(svc.Refresh(context.Background()))

	s.Require().Len(calls, 2)
	s.Nil(calls[0][0])
	s.Len(calls[0][1], 5)
	s.Equal(calls[0][1], calls[1][0])

	// Hooks receive copies.
	calls[1][1][0].Label = "mutated"
	s.NotEqual("mutated", svc.Agents()[0].Label)
}

func (s *ServiceSuite) TestViewsReturnCopies() {
	s.Require().NoError(s.svc.Refresh(context.Background()))

	agents := s.svc.Agents()
	agents[0].Status = Running(1)
	s.NotEqual(Running(1), s.svc.Agents()[0].Status)

	groups := s.svc.GroupedAgents()
	groups["ORI"][0].Label = "mutated"
	s.NotEqual("mutated", s.svc.GroupedAgents()["ORI"][0].Label)
}

func statusOf(agents []LaunchAgent, label string) AgentStatus {
	for _, a := range agents {
		if a.Label == label {
			return a.Status
		}
	}
	return NotLoaded()
}

func (s *ServiceSuite) TestConcurrentRefreshes() {
	const n = 20
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			errs <- s.svc.Refresh(ctx)
		}()
		go func() {
			defer wg.Done()
			_ = s.svc.FilteredGroupedAgents()
			_ = s.svc.Agents()
			_ = s.svc.IsLoading()
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		s.NoError(err)
	}
	s.Equal(n, s.ctrl.queryCount())
	s.False(s.svc.IsLoading())
	s.NoError(s.svc.LastError())

	agents := s.svc.Agents()
	s.Equal([]string{"com.apple.Safari", "com.david.notes", "com.example.tool", "com.ori.backup", "com.ori.sync"}, s.labels(agents))
	s.Equal(Running(10), statusOf(agents, "com.ori.sync"))
	s.Len(s.svc.GroupedAgents()["ORI"], 2)
}

func (s *ServiceSuite) TestSlowRefreshFinishingLastWins() {
	ctx := context.Background()

	var mu sync.Mutex
	var calls [][2][]LaunchAgent
	svc := NewService(s.dir, WithControl(s.ctrl), WithRefreshHook(func(prev, next []LaunchAgent) {
		mu.Lock()
		calls = append(calls, [2][]LaunchAgent{prev, next})
		mu.Unlock()
	}))

	hold := make(chan struct{})
	s.ctrl.mu.Lock()
	s.ctrl.hold = hold
	s.ctrl.mu.Unlock()

	slow := make(chan error, 1)
	go func() { slow <- svc.Refresh(ctx) }()
	s.Require().Eventually(func() bool { return s.ctrl.queryCount() == 1 }, timeoutShort, tick)

	s.ctrl.mu.Lock()
	s.ctrl.statuses["com.ori.backup"] = Running(55)
	s.ctrl.mu.Unlock()

	s.Require().NoError(svc.Refresh(ctx))
	s.Equal(Running(55), statusOf(svc.Agents(), "com.ori.backup"))
	s.True(svc.IsLoading(), "the held refresh is still in flight")

	close(hold)
	s.Require().NoError(<-slow)

	// The held refresh took its snapshot first but finished last, so its result stands.
	s.Equal(NotLoaded(), statusOf(svc.Agents(), "com.ori.backup"))
	s.False(svc.IsLoading())

	mu.Lock()
	defer mu.Unlock()
	s.Require().Len(calls, 2)
	s.Nil(calls[0][0])
	s.Equal(Running(55), statusOf(calls[0][1], "com.ori.backup"))
	s.Equal(calls[0][1], calls[1][0], "hooks run in the order lists were applied")
	s.Equal(NotLoaded(), statusOf(calls[1][1], "com.ori.backup"))
}

func (s *ServiceSuite) TestRegisterPrefixDuringRefresh() {
	ctx := context.Background()
	g := s.svc.Grouper()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_ = s.svc.Refresh(ctx)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			g.RegisterPrefix(fmt.Sprintf("com.x%d", i), "X")
			_ = g.Overrides()
		}
	}()
	wg.Wait()

	s.Len(g.Overrides(), 50)

	g.RegisterPrefix("com.example", "Examples")
	s.Require().NoError(s.svc.Refresh(ctx))
	s.Equal([]string{"com.example.tool"}, s.labels(s.svc.GroupedAgents()["Examples"]))
}
