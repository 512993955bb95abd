package session

import (
	"context"
	"sync"
	"testing"
)

// fakeExecutor satisfies Executor for store tests. Connect blocks on gate
// when one is set, so tests can hold a connect in flight.
type fakeExecutor struct {
	mu          sync.Mutex
	connects    int
	disconnects int
	connectErr  error
	databases   []string
	tables      []string
	gate        chan struct{}
}

func (f *fakeExecutor) Connect(ctx context.Context, workspaceID string, p Profile) error {
	f.mu.Lock()
	f.connects++
	gate := f.gate
	err := f.connectErr
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return err
}

func (f *fakeExecutor) Disconnect(ctx context.Context, workspaceID string) error {
	f.mu.Lock()
	f.disconnects++
	f.mu.Unlock()
	return nil
}

func (f *fakeExecutor) ListDatabases(ctx context.Context, workspaceID string) ([]string, error) {
	return f.databases, nil
}

func (f *fakeExecutor) ListTables(ctx context.Context, workspaceID string) ([]string, error) {
	return f.tables, nil
}

func (f *fakeExecutor) connectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects
}

func newTestStore(exec Executor) *Store {
	return NewStore(Options{Executor: exec})
}

func profileFor(id, host, database string) Profile {
	return Profile{
		ID:       id,
		Name:     id,
		Driver:   "postgres",
		Host:     host,
		Port:     5432,
		Username: "postgres",
		Database: database,
	}
}

func TestAddWorkspace_SecondAddIsNoOp(t *testing.T) {
	s := newTestStore(&fakeExecutor{})
	p := profileFor("p1", "localhost", "app")

	first := s.AddWorkspace(context.Background(), p, false)
	second := s.AddWorkspace(context.Background(), p, false)

	if first != second {
		t.Errorf("expected same workspace id, got %q and %q", first, second)
	}
	if n := len(s.Workspaces()); n != 1 {
		t.Errorf("expected 1 workspace, got %d", n)
	}
}

func TestAddWorkspace_SameTargetDifferentProfileID(t *testing.T) {
	s := newTestStore(&fakeExecutor{})
	a := profileFor("p1", "localhost", "app")
	b := profileFor("p2", "localhost", "app")

	first := s.AddWorkspace(context.Background(), a, false)
	second := s.AddWorkspace(context.Background(), b, false)

	if first != second {
		t.Errorf("profiles with the same target should share a workspace, got %q and %q", first, second)
	}
}

func TestAddWorkspace_TakenIDMintsFreshOne(t *testing.T) {
	s := newTestStore(&fakeExecutor{})
	a := profileFor("shared", "host-a", "app")
	b := profileFor("shared", "host-b", "app")

	first := s.AddWorkspace(context.Background(), a, false)
	second := s.AddWorkspace(context.Background(), b, false)

	if first != "shared" {
		t.Errorf("expected first workspace to take the profile id, got %q", first)
	}
	if second == "shared" || second == "" {
		t.Errorf("expected a fresh id for the conflicting profile, got %q", second)
	}
	if n := len(s.Workspaces()); n != 2 {
		t.Errorf("expected 2 workspaces, got %d", n)
	}
}

func TestRemoveWorkspace_NextIsPrecedingInOrder(t *testing.T) {
	s := newTestStore(&fakeExecutor{})
	ctx := context.Background()
	a := s.AddWorkspace(ctx, profileFor("a", "host-a", "app"), false)
	b := s.AddWorkspace(ctx, profileFor("b", "host-b", "app"), false)
	c := s.AddWorkspace(ctx, profileFor("c", "host-c", "app"), false)

	if next := s.RemoveWorkspace(b); next != a {
		t.Errorf("expected preceding workspace %q, got %q", a, next)
	}
	// First in order: fall back to the last remaining workspace.
	if next := s.RemoveWorkspace(a); next != c {
		t.Errorf("expected last remaining workspace %q, got %q", c, next)
	}
	if next := s.RemoveWorkspace(c); next != "" {
		t.Errorf("expected no next workspace, got %q", next)
	}
}

func TestRemoveWorkspace_CascadesTabsAndSelection(t *testing.T) {
	s := newTestStore(&fakeExecutor{})
	ctx := context.Background()
	a := s.AddWorkspace(ctx, profileFor("a", "host-a", "app"), false)
	b := s.AddWorkspace(ctx, profileFor("b", "host-b", "app"), false)
	s.AddTab(Tab{WorkspaceID: b, Type: TabData, Table: "users"})
	s.AddTab(Tab{WorkspaceID: b, Type: TabQuery})
	s.AddTab(Tab{WorkspaceID: a, Type: TabData, Table: "orders"})
	s.SetSelected(b)

	next := s.RemoveWorkspace(b)

	if next != a {
		t.Errorf("expected next %q, got %q", a, next)
	}
	if s.Selected() != a {
		t.Errorf("expected selection to move to %q, got %q", a, s.Selected())
	}
	tabs := s.Tabs()
	if len(tabs) != 1 {
		t.Fatalf("expected 1 surviving tab, got %d", len(tabs))
	}
	if tabs[0].WorkspaceID != a {
		t.Errorf("surviving tab belongs to %q, expected %q", tabs[0].WorkspaceID, a)
	}
}

func TestRemoveWorkspace_UnknownIDKeepsSelection(t *testing.T) {
	s := newTestStore(&fakeExecutor{})
	a := s.AddWorkspace(context.Background(), profileFor("a", "host-a", "app"), false)
	s.SetSelected(a)

	if next := s.RemoveWorkspace("ghost"); next != a {
		t.Errorf("expected current selection %q, got %q", a, next)
	}
}

func TestAddTab_AppliesPagingDefaults(t *testing.T) {
	s := newTestStore(&fakeExecutor{})
	ws := s.AddWorkspace(context.Background(), profileFor("a", "host-a", "app"), false)

	id := s.AddTab(Tab{WorkspaceID: ws, Type: TabData, Table: "users"})

	tab, ok := s.Tab(id)
	if !ok {
		t.Fatal("tab not found")
	}
	if tab.Page != 1 {
		t.Errorf("expected page 1, got %d", tab.Page)
	}
	if tab.PageSize != defaultPageSize {
		t.Errorf("expected page size %d, got %d", defaultPageSize, tab.PageSize)
	}
}

func TestAddTab_UnknownWorkspace(t *testing.T) {
	s := newTestStore(&fakeExecutor{})
	if id := s.AddTab(Tab{WorkspaceID: "ghost", Type: TabQuery}); id != "" {
		t.Errorf("expected empty id for unknown workspace, got %q", id)
	}
}

func TestAddTab_TableTabDeduplicates(t *testing.T) {
	s := newTestStore(&fakeExecutor{})
	ws := s.AddWorkspace(context.Background(), profileFor("a", "host-a", "app"), false)

	first := s.AddTab(Tab{WorkspaceID: ws, Type: TabData, Table: "users"})
	second := s.AddTab(Tab{WorkspaceID: ws, Type: TabStructure, Table: "users"})
	other := s.AddTab(Tab{WorkspaceID: ws, Type: TabData, Table: "orders"})

	if first != second {
		t.Errorf("expected reuse of tab %q, got %q", first, second)
	}
	if other == first {
		t.Error("tabs for different tables should not share an id")
	}
	if n := len(s.Tabs()); n != 2 {
		t.Errorf("expected 2 tabs, got %d", n)
	}
}

func TestAddTab_QueryTabDedupIsPerWorkspace(t *testing.T) {
	s := newTestStore(&fakeExecutor{})
	ctx := context.Background()
	a := s.AddWorkspace(ctx, profileFor("a", "host-a", "app"), false)
	b := s.AddWorkspace(ctx, profileFor("b", "host-b", "app"), false)

	qa := s.AddTab(Tab{WorkspaceID: a, Type: TabQuery})
	qb := s.AddTab(Tab{WorkspaceID: b, Type: TabQuery})
	again := s.AddTab(Tab{WorkspaceID: a, Type: TabQuery})

	if qa == qb {
		t.Error("query tabs in different workspaces should not share an id")
	}
	if again != qa {
		t.Errorf("expected reuse of query tab %q, got %q", qa, again)
	}
}

func TestAddTab_ReactivationMakesExistingTabActive(t *testing.T) {
	s := newTestStore(&fakeExecutor{})
	ws := s.AddWorkspace(context.Background(), profileFor("a", "host-a", "app"), false)

	users := s.AddTab(Tab{WorkspaceID: ws, Type: TabData, Table: "users"})
	s.AddTab(Tab{WorkspaceID: ws, Type: TabData, Table: "orders"})
	s.AddTab(Tab{WorkspaceID: ws, Type: TabData, Table: "users"})

	w, _ := s.Workspace(ws)
	if w.ActiveTabID != users {
		t.Errorf("expected reactivated tab %q to be active, got %q", users, w.ActiveTabID)
	}
}

func TestCloseTab_PromotesPrecedingSibling(t *testing.T) {
	s := newTestStore(&fakeExecutor{})
	ws := s.AddWorkspace(context.Background(), profileFor("a", "host-a", "app"), false)
	ta := s.AddTab(Tab{WorkspaceID: ws, Type: TabData, Table: "a"})
	tb := s.AddTab(Tab{WorkspaceID: ws, Type: TabData, Table: "b"})
	s.AddTab(Tab{WorkspaceID: ws, Type: TabData, Table: "c"})
	s.SetActiveTab(ws, tb)

	s.CloseTab(tb)

	w, _ := s.Workspace(ws)
	if w.ActiveTabID != ta {
		t.Errorf("expected preceding tab %q to become active, got %q", ta, w.ActiveTabID)
	}
}

func TestCloseTab_FallsForwardWhenFirstCloses(t *testing.T) {
	s := newTestStore(&fakeExecutor{})
	ws := s.AddWorkspace(context.Background(), profileFor("a", "host-a", "app"), false)
	ta := s.AddTab(Tab{WorkspaceID: ws, Type: TabData, Table: "a"})
	tb := s.AddTab(Tab{WorkspaceID: ws, Type: TabData, Table: "b"})
	s.SetActiveTab(ws, ta)

	s.CloseTab(ta)

	w, _ := s.Workspace(ws)
	if w.ActiveTabID != tb {
		t.Errorf("expected following tab %q to become active, got %q", tb, w.ActiveTabID)
	}
}

func TestCloseTab_InactiveTabKeepsActive(t *testing.T) {
	s := newTestStore(&fakeExecutor{})
	ws := s.AddWorkspace(context.Background(), profileFor("a", "host-a", "app"), false)
	ta := s.AddTab(Tab{WorkspaceID: ws, Type: TabData, Table: "a"})
	tb := s.AddTab(Tab{WorkspaceID: ws, Type: TabData, Table: "b"})
	s.SetActiveTab(ws, tb)

	s.CloseTab(ta)

	w, _ := s.Workspace(ws)
	if w.ActiveTabID != tb {
		t.Errorf("expected active tab to stay %q, got %q", tb, w.ActiveTabID)
	}
}

func TestCloseTab_LastTabClearsActive(t *testing.T) {
	s := newTestStore(&fakeExecutor{})
	ws := s.AddWorkspace(context.Background(), profileFor("a", "host-a", "app"), false)
	ta := s.AddTab(Tab{WorkspaceID: ws, Type: TabData, Table: "a"})

	s.CloseTab(ta)

	w, _ := s.Workspace(ws)
	if w.ActiveTabID != "" {
		t.Errorf("expected no active tab, got %q", w.ActiveTabID)
	}
	if n := len(s.Tabs()); n != 0 {
		t.Errorf("expected 0 tabs, got %d", n)
	}
}

func TestCloseActiveTab(t *testing.T) {
	s := newTestStore(&fakeExecutor{})
	ws := s.AddWorkspace(context.Background(), profileFor("a", "host-a", "app"), false)
	s.AddTab(Tab{WorkspaceID: ws, Type: TabData, Table: "a"})
	tb := s.AddTab(Tab{WorkspaceID: ws, Type: TabData, Table: "b"})

	s.CloseActiveTab(ws)

	if _, ok := s.Tab(tb); ok {
		t.Error("expected active tab to be closed")
	}
	if n := len(s.Tabs()); n != 1 {
		t.Errorf("expected 1 tab, got %d", n)
	}
}

func TestSetActiveTab_RejectsForeignTab(t *testing.T) {
	s := newTestStore(&fakeExecutor{})
	ctx := context.Background()
	a := s.AddWorkspace(ctx, profileFor("a", "host-a", "app"), false)
	b := s.AddWorkspace(ctx, profileFor("b", "host-b", "app"), false)
	ta := s.AddTab(Tab{WorkspaceID: a, Type: TabQuery})
	tb := s.AddTab(Tab{WorkspaceID: b, Type: TabQuery})

	s.SetActiveTab(a, tb)

	w, _ := s.Workspace(a)
	if w.ActiveTabID != ta {
		t.Errorf("expected active tab to stay %q, got %q", ta, w.ActiveTabID)
	}
}

func TestUpdateQueryTab_IgnoresTableTabs(t *testing.T) {
	s := newTestStore(&fakeExecutor{})
	ws := s.AddWorkspace(context.Background(), profileFor("a", "host-a", "app"), false)
	id := s.AddTab(Tab{WorkspaceID: ws, Type: TabData, Table: "users"})

	s.UpdateQueryTab(id, "select 1")

	tab, _ := s.Tab(id)
	if tab.Query != "" {
		t.Errorf("expected query to stay empty on a table tab, got %q", tab.Query)
	}
}

func TestCacheTabRows(t *testing.T) {
	s := newTestStore(&fakeExecutor{})
	ws := s.AddWorkspace(context.Background(), profileFor("a", "host-a", "app"), false)
	id := s.AddTab(Tab{WorkspaceID: ws, Type: TabData, Table: "users"})

	s.CacheTabRows(id, []string{"id", "name"}, [][]any{{int64(1), "ada"}})

	tab, _ := s.Tab(id)
	if len(tab.Columns) != 2 || len(tab.Rows) != 1 {
		t.Errorf("expected cached result, got columns %v rows %v", tab.Columns, tab.Rows)
	}
}
