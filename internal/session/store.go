package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Executor is the narrow surface of the native query service the session
// layer drives. Implementations register live connections under the
// workspace id passed to Connect.
type Executor interface {
	Connect(ctx context.Context, workspaceID string, p Profile) error
	Disconnect(ctx context.Context, workspaceID string) error
	ListDatabases(ctx context.Context, workspaceID string) ([]string, error)
	ListTables(ctx context.Context, workspaceID string) ([]string, error)
}

// Event op names emitted after mutating operations.
const (
	OpWorkspaceAdded   = "workspace:added"
	OpWorkspaceRemoved = "workspace:removed"
	OpWorkspaceStatus  = "workspace:status"
	OpWorkspaceUpdated = "workspace:updated"
	OpTabAdded         = "tab:added"
	OpTabClosed        = "tab:closed"
	OpTabUpdated       = "tab:updated"
	OpSelectionChanged = "selection:changed"
	OpStateLoaded      = "state:loaded"
)

// Event describes a completed store mutation.
type Event struct {
	Op          string `json:"op"`
	WorkspaceID string `json:"workspaceId,omitempty"`
	TabID       string `json:"tabId,omitempty"`
}

// Observer receives events after each mutating operation. It is called
// outside the store lock and must not block.
type Observer func(Event)

// Options configures a Store.
type Options struct {
	Executor  Executor
	Persister Persister
	Dial      DialFunc
	// SaveDelay is the persistence debounce window; zero means one second.
	SaveDelay time.Duration
	Logger    *slog.Logger
}

// Store owns the workspace and tab collections and enforces their referential
// integrity. Workspaces keep insertion order; that order drives the fallback
// selection on removal. A single lock serializes all mutations; awaited
// external calls never run under it.
type Store struct {
	mu       sync.RWMutex
	order    []string
	spaces   map[string]*Workspace
	tabs     []*Tab
	selected string

	exec   Executor
	coord  *Coordinator
	saver  *saver
	notify Observer
	logger *slog.Logger
}

// NewStore builds an empty store. Call LoadState to restore a persisted
// session.
func NewStore(opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	delay := opts.SaveDelay
	if delay <= 0 {
		delay = time.Second
	}
	s := &Store{
		spaces: make(map[string]*Workspace),
		exec:   opts.Executor,
		coord:  NewCoordinator(opts.Dial),
		logger: logger,
	}
	s.saver = newSaver(s, opts.Persister, delay, logger)
	return s
}

// SetObserver registers the mutation observer. Pass nil to silence events.
func (s *Store) SetObserver(fn Observer) {
	s.mu.Lock()
	s.notify = fn
	s.mu.Unlock()
}

func (s *Store) emit(ev Event) {
	s.mu.RLock()
	fn := s.notify
	s.mu.RUnlock()
	if fn != nil {
		fn(ev)
	}
}

// ResolveWorkspaceID maps a profile to the workspace id it should occupy.
// A profile whose space key matches an existing workspace reuses that
// workspace. Otherwise the profile's declared id is used, unless an unrelated
// workspace already holds it, in which case a fresh id is minted.
func (s *Store) ResolveWorkspaceID(p Profile) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolveLocked(p)
}

func (s *Store) resolveLocked(p Profile) string {
	key := SpaceKey(p, p.Database)
	for _, id := range s.order {
		ws := s.spaces[id]
		if SpaceKey(ws.Profile, ws.CurrentDatabase) == key {
			return ws.ID
		}
	}
	if _, taken := s.spaces[p.ID]; !taken {
		return p.ID
	}
	return uuid.NewString()
}

// AddWorkspace creates (or finds) the workspace for a profile and returns its
// id. Adding a profile that resolves to an existing workspace is a no-op
// beyond returning that workspace's id. With connectNow the call waits for
// the connect attempt to settle; the outcome is reported through the
// workspace status.
func (s *Store) AddWorkspace(ctx context.Context, p Profile, connectNow bool) string {
	s.mu.Lock()
	id := s.resolveLocked(p)
	if _, ok := s.spaces[id]; ok {
		s.mu.Unlock()
		return id
	}
	ws := &Workspace{
		ID:              id,
		Profile:         p,
		CurrentDatabase: p.Database,
		Status:          StatusInitial,
	}
	s.spaces[id] = ws
	s.order = append(s.order, id)
	s.mu.Unlock()

	s.saver.schedule()
	s.emit(Event{Op: OpWorkspaceAdded, WorkspaceID: id})

	if connectNow {
		s.Connect(ctx, id)
	}
	return id
}

// RemoveWorkspace deletes a workspace and every tab it owns, then returns the
// id the caller should select next: the workspace preceding the removed one
// in insertion order, else the last remaining one, else "". The external
// connection handle is released in the background.
func (s *Store) RemoveWorkspace(id string) string {
	s.mu.Lock()
	ws, ok := s.spaces[id]
	if !ok {
		next := s.selected
		s.mu.Unlock()
		return next
	}

	next := ""
	for i, wid := range s.order {
		if wid == id {
			if i > 0 {
				next = s.order[i-1]
			}
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if next == "" && len(s.order) > 0 {
		next = s.order[len(s.order)-1]
	}
	delete(s.spaces, id)

	kept := s.tabs[:0]
	for _, t := range s.tabs {
		if t.WorkspaceID != id {
			kept = append(kept, t)
		}
	}
	s.tabs = kept

	if s.selected == id {
		s.selected = next
	}
	status := ws.Status
	s.mu.Unlock()

	if status == StatusConnected || status == StatusConnecting {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.exec.Disconnect(ctx, id); err != nil {
				s.logger.Warn("release removed workspace", "workspace", id, "error", err)
			}
		}()
	}

	s.saver.schedule()
	s.emit(Event{Op: OpWorkspaceRemoved, WorkspaceID: id})
	return next
}

// AddTab opens a tab in a workspace and makes it the active tab. A second
// query tab for a workspace, or a second table tab for the same workspace and
// table, reactivates the existing tab instead of duplicating it. Returns the
// tab id, or "" if the workspace does not exist.
func (s *Store) AddTab(req Tab) string {
	s.mu.Lock()
	ws, ok := s.spaces[req.WorkspaceID]
	if !ok {
		s.mu.Unlock()
		return ""
	}

	for _, t := range s.tabs {
		if t.matches(req) {
			ws.ActiveTabID = t.ID
			id := t.ID
			s.mu.Unlock()
			s.saver.schedule()
			s.emit(Event{Op: OpTabUpdated, WorkspaceID: req.WorkspaceID, TabID: id})
			return id
		}
	}

	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Type != TabQuery {
		if req.Page < 1 {
			req.Page = 1
		}
		if req.PageSize <= 0 {
			req.PageSize = defaultPageSize
		}
	}
	tab := req
	s.tabs = append(s.tabs, &tab)
	ws.ActiveTabID = tab.ID
	s.mu.Unlock()

	s.saver.schedule()
	s.emit(Event{Op: OpTabAdded, WorkspaceID: req.WorkspaceID, TabID: tab.ID})
	return tab.ID
}

const defaultPageSize = 100

// CloseTab removes a tab. When the closed tab was its workspace's active tab,
// activation falls to the nearest preceding sibling in store order, then the
// nearest following one, then none.
func (s *Store) CloseTab(tabID string) {
	s.mu.Lock()
	idx := -1
	for i, t := range s.tabs {
		if t.ID == tabID {
			idx = i
			break
		}
	}
	if idx == -1 {
		s.mu.Unlock()
		return
	}
	tab := s.tabs[idx]
	wsID := tab.WorkspaceID

	if ws, ok := s.spaces[wsID]; ok && ws.ActiveTabID == tabID {
		ws.ActiveTabID = ""
		for i := idx - 1; i >= 0; i-- {
			if s.tabs[i].WorkspaceID == wsID {
				ws.ActiveTabID = s.tabs[i].ID
				break
			}
		}
		if ws.ActiveTabID == "" {
			for i := idx + 1; i < len(s.tabs); i++ {
				if s.tabs[i].WorkspaceID == wsID {
					ws.ActiveTabID = s.tabs[i].ID
					break
				}
			}
		}
	}

	s.tabs = append(s.tabs[:idx], s.tabs[idx+1:]...)
	s.mu.Unlock()

	s.saver.schedule()
	s.emit(Event{Op: OpTabClosed, WorkspaceID: wsID, TabID: tabID})
}

// CloseActiveTab closes the workspace's current active tab, if any.
func (s *Store) CloseActiveTab(workspaceID string) {
	s.mu.RLock()
	active := ""
	if ws, ok := s.spaces[workspaceID]; ok {
		active = ws.ActiveTabID
	}
	s.mu.RUnlock()
	if active != "" {
		s.CloseTab(active)
	}
}

// SetSelected records the workspace the UI currently shows.
func (s *Store) SetSelected(id string) {
	s.mu.Lock()
	s.selected = id
	s.mu.Unlock()
	s.saver.schedule()
	s.emit(Event{Op: OpSelectionChanged, WorkspaceID: id})
}

// Selected returns the selected workspace id, or "".
func (s *Store) Selected() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// SetCurrentDatabase switches the database a workspace points at.
func (s *Store) SetCurrentDatabase(workspaceID, database string) {
	s.mu.Lock()
	ws, ok := s.spaces[workspaceID]
	if !ok {
		s.mu.Unlock()
		return
	}
	ws.CurrentDatabase = database
	s.mu.Unlock()
	s.saver.schedule()
	s.emit(Event{Op: OpWorkspaceUpdated, WorkspaceID: workspaceID})
}

// SetActiveTab points a workspace at one of its own tabs. Tabs owned by other
// workspaces are rejected silently.
func (s *Store) SetActiveTab(workspaceID, tabID string) {
	s.mu.Lock()
	ws, ok := s.spaces[workspaceID]
	if !ok {
		s.mu.Unlock()
		return
	}
	owned := false
	for _, t := range s.tabs {
		if t.ID == tabID && t.WorkspaceID == workspaceID {
			owned = true
			break
		}
	}
	if !owned {
		s.mu.Unlock()
		return
	}
	ws.ActiveTabID = tabID
	s.mu.Unlock()
	s.saver.schedule()
	s.emit(Event{Op: OpWorkspaceUpdated, WorkspaceID: workspaceID})
}

// UpdateQueryTab stores the query text of a query tab.
func (s *Store) UpdateQueryTab(tabID, query string) {
	s.mu.Lock()
	t := s.tabLocked(tabID)
	if t == nil || t.Type != TabQuery {
		s.mu.Unlock()
		return
	}
	t.Query = query
	wsID := t.WorkspaceID
	s.mu.Unlock()
	s.saver.schedule()
	s.emit(Event{Op: OpTabUpdated, WorkspaceID: wsID, TabID: tabID})
}

// UpdateTabPage records the paging position of a table tab.
func (s *Store) UpdateTabPage(tabID string, page, pageSize int, totalRows int64) {
	s.mu.Lock()
	t := s.tabLocked(tabID)
	if t == nil || t.Type == TabQuery {
		s.mu.Unlock()
		return
	}
	t.Page = page
	t.PageSize = pageSize
	t.TotalRows = totalRows
	wsID := t.WorkspaceID
	s.mu.Unlock()
	s.saver.schedule()
	s.emit(Event{Op: OpTabUpdated, WorkspaceID: wsID, TabID: tabID})
}

// CacheTabRows replaces a tab's fetched result buffer. The buffer is display
// cache only and never reaches the persistence scheduler.
func (s *Store) CacheTabRows(tabID string, columns []string, rows [][]any) {
	s.mu.Lock()
	t := s.tabLocked(tabID)
	if t == nil {
		s.mu.Unlock()
		return
	}
	t.Columns = columns
	t.Rows = rows
	wsID := t.WorkspaceID
	s.mu.Unlock()
	s.emit(Event{Op: OpTabUpdated, WorkspaceID: wsID, TabID: tabID})
}

func (s *Store) tabLocked(tabID string) *Tab {
	for _, t := range s.tabs {
		if t.ID == tabID {
			return t
		}
	}
	return nil
}

// Workspace returns a copy of the workspace with the given id.
func (s *Store) Workspace(id string) (Workspace, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ws, ok := s.spaces[id]
	if !ok {
		return Workspace{}, false
	}
	return *ws, true
}

// Workspaces returns copies of all workspaces in insertion order.
func (s *Store) Workspaces() []Workspace {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Workspace, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.spaces[id])
	}
	return out
}

// Tab returns a copy of the tab with the given id.
func (s *Store) Tab(id string) (Tab, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t := s.tabLocked(id); t != nil {
		return *t, true
	}
	return Tab{}, false
}

// Tabs returns copies of all tabs in store order.
func (s *Store) Tabs() []Tab {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Tab, 0, len(s.tabs))
	for _, t := range s.tabs {
		out = append(out, *t)
	}
	return out
}

// TabsFor returns copies of the tabs owned by one workspace, in store order.
func (s *Store) TabsFor(workspaceID string) []Tab {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Tab
	for _, t := range s.tabs {
		if t.WorkspaceID == workspaceID {
			out = append(out, *t)
		}
	}
	return out
}
