package session

import "context"

// WorkspaceSnapshot is the durable projection of a workspace. Discovered
// catalogs and connection status are deliberately absent: restored workspaces
// start over in Initial.
type WorkspaceSnapshot struct {
	ID              string  `json:"id"`
	Profile         Profile `json:"profile"`
	CurrentDatabase string  `json:"currentDatabase"`
	ActiveTabID     string  `json:"activeTabId,omitempty"`
}

// TabSnapshot is the durable projection of a tab: identity plus the
// type-specific view parameters. Fetched rows and columns are never written.
type TabSnapshot struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	WorkspaceID string  `json:"workspaceId"`
	Database    string  `json:"database"`
	Type        TabType `json:"type"`
	Table       string  `json:"table,omitempty"`
	Page        int     `json:"page,omitempty"`
	PageSize    int     `json:"pageSize,omitempty"`
	Query       string  `json:"query,omitempty"`
}

// Snapshot is the full durable projection of the session graph.
type Snapshot struct {
	SelectedWorkspaceID string              `json:"selectedWorkspaceId,omitempty"`
	Workspaces          []WorkspaceSnapshot `json:"workspaces"`
	Tabs                []TabSnapshot       `json:"tabs"`
}

// Persister reads and writes the durable projection.
type Persister interface {
	SaveSnapshot(ctx context.Context, snap Snapshot) error
	// LoadSnapshot returns nil when no snapshot has been written yet.
	LoadSnapshot(ctx context.Context) (*Snapshot, error)
}

// snapshot builds the durable projection of the current state.
func (s *Store) snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		SelectedWorkspaceID: s.selected,
		Workspaces:          make([]WorkspaceSnapshot, 0, len(s.order)),
		Tabs:                make([]TabSnapshot, 0, len(s.tabs)),
	}
	for _, id := range s.order {
		ws := s.spaces[id]
		snap.Workspaces = append(snap.Workspaces, WorkspaceSnapshot{
			ID:              ws.ID,
			Profile:         ws.Profile,
			CurrentDatabase: ws.CurrentDatabase,
			ActiveTabID:     ws.ActiveTabID,
		})
	}
	for _, t := range s.tabs {
		ts := TabSnapshot{
			ID:          t.ID,
			Title:       t.Title,
			WorkspaceID: t.WorkspaceID,
			Database:    t.Database,
			Type:        t.Type,
		}
		if t.Type == TabQuery {
			ts.Query = t.Query
		} else {
			ts.Table = t.Table
			ts.Page = t.Page
			ts.PageSize = t.PageSize
		}
		snap.Tabs = append(snap.Tabs, ts)
	}
	return snap
}

// LoadState replaces the in-memory session with the persisted snapshot.
// Restored workspaces come back in Initial status with empty catalogs; no
// reconnect is attempted here. Saves are suppressed for the duration so the
// restoration itself does not immediately rewrite the state it just read.
func (s *Store) LoadState(ctx context.Context) error {
	s.saver.suppress(true)
	defer s.saver.suppress(false)

	snap, err := s.saver.load(ctx)
	if err != nil {
		return err
	}
	if snap == nil {
		return nil
	}

	s.mu.Lock()
	s.order = s.order[:0]
	s.spaces = make(map[string]*Workspace, len(snap.Workspaces))
	s.tabs = s.tabs[:0]
	for _, w := range snap.Workspaces {
		s.spaces[w.ID] = &Workspace{
			ID:              w.ID,
			Profile:         w.Profile,
			CurrentDatabase: w.CurrentDatabase,
			ActiveTabID:     w.ActiveTabID,
			Status:          StatusInitial,
		}
		s.order = append(s.order, w.ID)
	}
	for _, ts := range snap.Tabs {
		s.tabs = append(s.tabs, &Tab{
			ID:          ts.ID,
			Title:       ts.Title,
			WorkspaceID: ts.WorkspaceID,
			Database:    ts.Database,
			Type:        ts.Type,
			Table:       ts.Table,
			Page:        ts.Page,
			PageSize:    ts.PageSize,
			Query:       ts.Query,
		})
	}
	s.selected = snap.SelectedWorkspaceID
	s.mu.Unlock()

	s.emit(Event{Op: OpStateLoaded})
	return nil
}
