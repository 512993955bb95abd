package session

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Status is the workspace connection state.
type Status string

const (
	StatusInitial    Status = "initial"
	StatusConnecting Status = "connecting"
	StatusConnected  Status = "connected"
	StatusError      Status = "error"
)

// Workspace tracks one live (or previously live) logical database connection:
// its profile, the selected database, the discovered catalog, and the active
// tab. All fields are guarded by the owning store's lock.
type Workspace struct {
	ID              string   `json:"id"`
	Profile         Profile  `json:"profile"`
	CurrentDatabase string   `json:"currentDatabase"`
	Databases       []string `json:"databases"`
	Tables          []string `json:"tables"`
	ActiveTabID     string   `json:"activeTabId,omitempty"`
	Status          Status   `json:"status"`
}

// Connect drives the workspace state machine: Initial/Error -> Connecting ->
// Connected or Error. A workspace already connecting or connected ignores the
// call. The tunnel acquisition, the connect RPC, and the two catalog fetches
// are awaited outside the store lock; results are applied in one critical
// section so readers never observe a half-updated workspace. The workspace
// may be removed while a call is in flight, in which case the settled result
// is discarded.
func (s *Store) Connect(ctx context.Context, id string) {
	s.mu.Lock()
	ws, ok := s.spaces[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	if ws.Status == StatusConnecting || ws.Status == StatusConnected {
		s.mu.Unlock()
		return
	}
	ws.Status = StatusConnecting
	profile := ws.Profile
	s.mu.Unlock()
	s.emit(Event{Op: OpWorkspaceStatus, WorkspaceID: id})

	err := s.coord.Acquire(ctx, profile)
	if err == nil {
		err = s.exec.Connect(ctx, id, profile)
	}

	var databases, tables []string
	if err == nil {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var e error
			databases, e = s.exec.ListDatabases(gctx, id)
			return e
		})
		g.Go(func() error {
			var e error
			tables, e = s.exec.ListTables(gctx, id)
			return e
		})
		err = g.Wait()
	}

	s.mu.Lock()
	ws, ok = s.spaces[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	if err != nil {
		ws.Status = StatusError
		s.mu.Unlock()
		s.logger.Error("workspace connect failed", "workspace", id, "error", err)
		s.emit(Event{Op: OpWorkspaceStatus, WorkspaceID: id})
		return
	}
	ws.Databases = databases
	ws.Tables = tables
	ws.Status = StatusConnected
	s.mu.Unlock()
	s.emit(Event{Op: OpWorkspaceStatus, WorkspaceID: id})
}

// Disconnect releases the external connection handle and resets the workspace
// to Initial with an empty catalog. No-op for unknown ids.
func (s *Store) Disconnect(ctx context.Context, id string) {
	s.mu.RLock()
	_, ok := s.spaces[id]
	s.mu.RUnlock()
	if !ok {
		return
	}

	if err := s.exec.Disconnect(ctx, id); err != nil {
		s.logger.Warn("workspace disconnect", "workspace", id, "error", err)
	}

	s.mu.Lock()
	ws, ok := s.spaces[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	ws.Status = StatusInitial
	ws.Databases = nil
	ws.Tables = nil
	s.mu.Unlock()
	s.emit(Event{Op: OpWorkspaceStatus, WorkspaceID: id})
}
