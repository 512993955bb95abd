package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"dbdeck/internal/executor"
	"dbdeck/internal/session"
	"dbdeck/internal/storage"
)

// App is the Wails-bound application surface. Every exported method is
// callable from the frontend.
type App struct {
	ctx     context.Context
	version string

	store     *session.Store
	service   *executor.Service
	repo      *storage.Repo
	keys      storage.Keyring
	logger    *slog.Logger
	reconnect bool
}

// Options wires the App's collaborators.
type Options struct {
	Store   *session.Store
	Service *executor.Service
	Repo    *storage.Repo
	Logger  *slog.Logger
	// ReconnectOnRestore reconnects restored workspaces during Startup.
	ReconnectOnRestore bool
	Version            string
}

// NewApp returns a new App. Call Startup with the Wails context before using
// runtime events.
func NewApp(opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		version:   opts.Version,
		store:     opts.Store,
		service:   opts.Service,
		repo:      opts.Repo,
		logger:    logger,
		reconnect: opts.ReconnectOnRestore,
	}
}

// Version returns the application version.
func (a *App) Version() string {
	return a.version
}

// Startup restores the previous session and starts forwarding store events to
// the frontend. Restored workspaces stay idle unless reconnect-on-restore is
// configured.
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx
	a.store.SetObserver(func(ev session.Event) {
		runtime.EventsEmit(a.ctx, "session:"+ev.Op, ev)
	})
	if err := a.store.LoadState(ctx); err != nil {
		a.logger.Error("restore session", "error", err)
		return
	}
	if a.reconnect {
		for _, ws := range a.store.Workspaces() {
			go a.store.Connect(context.Background(), ws.ID)
		}
	}
}

// Shutdown flushes pending state and tears down connections and tunnels.
func (a *App) Shutdown(ctx context.Context) {
	a.store.FlushNow()
	a.service.CloseAll()
}

// --- Saved connection profiles ---

// SaveProfile persists a connection profile. The password goes to the OS
// credential manager, never to the state database.
func (a *App) SaveProfile(p session.Profile) error {
	if p.Password != "" {
		if err := a.keys.SavePassword(p.ID, p.Password); err != nil {
			a.logger.Warn("store password in keyring", "profile", p.Name, "error", err)
		}
		p.Password = ""
	}
	return a.repo.SaveProfile(a.ctx, p)
}

// ListProfiles returns the saved connection profiles, without passwords.
func (a *App) ListProfiles() ([]session.Profile, error) {
	return a.repo.ListProfiles(a.ctx)
}

// DeleteProfile removes a saved profile and its stored password.
func (a *App) DeleteProfile(id string) error {
	if err := a.keys.DeletePassword(id); err != nil {
		a.logger.Debug("delete keyring entry", "profile", id, "error", err)
	}
	return a.repo.DeleteProfile(a.ctx, id)
}

// TestConnection attempts a short-lived connection with the given profile and
// reports failure as an error. No workspace is created.
func (a *App) TestConnection(p session.Profile) error {
	backend, err := executor.NewBackend(p.Driver)
	if err != nil {
		return err
	}
	cfg := executor.Config{
		Driver:           p.Driver,
		Host:             p.Host,
		Port:             p.Port,
		Database:         p.Database,
		Username:         p.Username,
		Password:         p.Password,
		SSLMode:          p.SSLMode,
		Project:          p.Project,
		Dataset:          p.Dataset,
		CredentialsFile:  p.CredentialsFile,
		BigQueryAuthMode: p.BigQueryAuthMode,
	}
	if cfg.Password == "" {
		if pw, err := a.keys.LookupPassword(p.ID); err == nil {
			cfg.Password = pw
		}
	}
	if err := backend.Connect(cfg); err != nil {
		return err
	}
	return backend.Close()
}

// --- Workspaces ---

// OpenWorkspace creates (or focuses) the workspace for a profile and selects
// it. With connectNow the call waits for the connect attempt to settle.
func (a *App) OpenWorkspace(p session.Profile, connectNow bool) string {
	id := a.store.AddWorkspace(a.ctx, p, connectNow)
	a.store.SetSelected(id)
	return id
}

// CloseWorkspace removes a workspace and returns the id to select next.
func (a *App) CloseWorkspace(id string) string {
	return a.store.RemoveWorkspace(id)
}

// ConnectWorkspace starts (or retries) the workspace's connection. The
// outcome lands in the workspace status.
func (a *App) ConnectWorkspace(id string) {
	a.store.Connect(a.ctx, id)
}

// DisconnectWorkspace releases the workspace's connection and resets it.
func (a *App) DisconnectWorkspace(id string) {
	a.store.Disconnect(a.ctx, id)
}

// SelectWorkspace records the workspace the UI shows.
func (a *App) SelectWorkspace(id string) {
	a.store.SetSelected(id)
}

// SelectedWorkspace returns the selected workspace id, or "".
func (a *App) SelectedWorkspace() string {
	return a.store.Selected()
}

// Workspaces returns all workspaces in insertion order.
func (a *App) Workspaces() []session.Workspace {
	return a.store.Workspaces()
}

// SetCurrentDatabase switches the database a workspace points at.
func (a *App) SetCurrentDatabase(workspaceID, database string) {
	a.store.SetCurrentDatabase(workspaceID, database)
}

// --- Tabs ---

// OpenTab opens (or reactivates) a tab and returns its id.
func (a *App) OpenTab(req session.Tab) string {
	return a.store.AddTab(req)
}

// CloseTab removes a tab.
func (a *App) CloseTab(tabID string) {
	a.store.CloseTab(tabID)
}

// CloseActiveTab closes the workspace's current active tab, if any.
func (a *App) CloseActiveTab(workspaceID string) {
	a.store.CloseActiveTab(workspaceID)
}

// ActivateTab points a workspace at one of its own tabs.
func (a *App) ActivateTab(workspaceID, tabID string) {
	a.store.SetActiveTab(workspaceID, tabID)
}

// Tabs returns all tabs in store order.
func (a *App) Tabs() []session.Tab {
	return a.store.Tabs()
}

// TabsFor returns the tabs owned by one workspace.
func (a *App) TabsFor(workspaceID string) []session.Tab {
	return a.store.TabsFor(workspaceID)
}

// UpdateQueryTab stores the query text of a query tab.
func (a *App) UpdateQueryTab(tabID, query string) {
	a.store.UpdateQueryTab(tabID, query)
}

// --- Data access ---

// LoadTabData fetches the page a table tab points at, caches the rows on the
// tab, and returns the result.
func (a *App) LoadTabData(tabID string, page, pageSize int) (executor.QueryResult, error) {
	tab, ok := a.store.Tab(tabID)
	if !ok {
		return executor.QueryResult{}, fmt.Errorf("tab %s not found", tabID)
	}
	if tab.Type == session.TabQuery {
		return executor.QueryResult{}, fmt.Errorf("tab %s is a query tab", tabID)
	}
	if page < 1 {
		page = tab.Page
	}
	if pageSize <= 0 {
		pageSize = tab.PageSize
	}
	offset := int64(page-1) * int64(pageSize)
	res, err := a.service.TableData(a.ctx, tab.WorkspaceID, tab.Table, int64(pageSize), offset)
	if err != nil {
		return executor.QueryResult{}, err
	}
	a.store.UpdateTabPage(tabID, page, pageSize, res.TotalRows)
	a.store.CacheTabRows(tabID, res.Columns, res.Rows)
	return res, nil
}

// RunQuery executes a query tab's current text, caches the rows on the tab,
// and returns the result.
func (a *App) RunQuery(tabID string) (executor.QueryResult, error) {
	tab, ok := a.store.Tab(tabID)
	if !ok {
		return executor.QueryResult{}, fmt.Errorf("tab %s not found", tabID)
	}
	if tab.Type != session.TabQuery {
		return executor.QueryResult{}, fmt.Errorf("tab %s is not a query tab", tabID)
	}
	res, err := a.service.Query(a.ctx, tab.WorkspaceID, tab.Query)
	if err != nil {
		return executor.QueryResult{}, err
	}
	a.store.CacheTabRows(tabID, res.Columns, res.Rows)
	return res, nil
}

// GetTableStructure returns the column definitions of a table.
func (a *App) GetTableStructure(workspaceID, table string) ([]executor.Column, error) {
	return a.service.TableStructure(a.ctx, workspaceID, table)
}

// --- BigQuery OAuth ---

// SaveOAuthClientConfig stores the OAuth client id and secret used for
// BigQuery user sign-in.
func (a *App) SaveOAuthClientConfig(cfg executor.OAuthClientConfig) error {
	return executor.SaveOAuthClientConfig(cfg)
}

// HasOAuthClientConfig reports whether an OAuth client config has been saved.
func (a *App) HasOAuthClientConfig() bool {
	_, err := executor.LoadOAuthClientConfig()
	return err == nil
}
