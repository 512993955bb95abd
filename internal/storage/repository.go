package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"dbdeck/internal/session"
)

// Repo persists connection profiles and the session snapshot in a single
// SQLite state database. It implements session.Persister.
type Repo struct {
	db *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// SaveSnapshot replaces the persisted session state wholesale. The previous
// rows are deleted and the snapshot's workspaces and tabs are written in
// order, all in one transaction.
func (r *Repo) SaveSnapshot(ctx context.Context, snap session.Snapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM session_tabs"); err != nil {
		return fmt.Errorf("clear tabs: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM session_workspaces"); err != nil {
		return fmt.Errorf("clear workspaces: %w", err)
	}

	for i, w := range snap.Workspaces {
		profile, err := json.Marshal(w.Profile)
		if err != nil {
			return fmt.Errorf("marshal profile %s: %w", w.ID, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO session_workspaces (id, profile_json, current_database, active_tab_id, sort_order)
			VALUES (?, ?, ?, ?, ?)`,
			w.ID, string(profile), w.CurrentDatabase, w.ActiveTabID, i)
		if err != nil {
			return fmt.Errorf("insert workspace %s: %w", w.ID, err)
		}
	}

	for i, t := range snap.Tabs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO session_tabs (id, workspace_id, title, database_name, tab_type, table_name, page, page_size, query, sort_order)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.WorkspaceID, t.Title, t.Database, string(t.Type), t.Table, t.Page, t.PageSize, t.Query, i)
		if err != nil {
			return fmt.Errorf("insert tab %s: %w", t.ID, err)
		}
	}

	if err := setMetaTx(ctx, tx, "selected_workspace", snap.SelectedWorkspaceID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// LoadSnapshot reads the persisted session state. Returns nil when nothing
// has been saved yet.
func (r *Repo) LoadSnapshot(ctx context.Context) (*session.Snapshot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, profile_json, current_database, active_tab_id
		FROM session_workspaces ORDER BY sort_order`)
	if err != nil {
		return nil, fmt.Errorf("load workspaces: %w", err)
	}
	defer rows.Close()

	var snap session.Snapshot
	for rows.Next() {
		var ws session.WorkspaceSnapshot
		var profile string
		if err := rows.Scan(&ws.ID, &profile, &ws.CurrentDatabase, &ws.ActiveTabID); err != nil {
			return nil, fmt.Errorf("scan workspace: %w", err)
		}
		if err := json.Unmarshal([]byte(profile), &ws.Profile); err != nil {
			return nil, fmt.Errorf("parse profile for workspace %s: %w", ws.ID, err)
		}
		snap.Workspaces = append(snap.Workspaces, ws)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load workspaces: %w", err)
	}
	if len(snap.Workspaces) == 0 {
		return nil, nil
	}

	tabRows, err := r.db.QueryContext(ctx, `
		SELECT id, workspace_id, title, database_name, tab_type, table_name, page, page_size, query
		FROM session_tabs ORDER BY sort_order`)
	if err != nil {
		return nil, fmt.Errorf("load tabs: %w", err)
	}
	defer tabRows.Close()

	for tabRows.Next() {
		var t session.TabSnapshot
		var tabType string
		if err := tabRows.Scan(&t.ID, &t.WorkspaceID, &t.Title, &t.Database, &tabType, &t.Table, &t.Page, &t.PageSize, &t.Query); err != nil {
			return nil, fmt.Errorf("scan tab: %w", err)
		}
		t.Type = session.TabType(tabType)
		snap.Tabs = append(snap.Tabs, t)
	}
	if err := tabRows.Err(); err != nil {
		return nil, fmt.Errorf("load tabs: %w", err)
	}

	selected, err := r.getMeta(ctx, "selected_workspace")
	if err != nil {
		return nil, err
	}
	snap.SelectedWorkspaceID = selected

	return &snap, nil
}

func setMetaTx(ctx context.Context, tx *sql.Tx, key, value string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO session_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("set meta %s: %w", key, err)
	}
	return nil
}

func (r *Repo) getMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM session_meta WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get meta %s: %w", key, err)
	}
	return value, nil
}

// SaveProfile inserts or updates a saved connection profile. The password is
// not written here; it belongs in the OS credential manager.
func (r *Repo) SaveProfile(ctx context.Context, p session.Profile) error {
	sshEnabled := 0
	if p.SSHEnabled {
		sshEnabled = 1
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO saved_connections
			(id, name, driver, host, port, database_name, username, ssl_mode,
			 project, dataset, credentials_file, bigquery_auth_mode,
			 ssh_enabled, ssh_host, ssh_port, ssh_user, ssh_key_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			driver = excluded.driver,
			host = excluded.host,
			port = excluded.port,
			database_name = excluded.database_name,
			username = excluded.username,
			ssl_mode = excluded.ssl_mode,
			project = excluded.project,
			dataset = excluded.dataset,
			credentials_file = excluded.credentials_file,
			bigquery_auth_mode = excluded.bigquery_auth_mode,
			ssh_enabled = excluded.ssh_enabled,
			ssh_host = excluded.ssh_host,
			ssh_port = excluded.ssh_port,
			ssh_user = excluded.ssh_user,
			ssh_key_path = excluded.ssh_key_path,
			updated_at = datetime('now')`,
		p.ID, p.Name, p.Driver, p.Host, p.Port, p.Database, p.Username, p.SSLMode,
		p.Project, p.Dataset, p.CredentialsFile, p.BigQueryAuthMode,
		sshEnabled, p.SSH.Host, p.SSH.Port, p.SSH.User, p.SSH.KeyPath)
	if err != nil {
		return fmt.Errorf("save profile %s: %w", p.Name, err)
	}
	return nil
}

// ListProfiles returns every saved connection profile, ordered by name.
func (r *Repo) ListProfiles(ctx context.Context) ([]session.Profile, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, driver, host, port, database_name, username, ssl_mode,
		       project, dataset, credentials_file, bigquery_auth_mode,
		       ssh_enabled, ssh_host, ssh_port, ssh_user, ssh_key_path
		FROM saved_connections ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []session.Profile
	for rows.Next() {
		var p session.Profile
		var sshEnabled int
		err := rows.Scan(&p.ID, &p.Name, &p.Driver, &p.Host, &p.Port, &p.Database,
			&p.Username, &p.SSLMode, &p.Project, &p.Dataset, &p.CredentialsFile,
			&p.BigQueryAuthMode, &sshEnabled, &p.SSH.Host, &p.SSH.Port, &p.SSH.User,
			&p.SSH.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		p.SSHEnabled = sshEnabled != 0
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return profiles, nil
}

// DeleteProfile removes a saved connection profile.
func (r *Repo) DeleteProfile(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM saved_connections WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete profile %s: %w", id, err)
	}
	return nil
}
