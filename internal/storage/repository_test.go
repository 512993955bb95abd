package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"dbdeck/internal/session"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := InitSchema(db); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	if err := MigrateSchema(db); err != nil {
		t.Fatalf("migrate schema: %v", err)
	}
	return db
}

func TestLoadSnapshot_EmptyDatabase(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	snap, err := repo.LoadSnapshot(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snap != nil {
		t.Errorf("expected nil snapshot from empty database, got %+v", snap)
	}
}

func TestSnapshot_Roundtrip(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	in := session.Snapshot{
		SelectedWorkspaceID: "ws-2",
		Workspaces: []session.WorkspaceSnapshot{
			{
				ID: "ws-1",
				Profile: session.Profile{
					ID: "p1", Name: "Local", Driver: "postgres",
					Host: "localhost", Port: 5432, Username: "postgres", Database: "app",
				},
				CurrentDatabase: "app",
				ActiveTabID:     "tab-1",
			},
			{
				ID: "ws-2",
				Profile: session.Profile{
					ID: "p2", Name: "Tunneled", Driver: "mysql",
					Host: "db.internal", Port: 3306, Username: "root", Database: "shop",
					SSHEnabled: true,
					SSH:        session.SSHConfig{Host: "bastion", Port: 22, User: "deploy"},
				},
				CurrentDatabase: "shop",
			},
		},
		Tabs: []session.TabSnapshot{
			{ID: "tab-1", WorkspaceID: "ws-1", Title: "users", Database: "app", Type: session.TabData, Table: "users", Page: 3, PageSize: 50},
			{ID: "tab-2", WorkspaceID: "ws-1", Title: "Query", Database: "app", Type: session.TabQuery, Query: "select 1"},
		},
	}

	if err := repo.SaveSnapshot(ctx, in); err != nil {
		t.Fatalf("save: %v", err)
	}
	out, err := repo.LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if out == nil {
		t.Fatal("expected snapshot, got nil")
	}

	if out.SelectedWorkspaceID != "ws-2" {
		t.Errorf("expected selected ws-2, got %q", out.SelectedWorkspaceID)
	}
	if len(out.Workspaces) != 2 {
		t.Fatalf("expected 2 workspaces, got %d", len(out.Workspaces))
	}
	if out.Workspaces[0].ID != "ws-1" || out.Workspaces[1].ID != "ws-2" {
		t.Errorf("expected insertion order preserved, got %s then %s", out.Workspaces[0].ID, out.Workspaces[1].ID)
	}
	tunneled := out.Workspaces[1].Profile
	if !tunneled.SSHEnabled || tunneled.SSH.Host != "bastion" {
		t.Errorf("expected tunneled profile to roundtrip, got %+v", tunneled)
	}
	if len(out.Tabs) != 2 {
		t.Fatalf("expected 2 tabs, got %d", len(out.Tabs))
	}
	if out.Tabs[0].Table != "users" || out.Tabs[0].Page != 3 || out.Tabs[0].PageSize != 50 {
		t.Errorf("expected table tab paging to roundtrip, got %+v", out.Tabs[0])
	}
	if out.Tabs[1].Type != session.TabQuery || out.Tabs[1].Query != "select 1" {
		t.Errorf("expected query tab to roundtrip, got %+v", out.Tabs[1])
	}
}

func TestSaveSnapshot_ReplacesPreviousState(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	first := session.Snapshot{
		Workspaces: []session.WorkspaceSnapshot{{ID: "ws-1", Profile: session.Profile{ID: "p1"}}},
		Tabs:       []session.TabSnapshot{{ID: "tab-1", WorkspaceID: "ws-1", Type: session.TabQuery}},
	}
	second := session.Snapshot{
		Workspaces: []session.WorkspaceSnapshot{{ID: "ws-2", Profile: session.Profile{ID: "p2"}}},
	}

	if err := repo.SaveSnapshot(ctx, first); err != nil {
		t.Fatalf("save first: %v", err)
	}
	if err := repo.SaveSnapshot(ctx, second); err != nil {
		t.Fatalf("save second: %v", err)
	}
	out, err := repo.LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(out.Workspaces) != 1 || out.Workspaces[0].ID != "ws-2" {
		t.Errorf("expected only ws-2 to survive, got %+v", out.Workspaces)
	}
	if len(out.Tabs) != 0 {
		t.Errorf("expected stale tabs to be deleted, got %d", len(out.Tabs))
	}
}

func TestProfileCRUD(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	p := session.Profile{
		ID: "p1", Name: "Local", Driver: "postgres",
		Host: "localhost", Port: 5432, Username: "postgres", Database: "app",
		SSLMode: "require",
	}
	if err := repo.SaveProfile(ctx, p); err != nil {
		t.Fatalf("save: %v", err)
	}

	p.Name = "Local (renamed)"
	p.Port = 5433
	if err := repo.SaveProfile(ctx, p); err != nil {
		t.Fatalf("update: %v", err)
	}

	profiles, err := repo.ListProfiles(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(profiles) != 1 {
		t.Fatalf("expected 1 profile, got %d", len(profiles))
	}
	if profiles[0].Name != "Local (renamed)" || profiles[0].Port != 5433 {
		t.Errorf("expected updated profile, got %+v", profiles[0])
	}

	if err := repo.DeleteProfile(ctx, "p1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	profiles, err = repo.ListProfiles(ctx)
	if err != nil {
		t.Fatalf("list after delete: %v", err)
	}
	if len(profiles) != 0 {
		t.Errorf("expected no profiles, got %d", len(profiles))
	}
}
