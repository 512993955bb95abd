package tunnel

import (
	"path/filepath"
	"testing"
)

func TestBuildClientConfig_RequiresCredentials(t *testing.T) {
	_, err := buildClientConfig("deploy", "", "")
	if err == nil {
		t.Error("expected error when neither password nor key path is given")
	}
}

func TestBuildClientConfig_PasswordAuth(t *testing.T) {
	cfg, err := buildClientConfig("deploy", "hunter2", "")
	if err != nil {
		t.Fatalf("build config: %v", err)
	}
	if cfg.User != "deploy" {
		t.Errorf("expected user deploy, got %s", cfg.User)
	}
	if len(cfg.Auth) != 1 {
		t.Errorf("expected 1 auth method, got %d", len(cfg.Auth))
	}
}

func TestBuildClientConfig_MissingKeyFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "id_ed25519")
	_, err := buildClientConfig("deploy", "", missing)
	if err == nil {
		t.Error("expected error for missing key file")
	}
}
