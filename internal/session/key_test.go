package session

import "testing"

func TestTunnelKey_NoSSH(t *testing.T) {
	p := Profile{
		Host: "db.example.com",
		SSH:  SSHConfig{Host: "bastion", Port: 22, User: "deploy"},
	}
	if key := TunnelKey(p); key != "" {
		t.Errorf("expected empty tunnel key for profile without SSH, got %q", key)
	}
}

func TestTunnelKey_SSH(t *testing.T) {
	p := Profile{
		SSHEnabled: true,
		SSH:        SSHConfig{Host: "bastion", Port: 22, User: "deploy"},
	}
	want := "bastion::22::deploy"
	if key := TunnelKey(p); key != want {
		t.Errorf("expected %q, got %q", want, key)
	}
}

func TestSpaceKey_DistinguishesDatabases(t *testing.T) {
	p := Profile{Host: "localhost", Port: 5432, Username: "postgres"}
	if SpaceKey(p, "app") == SpaceKey(p, "analytics") {
		t.Error("space keys for different databases should differ")
	}
}

func TestSpaceKey_DistinguishesTunnels(t *testing.T) {
	direct := Profile{Host: "localhost", Port: 5432, Username: "postgres"}
	tunneled := direct
	tunneled.SSHEnabled = true
	tunneled.SSH = SSHConfig{Host: "bastion", Port: 22, User: "deploy"}
	if SpaceKey(direct, "app") == SpaceKey(tunneled, "app") {
		t.Error("space keys for direct and tunneled profiles should differ")
	}
}

func TestSpaceKey_IgnoresProfileIdentity(t *testing.T) {
	a := Profile{ID: "one", Name: "First", Host: "localhost", Port: 5432, Username: "postgres"}
	b := Profile{ID: "two", Name: "Second", Host: "localhost", Port: 5432, Username: "postgres"}
	if SpaceKey(a, "app") != SpaceKey(b, "app") {
		t.Error("profiles differing only in id and name should share a space key")
	}
}
