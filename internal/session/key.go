package session

import "fmt"

// TunnelKey returns the coordination identity of a profile's SSH tunnel
// target. Profiles with SSH disabled share the empty identity, which means
// no coordination is needed.
func TunnelKey(p Profile) string {
	if !p.SSHEnabled {
		return ""
	}
	return fmt.Sprintf("%s::%d::%s", p.SSH.Host, p.SSH.Port, p.SSH.User)
}

// SpaceKey returns the canonical identity of the logical session a profile
// opens against the given database. Two profiles yield the same key iff they
// route to the same endpoint with the same credentials through the same
// tunnel; display name and declared id do not participate. The key is stable
// across restarts and is the sole deduplication criterion for workspaces.
func SpaceKey(p Profile, database string) string {
	return fmt.Sprintf("%s::%s::%d::%s::%s", TunnelKey(p), p.Host, p.Port, p.Username, database)
}
