package storage

import (
	"github.com/zalando/go-keyring"
)

const keyringService = "dbdeck"

// Keyring stores profile passwords in the OS credential manager.
type Keyring struct{}

// SavePassword stores a password for the given profile id.
func (Keyring) SavePassword(profileID string, password string) error {
	return keyring.Set(keyringService, profileID, password)
}

// LookupPassword retrieves a stored password for the given profile id.
func (Keyring) LookupPassword(profileID string) (string, error) {
	return keyring.Get(keyringService, profileID)
}

// DeletePassword removes a stored password for the given profile id.
func (Keyring) DeletePassword(profileID string) error {
	return keyring.Delete(keyringService, profileID)
}
