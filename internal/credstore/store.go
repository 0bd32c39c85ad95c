// Package credstore keeps long-lived integration credentials in the
// operating system keychain.
package credstore

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// ServiceName is the keychain service all entries are stored under.
const ServiceName = "devops-framework"

// ErrNotFound is returned when no entry exists for a key.
var ErrNotFound = errors.New("credential not found")

// Store reads and writes named credentials.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// Keyring is a Store backed by the OS keychain (macOS Keychain, Secret
// Service on Linux, Windows Credential Manager).
type Keyring struct {
	service string
}

// NewKeyring returns a Keyring using ServiceName.
func NewKeyring() *Keyring {
	return &Keyring{service: ServiceName}
}

// Get returns the stored value for key.
func (k *Keyring) Get(key string) (string, error) {
	v, err := keyring.Get(k.service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("keychain read %s: %w", key, err)
	}
	return v, nil
}

// Set stores value under key, replacing any previous value.
func (k *Keyring) Set(key, value string) error {
	if err := keyring.Set(k.service, key, value); err != nil {
		return fmt.Errorf("keychain write %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (k *Keyring) Delete(key string) error {
	if err := keyring.Delete(k.service, key); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("keychain delete %s: %w", key, err)
	}
	return nil
}

var _ Store = (*Keyring)(nil)
