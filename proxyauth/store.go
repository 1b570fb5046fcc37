// Package proxyauth manages the credentials the transcoding proxy presents
// to its gRPC backend: token persistence in the OS keychain, an interactive
// login flow, and decoration of outgoing calls.
package proxyauth

import (
	"context"
	"errors"

	"github.com/zalando/go-keyring"
)

// ErrNotFound is returned by TokenStore.Load when no credentials are stored.
var ErrNotFound = errors.New("credentials not found")

// TokenStore provides credential persistence for backend tokens.
type TokenStore interface {
	Save(ctx context.Context, token []byte) error
	Load(ctx context.Context) ([]byte, error)
	Delete(ctx context.Context) error
}

const keychainAccount = "backend"

// KeychainStore persists credentials using the OS keychain
// (macOS Keychain, Windows Credential Manager, Linux Secret Service).
type KeychainStore struct {
	serviceName string
}

// NewKeychainStore creates a KeychainStore that stores credentials under
// the given application name as the keychain service name.
func NewKeychainStore(appName string) *KeychainStore {
	return &KeychainStore{serviceName: appName}
}

// Save persists a credential token to the keychain.
func (s *KeychainStore) Save(_ context.Context, token []byte) error {
	return keyring.Set(s.serviceName, keychainAccount, string(token))
}

// Load retrieves the stored credential token from the keychain.
// Returns ErrNotFound if no credential is stored.
func (s *KeychainStore) Load(_ context.Context) ([]byte, error) {
	secret, err := keyring.Get(s.serviceName, keychainAccount)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return []byte(secret), nil
}

// Delete removes the stored credential from the keychain.
// Returns ErrNotFound if no credential is stored.
func (s *KeychainStore) Delete(_ context.Context) error {
	err := keyring.Delete(s.serviceName, keychainAccount)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// MemoryStore is an in-process TokenStore for tests and ephemeral setups.
type MemoryStore struct {
	token []byte
}

func (s *MemoryStore) Save(_ context.Context, token []byte) error {
	s.token = append([]byte(nil), token...)
	return nil
}

func (s *MemoryStore) Load(_ context.Context) ([]byte, error) {
	if s.token == nil {
		return nil, ErrNotFound
	}
	return s.token, nil
}

func (s *MemoryStore) Delete(_ context.Context) error {
	if s.token == nil {
		return ErrNotFound
	}
	s.token = nil
	return nil
}
