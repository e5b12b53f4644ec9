// Package credentials resolves database secrets. Secrets live in the OS
// keychain under the tool's service name, keyed by the credential_key of
// the project configuration.
package credentials

import (
	"errors"

	"almpartners/dbdeploy/internal/util"
)

const ServiceName = "dbdeploy"

var ErrSecretNotFound = errors.New("credential not found")

// Store persists named database secrets.
type Store interface {
	SetSecret(key string, secret string) error
	GetSecret(key string) (string, error)
	DeleteSecret(key string) error
}

// DefaultStore returns the standard store backed by the OS keychain.
func DefaultStore() Store {
	return NewKeyringStore(ServiceName)
}

// NormalizeKey normalizes a credential key for consistent lookup.
func NormalizeKey(key string) string {
	return util.NormalizeKey(key)
}
