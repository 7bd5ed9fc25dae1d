// Package storage provides the key-value store boundary consumed by the
// response cache.
//
// Information Hiding:
// - Storage backend implementation details hidden behind interface
// - Allows swapping between memory and SQLite without API changes
package storage

import "context"

// Store defines the key-value boundary the cache consumes. Absence is not an
// error: Get reports it via the bool. No enumeration or deletion is required
// by the core.
type Store interface {
	// Get returns the value for key, whether it was present, and any
	// storage failure.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores the value for key, replacing any prior entry wholesale.
	Set(ctx context.Context, key, value string) error
}
