// Package storage provides key-value slots: named string values that are read
// and replaced whole. The meeting store keeps its entire collection in one
// slot, so a backend only needs Get and Set.
package storage

import (
	"context"
	"fmt"
)

// Backend names accepted by Open.
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Slot is a persistent string value addressed by key.
type Slot interface {
	// Get returns the value stored under key. found is false when the key
	// has never been written.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set replaces the value stored under key.
	Set(ctx context.Context, key, value string) error

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error

	// Name identifies the backend in logs and health output.
	Name() string
}

// ValidBackend reports whether name is a known backend.
func ValidBackend(name string) bool {
	switch name {
	case BackendFile, BackendMemory, BackendRedis, BackendPostgres:
		return true
	default:
		return false
	}
}

// ErrUnknownBackend is returned for an unrecognized backend name.
func ErrUnknownBackend(name string) error {
	return fmt.Errorf("unknown storage backend %q (must be file, memory, redis, or postgres)", name)
}
