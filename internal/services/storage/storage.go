// Package storage is the persisted key/value boundary used by the ticket
// store. Values are opaque strings.
package storage

import (
	"context"
	"errors"
)

// ErrUnchanged may be returned by an UpdateFunc to skip the write.
var ErrUnchanged = errors.New("storage: value unchanged")

// UpdateFunc receives the latest persisted value and returns the value to
// write in its place.
type UpdateFunc func(current string, found bool) (string, error)

type Storage interface {
	// Read returns the value under key; found is false when nothing is stored.
	Read(ctx context.Context, key string) (value string, found bool, err error)

	// Write replaces the value under key.
	Write(ctx context.Context, key, value string) error

	// Update reads the latest value, applies fn and writes the result
	// without losing concurrent writers. It returns the value now stored.
	Update(ctx context.Context, key string, fn UpdateFunc) (string, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
}
