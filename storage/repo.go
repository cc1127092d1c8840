// Package storage defines the durable key/value slots credentials and the consent marker
// live in. Absence of a slot is reported as ErrNotFound and means "none".
package storage

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("slot not found")

// Repo is a small durable key/value store with optional per-write expiry.
type Repo interface {
	// Get returns the value of key, or ErrNotFound when the slot is empty or expired.
	Get(ctx context.Context, key string) (string, error)

	// Put writes every entry in one atomic step. A ttl of zero means no expiry.
	Put(ctx context.Context, entries map[string]string, ttl time.Duration) error

	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}
