// Package session holds all call-scoped state for live phone calls: the
// authentication session itself, outstanding verification-code challenges,
// and document-upload tokens. Everything is keyed by an opaque identifier and
// expires via the backing store's TTL; there is no in-process state shared
// across requests.
package session

import (
	"context"
	"time"
)

// KV is the narrow key-value contract the stores need from their backend.
// The production implementation talks to Redis; tests and single-node
// deployments use the in-memory implementation.
type KV interface {
	// Get returns the value for key and whether it existed.
	Get(ctx context.Context, key string) (string, bool, error)
	// SetEx writes value under key with the given TTL, replacing any previous
	// value and TTL.
	SetEx(ctx context.Context, key, value string, ttl time.Duration) error
	// SetKeepTTL replaces the value under key without touching its remaining
	// TTL. Writing to a missing key is allowed and leaves the key without
	// expiry, so callers must only use this on keys they just read.
	SetKeepTTL(ctx context.Context, key, value string) error
	// Del removes key. Deleting a missing key is not an error.
	Del(ctx context.Context, key string) error
	// TTL reports the remaining time to live for key, or a negative duration
	// when the key does not exist.
	TTL(ctx context.Context, key string) (time.Duration, error)
}
