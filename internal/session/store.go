// Package session binds resolved users to opaque server-side handles.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/hangpark123/zoomnote/internal/store"
)

// ErrNotFound is returned for unknown, expired, or revoked handles.
var ErrNotFound = errors.New("session not found")

// Store keeps user snapshots keyed by the hash of a session handle. It is
// never the source of truth: losing its contents only forces re-resolution.
type Store interface {
	Save(ctx context.Context, key string, user store.User, ttl time.Duration) error
	Load(ctx context.Context, key string) (store.User, error)
	Delete(ctx context.Context, key string) error
}
