package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hangpark123/zoomnote/internal/auth"
	"github.com/hangpark123/zoomnote/internal/logging"
	"github.com/hangpark123/zoomnote/internal/store"
)

const (
	DefaultTTL   = 7 * 24 * time.Hour
	handlePrefix = "zn"
)

// Loader re-reads a user from the relational store.
type Loader func(ctx context.Context, userID string) (store.User, error)

// Cache mints and resumes session handles. Handles are only stored hashed.
type Cache struct {
	store  Store
	load   Loader
	ttl    time.Duration
	logger logging.Logger
}

func NewCache(st Store, load Loader, ttl time.Duration, logger logging.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Cache{store: st, load: load, ttl: ttl, logger: logger}
}

func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Mint stores user under a fresh handle and returns the handle.
func (c *Cache) Mint(ctx context.Context, user store.User) (string, error) {
	handle, err := auth.NewHandle(handlePrefix)
	if err != nil {
		return "", err
	}
	if err := c.store.Save(ctx, auth.HashToken(handle), user, c.ttl); err != nil {
		return "", fmt.Errorf("mint session: %w", err)
	}
	return handle, nil
}

// Resume returns the user behind handle. The row is re-read so role and
// department changes apply immediately; if that read fails for any reason
// other than the user being gone, the stored snapshot is used.
func (c *Cache) Resume(ctx context.Context, handle string) (store.User, error) {
	if handle == "" {
		return store.User{}, ErrNotFound
	}
	key := auth.HashToken(handle)
	snapshot, err := c.store.Load(ctx, key)
	if err != nil {
		return store.User{}, err
	}
	if c.load == nil {
		return snapshot, nil
	}
	fresh, err := c.load(ctx, snapshot.ID)
	switch {
	case err == nil:
		return fresh, nil
	case errors.Is(err, store.ErrNotFound):
		_ = c.store.Delete(ctx, key)
		return store.User{}, ErrNotFound
	default:
		c.logger.Warn(ctx, "session refresh failed, using snapshot", "user_id", snapshot.ID, "error", err)
		return snapshot, nil
	}
}

// Invalidate forgets handle. Unknown handles are not an error.
func (c *Cache) Invalidate(ctx context.Context, handle string) error {
	if handle == "" {
		return nil
	}
	return c.store.Delete(ctx, auth.HashToken(handle))
}
