package rbac

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const menuViewKeyPrefix = "menuview:"

// MenuViewCache is a redis overlay for resolved menu trees. It lives in the
// HTTP layer, never inside the resolver: the resolver stays a pure
// per-request computation, and mutations invalidate here.
type MenuViewCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewMenuViewCache builds a cache; a nil client yields a cache that always
// misses.
func NewMenuViewCache(client *redis.Client, ttl time.Duration) *MenuViewCache {
	return &MenuViewCache{client: client, ttl: ttl}
}

func menuViewKey(userID uuid.UUID) string {
	return menuViewKeyPrefix + userID.String()
}

// Get returns the cached tree for the user, reporting a miss without error.
func (c *MenuViewCache) Get(ctx context.Context, userID uuid.UUID) ([]MenuItemView, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, menuViewKey(userID)).Bytes()
	if err != nil {
		return nil, false
	}
	var views []MenuItemView
	if err := json.Unmarshal(raw, &views); err != nil {
		return nil, false
	}
	return views, true
}

// Set stores the resolved tree under the cache TTL. Failures are swallowed;
// the cache is an optimization, not a source of truth.
func (c *MenuViewCache) Set(ctx context.Context, userID uuid.UUID, views []MenuItemView) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(views)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, menuViewKey(userID), raw, c.ttl).Err()
}

// InvalidateUser drops the cached tree for one user, used after assignment
// changes.
func (c *MenuViewCache) InvalidateUser(ctx context.Context, userID uuid.UUID) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Del(ctx, menuViewKey(userID)).Err()
}

// InvalidateAll drops every cached tree, used after grant or menu mutations
// whose blast radius spans users.
func (c *MenuViewCache) InvalidateAll(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}
	iter := c.client.Scan(ctx, 0, menuViewKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		_ = c.client.Del(ctx, iter.Val()).Err()
	}
}
