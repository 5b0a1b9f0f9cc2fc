package rbac

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) *MenuViewCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewMenuViewCache(client, time.Minute)
}

func TestMenuViewCacheRoundTrip(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()
	userID := uuid.New()

	if _, hit := cache.Get(ctx, userID); hit {
		t.Fatal("expected cold miss")
	}

	views := []MenuItemView{{ID: uuid.New(), Name: "StudentManagement", Permissions: ReadWrite(), Children: []MenuItemView{}}}
	cache.Set(ctx, userID, views)

	got, hit := cache.Get(ctx, userID)
	if !hit {
		t.Fatal("expected hit after set")
	}
	if len(got) != 1 || got[0].Name != "StudentManagement" || !got[0].Permissions.CanEdit {
		t.Fatalf("cached views mismatch: %+v", got)
	}
}

func TestMenuViewCacheInvalidateUser(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	cache.Set(ctx, alice, []MenuItemView{})
	cache.Set(ctx, bob, []MenuItemView{})

	cache.InvalidateUser(ctx, alice)

	if _, hit := cache.Get(ctx, alice); hit {
		t.Fatal("alice still cached after invalidation")
	}
	if _, hit := cache.Get(ctx, bob); !hit {
		t.Fatal("bob evicted by per-user invalidation")
	}
}

func TestMenuViewCacheInvalidateAll(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		cache.Set(ctx, uuid.New(), []MenuItemView{})
	}
	userID := uuid.New()
	cache.Set(ctx, userID, []MenuItemView{})

	cache.InvalidateAll(ctx)

	if _, hit := cache.Get(ctx, userID); hit {
		t.Fatal("entry survived InvalidateAll")
	}
}

func TestNilCacheIsSafe(t *testing.T) {
	var cache *MenuViewCache
	ctx := context.Background()
	userID := uuid.New()

	cache.Set(ctx, userID, []MenuItemView{})
	if _, hit := cache.Get(ctx, userID); hit {
		t.Fatal("nil cache must always miss")
	}
	cache.InvalidateUser(ctx, userID)
	cache.InvalidateAll(ctx)
}
