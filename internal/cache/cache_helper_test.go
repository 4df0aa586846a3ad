package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestHelper(t *testing.T) (*CacheHelper, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewCacheHelper(client, "quiz:"), mr
}

type testPayload struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
}

func TestCacheSetGet(t *testing.T) {
	helper, _ := newTestHelper(t)
	ctx := context.Background()

	want := testPayload{ID: 7, Title: "Go Basics"}
	if err := helper.Set(ctx, "id:7", want, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	var got testPayload
	if err := helper.Get(ctx, "id:7", &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestCacheGetMissing(t *testing.T) {
	helper, _ := newTestHelper(t)

	var got testPayload
	err := helper.Get(context.Background(), "id:404", &got)
	if err != ErrCacheNotFound {
		t.Errorf("expected ErrCacheNotFound, got %v", err)
	}
}

func TestCacheNilClientDegradesGracefully(t *testing.T) {
	helper := NewCacheHelper(nil, "quiz:")
	ctx := context.Background()

	if err := helper.Set(ctx, "id:1", testPayload{}, time.Minute); err != nil {
		t.Errorf("expected nil error on set without client, got %v", err)
	}
	if err := helper.Delete(ctx, "id:1"); err != nil {
		t.Errorf("expected nil error on delete without client, got %v", err)
	}

	var got testPayload
	if err := helper.Get(ctx, "id:1", &got); err != ErrCacheNotAvailable {
		t.Errorf("expected ErrCacheNotAvailable, got %v", err)
	}
}

func TestCacheOrExecute(t *testing.T) {
	helper, _ := newTestHelper(t)
	ctx := context.Background()

	calls := 0
	fetch := func() (interface{}, error) {
		calls++
		return &testPayload{ID: 3, Title: "Fetched"}, nil
	}

	var got testPayload
	if err := helper.CacheOrExecute(ctx, "id:3", &got, time.Minute, fetch); err != nil {
		t.Fatalf("cache or execute: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 fetch call, got %d", calls)
	}
	if got.Title != "Fetched" {
		t.Errorf("expected fetched payload, got %+v", got)
	}

	// second call should come from cache once the async write lands
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ok, _ := helper.Exists(ctx, "id:3"); ok {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	var cached testPayload
	if err := helper.CacheOrExecute(ctx, "id:3", &cached, time.Minute, fetch); err != nil {
		t.Fatalf("cache or execute: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected cached hit, fetch ran %d times", calls)
	}
}

func TestInvalidatePattern(t *testing.T) {
	helper, _ := newTestHelper(t)
	ctx := context.Background()

	for _, key := range []string{"creator:u1:list", "creator:u1:count", "creator:u2:list"} {
		if err := helper.Set(ctx, key, testPayload{}, time.Minute); err != nil {
			t.Fatalf("set: %v", err)
		}
	}

	if err := helper.InvalidatePattern(ctx, "creator:u1:*"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}

	if ok, _ := helper.Exists(ctx, "creator:u1:list"); ok {
		t.Error("expected creator:u1:list to be invalidated")
	}
	if ok, _ := helper.Exists(ctx, "creator:u2:list"); !ok {
		t.Error("expected creator:u2:list to survive")
	}
}

func TestCacheManagerHealthCheck(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cm := NewCacheManager(client)
	if err := cm.HealthCheck(context.Background()); err != nil {
		t.Errorf("expected healthy cache, got %v", err)
	}

	empty := NewCacheManager(nil)
	if err := empty.HealthCheck(context.Background()); err != ErrCacheNotAvailable {
		t.Errorf("expected ErrCacheNotAvailable, got %v", err)
	}
}
