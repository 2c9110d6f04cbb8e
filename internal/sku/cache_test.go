package sku

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestMemoLoadsOnce(t *testing.T) {
	ctx := context.Background()
	memo := NewMemo[[]string](NewMemoryStore(), "k:")
	calls := 0
	load := func(context.Context) ([]string, error) {
		calls++
		return []string{"a"}, nil
	}
	for i := 0; i < 3; i++ {
		v, err := memo.GetOrLoad(ctx, "x", load)
		if err != nil || len(v) != 1 || v[0] != "a" {
			t.Fatalf("got %v err %v", v, err)
		}
	}
	if calls != 1 {
		t.Fatalf("loader called %d times", calls)
	}
}

func TestMemoDoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	memo := NewMemo[string](NewMemoryStore(), "")
	boom := errors.New("boom")
	if _, err := memo.GetOrLoad(ctx, "x", func(context.Context) (string, error) { return "", boom }); !errors.Is(err, boom) {
		t.Fatalf("err %v", err)
	}
	v, err := memo.GetOrLoad(ctx, "x", func(context.Context) (string, error) { return "ok", nil })
	if err != nil || v != "ok" {
		t.Fatalf("got %q err %v", v, err)
	}
}

func TestRedisStoreIsScopedToRun(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	ctx := context.Background()

	first := NewRedisStore(client, "run-1", time.Hour)
	if err := first.Set(ctx, "sku:x-0", []byte(`[]`)); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := first.Get(ctx, "sku:x-0"); err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if mr.TTL("catalog-gate:run-1:sku:x-0") != time.Hour {
		t.Fatalf("ttl %v", mr.TTL("catalog-gate:run-1:sku:x-0"))
	}

	second := NewRedisStore(client, "run-2", time.Hour)
	if _, ok, err := second.Get(ctx, "sku:x-0"); err != nil || ok {
		t.Fatalf("second run must not see first run's entry: ok=%v err=%v", ok, err)
	}
}
