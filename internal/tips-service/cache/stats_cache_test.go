package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type summary struct {
	Profit string `json:"profit"`
}

func newCache(t *testing.T) (*StatsCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, time.Minute), mr
}

func TestStatsCache_MissThenHit(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()

	var got summary
	key, hit, err := c.Get(ctx, "summary:u1", &got)
	if err != nil || hit {
		t.Fatalf("hit=%v err=%v", hit, err)
	}
	if key != "stats:0:summary:u1" {
		t.Fatalf("key = %q", key)
	}
	if err := c.Set(ctx, key, summary{Profit: "12.50"}); err != nil {
		t.Fatal(err)
	}

	_, hit, err = c.Get(ctx, "summary:u1", &got)
	if err != nil || !hit || got.Profit != "12.50" {
		t.Fatalf("hit=%v err=%v got=%+v", hit, err, got)
	}
}

func TestStatsCache_InvalidateDropsEntries(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()

	key, _, _ := c.Get(ctx, "leaderboard:all", &summary{})
	if err := c.Set(ctx, key, summary{Profit: "1"}); err != nil {
		t.Fatal(err)
	}
	if err := c.Invalidate(ctx); err != nil {
		t.Fatal(err)
	}

	next, hit, err := c.Get(ctx, "leaderboard:all", &summary{})
	if err != nil || hit {
		t.Fatalf("hit=%v err=%v", hit, err)
	}
	if next != "stats:1:leaderboard:all" {
		t.Fatalf("key = %q", next)
	}
}

func TestStatsCache_ValueComputedBeforeInvalidateIsNotServed(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()

	// leitura perde o cache, uma escrita invalida, e só então o valor antigo é gravado
	key, hit, err := c.Get(ctx, "summary:u1", &summary{})
	if err != nil || hit {
		t.Fatalf("hit=%v err=%v", hit, err)
	}
	if err := c.Invalidate(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.Set(ctx, key, summary{Profit: "0"}); err != nil {
		t.Fatal(err)
	}

	var got summary
	_, hit, err = c.Get(ctx, "summary:u1", &got)
	if err != nil {
		t.Fatal(err)
	}
	if hit {
		t.Fatalf("value from the previous generation was served: %+v", got)
	}
}

func TestStatsCache_TTL(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	key, _, _ := c.Get(ctx, "summary:u1", &summary{})
	if err := c.Set(ctx, key, summary{Profit: "3"}); err != nil {
		t.Fatal(err)
	}
	if ttl := mr.TTL(key); ttl != time.Minute {
		t.Fatalf("ttl = %s", ttl)
	}

	mr.FastForward(2 * time.Minute)
	if _, hit, _ := c.Get(ctx, "summary:u1", &summary{}); hit {
		t.Fatal("expired entry must miss")
	}
}

func TestNop(t *testing.T) {
	var n Nop
	key, hit, err := n.Get(context.Background(), "x", &summary{})
	if key != "" || hit || err != nil {
		t.Fatalf("key=%q hit=%v err=%v", key, hit, err)
	}
}
