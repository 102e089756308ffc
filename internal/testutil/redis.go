package testutil

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisProbeTimeout = 2 * time.Second
	redisLockTTL      = 30 * time.Minute
	redisMaxDB        = 15
)

// redisCandidates lists addresses tried in order when TEST_REDIS_ADDR is unset.
func redisCandidates() []string {
	if addr := os.Getenv("TEST_REDIS_ADDR"); addr != "" {
		return []string{addr}
	}
	return []string{"localhost:56379", "redis:6379", "localhost:6379"}
}

func pingRedis(addr string, db int) error {
	c := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	defer c.Close()
	ctx, cancel := context.WithTimeout(context.Background(), redisProbeTimeout)
	defer cancel()
	return c.Ping(ctx).Err()
}

// SetupTestRedis returns a client on a database index reserved for this test,
// flushed before use. The reservation lives in DB 0 so FlushDB cannot remove it.
func SetupTestRedis(t testing.TB) *redis.Client {
	t.Helper()

	var addr string
	var lastErr error
	for _, candidate := range redisCandidates() {
		if lastErr = pingRedis(candidate, 0); lastErr == nil {
			addr = candidate
			break
		}
	}
	if addr == "" {
		unavailable(t, requireRedis(), "redis not available for testing: %v", lastErr)
	}

	db := reserveRedisDB(t, addr)
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})

	ctx, cancel := context.WithTimeout(context.Background(), redisProbeTimeout)
	defer cancel()
	if err := client.FlushDB(ctx).Err(); err != nil {
		closeQuietly(t, "redis client", client)
		unavailable(t, requireRedis(), "flush redis db %d at %s: %v", db, addr, err)
	}
	return client
}

// reserveRedisDB honours TEST_REDIS_DB, otherwise claims the first free index in 1..15.
func reserveRedisDB(t testing.TB, addr string) int {
	t.Helper()
	if v := os.Getenv("TEST_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
		t.Logf("ignoring invalid TEST_REDIS_DB=%q", v)
	}

	meta := redis.NewClient(&redis.Options{Addr: addr})
	owner := fmt.Sprintf("%d:%d", os.Getpid(), time.Now().UnixNano())
	for db := 1; db <= redisMaxDB; db++ {
		key := fmt.Sprintf("glosswerks:testutil:db_lock:%d", db)
		ctx, cancel := context.WithTimeout(context.Background(), redisProbeTimeout)
		ok, err := meta.SetNX(ctx, key, owner, redisLockTTL).Result()
		cancel()
		if err != nil || !ok {
			continue
		}
		t.Cleanup(func() {
			delCtx, delCancel := context.WithTimeout(context.Background(), redisProbeTimeout)
			defer delCancel()
			if err := meta.Del(delCtx, key).Err(); err != nil {
				t.Logf("release redis db lock %s: %v", key, err)
			}
			closeQuietly(t, "redis meta client", meta)
		})
		return db
	}

	closeQuietly(t, "redis meta client", meta)
	t.Logf("no free redis db at %s; sharing db 1", addr)
	return 1
}
