package runlog

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/vnykmshr/tabflow/internal/testutil"
	tferrors "github.com/vnykmshr/tabflow/pkg/common/errors"
)

func TestNewRedisStoreValidation(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer func() { _ = client.Close() }()

	tests := []struct {
		name   string
		config RedisConfig
	}{
		{"nil client", RedisConfig{}},
		{"negative ttl", RedisConfig{Redis: client, TTL: -time.Second}},
		{"negative history", RedisConfig{Redis: client, MaxHistory: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRedisStore(tt.config); !tferrors.IsConfigurationError(err) {
				t.Errorf("expected ConfigurationError, got %v", err)
			}
		})
	}

	store, err := NewRedisStore(RedisConfig{Redis: client})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, store.config.Prefix, "tabflow:runs")
	testutil.AssertEqual(t, store.config.MaxHistory, 100)

	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	testutil.AssertEqual(t, store.runKey(id), "tabflow:runs:run:6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	testutil.AssertEqual(t, store.indexKey("orders"), "tabflow:runs:pipeline:orders")
	testutil.AssertEqual(t, store.indexKey(""), "tabflow:runs:all")
}

// redisStore connects to TABFLOW_TEST_REDIS (default localhost:6379, db 15)
// and skips the test when no server answers.
func redisStore(t *testing.T, maxHistory int) *RedisStore {
	t.Helper()
	addr := os.Getenv("TABFLOW_TEST_REDIS")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	t.Cleanup(func() { _ = client.Close() })

	prefix := "tabflow:test:" + uuid.NewString()
	store, err := NewRedisStore(RedisConfig{Redis: client, Prefix: prefix, TTL: time.Minute, MaxHistory: maxHistory})
	testutil.AssertNoError(t, err)
	if err := store.Ping(context.Background()); err != nil {
		t.Skipf("redis not available at %s: %v", addr, err)
	}
	t.Cleanup(func() {
		keys, _ := client.Keys(context.Background(), prefix+":*").Result()
		if len(keys) > 0 {
			client.Del(context.Background(), keys...)
		}
	})
	return store
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	store := redisStore(t, 2)

	saved := make([]Summary, 3)
	for i := range saved {
		saved[i] = Summary{
			ID:        uuid.New(),
			Pipeline:  "orders",
			StartedAt: time.Date(2026, 1, 2, 3, 4, i, 0, time.UTC),
			Status:    StatusSuccess,
			Rows:      i,
		}
		testutil.AssertNoError(t, store.Save(ctx, saved[i]))
	}

	got, err := store.Get(ctx, saved[0].ID)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, got.Rows, 0)

	_, err = store.Get(ctx, uuid.New())
	testutil.AssertErrorIs(t, err, ErrNotFound)

	recent, err := store.Recent(ctx, "orders", 10)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(recent), 2)
	testutil.AssertEqual(t, recent[0].Rows, 2)
	testutil.AssertEqual(t, recent[1].Rows, 1)

	all, err := store.Recent(ctx, "", 1)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(all), 1)

	none, err := store.Recent(ctx, "unknown", 5)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(none), 0)
}
