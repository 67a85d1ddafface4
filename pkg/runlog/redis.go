package runlog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	tferrors "github.com/vnykmshr/tabflow/pkg/common/errors"
	"github.com/vnykmshr/tabflow/pkg/common/validation"
)

// RedisConfig holds configuration for a RedisStore.
type RedisConfig struct {
	// Redis client shared with the rest of the process.
	Redis redis.UniversalClient

	// Prefix namespaces every key. Defaults to "tabflow:runs".
	Prefix string

	// TTL is how long a summary and its pipeline index live. Zero keeps
	// them forever.
	TTL time.Duration

	// MaxHistory caps each pipeline index. Defaults to 100.
	MaxHistory int

	// Timeout bounds every Redis round trip. Defaults to 2s.
	Timeout time.Duration
}

// RedisError represents a failed Redis operation.
type RedisError struct {
	Operation string
	Err       error
}

func (e *RedisError) Error() string {
	return "redis error in " + e.Operation + ": " + e.Err.Error()
}

func (e *RedisError) Unwrap() error {
	return e.Err
}

// RedisStore keeps summaries in Redis. Each summary is a JSON string key;
// each pipeline has a list of run ids, newest first, trimmed to MaxHistory.
// A shared "all" list indexes every pipeline.
type RedisStore struct {
	config RedisConfig
}

// NewRedisStore creates a store. The client is not owned by the store and
// Close leaves it open.
func NewRedisStore(config RedisConfig) (*RedisStore, error) {
	if config.Redis == nil {
		return nil, tferrors.NewConfigurationError("runlog", "redis", nil, "cannot be nil").
			WithHint("pass a connected redis client")
	}
	if err := validation.ValidateNonNegativeDuration("runlog", "ttl", config.TTL); err != nil {
		return nil, err
	}
	if config.MaxHistory < 0 {
		return nil, tferrors.NewConfigurationError("runlog", "max_history", config.MaxHistory, "cannot be negative")
	}
	if config.Prefix == "" {
		config.Prefix = "tabflow:runs"
	}
	if config.MaxHistory == 0 {
		config.MaxHistory = 100
	}
	if config.Timeout <= 0 {
		config.Timeout = 2 * time.Second
	}
	return &RedisStore{config: config}, nil
}

func (r *RedisStore) runKey(id uuid.UUID) string {
	return r.config.Prefix + ":run:" + id.String()
}

func (r *RedisStore) indexKey(pipeline string) string {
	if pipeline == "" {
		return r.config.Prefix + ":all"
	}
	return r.config.Prefix + ":pipeline:" + pipeline
}

func (r *RedisStore) Save(ctx context.Context, s Summary) error {
	data, err := s.Encode()
	if err != nil {
		return fmt.Errorf("runlog: encode summary %s: %w", s.ID, err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	pipe := r.config.Redis.TxPipeline()
	pipe.Set(ctx, r.runKey(s.ID), data, r.config.TTL)
	indexes := []string{r.indexKey("")}
	if s.Pipeline != "" {
		indexes = append(indexes, r.indexKey(s.Pipeline))
	}
	for _, index := range indexes {
		pipe.LPush(ctx, index, s.ID.String())
		pipe.LTrim(ctx, index, 0, int64(r.config.MaxHistory-1))
		if r.config.TTL > 0 {
			pipe.Expire(ctx, index, r.config.TTL)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return &RedisError{"save", err}
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, id uuid.UUID) (Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	data, err := r.config.Redis.Get(ctx, r.runKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Summary{}, ErrNotFound
	}
	if err != nil {
		return Summary{}, &RedisError{"get", err}
	}
	return Decode(data)
}

// Recent reads the pipeline index and fetches the summaries it names.
// Ids whose summary has expired are skipped.
func (r *RedisStore) Recent(ctx context.Context, pipeline string, n int) ([]Summary, error) {
	if n <= 0 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	ids, err := r.config.Redis.LRange(ctx, r.indexKey(pipeline), 0, int64(n-1)).Result()
	if err != nil {
		return nil, &RedisError{"recent", err}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.config.Prefix + ":run:" + id
	}
	values, err := r.config.Redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, &RedisError{"recent", err}
	}

	out := make([]Summary, 0, len(values))
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		s, err := Decode([]byte(str))
		if err != nil {
			return nil, fmt.Errorf("runlog: decode %s: %w", ids[i], err)
		}
		out = append(out, s)
	}
	return out, nil
}

// Ping checks that Redis is reachable.
func (r *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()
	if err := r.config.Redis.Ping(ctx).Err(); err != nil {
		return &RedisError{"ping", err}
	}
	return nil
}

func (r *RedisStore) Close() error { return nil }
