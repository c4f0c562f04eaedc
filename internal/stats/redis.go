package stats

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	BucketMinute = "minute"
	BucketNone   = "none"
)

type RedisStore struct {
	rdb redis.UniversalClient

	prefix string
	// ttl aplica apenas em buckets e chaves por key; total é cumulativo.
	ttl time.Duration

	bucket string

	trackKeys bool
}

type RedisOption func(*RedisStore)

func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) { s.prefix = strings.Trim(prefix, ":") }
}

func WithTTL(d time.Duration) RedisOption {
	return func(s *RedisStore) { s.ttl = d }
}

func WithBucket(bucket string) RedisOption {
	return func(s *RedisStore) { s.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

func WithTrackKeys(track bool) RedisOption {
	return func(s *RedisStore) { s.trackKeys = track }
}

func NewRedisStore(rdb redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		rdb:    rdb,
		prefix: "quizsolver:stats",
		ttl:    24 * time.Hour,
		bucket: BucketMinute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) Record(ctx context.Context, ev Event) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	field := string(ev.Outcome)

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.prefix+":total", field, 1)

	if s.bucket == BucketMinute {
		bucketKey := fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))
		pipe.HIncrBy(ctx, bucketKey, field, 1)
		if s.ttl > 0 {
			pipe.Expire(ctx, bucketKey, s.ttl)
		}
	}

	if route := routeOf(ev); route != "" {
		pipe.HIncrBy(ctx, s.prefix+":route", route+":"+field, 1)
	}

	if s.trackKeys {
		if k := strings.TrimSpace(ev.Key); k != "" {
			keyKey := s.prefix + ":key:" + k
			pipe.HIncrBy(ctx, keyKey, field, 1)
			if s.ttl > 0 {
				pipe.Expire(ctx, keyKey, s.ttl)
			}
		}
	}

	_, err := pipe.Exec(ctx)
	return err
}

// Total lê o hash cumulativo.
func (s *RedisStore) Total(ctx context.Context) (Counters, error) {
	vals, err := s.rdb.HGetAll(ctx, s.prefix+":total").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	out := make(Counters, len(vals))
	for k, v := range vals {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("stats: field %s: %w", k, err)
		}
		out[Outcome(k)] = n
	}
	return out, nil
}

func routeOf(ev Event) string {
	return strings.TrimSpace(strings.TrimSpace(ev.Method) + " " + strings.TrimSpace(ev.Path))
}
