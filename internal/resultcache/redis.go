package resultcache

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions locates a Redis server.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// RedisOptionsFromEnv reads REDIS_HOST, REDIS_PORT, REDIS_PASS and REDIS_DB.
func RedisOptionsFromEnv() RedisOptions {
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		host = "127.0.0.1"
	}
	port := os.Getenv("REDIS_PORT")
	if port == "" {
		port = "6379"
	}
	db := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			db = n
		}
	}
	return RedisOptions{Addr: host + ":" + port, Password: os.Getenv("REDIS_PASS"), DB: db}
}

// Redis stores entries in Redis under a key prefix.
type Redis struct {
	rc     *redis.Client
	ttl    time.Duration
	prefix string
}

// OpenRedis connects to Redis and checks the connection.
func OpenRedis(ctx context.Context, o RedisOptions, ttl time.Duration) (*Redis, error) {
	rc := redis.NewClient(&redis.Options{Addr: o.Addr, Password: o.Password, DB: o.DB})
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, err
	}
	return NewRedis(rc, ttl), nil
}

// NewRedis wraps an existing client.
func NewRedis(rc *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{rc: rc, ttl: ttl, prefix: "shpgeo:"}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	b, err := r.rc.Get(ctx, r.prefix+key).Bytes()
	if err != nil || len(b) == 0 {
		return nil, false
	}
	return b, true
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	return r.rc.Set(ctx, r.prefix+key, value, r.ttl).Err()
}

func (r *Redis) Close() error { return r.rc.Close() }
