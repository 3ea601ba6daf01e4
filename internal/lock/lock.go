package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/kelseyhightower/envconfig"
	"github.com/redis/go-redis/v9"
)

// ErrNotObtained is returned when the lock stayed taken for every attempt.
var ErrNotObtained = errors.New("lock not obtained")

type Config struct {
	Addr           string        `envconfig:"REDIS_ADDR"`
	Password       string        `envconfig:"REDIS_PASSWORD"`
	DB             int           `envconfig:"REDIS_DB" default:"0"`
	TTL            time.Duration `envconfig:"LOCK_TTL" default:"30s"`
	MaxAttempts    int           `envconfig:"LOCK_MAX_ATTEMPTS" default:"5"`
	InitialBackoff time.Duration `envconfig:"LOCK_BACKOFF" default:"50ms"`
}

func LoadConfig() (*Config, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, fmt.Errorf("failed to process lock configuration: %w", err)
	}
	return &config, nil
}

// Enabled reports whether a Redis server is configured.
func (c *Config) Enabled() bool {
	return c.Addr != ""
}

func (c *Config) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if c.TTL <= 0 || c.MaxAttempts <= 0 || c.InitialBackoff <= 0 {
		return fmt.Errorf("LOCK_TTL, LOCK_MAX_ATTEMPTS and LOCK_BACKOFF must be positive")
	}
	return nil
}

// RedisLocker hands out short-lived Redis mutexes shared by every replica.
type RedisLocker struct {
	client         *redis.Client
	locker         *redislock.Client
	ttl            time.Duration
	maxAttempts    int
	initialBackoff time.Duration
}

func NewRedisLocker(config *Config) *RedisLocker {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})
	return &RedisLocker{
		client:         client,
		locker:         redislock.New(client),
		ttl:            config.TTL,
		maxAttempts:    config.MaxAttempts,
		initialBackoff: config.InitialBackoff,
	}
}

// Acquire obtains the lock for key, retrying with exponential backoff while
// another holder has it. The returned func releases the lock.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	backoff := l.initialBackoff

	for attempt := 1; attempt <= l.maxAttempts; attempt++ {
		lock, err := l.locker.Obtain(ctx, key, l.ttl, nil)
		if err == nil {
			return func() {
				// Release with a fresh context so a canceled request still frees the key
				_ = lock.Release(context.Background())
			}, nil
		}

		if !errors.Is(err, redislock.ErrNotObtained) {
			return nil, fmt.Errorf("unexpected error while acquiring lock: %w", err)
		}
		if attempt == l.maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return nil, fmt.Errorf("%w: %q after %d attempts", ErrNotObtained, key, l.maxAttempts)
}

func (l *RedisLocker) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

func (l *RedisLocker) Close() error {
	return l.client.Close()
}
