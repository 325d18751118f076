// Package redis provides the ingestion lock across processes using
// SET NX PX with a token-checked release.
package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/custodia-labs/pdfchat/internal/core/domain"
	"github.com/custodia-labs/pdfchat/internal/core/ports/driven"
	"github.com/custodia-labs/pdfchat/internal/logger"
)

// Ensure Locker implements the interface.
var _ driven.Locker = (*Locker)(nil)

// Default configuration values.
const (
	DefaultPrefix     = "pdfchat:lock:"
	DefaultTTL        = 5 * time.Minute
	DefaultRetryDelay = 100 * time.Millisecond
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// Config holds lock configuration.
type Config struct {
	Addr     string
	Password string
	DB       int

	// Prefix namespaces lock keys.
	Prefix string

	// TTL expires a lock whose holder died.
	TTL time.Duration

	// Wait bounds how long Lock polls. Zero waits until ctx is done.
	Wait time.Duration

	RetryDelay time.Duration
}

// Locker is a driven.Locker backed by Redis.
type Locker struct {
	client redis.Cmdable
	closer func() error
	cfg    Config
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg Config) (*Locker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	l := NewWithClient(client, cfg)
	l.closer = client.Close
	return l, nil
}

// NewWithClient wraps an existing client. Close does not close it.
func NewWithClient(client redis.Cmdable, cfg Config) *Locker {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	return &Locker{client: client, cfg: cfg}
}

// Lock polls SET NX until it wins, the wait elapses or ctx is done.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	if l.cfg.Wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.cfg.Wait)
		defer cancel()
	}

	redisKey := l.cfg.Prefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.cfg.RetryDelay)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.cfg.TTL).Result()
		if err != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			logger.Debug("Acquired lock %s after %d attempt(s)", key, attempt)
			return l.unlocker(redisKey, token), nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrLockTimeout, key, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *Locker) unlocker(redisKey, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() { l.release(redisKey, token) })
	}
}

// release runs on a fresh context; the caller's may already be cancelled.
func (l *Locker) release(redisKey, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	n, err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Int64()
	switch {
	case err != nil:
		logger.Warn("failed to release lock %s: %v", redisKey, err)
	case n == 0:
		logger.Warn("lock %s expired before release", redisKey)
	}
}

// Close closes the client when the Locker created it.
func (l *Locker) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer()
}
