package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/pdfchat/internal/core/domain"
)

func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func TestLocker_AcquireAndRelease(t *testing.T) {
	mr, client := setupMiniRedis(t)
	l := NewWithClient(client, Config{TTL: time.Minute})

	unlock, err := l.Lock(context.Background(), "doc-1")
	require.NoError(t, err)

	assert.True(t, mr.Exists(DefaultPrefix+"doc-1"))
	assert.Equal(t, time.Minute, mr.TTL(DefaultPrefix+"doc-1"))

	unlock()
	assert.False(t, mr.Exists(DefaultPrefix+"doc-1"))
}

func TestLocker_ContendedLockTimesOut(t *testing.T) {
	_, client := setupMiniRedis(t)
	l := NewWithClient(client, Config{Wait: 50 * time.Millisecond, RetryDelay: 10 * time.Millisecond})

	unlock, err := l.Lock(context.Background(), "doc")
	require.NoError(t, err)
	defer unlock()

	_, err = l.Lock(context.Background(), "doc")
	assert.ErrorIs(t, err, domain.ErrLockTimeout)
}

func TestLocker_WaiterAcquiresAfterRelease(t *testing.T) {
	_, client := setupMiniRedis(t)
	l := NewWithClient(client, Config{Wait: 2 * time.Second, RetryDelay: 5 * time.Millisecond})

	unlock, err := l.Lock(context.Background(), "doc")
	require.NoError(t, err)

	acquired := make(chan error, 1)
	go func() {
		unlock2, err := l.Lock(context.Background(), "doc")
		if err == nil {
			unlock2()
		}
		acquired <- err
	}()

	time.Sleep(20 * time.Millisecond)
	unlock()

	select {
	case err := <-acquired:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never acquired the lock")
	}
}

func TestLocker_ReleaseKeepsForeignToken(t *testing.T) {
	mr, client := setupMiniRedis(t)
	l := NewWithClient(client, Config{TTL: time.Second})

	unlock, err := l.Lock(context.Background(), "doc")
	require.NoError(t, err)

	// The lock expires and another process takes it.
	mr.FastForward(2 * time.Second)
	require.NoError(t, mr.Set(DefaultPrefix+"doc", "other-holder"))

	unlock()
	got, err := mr.Get(DefaultPrefix + "doc")
	require.NoError(t, err)
	assert.Equal(t, "other-holder", got)
}

func TestLocker_CustomPrefix(t *testing.T) {
	mr, client := setupMiniRedis(t)
	l := NewWithClient(client, Config{Prefix: "test:"})

	unlock, err := l.Lock(context.Background(), "doc")
	require.NoError(t, err)
	defer unlock()
	assert.True(t, mr.Exists("test:doc"))
}

func TestNew_ConnectionFailure(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = New(context.Background(), Config{Addr: addr})
	assert.ErrorContains(t, err, "failed to connect to redis")
}

func TestNew_Connects(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	l, err := New(context.Background(), Config{Addr: mr.Addr()})
	require.NoError(t, err)
	assert.NoError(t, l.Close())
}
