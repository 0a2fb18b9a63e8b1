package publish

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedis_Key(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	assert.Equal(t, "heartbeat:7", NewRedis(client, "", 7, 0).Key())
	assert.Equal(t, "svc:7", NewRedis(client, "svc", 7, 0).Key())
}

func TestRedis_PublishRemove(t *testing.T) {
	addr := os.Getenv("HEARTBEAT_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("HEARTBEAT_TEST_REDIS_ADDR not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	p, err := DialRedis(ctx, addr, "hbtest", os.Getpid(), time.Minute)
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.Publish(ctx, testState(os.Getpid(), 9)))

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	got, err := ReadRedis(ctx, client, "hbtest", os.Getpid())
	require.NoError(t, err)
	assert.Equal(t, int64(9), got.Counter)

	ttl, err := client.TTL(ctx, p.Key()).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, p.Remove(ctx))
	_, err = ReadRedis(ctx, client, "hbtest", os.Getpid())
	assert.True(t, errors.Is(err, ErrNotFound))
}
