package publish

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ja7ad/heartbeat/pkg/state"
)

// DefaultRedisPrefix is the key prefix used when none is configured.
const DefaultRedisPrefix = "heartbeat"

// Redis publishes state to <prefix>:<pid>. A positive TTL lets the entry of a
// crashed process expire on its own; the engine republishes at every flush.
type Redis struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	owned  bool
}

var _ Publisher = (*Redis)(nil)

// NewRedis returns a publisher using client, which stays owned by the caller.
func NewRedis(client *redis.Client, prefix string, pid int, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &Redis{client: client, key: key(prefix, pid, ":"), ttl: ttl}
}

// DialRedis connects to addr, checks the connection and returns a publisher
// that owns the client.
func DialRedis(ctx context.Context, addr, prefix string, pid int, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("publish: redis ping %s: %w", addr, err)
	}
	p := NewRedis(client, prefix, pid, ttl)
	p.owned = true
	return p, nil
}

// Key returns the Redis key this publisher writes.
func (p *Redis) Key() string { return p.key }

func (p *Redis) Publish(ctx context.Context, s state.State) error {
	data, err := state.Encode(s)
	if err != nil {
		return err
	}
	if err := p.client.Set(ctx, p.key, data, p.ttl).Err(); err != nil {
		return fmt.Errorf("publish: redis set %s: %w", p.key, err)
	}
	return nil
}

func (p *Redis) Remove(ctx context.Context) error {
	if err := p.client.Del(ctx, p.key).Err(); err != nil {
		return fmt.Errorf("publish: redis del %s: %w", p.key, err)
	}
	return nil
}

func (p *Redis) Close() error {
	if p.owned {
		return p.client.Close()
	}
	return nil
}

// ReadRedis returns the state published for pid.
func ReadRedis(ctx context.Context, client *redis.Client, prefix string, pid int) (state.State, error) {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	data, err := client.Get(ctx, key(prefix, pid, ":")).Bytes()
	if errors.Is(err, redis.Nil) {
		return state.State{}, fmt.Errorf("%w: pid %d", ErrNotFound, pid)
	}
	if err != nil {
		return state.State{}, fmt.Errorf("publish: redis get: %w", err)
	}
	return state.Decode(data)
}
