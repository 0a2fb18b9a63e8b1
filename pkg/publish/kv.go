package publish

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/ja7ad/heartbeat/pkg/state"
)

// DefaultBucket is the KV bucket used when none is configured.
const DefaultBucket = "heartbeats"

// KV publishes state into a NATS JetStream key-value bucket under
// <prefix>.<pid>.
type KV struct {
	kv  jetstream.KeyValue
	key string
	nc  *nats.Conn // owned connection, nil when supplied by the caller
}

var _ Publisher = (*KV)(nil)

// NewKV returns a publisher for an already opened bucket.
func NewKV(kv jetstream.KeyValue, prefix string, pid int) *KV {
	return &KV{kv: kv, key: key(prefix, pid, ".")}
}

// DialKV connects to url, ensures bucket exists and returns a publisher that
// owns the connection.
func DialKV(ctx context.Context, url, bucket, prefix string, pid int) (*KV, error) {
	nc, err := nats.Connect(url, nats.Timeout(2*time.Second), nats.MaxReconnects(3))
	if err != nil {
		return nil, fmt.Errorf("publish: nats connect: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("publish: jetstream: %w", err)
	}
	kv, err := EnsureBucket(ctx, js, bucket, 3)
	if err != nil {
		nc.Close()
		return nil, err
	}
	p := NewKV(kv, prefix, pid)
	p.nc = nc
	return p, nil
}

// EnsureBucket creates or opens bucket, retrying with exponential backoff when
// several processes race to create it.
func EnsureBucket(ctx context.Context, js jetstream.JetStream, bucket string, maxRetries int) (jetstream.KeyValue, error) {
	if bucket == "" {
		bucket = DefaultBucket
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		kv, err := js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      bucket,
			Description: "heartbeat state by process",
			History:     1,
		})
		if err == nil {
			return kv, nil
		}

		if errors.Is(err, jetstream.ErrBucketExists) {
			kv, err := js.KeyValue(ctx, bucket)
			if err == nil {
				return kv, nil
			}
			lastErr = fmt.Errorf("bucket exists but failed to open: %w", err)
		} else {
			lastErr = err
		}

		if ctx.Err() != nil {
			return nil, fmt.Errorf("publish: ensure bucket %s: %w", bucket, ctx.Err())
		}

		// 10ms, 20ms, 40ms...
		if attempt < maxRetries-1 {
			backoff := time.Duration(1<<uint(attempt)) * 10 * time.Millisecond
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	return nil, fmt.Errorf("publish: ensure bucket %s after %d attempts: %w", bucket, maxRetries, lastErr)
}

// Key returns the KV key this publisher writes.
func (p *KV) Key() string { return p.key }

func (p *KV) Publish(ctx context.Context, s state.State) error {
	data, err := state.Encode(s)
	if err != nil {
		return err
	}
	if _, err := p.kv.Put(ctx, p.key, data); err != nil {
		return fmt.Errorf("publish: put %s: %w", p.key, err)
	}
	return nil
}

func (p *KV) Remove(ctx context.Context) error {
	if err := p.kv.Delete(ctx, p.key); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("publish: delete %s: %w", p.key, err)
	}
	return nil
}

func (p *KV) Close() error {
	if p.nc != nil {
		p.nc.Close()
	}
	return nil
}

// ReadKV returns every valid state under prefix in the bucket, ordered by pid.
// Deleted keys are not listed.
func ReadKV(ctx context.Context, kv jetstream.KeyValue, prefix string) ([]state.State, error) {
	lister, err := kv.ListKeys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("publish: list keys: %w", err)
	}
	defer func() {
		_ = lister.Stop()
	}()

	var out []state.State
	for k := range lister.Keys() {
		if prefix != "" && !strings.HasPrefix(k, prefix+".") {
			continue
		}
		entry, err := kv.Get(ctx, k)
		if err != nil {
			if errors.Is(err, jetstream.ErrKeyNotFound) {
				continue
			}
			return nil, fmt.Errorf("publish: get %s: %w", k, err)
		}
		s, err := state.Decode(entry.Value())
		if err != nil {
			return nil, fmt.Errorf("publish: %s: %w", k, err)
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PID < out[j].PID })
	return out, nil
}
