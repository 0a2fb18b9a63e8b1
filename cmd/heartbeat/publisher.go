//go:build linux

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ja7ad/heartbeat/internal/config"
	"github.com/ja7ad/heartbeat/pkg/publish"
)

func openPublisher(ctx context.Context, c config.Publish, pid int) (publish.Publisher, error) {
	switch c.Kind {
	case "file":
		if err := os.MkdirAll(c.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("publish dir: %w", err)
		}
		return publish.NewFile(c.Dir, pid)
	case "nats":
		return publish.DialKV(ctx, c.NATSURL, c.Bucket, c.Prefix, pid)
	case "redis":
		return publish.DialRedis(ctx, c.RedisAddr, c.Prefix, pid, c.RedisTTL)
	default:
		return nil, fmt.Errorf("%w: unknown publisher %q", publish.ErrNoTarget, c.Kind)
	}
}
