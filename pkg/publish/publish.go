// Package publish delivers heartbeat state snapshots to the places external
// controllers read them from: a directory of per-process files, a NATS
// JetStream key-value bucket, or Redis.
package publish

import (
	"context"
	"errors"
	"strconv"

	"github.com/ja7ad/heartbeat/pkg/state"
)

// EnvDir names the directory the file publisher writes to.
const EnvDir = "HEARTBEAT_ENABLED_DIR"

var (
	// ErrNoTarget indicates that no publish target is configured.
	ErrNoTarget = errors.New("publish: no target configured")

	// ErrNotFound is returned when a process has no published state.
	ErrNotFound = errors.New("publish: state not found")
)

// Publisher stores the latest State of one process and removes it on shutdown.
type Publisher interface {
	Publish(ctx context.Context, s state.State) error
	Remove(ctx context.Context) error
	Close() error
}

// key is the per-process identity used by every publisher.
func key(prefix string, pid int, sep string) string {
	if prefix == "" {
		return strconv.Itoa(pid)
	}
	return prefix + sep + strconv.Itoa(pid)
}
