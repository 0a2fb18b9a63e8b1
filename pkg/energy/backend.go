// Package energy defines the contract between the heartbeat engine and an
// energy source, and ships the sources the engine knows how to open.
//
// A Backend reports cumulative energy. The engine keeps the previous reading
// and computes per-beat deltas itself, so sources that can only measure power
// (see Polling) integrate it into a running total.
package energy

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

var (
	// ErrNotInitialized is returned by Read before Init or after Finish.
	ErrNotInitialized = errors.New("energy: backend not initialized")

	// ErrUnknownSource is returned by Open for a name nothing registered.
	ErrUnknownSource = errors.New("energy: unknown source")

	// ErrPermission indicates that the sensor exists but cannot be read.
	ErrPermission = errors.New("energy: sensor not readable")
)

// Backend is an energy source.
//
// Read returns the energy in Joules accumulated from the backend's start up to
// currNs. lastNs is the timestamp of the previous read, or negative for the
// first read, in which case the backend measures from its own start time.
// Both timestamps are wall-clock nanoseconds as returned by the engine clock.
type Backend interface {
	Init(ctx context.Context) error
	Read(lastNs, currNs int64) (float64, error)
	Finish() error
	Source() string
}

// Options configures the backends created by Open.
type Options struct {
	PowercapRoot string
	HwmonRoot    string
	HwmonChips   []string
	PollInterval time.Duration
	Model        ModelConfig
	Logger       *slog.Logger
}

// DefaultPollInterval is the sampling cadence of polled power sensors.
const DefaultPollInterval = 200 * time.Millisecond

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func nowNs() int64 { return time.Now().UnixNano() }
