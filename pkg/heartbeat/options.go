package heartbeat

import (
	"log/slog"
	"time"

	"github.com/ja7ad/heartbeat/pkg/energy"
	"github.com/ja7ad/heartbeat/pkg/publish"
)

// Option configures an Engine.
type Option func(*options)

type options struct {
	backend   energy.Backend
	publisher publish.Publisher
	sink      Sink
	logger    *slog.Logger
	clock     func() int64
	pid       int
	timeout   time.Duration
	every     int64
}

// WithBackend sets the energy source. Without it the engine opens the source
// named by HEARTBEAT_ENERGY_SOURCE, or the null backend.
func WithBackend(b energy.Backend) Option {
	return func(o *options) { o.backend = b }
}

// WithPublisher sets where state is published. Without it the engine uses the
// directory named by HEARTBEAT_ENABLED_DIR.
func WithPublisher(p publish.Publisher) Option {
	return func(o *options) { o.publisher = p }
}

// WithSink sets the log sink. It takes precedence over Config.LogPath and is
// closed by Finish.
func WithSink(s Sink) Option {
	return func(o *options) { o.sink = s }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock replaces the wall clock (Unix nanoseconds).
func WithClock(now func() int64) Option {
	return func(o *options) {
		if now != nil {
			o.clock = now
		}
	}
}

// WithPID sets the process identity state is published under.
func WithPID(pid int) Option {
	return func(o *options) { o.pid = pid }
}

// WithPublishTimeout bounds each publish and remove call.
func WithPublishTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithPublishEvery publishes state every n beats in addition to every flush.
// The default is 1. n <= 0 publishes on flush only.
func WithPublishEvery(n int64) Option {
	return func(o *options) { o.every = n }
}
