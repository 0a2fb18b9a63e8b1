package energy

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ja7ad/heartbeat/pkg/system/util"
)

// PowerSensor is an instantaneous power source (Watts).
type PowerSensor interface {
	ReadPower(ctx context.Context) (float64, error)
	Name() string
}

// Polling turns a PowerSensor into a Backend.
//
// A background goroutine samples the sensor every interval and keeps a running
// average of the samples taken since the last Read. Read converts that average
// into energy over [lastNs, currNs] and adds it to a monotonically increasing
// total. When no sample arrived between two reads the previous non-zero
// average is reused, so a slow sensor smooths instead of reporting 0 W.
//
// # Thread Safety
//
// The sample slot (average, count) has its own mutex shared only by the
// sampler goroutine and Read callers.
type Polling struct {
	sensor   PowerSensor
	interval time.Duration
	logger   *slog.Logger
	now      func() int64

	mu      sync.Mutex
	avg     float64
	count   int
	lastAvg float64
	total   float64

	startNs int64
	running atomic.Bool
	life    sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

var _ Backend = (*Polling)(nil)

// PollingOption configures a Polling backend.
type PollingOption func(*Polling)

// WithPollingLogger sets the logger used for sampling failures.
func WithPollingLogger(l *slog.Logger) PollingOption {
	return func(p *Polling) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithPollingClock overrides the clock used to stamp the backend start time.
func WithPollingClock(now func() int64) PollingOption {
	return func(p *Polling) {
		if now != nil {
			p.now = now
		}
	}
}

// NewPolling returns a Backend sampling sensor every interval.
// A non-positive interval uses DefaultPollInterval.
func NewPolling(sensor PowerSensor, interval time.Duration, opts ...PollingOption) *Polling {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	p := &Polling{
		sensor:   sensor,
		interval: interval,
		logger:   slog.Default(),
		now:      nowNs,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Init probes the sensor once and starts the sampler goroutine.
func (p *Polling) Init(ctx context.Context) error {
	p.life.Lock()
	defer p.life.Unlock()

	if p.running.Load() {
		return nil
	}
	if _, err := p.sensor.ReadPower(ctx); err != nil {
		return fmt.Errorf("energy: probe %s: %w", p.sensor.Name(), err)
	}

	p.mu.Lock()
	p.avg, p.count, p.lastAvg, p.total = 0, 0, 0, 0
	p.mu.Unlock()

	p.startNs = p.now()
	runCtx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.running.Store(true)

	p.wg.Add(1)
	go p.run(runCtx)

	return nil
}

// run samples the sensor until ctx is cancelled.
func (p *Polling) run(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			watts, err := p.sensor.ReadPower(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				p.logger.Warn("power sample failed", "sensor", p.sensor.Name(), "err", err)
				continue
			}
			p.observe(watts)
		}
	}
}

// observe folds one sample into the running average.
func (p *Polling) observe(watts float64) {
	p.mu.Lock()
	p.avg = (watts + float64(p.count)*p.avg) / float64(p.count+1)
	p.count++
	p.mu.Unlock()
}

// Read converts the power averaged since the previous Read into energy.
func (p *Polling) Read(lastNs, currNs int64) (float64, error) {
	if !p.running.Load() {
		return 0, ErrNotInitialized
	}
	if lastNs < 0 {
		lastNs = p.startNs
	}
	dt := util.DiffSec(lastNs, currNs)
	if dt < 0 {
		dt = 0
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.count > 0 && p.avg > 0 {
		p.lastAvg = p.avg
	}
	p.total += p.lastAvg * dt
	p.avg, p.count = 0, 0

	return p.total, nil
}

// Finish stops the sampler and waits for it to exit. Safe to call twice.
func (p *Polling) Finish() error {
	p.life.Lock()
	defer p.life.Unlock()

	if !p.running.CompareAndSwap(true, false) {
		return nil
	}
	p.cancel()
	p.wg.Wait()

	if c, ok := p.sensor.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (p *Polling) Source() string { return p.sensor.Name() + " with Polling" }
