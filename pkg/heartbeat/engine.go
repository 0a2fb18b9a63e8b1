// Package heartbeat derives performance, accuracy and power metrics from
// application heartbeats.
//
// Each call to Record marks one unit of progress. The engine reports rate,
// accuracy and power at three timescales: global (since the first beat),
// window (the last WindowSize intervals) and instant (the last interval).
// Records are buffered in a ring of BufferDepth entries that is flushed to a
// Sink whenever it fills. A State snapshot is published for external
// controllers at start-up, at every flush and every PublishEvery beats in
// between (each beat unless configured otherwise).
//
// # Thread Safety
//
// All methods are safe for concurrent use. Record holds the engine lock for
// its whole duration, flush included, so log lines always appear in beat
// order.
package heartbeat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/ja7ad/heartbeat/pkg/energy"
	"github.com/ja7ad/heartbeat/pkg/publish"
	"github.com/ja7ad/heartbeat/pkg/state"
	"github.com/ja7ad/heartbeat/pkg/system/util"
)

// EnvEnergySource names the energy backend opened when none is supplied.
const EnvEnergySource = "HEARTBEAT_ENERGY_SOURCE"

// DefaultPublishTimeout bounds publish and backend init calls.
const DefaultPublishTimeout = 2 * time.Second

type (
	Record = state.Record
	Bounds = state.Bounds
)

// Config is fixed for the lifetime of an Engine. Bounds are advisory: they are
// published for consumers and never enforced or checked. An infinite end
// leaves that side open.
type Config struct {
	WindowSize  int64  `yaml:"window_size" validate:"gte=1"`
	BufferDepth int64  `yaml:"buffer_depth" validate:"gte=1"`
	LogPath     string `yaml:"log_path"`

	Perf     Bounds `yaml:"perf"`
	Accuracy Bounds `yaml:"accuracy"`
	Power    Bounds `yaml:"power"`
}

func (c Config) Validate() error {
	if c.WindowSize < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidWindow, c.WindowSize)
	}
	if c.BufferDepth < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidDepth, c.BufferDepth)
	}
	return nil
}

// Stats is a point-in-time view of the engine counters.
type Stats struct {
	PID     int
	Session string
	Source  string

	WindowSize  int64
	BufferDepth int64
	Perf        Bounds
	Accuracy    Bounds
	Power       Bounds

	Counter     int64
	BufferIndex int64
	ReadIndex   int64
	SteadyState bool
	Last        Record

	// TotalEnergy is the energy observed since the first beat, in Joules.
	TotalEnergy float64
	Elapsed     time.Duration

	Flushes       uint64
	ReadErrors    uint64
	SinkErrors    uint64
	PublishErrors uint64
}

// Engine accumulates heartbeats for one monitored process.
type Engine struct {
	mu sync.Mutex

	cfg     Config
	logger  *slog.Logger
	clock   func() int64
	timeout time.Duration
	every   int64
	pid     int
	session string
	host    string

	backend   energy.Backend
	backendUp bool
	publisher publish.Publisher
	published bool
	sink      Sink

	win  *window
	ring *Ring[Record]
	hist *hdrhistogram.Histogram

	firstTs     int64
	lastTs      int64
	lastEnergy  float64
	accSum      float64
	totalEnergy float64
	counter     int64
	readIndex   int64
	last        Record

	flushes       uint64
	readErrors    uint64
	sinkErrors    uint64
	publishErrors uint64

	finished bool
}

// New validates cfg, initializes the energy backend, opens the log and
// publishes the initial state. Any failure releases what was acquired so far
// and returns the error; a publish target is required.
//
// Once cfg is valid the engine owns the backend, publisher and sink passed as
// options: they are finished or closed by Finish, or by New itself when it
// fails.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{
		logger:  slog.Default(),
		clock:   func() int64 { return time.Now().UnixNano() },
		pid:     os.Getpid(),
		timeout: DefaultPublishTimeout,
		every:   1,
	}
	for _, opt := range opts {
		opt(&o)
	}

	host, _ := os.Hostname()
	e := &Engine{
		cfg:       cfg,
		logger:    o.logger,
		clock:     o.clock,
		timeout:   o.timeout,
		every:     o.every,
		pid:       o.pid,
		session:   uuid.NewString(),
		host:      host,
		backend:   o.backend,
		publisher: o.publisher,
		sink:      o.sink,
	}

	if err := e.init(); err != nil {
		if ferr := e.Finish(); ferr != nil {
			e.logger.Warn("teardown after failed init", "err", ferr)
		}
		return nil, err
	}

	e.logger.Debug("heartbeat engine started",
		"pid", e.pid,
		"session", e.session,
		"source", e.backend.Source(),
		"window", cfg.WindowSize,
		"depth", cfg.BufferDepth,
	)
	return e, nil
}

// NewSimple is New with accuracy and power bounds left at zero.
func NewSimple(windowSize, bufferDepth int64, logPath string, minPerf, maxPerf float64, opts ...Option) (*Engine, error) {
	return New(Config{
		WindowSize:  windowSize,
		BufferDepth: bufferDepth,
		LogPath:     logPath,
		Perf:        Bounds{Min: minPerf, Max: maxPerf},
	}, opts...)
}

func (e *Engine) init() error {
	if e.backend == nil {
		b, err := energy.Open(os.Getenv(EnvEnergySource), energy.Options{Logger: e.logger})
		if err != nil {
			return fmt.Errorf("heartbeat: energy source: %w", err)
		}
		e.backend = b
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	if err := e.backend.Init(ctx); err != nil {
		return fmt.Errorf("heartbeat: init %s: %w", e.backend.Source(), err)
	}
	e.backendUp = true

	if e.publisher == nil {
		p, err := publish.FromEnv(e.pid)
		if err != nil {
			if errors.Is(err, publish.ErrNoTarget) {
				return fmt.Errorf("%w: %v", ErrNoPublisher, err)
			}
			return fmt.Errorf("heartbeat: %w", err)
		}
		e.publisher = p
	}

	if e.sink == nil && e.cfg.LogPath != "" {
		s, err := OpenTextLog(e.cfg.LogPath)
		if err != nil {
			return err
		}
		e.sink = s
	}

	e.win = newWindow(int(e.cfg.WindowSize))
	e.ring = NewRing[Record](int(e.cfg.BufferDepth))
	e.hist = newIntervalHist()

	if err := e.publish(ctx); err != nil {
		return err
	}
	return nil
}

// Record registers one heartbeat and returns its timestamp in Unix
// nanoseconds. Backend, sink and publish failures are logged and counted in
// Stats; they never fail the beat. After Finish, Record only returns the
// current time.
func (e *Engine) Record(tag int, accuracy float64) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock()
	if e.finished {
		return now
	}

	reading := e.readEnergy(now)
	rec := Record{Beat: e.counter, Tag: tag, Timestamp: now}

	if e.counter == 0 {
		e.firstTs, e.lastTs = now, now
		e.lastEnergy = reading
		e.win.seed(accuracy)
		e.accSum = accuracy
		e.totalEnergy = 0

		rec.GlobalAccuracy = accuracy
		rec.WindowAccuracy = accuracy
		rec.InstantAccuracy = accuracy
	} else {
		dt := now - e.lastTs
		de := reading - e.lastEnergy
		elapsed := float64(now - e.firstTs)

		ws := e.win.update(float64(dt), accuracy, de)
		e.accSum += accuracy
		e.totalEnergy += de

		rec.GlobalRate = util.SafeDiv(float64(e.counter+1), elapsed) * util.NanosPerSecond
		rec.WindowRate = ws.Rate
		rec.InstantRate = util.SafeDiv(util.NanosPerSecond, float64(dt))

		rec.GlobalAccuracy = e.accSum / float64(e.counter+1)
		rec.WindowAccuracy = ws.Accuracy
		rec.InstantAccuracy = accuracy

		rec.GlobalPower = util.SafeDiv(e.totalEnergy, elapsed) * util.NanosPerSecond
		rec.WindowPower = ws.Power
		rec.InstantPower = util.SafeDiv(de, float64(dt)) * util.NanosPerSecond

		recordInterval(e.hist, dt)
		e.lastTs = now
		e.lastEnergy = reading
	}

	e.last = rec
	full := e.ring.Push(rec)
	e.counter++
	e.readIndex = (e.readIndex + 1) % e.cfg.BufferDepth

	if full {
		_ = e.flush()
	}
	if full || (e.every > 0 && e.counter%e.every == 0) {
		ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
		if err := e.publish(ctx); err != nil {
			e.logger.Warn("publish state failed", "pid", e.pid, "err", err)
		}
		cancel()
	}

	return now
}

// RecordNoAccuracy is Record(tag, 0).
func (e *Engine) RecordNoAccuracy(tag int) int64 {
	return e.Record(tag, 0)
}

// readEnergy returns the cumulative backend reading at now. A failed read
// repeats the previous reading so the interval contributes no energy.
func (e *Engine) readEnergy(now int64) float64 {
	lastNs := int64(-1)
	if e.counter > 0 {
		lastNs = e.lastTs
	}
	j, err := e.backend.Read(lastNs, now)
	if err != nil {
		e.readErrors++
		e.logger.Warn("energy read failed", "source", e.backend.Source(), "err", err)
		if e.counter == 0 {
			return 0
		}
		return e.lastEnergy
	}
	return j
}

// flush hands the buffered records to the sink and empties the ring.
func (e *Engine) flush() error {
	if e.ring == nil || e.ring.Len() == 0 {
		return nil
	}
	records := e.ring.Items()
	e.ring.Reset()
	e.flushes++

	if e.sink == nil {
		return nil
	}
	if err := e.sink.Write(records); err != nil {
		e.sinkErrors++
		e.logger.Warn("log flush failed", "records", len(records), "err", err)
		return err
	}
	return nil
}

func (e *Engine) publish(ctx context.Context) error {
	if err := e.publisher.Publish(ctx, e.snapshot()); err != nil {
		e.publishErrors++
		return fmt.Errorf("heartbeat: publish: %w", err)
	}
	e.published = true
	return nil
}

// Publish writes the current state to the publisher outside the regular
// cadence.
func (e *Engine) Publish(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.finished {
		return ErrFinished
	}
	return e.publish(ctx)
}

// State returns the snapshot that would be published now.
func (e *Engine) State() state.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot()
}

func (e *Engine) snapshot() state.State {
	s := state.State{
		Version:     state.Version,
		PID:         e.pid,
		Session:     e.session,
		Host:        e.host,
		Perf:        e.cfg.Perf,
		Accuracy:    e.cfg.Accuracy,
		Power:       e.cfg.Power,
		WindowSize:  e.cfg.WindowSize,
		BufferDepth: e.cfg.BufferDepth,
		Counter:     e.counter,
		BufferIndex: e.bufferIndex(),
		ReadIndex:   e.readIndex,
		Valid:       !e.finished,
		SteadyState: e.win != nil && e.win.steady,
		Log:         []Record{},
		UpdatedAt:   time.Now().UTC(),
	}
	if e.backend != nil {
		s.Source = e.backend.Source()
	}
	if e.ring != nil {
		s.Log = e.ring.Items()
	}
	if e.counter > 0 {
		last := e.last
		s.Last = &last
	}
	return s
}

func (e *Engine) bufferIndex() int64 {
	if e.ring == nil {
		return 0
	}
	return int64(e.ring.Cursor())
}

// Stats returns the current counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := Stats{
		PID:           e.pid,
		Session:       e.session,
		WindowSize:    e.cfg.WindowSize,
		BufferDepth:   e.cfg.BufferDepth,
		Perf:          e.cfg.Perf,
		Accuracy:      e.cfg.Accuracy,
		Power:         e.cfg.Power,
		Counter:       e.counter,
		BufferIndex:   e.bufferIndex(),
		ReadIndex:     e.readIndex,
		SteadyState:   e.win != nil && e.win.steady,
		Last:          e.last,
		TotalEnergy:   e.totalEnergy,
		Flushes:       e.flushes,
		ReadErrors:    e.readErrors,
		SinkErrors:    e.sinkErrors,
		PublishErrors: e.publishErrors,
	}
	if e.backend != nil {
		st.Source = e.backend.Source()
	}
	if e.counter > 0 {
		st.Elapsed = time.Duration(e.lastTs - e.firstTs)
	}
	return st
}

// Intervals summarizes the observed inter-beat intervals.
func (e *Engine) Intervals() IntervalStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return intervalStats(e.hist)
}

// Finish flushes buffered records, closes the sink, stops the backend and
// removes the published state. Every step runs even if an earlier one fails;
// the failures are returned together. Finish is safe on a nil or partially
// built engine and may be called more than once.
func (e *Engine) Finish() error {
	if e == nil {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.finished {
		return nil
	}
	e.finished = true

	var errs *multierror.Error
	fail := func(step string, err error) {
		e.logger.Warn("heartbeat teardown", "step", step, "err", err)
		errs = multierror.Append(errs, fmt.Errorf("%s: %w", step, err))
	}

	if err := e.flush(); err != nil {
		fail("flush log", err)
	}
	if e.sink != nil {
		if err := e.sink.Close(); err != nil {
			fail("close log", err)
		}
		e.sink = nil
	}

	if e.backend != nil && e.backendUp {
		if err := e.backend.Finish(); err != nil {
			fail("finish backend", err)
		}
		e.backendUp = false
	}

	if e.publisher != nil {
		if e.published {
			ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
			if err := e.publisher.Remove(ctx); err != nil {
				fail("remove state", err)
			}
			cancel()
		}
		if err := e.publisher.Close(); err != nil {
			fail("close publisher", err)
		}
		e.publisher = nil
	}

	e.win, e.ring, e.hist = nil, nil, nil
	return errs.ErrorOrNil()
}
