package heartbeat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ja7ad/heartbeat/pkg/energy"
	"github.com/ja7ad/heartbeat/pkg/state"
)

type manualClock struct{ ns atomic.Int64 }

func (c *manualClock) now() int64   { return c.ns.Load() }
func (c *manualClock) set(ns int64) { c.ns.Store(ns) }
func (c *manualClock) add(ns int64) { c.ns.Add(ns) }

// meter is a cumulative energy source driven by the test.
type meter struct {
	mu     sync.Mutex
	joules float64
	err    error
}

func (m *meter) set(j float64) {
	m.mu.Lock()
	m.joules = j
	m.mu.Unlock()
}

func (m *meter) fail(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func (m *meter) read(int64, int64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		err := m.err
		m.err = nil
		return -1, err
	}
	return m.joules, nil
}

func (m *meter) backend() energy.Backend { return energy.NewFunc("meter", m.read) }

// trackedBackend records lifecycle calls.
type trackedBackend struct {
	initErr   error
	finishErr error
	inits     atomic.Int32
	finishes  atomic.Int32
}

func (b *trackedBackend) Init(context.Context) error {
	b.inits.Add(1)
	return b.initErr
}
func (b *trackedBackend) Read(int64, int64) (float64, error) { return 0, nil }
func (b *trackedBackend) Finish() error {
	b.finishes.Add(1)
	return b.finishErr
}
func (b *trackedBackend) Source() string { return "tracked" }

type memPublisher struct {
	mu         sync.Mutex
	states     []state.State
	removed    int
	closed     int
	publishErr error
}

func (p *memPublisher) Publish(_ context.Context, s state.State) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.publishErr != nil {
		return p.publishErr
	}
	p.states = append(p.states, s)
	return nil
}

func (p *memPublisher) Remove(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removed++
	return nil
}

func (p *memPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	return nil
}

func (p *memPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.states)
}

func (p *memPublisher) latest() state.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.states[len(p.states)-1]
}

type memSink struct {
	mu       sync.Mutex
	chunks   [][]Record
	closed   int
	closeErr error
}

func (s *memSink) Write(records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, append([]Record(nil), records...))
	return nil
}

func (s *memSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return s.closeErr
}

func (s *memSink) all() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Record
	for _, c := range s.chunks {
		out = append(out, c...)
	}
	return out
}

var errBoom = errors.New("boom")

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	clock *manualClock
	meter *meter
	pub   *memPublisher
	sink  *memSink
	eng   *Engine
}

func newFixture(t *testing.T, cfg Config, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{clock: &manualClock{}, meter: &meter{}, pub: &memPublisher{}, sink: &memSink{}}
	eng, err := New(cfg, append([]Option{
		WithBackend(f.meter.backend()),
		WithPublisher(f.pub),
		WithSink(f.sink),
		WithClock(f.clock.now),
		WithLogger(quietLogger()),
		WithPID(4242),
	}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Finish() })
	f.eng = eng
	return f
}

// beat advances to t (ns) with cumulative energy j and records one beat.
func (f *fixture) beat(t int64, j float64, tag int, acc float64) Record {
	f.clock.set(t)
	f.meter.set(j)
	f.eng.Record(tag, acc)
	return f.eng.Stats().Last
}
