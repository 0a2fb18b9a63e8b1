package energy

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSensor struct {
	mu     sync.Mutex
	watts  float64
	err    error
	calls  int
	closed bool
}

func (f *fakeSensor) ReadPower(context.Context) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.watts, f.err
}

func (f *fakeSensor) Name() string { return "fake" }

func (f *fakeSensor) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSensor) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func zeroClock() int64 { return 0 }

func TestPolling_CarryForward(t *testing.T) {
	// an hour-long interval keeps the sampler goroutine quiet; samples are
	// injected directly
	p := NewPolling(&fakeSensor{watts: 1}, time.Hour, WithPollingClock(zeroClock))
	require.NoError(t, p.Init(context.Background()))
	t.Cleanup(func() { _ = p.Finish() })

	p.observe(10)
	total, err := p.Read(-1, 1e9) // measured from the start time (0)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, total, 1e-9)

	// no samples in between: the last average is reused, never zero
	total, err = p.Read(1e9, 2e9)
	require.NoError(t, err)
	assert.InDelta(t, 20.0, total, 1e-9)

	p.observe(4)
	p.observe(6)
	total, err = p.Read(2e9, 3e9)
	require.NoError(t, err)
	assert.InDelta(t, 25.0, total, 1e-9)

	// an all-zero interval also keeps the previous non-zero average
	p.observe(0)
	total, err = p.Read(3e9, 3.5e9)
	require.NoError(t, err)
	assert.InDelta(t, 27.5, total, 1e-9)
}

func TestPolling_RunningAverage(t *testing.T) {
	p := NewPolling(&fakeSensor{}, time.Hour)
	for _, w := range []float64{2, 4, 6, 8} {
		p.observe(w)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	assert.InDelta(t, 5.0, p.avg, 1e-12)
	assert.Equal(t, 4, p.count)
}

func TestPolling_NoSamplesYet(t *testing.T) {
	p := NewPolling(&fakeSensor{watts: 3}, time.Hour)
	require.NoError(t, p.Init(context.Background()))
	defer p.Finish()

	total, err := p.Read(0, 1e9)
	require.NoError(t, err)
	assert.Equal(t, 0.0, total, "nothing known yet")
}

func TestPolling_BackgroundSampler(t *testing.T) {
	s := &fakeSensor{watts: 5}
	p := NewPolling(s, time.Millisecond)
	require.NoError(t, p.Init(context.Background()))

	require.Eventually(t, func() bool { return s.Calls() > 3 }, 2*time.Second, time.Millisecond)

	total, err := p.Read(0, 2e9)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, total, 1e-9)

	require.NoError(t, p.Finish())
	calls := s.Calls()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, calls, s.Calls(), "sampler must stop after Finish")
	assert.True(t, s.closed)
}

func TestPolling_Lifecycle(t *testing.T) {
	s := &fakeSensor{watts: 1}
	p := NewPolling(s, time.Hour)

	_, err := p.Read(0, 1)
	assert.ErrorIs(t, err, ErrNotInitialized)

	require.NoError(t, p.Init(context.Background()))
	require.NoError(t, p.Init(context.Background()), "second Init is a no-op")
	require.NoError(t, p.Finish())
	require.NoError(t, p.Finish(), "Finish is idempotent")

	_, err = p.Read(0, 1)
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.Equal(t, "fake with Polling", p.Source())
}

func TestPolling_ProbeFailure(t *testing.T) {
	boom := errors.New("usb unplugged")
	p := NewPolling(&fakeSensor{err: boom}, time.Hour)

	err := p.Init(context.Background())
	require.ErrorIs(t, err, boom)
	require.NoError(t, p.Finish(), "Finish after failed Init is safe")
}

func TestPolling_SampleErrorsAreSkipped(t *testing.T) {
	s := &fakeSensor{watts: 2}
	p := NewPolling(s, time.Millisecond)
	require.NoError(t, p.Init(context.Background()))
	defer p.Finish()

	require.Eventually(t, func() bool { return s.Calls() > 2 }, 2*time.Second, time.Millisecond)
	s.mu.Lock()
	s.err = errors.New("transient")
	s.mu.Unlock()

	before := s.Calls()
	require.Eventually(t, func() bool { return s.Calls() > before+2 }, 2*time.Second, time.Millisecond)

	// the good samples taken earlier still carry the interval
	total, err := p.Read(0, 1e9)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, total, 1e-9)
}
