//go:build linux

package proc

import (
	"errors"
	"os"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCounters struct {
	active, total, proc uint64
	procErr             error
}

func (f *fakeCounters) system() (uint64, uint64, error) { return f.active, f.total, nil }
func (f *fakeCounters) process(int) (uint64, uint64, error) {
	if f.procErr != nil {
		return 0, 0, f.procErr
	}
	return f.proc, 0, nil
}

func TestSampler_Utilization(t *testing.T) {
	t.Setenv("CLK_TCK", "100")
	fc := &fakeCounters{active: 1000, total: 4000, proc: 50}

	s, err := newSampler(42, 1.0, fc.system, fc.process)
	require.NoError(t, err)

	// half the machine busy; process used 0.5s of CPU over one second
	fc.active += 200
	fc.total += 400
	fc.proc += 50

	u, err := s.Sample(1.0)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, u.UVm, 1e-12)
	assert.InDelta(t, 0.5/float64(runtime.NumCPU()), u.UProc, 1e-12)
	assert.Equal(t, 1.0, u.TimeSec)

	t.Logf("UVm=%.4f UProc=%.4f", u.UVm, u.UProc)
}

func TestSampler_Errors(t *testing.T) {
	fc := &fakeCounters{active: 1, total: 2}
	s, err := newSampler(42, 0.5, fc.system, fc.process)
	require.NoError(t, err)

	_, err = s.Sample(0)
	assert.ErrorIs(t, err, ErrBadDt)

	fc.procErr = errors.New("gone")
	_, err = s.Sample(1)
	assert.ErrorIs(t, err, ErrExited)
}

func TestSampler_Self(t *testing.T) {
	s, err := NewSampler(os.Getpid(), 0.5)
	require.NoError(t, err)

	u, err := s.Sample(0.01)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, u.UVm, 0.0)
	assert.LessOrEqual(t, u.UProc, 1.0)
}
