//go:build linux

package proc

import (
	"runtime"

	"github.com/ja7ad/heartbeat/pkg/system/util"
)

// Utilization is the CPU share observed over one sampling interval.
type Utilization struct {
	TimeSec float64
	// Utilizations in [0,1]
	UVm   float64
	UProc float64
}

// Sampler tracks CPU counters of one process and of the whole machine.
type Sampler struct {
	pid    int
	clkTck int
	nproc  int

	// EMA smoothing for VM utilization (helps avoid spikes when dt is small).
	ema *util.EMA

	vmActivePrev uint64
	vmTotalPrev  uint64
	cpuPrev      uint64

	readSystem func() (uint64, uint64, error)
	readProc   func(int) (uint64, uint64, error)
}

// NewSampler seeds counters for pid. alpha in [0,1] smooths U_vm; 1 disables smoothing.
func NewSampler(pid int, alpha float64) (*Sampler, error) {
	return newSampler(pid, alpha, ReadSystemCPU, ReadProcCPU)
}

func newSampler(pid int, alpha float64,
	readSystem func() (uint64, uint64, error),
	readProc func(int) (uint64, uint64, error),
) (*Sampler, error) {
	s := &Sampler{
		pid:        pid,
		clkTck:     ClockTicks(),
		nproc:      runtime.NumCPU(),
		ema:        util.NewEMA(util.Clamp01(alpha)),
		readSystem: readSystem,
		readProc:   readProc,
	}

	active, total, err := readSystem()
	if err != nil {
		return nil, err
	}
	ut, st, err := readProc(pid)
	if err != nil {
		return nil, err
	}
	s.vmActivePrev, s.vmTotalPrev, s.cpuPrev = active, total, ut+st
	return s, nil
}

// Sample returns utilization accumulated since the previous call.
func (s *Sampler) Sample(dtSec float64) (Utilization, error) {
	if !(dtSec > 0) {
		return Utilization{}, ErrBadDt
	}

	active, total, err := s.readSystem()
	if err != nil {
		return Utilization{}, err
	}
	ut, st, err := s.readProc(s.pid)
	if err != nil {
		return Utilization{}, ErrExited
	}

	dActive := util.DeltaU64(active, s.vmActivePrev, 0)
	dTotal := util.DeltaU64(total, s.vmTotalPrev, 0)
	dProc := util.DeltaU64(ut+st, s.cpuPrev, 0)
	s.vmActivePrev, s.vmTotalPrev, s.cpuPrev = active, total, ut+st

	uvm := s.ema.Next(util.Clamp01(util.SafeDiv(float64(dActive), float64(dTotal))))
	capacity := float64(s.clkTck) * dtSec * float64(s.nproc)
	up := util.Clamp01(util.SafeDiv(float64(dProc), capacity))

	return Utilization{TimeSec: dtSec, UVm: uvm, UProc: up}, nil
}
