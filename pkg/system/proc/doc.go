// Package proc reads CPU time counters from /proc on Linux and turns them into
// per-interval utilization for the CPU power model (see pkg/energy).
//
// Overview
//
//   - ReadProcCPU(pid): utime and stime jiffies from /proc/<pid>/stat.
//
//   - ReadSystemCPU(): active and total jiffies from the aggregate "cpu" line
//     of /proc/stat.
//
//   - Sampler: remembers the previous counters for one PID and returns a
//     Utilization per call to Sample(dtSec):
//
//     UVm   : machine-wide busy share in [0,1], optionally EMA-smoothed
//     UProc : process CPU time / (CLK_TCK * dtSec * NumCPU), clamped to [0,1]
//
// Counters are monotonic; a backwards step (should never happen on a sane
// kernel) yields a zero delta instead of a huge unsigned wrap.
//
// Errors (errs.go):
//
//	ErrNoStat, ErrShortStat : /proc/<pid>/stat missing fields
//	ErrNoCPU                : /proc/stat has no aggregate line
//	ErrBadDt                : dtSec <= 0
//	ErrExited               : the process went away between samples
package proc
