package util

import "math"

// NanosPerSecond is the number of nanoseconds in one second.
const NanosPerSecond = 1e9

type EMA struct {
	alpha, prev float64
	ok          bool
}

func NewEMA(alpha float64) *EMA { return &EMA{alpha: alpha} }
func (e *EMA) Next(v float64) float64 {
	if !e.ok {
		e.prev, e.ok = v, true
		return v
	}
	e.prev = e.alpha*v + (1-e.alpha)*e.prev
	return e.prev
}

// DeltaU64 returns now-prev for a monotonic counter that wraps at max.
// A max of 0 means the wrap point is unknown and a backwards step yields 0.
func DeltaU64(now, prev, max uint64) uint64 {
	if now >= prev {
		return now - prev
	}
	if max == 0 || prev > max {
		return 0
	}
	// counter wrapped
	return (max - prev) + now
}

func SafeDiv(n, d float64) float64 {
	const eps = 1e-12
	if d > eps || d < -eps {
		return n / d
	}
	return 0
}

// DiffSec returns the seconds elapsed between two nanosecond timestamps.
func DiffSec(fromNs, toNs int64) float64 {
	return float64(toNs-fromNs) / NanosPerSecond
}

func Clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	// guard against NaN
	if math.IsNaN(x) {
		return 0
	}
	return x
}

func Pow(a, b float64) float64 {
	if a <= 0 {
		return 0
	}
	return math.Exp(b * math.Log(a))
}
