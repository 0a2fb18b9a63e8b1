package heartbeat

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Inter-beat intervals are tracked in microseconds, 1µs to 1h, 3 significant
// figures.
const (
	histMin     = 1
	histMax     = int64(time.Hour / time.Microsecond)
	histSigFigs = 3
)

// IntervalStats summarizes the time between consecutive beats.
type IntervalStats struct {
	Count int64
	Min   time.Duration
	Max   time.Duration
	Mean  time.Duration
	P50   time.Duration
	P90   time.Duration
	P99   time.Duration
}

func newIntervalHist() *hdrhistogram.Histogram {
	return hdrhistogram.New(histMin, histMax, histSigFigs)
}

func recordInterval(h *hdrhistogram.Histogram, dtNs int64) {
	us := dtNs / int64(time.Microsecond)
	if us < histMin {
		us = histMin
	}
	if us > histMax {
		us = histMax
	}
	_ = h.RecordValue(us)
}

func intervalStats(h *hdrhistogram.Histogram) IntervalStats {
	if h == nil || h.TotalCount() == 0 {
		return IntervalStats{}
	}
	us := func(v int64) time.Duration { return time.Duration(v) * time.Microsecond }
	return IntervalStats{
		Count: h.TotalCount(),
		Min:   us(h.Min()),
		Max:   us(h.Max()),
		Mean:  time.Duration(h.Mean() * float64(time.Microsecond)),
		P50:   us(h.ValueAtQuantile(50)),
		P90:   us(h.ValueAtQuantile(90)),
		P99:   us(h.ValueAtQuantile(99)),
	}
}
