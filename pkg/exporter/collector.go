// Package exporter exposes heartbeat engine metrics to Prometheus.
package exporter

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ja7ad/heartbeat/pkg/heartbeat"
)

// StatsSource is implemented by *heartbeat.Engine.
type StatsSource interface {
	Stats() heartbeat.Stats
	Intervals() heartbeat.IntervalStats
}

// Collector reads a StatsSource on every scrape.
type Collector struct {
	src StatsSource

	rate     *prometheus.Desc
	accuracy *prometheus.Desc
	power    *prometheus.Desc
	beats    *prometheus.Desc
	steady   *prometheus.Desc
	energy   *prometheus.Desc
	errors   *prometheus.Desc
	interval *prometheus.Desc
	bound    *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns a collector for src. Metric names are prefixed with
// namespace, "heartbeat" when empty.
func NewCollector(src StatsSource, namespace string) *Collector {
	if namespace == "" {
		namespace = "heartbeat"
	}
	desc := func(name, help string, variable ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, variable, nil)
	}
	return &Collector{
		src:      src,
		rate:     desc("rate_beats_per_second", "Heartbeat rate.", "scope"),
		accuracy: desc("accuracy", "Heartbeat accuracy.", "scope"),
		power:    desc("power_watts", "Power attributed to the monitored work.", "scope"),
		beats:    desc("beats_total", "Heartbeats recorded.", "source"),
		steady:   desc("window_steady", "1 once the sliding window has filled."),
		energy:   desc("energy_joules_total", "Energy observed since the first beat."),
		errors:   desc("errors_total", "Failures absorbed by the engine.", "kind"),
		interval: desc("interval_seconds", "Inter-beat interval quantiles.", "quantile"),
		bound:    desc("target", "Advisory target bounds.", "metric", "edge"),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.rate, c.accuracy, c.power, c.beats, c.steady,
		c.energy, c.errors, c.interval, c.bound,
	} {
		ch <- d
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	st := c.src.Stats()
	last := st.Last

	gauge := func(d *prometheus.Desc, v float64, lv ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, lv...)
	}
	counter := func(d *prometheus.Desc, v float64, lv ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, v, lv...)
	}

	gauge(c.rate, last.GlobalRate, "global")
	gauge(c.rate, last.WindowRate, "window")
	gauge(c.rate, last.InstantRate, "instant")
	gauge(c.accuracy, last.GlobalAccuracy, "global")
	gauge(c.accuracy, last.WindowAccuracy, "window")
	gauge(c.accuracy, last.InstantAccuracy, "instant")
	gauge(c.power, last.GlobalPower, "global")
	gauge(c.power, last.WindowPower, "window")
	gauge(c.power, last.InstantPower, "instant")

	counter(c.beats, float64(st.Counter), st.Source)
	steady := 0.0
	if st.SteadyState {
		steady = 1
	}
	gauge(c.steady, steady)
	counter(c.energy, st.TotalEnergy)

	counter(c.errors, float64(st.ReadErrors), "energy_read")
	counter(c.errors, float64(st.SinkErrors), "log_write")
	counter(c.errors, float64(st.PublishErrors), "publish")

	iv := c.src.Intervals()
	gauge(c.interval, iv.P50.Seconds(), "0.5")
	gauge(c.interval, iv.P90.Seconds(), "0.9")
	gauge(c.interval, iv.P99.Seconds(), "0.99")

	for _, b := range []struct {
		name string
		heartbeat.Bounds
	}{{"perf", st.Perf}, {"accuracy", st.Accuracy}, {"power", st.Power}} {
		gauge(c.bound, b.Min, b.name, "min")
		gauge(c.bound, b.Max, b.name, "max")
	}
}
