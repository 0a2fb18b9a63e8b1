//go:build linux

package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/ja7ad/heartbeat/pkg/heartbeat"
	"github.com/ja7ad/heartbeat/pkg/state"
	"github.com/ja7ad/heartbeat/pkg/types"
)

var (
	inBounds  = color.New(color.FgGreen)
	outBounds = color.New(color.FgRed, color.Bold)
	dim       = color.New(color.Faint)
	title     = color.New(color.FgCyan, color.Bold)
)

// colored formats v and colors it against b. Unset bounds leave it plain.
func colored(format string, v float64, b state.Bounds) string {
	s := fmt.Sprintf(format, v)
	if b.Min == 0 && b.Max == 0 {
		return s
	}
	if b.Contains(v) {
		return inBounds.Sprint(s)
	}
	return outBounds.Sprint(s)
}

func printBanner(st heartbeat.Stats) {
	host, _ := os.Hostname()
	title.Println("Heartbeat - Performance/Accuracy/Power Telemetry")
	fmt.Printf(_console,
		host, st.PID, st.Session, st.Source,
		st.WindowSize, st.BufferDepth,
		boundsString(st.Perf), boundsString(st.Accuracy), boundsString(st.Power),
		time.Now().Format("2006-01-02 15:04:05"),
	)
}

func boundsString(b state.Bounds) string {
	if b.Min == 0 && b.Max == 0 {
		return dim.Sprint("unset")
	}
	return fmt.Sprintf("[%g, %g]", b.Min, b.Max)
}

func printProgressHeader(tw *tabwriter.Writer) {
	fmt.Fprintln(tw, "TIME\tBEATS\tRATE win (b/s)\tRATE inst (b/s)\tACC win\tPOWER win (W)\tSTEADY")
	fmt.Fprintln(tw, "----\t-----\t--------------\t---------------\t-------\t-------------\t------")
	tw.Flush()
}

func printProgressRow(tw *tabwriter.Writer, st heartbeat.Stats) {
	r := st.Last
	fmt.Fprintf(tw, "%s\t%d\t%s\t%.3f\t%s\t%s\t%t\n",
		time.Now().Format("15:04:05"), st.Counter,
		colored("%.3f", r.WindowRate, st.Perf),
		r.InstantRate,
		colored("%.4f", r.WindowAccuracy, st.Accuracy),
		colored("%.3f", r.WindowPower, st.Power),
		st.SteadyState,
	)
	tw.Flush()
}

func printSummary(st heartbeat.Stats, iv heartbeat.IntervalStats) {
	writeSummary(os.Stdout, st, iv)
}

func writeSummary(w io.Writer, st heartbeat.Stats, iv heartbeat.IntervalStats) {
	r := st.Last
	energy := types.Joules(st.TotalEnergy)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "heartbeat summary (%d beats over %s, source %s):\n", st.Counter, st.Elapsed.Round(time.Millisecond), st.Source)
	fmt.Fprintf(w, "- rate (global/window/instant):     %s / %s / %.3f b/s\n",
		colored("%.3f", r.GlobalRate, st.Perf), colored("%.3f", r.WindowRate, st.Perf), r.InstantRate)
	fmt.Fprintf(w, "- accuracy (global/window/instant): %s / %s / %.4f\n",
		colored("%.4f", r.GlobalAccuracy, st.Accuracy), colored("%.4f", r.WindowAccuracy, st.Accuracy), r.InstantAccuracy)
	fmt.Fprintf(w, "- power (global/window/instant):    %s / %s / %s\n",
		colored("%.3f", r.GlobalPower, st.Power), colored("%.3f", r.WindowPower, st.Power),
		types.Watts(r.InstantPower).Humanized())
	fmt.Fprintf(w, "- energy:                           %s (%.6f Wh)\n", energy.Humanized(), energy.WattHours())
	if iv.Count > 0 {
		fmt.Fprintf(w, "- interval p50/p90/p99:             %s / %s / %s (min %s, max %s)\n",
			iv.P50, iv.P90, iv.P99, iv.Min, iv.Max)
	}
	if st.ReadErrors+st.SinkErrors+st.PublishErrors > 0 {
		fmt.Fprintf(w, "- errors (energy/log/publish):      %d / %d / %d\n", st.ReadErrors, st.SinkErrors, st.PublishErrors)
	}
	fmt.Fprintln(w)
}

const _console = `
       Host: %s
       PID: %d
       Session: %s
       Energy: %s
       Window: %d beats, log depth %d
       Bounds: perf %s, accuracy %s, power %s

Heartbeat report as of %s:

`
