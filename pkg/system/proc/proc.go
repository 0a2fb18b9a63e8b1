//go:build linux

package proc

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ClockTicks returns the number of jiffies (clock ticks) per second.
// It first checks the env var CLK_TCK (useful for testing), otherwise
// falls back to 100 (common default).
//
// Note: On real systems, the authoritative way is `sysconf(_SC_CLK_TCK)`,
// but calling that requires cgo.
func ClockTicks() int {
	v, _ := strconv.Atoi(os.Getenv("CLK_TCK"))
	if v > 0 {
		return v
	}
	return 100
}

// Exists reports whether a given PID currently exists in /proc.
func Exists(pid int) bool {
	_, err := os.Stat(fmt.Sprintf("/proc/%d", pid))
	return err == nil
}

// ReadProcCPU parses /proc/<pid>/stat and returns utime and stime in jiffies.
//
// comm (2nd field) is in parens and may contain spaces, so everything before
// the closing ") " is skipped.
func ReadProcCPU(pid int) (utime, stime uint64, err error) {
	f, e := os.Open(fmt.Sprintf("/proc/%d/stat", pid))
	if e != nil {
		return 0, 0, e
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		return 0, 0, ErrNoStat
	}
	return parseProcCPU(sc.Text())
}

func parseProcCPU(line string) (utime, stime uint64, err error) {
	i := strings.LastIndex(line, ") ")
	if i < 0 {
		return 0, 0, ErrNoStat
	}
	fields := strings.Fields(line[i+2:])

	// utime (14th overall) => fields[11]
	// stime (15th overall) => fields[12]
	if len(fields) < 13 {
		return 0, 0, ErrShortStat
	}
	if utime, err = strconv.ParseUint(fields[11], 10, 64); err != nil {
		return 0, 0, fmt.Errorf("parse utime: %w", err)
	}
	if stime, err = strconv.ParseUint(fields[12], 10, 64); err != nil {
		return 0, 0, fmt.Errorf("parse stime: %w", err)
	}
	return utime, stime, nil
}

// ReadSystemCPU parses /proc/stat for the aggregate CPU line and returns:
// - active: user + nice + system + irq + softirq + steal
// - total:  active + idle + iowait
//
// These are jiffy counters. Take deltas between samples to compute utilization.
func ReadSystemCPU() (active, total uint64, err error) {
	f, e := os.Open("/proc/stat")
	if e != nil {
		return 0, 0, e
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fs := strings.Fields(sc.Text())
		if len(fs) == 0 || fs[0] != "cpu" {
			continue
		}
		return parseSystemCPU(fs)
	}
	return 0, 0, ErrNoCPU
}

func parseSystemCPU(fs []string) (active, total uint64, err error) {
	if len(fs) < 9 {
		return 0, 0, ErrNoCPU
	}
	vals := make([]uint64, 0, len(fs)-1)
	for _, s := range fs[1:] {
		v, _ := strconv.ParseUint(s, 10, 64)
		vals = append(vals, v)
	}
	active = vals[0] + vals[1] + vals[2] + vals[5] + vals[6] + vals[7]
	total = active + vals[3] + vals[4]
	return active, total, nil
}
