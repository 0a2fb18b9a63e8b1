//go:build linux

// Package power discovers energy and power sensors exposed through sysfs:
// powercap RAPL zones (cumulative energy counters) and hwmon power inputs
// (instantaneous power).
package power

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

const (
	DefaultPowercapRoot = "/sys/class/powercap"
	DefaultHwmonRoot    = "/sys/class/hwmon"
)

var (
	// ErrNoZones indicates that no RAPL package zone was found under the root.
	ErrNoZones = errors.New("power: no powercap zones")

	// ErrNoSensors indicates that no hwmon power input was found under the root.
	ErrNoSensors = errors.New("power: no hwmon power sensors")
)

// readUint reads a single unsigned integer sysfs attribute.
func readUint(path string) (uint64, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(b)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	return v, nil
}

// readString reads a sysfs attribute, returning "" when it is missing.
func readString(path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

// readable reports whether the current process may read path. RAPL counters
// are often root-only on kernels patched against power side channels.
func readable(path string) bool {
	return unix.Access(path, unix.R_OK) == nil
}
