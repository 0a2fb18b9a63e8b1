//go:build linux

package power

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ja7ad/heartbeat/pkg/types"
)

// Sensor is one hwmon power input (power<N>_input, microwatts).
type Sensor struct {
	Chip     string // hwmon "name" attribute, e.g. amdgpu, zenpower
	Label    string // power<N>_label when present
	Path     string // full path of the power<N>_input attribute
	Readable bool
}

// Power returns the current power reading of the sensor.
func (s Sensor) Power() (types.Watts, error) {
	v, err := readUint(s.Path)
	if err != nil {
		return 0, fmt.Errorf("sensor %s: %w", s.Chip, err)
	}
	return types.Watts(float64(v) / 1e6), nil
}

// String implements fmt.Stringer.
func (s Sensor) String() string {
	if s.Label == "" {
		return s.Chip
	}
	return s.Chip + "/" + s.Label
}

// DetectSensors lists hwmon power inputs under root (usually /sys/class/hwmon).
// When chips is non-empty only devices whose name contains one of them are kept.
func DetectSensors(root string, chips ...string) ([]Sensor, error) {
	matches, err := filepath.Glob(filepath.Join(root, "hwmon*", "power*_input"))
	if err != nil {
		return nil, err
	}

	var sensors []Sensor
	for _, f := range matches {
		dir := filepath.Dir(f)
		chip := readString(filepath.Join(dir, "name"))
		if chip == "" || !containsAny(chip, chips) {
			continue
		}
		label := readString(strings.TrimSuffix(f, "_input") + "_label")
		sensors = append(sensors, Sensor{
			Chip:     chip,
			Label:    label,
			Path:     f,
			Readable: readable(f),
		})
	}
	if len(sensors) == 0 {
		return nil, ErrNoSensors
	}
	sort.Slice(sensors, func(i, j int) bool { return sensors[i].Path < sensors[j].Path })
	return sensors, nil
}

func containsAny(s string, subs []string) bool {
	if len(subs) == 0 {
		return true
	}
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
