//go:build linux

package energy

import (
	"context"
	"fmt"
	"strings"

	"github.com/ja7ad/heartbeat/pkg/system/power"
)

func init() {
	Register("hwmon", func(o Options) (Backend, error) {
		sensor, err := NewHwmonSensor(o.HwmonRoot, o.HwmonChips...)
		if err != nil {
			return nil, err
		}
		return NewPolling(sensor, o.PollInterval, WithPollingLogger(o.logger())), nil
	})
}

// HwmonSensor sums the hwmon power inputs matched at construction.
type HwmonSensor struct {
	sensors []power.Sensor
}

var _ PowerSensor = (*HwmonSensor)(nil)

// NewHwmonSensor discovers power inputs under root whose chip name contains
// one of chips (all chips when empty).
func NewHwmonSensor(root string, chips ...string) (*HwmonSensor, error) {
	if root == "" {
		root = power.DefaultHwmonRoot
	}
	sensors, err := power.DetectSensors(root, chips...)
	if err != nil {
		return nil, fmt.Errorf("energy: hwmon: %w", err)
	}
	for _, s := range sensors {
		if !s.Readable {
			return nil, fmt.Errorf("%w: %s", ErrPermission, s.Path)
		}
	}
	return &HwmonSensor{sensors: sensors}, nil
}

func (h *HwmonSensor) ReadPower(context.Context) (float64, error) {
	var sum float64
	for _, s := range h.sensors {
		w, err := s.Power()
		if err != nil {
			return 0, err
		}
		sum += float64(w)
	}
	return sum, nil
}

func (h *HwmonSensor) Name() string {
	names := make([]string, len(h.sensors))
	for i, s := range h.sensors {
		names[i] = s.String()
	}
	return "hwmon [" + strings.Join(names, ", ") + "]"
}
