//go:build linux

package energy

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ja7ad/heartbeat/pkg/system/power"
	"github.com/ja7ad/heartbeat/pkg/system/util"
	"github.com/ja7ad/heartbeat/pkg/types"
)

func init() {
	Register("rapl", func(o Options) (Backend, error) {
		return NewRAPL(o.PowercapRoot), nil
	})
}

// RAPL reads cumulative energy directly from the powercap package zones.
// Each Read sums the counter deltas of all zones into a running total, taking
// the wrap at max_energy_range_uj into account.
type RAPL struct {
	root string

	mu    sync.Mutex
	zones []power.Zone
	prev  []types.Microjoules
	total types.Joules
}

var _ Backend = (*RAPL)(nil)

// NewRAPL returns a RAPL backend rooted at root (default /sys/class/powercap).
func NewRAPL(root string) *RAPL {
	if root == "" {
		root = power.DefaultPowercapRoot
	}
	return &RAPL{root: root}
}

func (r *RAPL) Init(context.Context) error {
	zones, err := power.DetectZones(r.root)
	if err != nil {
		return fmt.Errorf("energy: rapl: %w", err)
	}

	prev := make([]types.Microjoules, len(zones))
	for i, z := range zones {
		if !z.Readable {
			return fmt.Errorf("%w: %s", ErrPermission, z.Path)
		}
		if prev[i], err = z.Energy(); err != nil {
			return fmt.Errorf("energy: rapl: %w", err)
		}
	}

	r.mu.Lock()
	r.zones, r.prev, r.total = zones, prev, 0
	r.mu.Unlock()
	return nil
}

func (r *RAPL) Read(int64, int64) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.zones == nil {
		return 0, ErrNotInitialized
	}
	for i, z := range r.zones {
		e, err := z.Energy()
		if err != nil {
			return float64(r.total), err
		}
		d := util.DeltaU64(uint64(e), uint64(r.prev[i]), uint64(z.MaxRange))
		r.total += types.Microjoules(d).Joules()
		r.prev[i] = e
	}
	return float64(r.total), nil
}

func (r *RAPL) Finish() error {
	r.mu.Lock()
	r.zones, r.prev = nil, nil
	r.mu.Unlock()
	return nil
}

func (r *RAPL) Source() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.zones) == 0 {
		return "RAPL"
	}
	names := make([]string, len(r.zones))
	for i, z := range r.zones {
		names[i] = z.String()
	}
	return "RAPL [" + strings.Join(names, ", ") + "]"
}
