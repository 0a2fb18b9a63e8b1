//go:build linux

package power

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ja7ad/heartbeat/pkg/types"
)

// Zone is one top-level RAPL package zone, e.g. intel-rapl:0 ("package-0").
type Zone struct {
	ID       string
	Name     string
	Path     string
	MaxRange types.Microjoules // energy_uj wraps to 0 after this value
	Readable bool
}

// Energy returns the current raw energy counter of the zone.
func (z Zone) Energy() (types.Microjoules, error) {
	v, err := readUint(filepath.Join(z.Path, "energy_uj"))
	if err != nil {
		return 0, fmt.Errorf("zone %s: %w", z.ID, err)
	}
	return types.Microjoules(v), nil
}

// String implements fmt.Stringer.
func (z Zone) String() string {
	if z.Name == "" {
		return z.ID
	}
	return z.ID + " (" + z.Name + ")"
}

// DetectZones lists top-level RAPL zones under root (usually /sys/class/powercap).
//
// The powercap class directory lists every zone flat: intel-rapl:0 is a
// package, intel-rapl:0:1 is a subzone of it. Only packages are returned so
// that summing them never double counts.
func DetectZones(root string) ([]Zone, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", root, err)
	}

	var zones []Zone
	for _, e := range entries {
		id := e.Name()
		if !strings.HasPrefix(id, "intel-rapl:") || strings.Count(id, ":") != 1 {
			continue
		}
		dir := filepath.Join(root, id)
		energy := filepath.Join(dir, "energy_uj")
		if _, err := os.Stat(energy); err != nil {
			continue
		}
		max, _ := readUint(filepath.Join(dir, "max_energy_range_uj"))
		zones = append(zones, Zone{
			ID:       id,
			Name:     readString(filepath.Join(dir, "name")),
			Path:     dir,
			MaxRange: types.Microjoules(max),
			Readable: readable(energy),
		})
	}
	if len(zones) == 0 {
		return nil, ErrNoZones
	}
	sort.Slice(zones, func(i, j int) bool { return zones[i].ID < zones[j].ID })
	return zones, nil
}
