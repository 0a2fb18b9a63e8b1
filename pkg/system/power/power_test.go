//go:build linux

package power

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ja7ad/heartbeat/pkg/types"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func fakePowercap(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "intel-rapl:1", "name"), "package-1\n")
	writeFile(t, filepath.Join(root, "intel-rapl:1", "energy_uj"), "2000000\n")
	writeFile(t, filepath.Join(root, "intel-rapl:1", "max_energy_range_uj"), "262143328850\n")
	writeFile(t, filepath.Join(root, "intel-rapl:0", "name"), "package-0\n")
	writeFile(t, filepath.Join(root, "intel-rapl:0", "energy_uj"), "1000000\n")
	writeFile(t, filepath.Join(root, "intel-rapl:0", "max_energy_range_uj"), "262143328850\n")
	// subzone and unrelated control type must be skipped
	writeFile(t, filepath.Join(root, "intel-rapl:0:0", "name"), "core\n")
	writeFile(t, filepath.Join(root, "intel-rapl:0:0", "energy_uj"), "5\n")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "intel-rapl"), 0o755))
	return root
}

func TestDetectZones(t *testing.T) {
	root := fakePowercap(t)

	zones, err := DetectZones(root)
	require.NoError(t, err)
	require.Len(t, zones, 2)

	assert.Equal(t, "intel-rapl:0", zones[0].ID)
	assert.Equal(t, "package-0", zones[0].Name)
	assert.Equal(t, types.Microjoules(262143328850), zones[0].MaxRange)
	assert.True(t, zones[0].Readable)
	assert.Equal(t, "intel-rapl:0 (package-0)", zones[0].String())

	e, err := zones[1].Energy()
	require.NoError(t, err)
	assert.Equal(t, types.Microjoules(2000000), e)
}

func TestDetectZones_Empty(t *testing.T) {
	_, err := DetectZones(t.TempDir())
	assert.ErrorIs(t, err, ErrNoZones)

	_, err = DetectZones(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestZoneEnergy_Malformed(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "energy_uj"), "not-a-number\n")
	_, err := Zone{ID: "x", Path: root}.Energy()
	assert.Error(t, err)
}

func TestDetectSensors(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "hwmon0", "name"), "coretemp\n")
	writeFile(t, filepath.Join(root, "hwmon1", "name"), "zenpower\n")
	writeFile(t, filepath.Join(root, "hwmon1", "power1_input"), "12500000\n")
	writeFile(t, filepath.Join(root, "hwmon1", "power1_label"), "SVI2_P_Core\n")
	writeFile(t, filepath.Join(root, "hwmon2", "name"), "amdgpu\n")
	writeFile(t, filepath.Join(root, "hwmon2", "power1_input"), "30000000\n")

	all, err := DetectSensors(root)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "zenpower/SVI2_P_Core", all[0].String())
	assert.Equal(t, "amdgpu", all[1].String())

	only, err := DetectSensors(root, "zenpower", "rapl")
	require.NoError(t, err)
	require.Len(t, only, 1)

	w, err := only[0].Power()
	require.NoError(t, err)
	assert.InDelta(t, 12.5, float64(w), 1e-12)

	_, err = DetectSensors(root, "nvidia")
	assert.ErrorIs(t, err, ErrNoSensors)
}

func TestDetect_Host(t *testing.T) {
	zones, err := DetectZones(DefaultPowercapRoot)
	if err != nil {
		t.Skipf("no powercap on this host: %v", err)
	}
	for _, z := range zones {
		t.Logf("zone %s readable=%v max=%d", z, z.Readable, z.MaxRange)
	}
}
