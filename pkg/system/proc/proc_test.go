//go:build linux

package proc

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClockTicks(t *testing.T) {
	t.Setenv("CLK_TCK", "")
	assert.Greater(t, ClockTicks(), 0, "ClockTicks must be > 0")

	t.Setenv("CLK_TCK", "250")
	assert.Equal(t, 250, ClockTicks())
}

func TestExists(t *testing.T) {
	me := os.Getpid()
	assert.True(t, Exists(me), "current PID should exist")
	assert.False(t, Exists(999999999), "very large PID should not exist")
}

func TestReadProcCPU_Self(t *testing.T) {
	me := os.Getpid()
	ut, st, err := ReadProcCPU(me)
	require.NoError(t, err)

	// burn a little CPU so counters can move
	deadline := time.Now().Add(20 * time.Millisecond)
	for time.Now().Before(deadline) {
	}

	ut2, st2, err := ReadProcCPU(me)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, ut2, ut)
	assert.GreaterOrEqual(t, st2, st)
}

func TestReadProcCPU_NoSuchPid(t *testing.T) {
	_, _, err := ReadProcCPU(999999999)
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestParseProcCPU(t *testing.T) {
	line := "1234 (my (odd) comm) S 1 1234 1234 0 -1 4194560 100 0 2 0 37 11 0 0 20 0 1 0 100 0 0"
	ut, st, err := parseProcCPU(line)
	require.NoError(t, err)
	assert.Equal(t, uint64(37), ut)
	assert.Equal(t, uint64(11), st)

	_, _, err = parseProcCPU("1234 no parens here")
	assert.ErrorIs(t, err, ErrNoStat)

	_, _, err = parseProcCPU("1234 (x) S 1 2 3")
	assert.ErrorIs(t, err, ErrShortStat)
}

func TestReadSystemCPU(t *testing.T) {
	active, total, err := ReadSystemCPU()
	require.NoError(t, err)
	assert.Greater(t, total, uint64(0))
	assert.LessOrEqual(t, active, total)
}

func TestParseSystemCPU(t *testing.T) {
	// user nice system idle iowait irq softirq steal
	fs := strings.Fields("cpu 10 20 30 400 50 6 7 8 0 0")
	active, total, err := parseSystemCPU(fs)
	require.NoError(t, err)
	assert.Equal(t, uint64(10+20+30+6+7+8), active)
	assert.Equal(t, active+400+50, total)

	_, _, err = parseSystemCPU(strings.Fields("cpu 1 2 3"))
	assert.ErrorIs(t, err, ErrNoCPU)
}
