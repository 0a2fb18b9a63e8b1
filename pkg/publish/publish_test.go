package publish

import (
	"time"

	"github.com/ja7ad/heartbeat/pkg/state"
)

func testState(pid int, counter int64) state.State {
	last := state.Record{Beat: counter - 1, Tag: 7, Timestamp: 2e9, GlobalRate: 1, WindowRate: 1, InstantRate: 1}
	return state.State{
		PID:         pid,
		Session:     "b6a0c6de-7c55-4f0c-9d0a-2f4f7b1a0001",
		Source:      "None",
		Perf:        state.Bounds{Min: 0.5, Max: 2},
		WindowSize:  2,
		BufferDepth: 4,
		Counter:     counter,
		Valid:       true,
		Last:        &last,
		Log:         []state.Record{last},
		UpdatedAt:   time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
	}
}
