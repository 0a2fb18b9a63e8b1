package state

import (
	"encoding/json"
	"math"
	"time"
)

// Version of the State layout. Bump on incompatible changes.
const Version = 1

// Bounds is an advisory target range. The engine publishes it, it never
// enforces it. An infinite end leaves that side of the range open.
type Bounds struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

type boundsJSON struct {
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
}

// MarshalJSON writes a non-finite end as null.
func (b Bounds) MarshalJSON() ([]byte, error) {
	end := func(v float64) *float64 {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		return &v
	}
	return json.Marshal(boundsJSON{Min: end(b.Min), Max: end(b.Max)})
}

// UnmarshalJSON reads a null min as -Inf and a null max as +Inf.
func (b *Bounds) UnmarshalJSON(data []byte) error {
	var raw boundsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	b.Min, b.Max = math.Inf(-1), math.Inf(1)
	if raw.Min != nil {
		b.Min = *raw.Min
	}
	if raw.Max != nil {
		b.Max = *raw.Max
	}
	return nil
}

// Contains reports whether v lies in the range. A zero range accepts everything.
func (b Bounds) Contains(v float64) bool {
	if b.Min == 0 && b.Max == 0 {
		return true
	}
	return v >= b.Min && v <= b.Max
}

// State is the snapshot published for one monitored process.
type State struct {
	Version int    `json:"version"`
	PID     int    `json:"pid"`
	Session string `json:"session"`
	Host    string `json:"host,omitempty"`
	Source  string `json:"source"`

	Perf     Bounds `json:"perf"`
	Accuracy Bounds `json:"accuracy"`
	Power    Bounds `json:"power"`

	WindowSize  int64 `json:"window_size"`
	BufferDepth int64 `json:"buffer_depth"`

	Counter     int64 `json:"counter"`
	BufferIndex int64 `json:"buffer_index"`
	ReadIndex   int64 `json:"read_index"`
	Valid       bool  `json:"valid"`
	SteadyState bool  `json:"steady_state"`

	Last *Record `json:"last,omitempty"`
	// Log holds the records buffered since the last flush, oldest first.
	Log []Record `json:"log"`

	UpdatedAt time.Time `json:"updated_at"`
}
