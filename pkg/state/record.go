// Package state holds the records the heartbeat engine hands to the outside
// world: the per-beat Record written to logs and the versioned State snapshot
// published for external control loops.
package state

// Record is one heartbeat with the metrics derived at that beat.
type Record struct {
	Beat      int64 `json:"beat"`
	Tag       int   `json:"tag"`
	Timestamp int64 `json:"timestamp"`

	GlobalRate  float64 `json:"global_rate"`
	WindowRate  float64 `json:"window_rate"`
	InstantRate float64 `json:"instant_rate"`

	GlobalAccuracy  float64 `json:"global_accuracy"`
	WindowAccuracy  float64 `json:"window_accuracy"`
	InstantAccuracy float64 `json:"instant_accuracy"`

	GlobalPower  float64 `json:"global_power"`
	WindowPower  float64 `json:"window_power"`
	InstantPower float64 `json:"instant_power"`
}

// Columns is the log column order. Downstream tooling depends on it.
var Columns = [12]string{
	"Beat", "Tag", "Timestamp",
	"Global_Rate", "Window_Rate", "Instant_Rate",
	"Global_Accuracy", "Window_Accuracy", "Instant_Accuracy",
	"Global_Power", "Window_Power", "Instant_Power",
}

// Metrics returns the nine derived values in column order.
func (r Record) Metrics() [9]float64 {
	return [9]float64{
		r.GlobalRate, r.WindowRate, r.InstantRate,
		r.GlobalAccuracy, r.WindowAccuracy, r.InstantAccuracy,
		r.GlobalPower, r.WindowPower, r.InstantPower,
	}
}
