package data

// Timers holds the total and average duration in nanoseconds
// for every timer group
type Timers struct {
	Totals   map[string]int64 `json:"totals,omitempty"`
	Averages map[string]int64 `json:"averages,omitempty"`
}
