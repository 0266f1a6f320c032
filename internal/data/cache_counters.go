package data

import "fmt"

type CacheCounters struct {
	CounterHits   map[string]int `json:"counter_hits,omitempty"`
	CounterMisses map[string]int `json:"counter_misses,omitempty"`
}

const CounterKeyEmployees string = "employees"

func CounterKeyEmployee(id int64) string {
	return fmt.Sprintf("employee_%d", id)
}
