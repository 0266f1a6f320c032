package utilities

import (
	"sync"
	"time"

	"github.com/antonio-alexander/go-employees/internal/data"
)

// Timers aggregates elapsed time per group (e.g. per endpoint); the
// function returned by Start records the elapsed time the first time
// it's called, a Clear in between discards it
type Timers interface {
	Start(group string) (stop func() time.Duration)
	ReadAll() *data.Timers
	Clear()
}

type timerTotal struct {
	elapsed time.Duration
	stopped int64
}

type timers struct {
	sync.RWMutex
	epoch  uint64
	totals map[string]*timerTotal
}

func NewTimers() Timers {
	return &timers{
		totals: make(map[string]*timerTotal),
	}
}

func (t *timers) record(group string, epoch uint64, elapsed time.Duration) {
	t.Lock()
	defer t.Unlock()

	if epoch != t.epoch {
		return
	}
	total, found := t.totals[group]
	if !found {
		total = &timerTotal{}
		t.totals[group] = total
	}
	total.elapsed += elapsed
	total.stopped++
}

func (t *timers) Start(group string) func() time.Duration {
	var once sync.Once

	t.RLock()
	epoch := t.epoch
	t.RUnlock()
	start := time.Now()
	return func() time.Duration {
		elapsed := time.Since(start)
		once.Do(func() { t.record(group, epoch, elapsed) })
		return elapsed
	}
}

func (t *timers) ReadAll() *data.Timers {
	t.RLock()
	defer t.RUnlock()

	totals := make(map[string]int64, len(t.totals))
	averages := make(map[string]int64, len(t.totals))
	for group, total := range t.totals {
		totals[group] = total.elapsed.Nanoseconds()
		averages[group] = total.elapsed.Nanoseconds() / total.stopped
	}
	return &data.Timers{
		Totals:   totals,
		Averages: averages,
	}
}

func (t *timers) Clear() {
	t.Lock()
	defer t.Unlock()

	t.epoch++
	t.totals = make(map[string]*timerTotal)
}
