package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

type Counter struct {
	value uint64
}

func (c *Counter) Inc() {
	atomic.AddUint64(&c.value, 1)
}

func (c *Counter) Add(n uint64) {
	atomic.AddUint64(&c.value, n)
}

func (c *Counter) Load() uint64 {
	return atomic.LoadUint64(&c.value)
}

type Timer struct {
	start time.Time
}

func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Registry hands out named counters and keeps the slowest observed duration
// per name. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	counters map[string]*Counter
	maxNanos map[string]*atomic.Int64
}

func NewRegistry() *Registry {
	return &Registry{
		counters: make(map[string]*Counter),
		maxNanos: make(map[string]*atomic.Int64),
	}
}

func (r *Registry) Counter(name string) *Counter {
	r.mu.RLock()
	c, ok := r.counters[name]
	r.mu.RUnlock()
	if ok {
		return c
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok = r.counters[name]; !ok {
		c = &Counter{}
		r.counters[name] = c
	}
	return c
}

func (r *Registry) Observe(name string, d time.Duration) {
	r.mu.Lock()
	m, ok := r.maxNanos[name]
	if !ok {
		m = &atomic.Int64{}
		r.maxNanos[name] = m
	}
	r.mu.Unlock()

	for {
		cur := m.Load()
		if int64(d) <= cur || m.CompareAndSwap(cur, int64(d)) {
			return
		}
	}
}

// Snapshot returns counter values and max durations (in milliseconds).
func (r *Registry) Snapshot() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]any, len(r.counters)+len(r.maxNanos))
	for name, c := range r.counters {
		out[name] = c.Load()
	}
	for name, m := range r.maxNanos {
		out[name+"_max_ms"] = time.Duration(m.Load()).Milliseconds()
	}
	return out
}
