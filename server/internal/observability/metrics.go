package observability

import (
	"sync"
	"time"
)

// Metrics aggregates in-process counters per pipeline component. It backs
// the health endpoint; there is no external metrics sink.
type Metrics struct {
	mu         sync.Mutex
	components map[string]*componentCounters
}

type componentCounters struct {
	executions int64
	failures   int64
	totalMs    int64
}

// NewMetrics creates an empty metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{components: make(map[string]*componentCounters)}
}

var globalMetrics = NewMetrics()

// GlobalMetrics returns the process-wide metrics instance.
func GlobalMetrics() *Metrics {
	return globalMetrics
}

// RecordRequest counts one execution of a component.
func (m *Metrics) RecordRequest(component string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters(component).executions++
}

// RecordFailure counts one failed execution of a component.
func (m *Metrics) RecordFailure(component string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters(component).failures++
}

// RecordDuration adds one execution's duration to a component.
func (m *Metrics) RecordDuration(component string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters(component).totalMs += duration.Milliseconds()
}

// Reset clears all counters.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.components = make(map[string]*componentCounters)
}

// counters must be called with mu held.
func (m *Metrics) counters(component string) *componentCounters {
	c, ok := m.components[component]
	if !ok {
		c = &componentCounters{}
		m.components[component] = c
	}
	return c
}

// ComponentSnapshot is a point-in-time view of one component's counters.
type ComponentSnapshot struct {
	Executions int64 `json:"executions"`
	Failures   int64 `json:"failures"`
	AverageMs  int64 `json:"average_ms"`
}

// Snapshot returns a point-in-time view of all components.
func (m *Metrics) Snapshot() map[string]ComponentSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]ComponentSnapshot, len(m.components))
	for name, c := range m.components {
		snap := ComponentSnapshot{Executions: c.executions, Failures: c.failures}
		if c.executions > 0 {
			snap.AverageMs = c.totalMs / c.executions
		}
		out[name] = snap
	}
	return out
}
