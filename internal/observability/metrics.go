package observability

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics collects per-backend counters for suggest and train operations.
type Metrics struct {
	mu       sync.Mutex
	backends map[string]*BackendMetrics
}

// BackendMetrics holds counters for one backend.
type BackendMetrics struct {
	suggestCount  atomic.Int64
	emptyResults  atomic.Int64
	totalDuration atomic.Int64 // milliseconds
	trainCount    atomic.Int64
	trainFailed   atomic.Int64
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{backends: make(map[string]*BackendMetrics)}
}

// RecordSuggest records one suggest call and whether it produced no hits.
func (m *Metrics) RecordSuggest(backendID string, duration time.Duration, empty bool) {
	bm := m.get(backendID)
	bm.suggestCount.Add(1)
	bm.totalDuration.Add(duration.Milliseconds())
	if empty {
		bm.emptyResults.Add(1)
	}
}

// RecordTrain records one train or learn call.
func (m *Metrics) RecordTrain(backendID string, err error) {
	bm := m.get(backendID)
	bm.trainCount.Add(1)
	if err != nil {
		bm.trainFailed.Add(1)
	}
}

func (m *Metrics) get(backendID string) *BackendMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	bm, ok := m.backends[backendID]
	if !ok {
		bm = &BackendMetrics{}
		m.backends[backendID] = bm
	}
	return bm
}

// Reset resets all metrics (useful for testing).
func (m *Metrics) Reset() {
	m.mu.Lock()
	m.backends = make(map[string]*BackendMetrics)
	m.mu.Unlock()
}

// Snapshot returns a point-in-time copy of all counters.
func (m *Metrics) Snapshot() *MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := &MetricsSnapshot{Backends: make(map[string]BackendSnapshot, len(m.backends))}
	for id, bm := range m.backends {
		bs := BackendSnapshot{
			SuggestCount: bm.suggestCount.Load(),
			EmptyResults: bm.emptyResults.Load(),
			TrainCount:   bm.trainCount.Load(),
			TrainFailed:  bm.trainFailed.Load(),
		}
		if bs.SuggestCount > 0 {
			bs.AverageDurationMs = bm.totalDuration.Load() / bs.SuggestCount
		}
		snap.Backends[id] = bs
	}
	return snap
}

// MetricsSnapshot represents a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	Backends map[string]BackendSnapshot
}

// BackendSnapshot represents metrics for a specific backend.
type BackendSnapshot struct {
	SuggestCount      int64
	EmptyResults      int64
	AverageDurationMs int64
	TrainCount        int64
	TrainFailed       int64
}

// BackendIDs returns the recorded backend IDs in sorted order.
func (s *MetricsSnapshot) BackendIDs() []string {
	ids := make([]string, 0, len(s.Backends))
	for id := range s.Backends {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
