package observability

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Operation names recorded by the conversation service.
const (
	OpIngest = "ingest"
	OpTurn   = "turn"
)

// Metrics collects per-operation counters and durations in memory.
type Metrics struct {
	mu         sync.Mutex
	operations map[string]*operationMetrics
	tiers      map[string]*atomic.Int64
}

type operationMetrics struct {
	count         atomic.Int64
	errors        atomic.Int64
	totalDuration atomic.Int64 // milliseconds
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		operations: make(map[string]*operationMetrics),
		tiers:      make(map[string]*atomic.Int64),
	}
}

func (m *Metrics) operation(name string) *operationMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	om, ok := m.operations[name]
	if !ok {
		om = &operationMetrics{}
		m.operations[name] = om
	}
	return om
}

// RecordOperation records one completed operation. A nil m is a no-op.
func (m *Metrics) RecordOperation(name string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	om := m.operation(name)
	om.count.Add(1)
	om.totalDuration.Add(duration.Milliseconds())
	if err != nil {
		om.errors.Add(1)
	}
}

// RecordTier counts which generation tier produced a result, keyed e.g. "synthesize/plain".
func (m *Metrics) RecordTier(stage, tier string) {
	if m == nil {
		return
	}
	key := stage + "/" + tier
	m.mu.Lock()
	c, ok := m.tiers[key]
	if !ok {
		c = &atomic.Int64{}
		m.tiers[key] = c
	}
	m.mu.Unlock()
	c.Add(1)
}

// OperationSnapshot is a point-in-time view of one operation.
type OperationSnapshot struct {
	Name              string `json:"name"`
	Count             int64  `json:"count"`
	Errors            int64  `json:"errors"`
	AverageDurationMs int64  `json:"average_duration_ms"`
}

// MetricsSnapshot represents a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	Operations []OperationSnapshot `json:"operations"`
	Tiers      map[string]int64    `json:"tiers"`
	Sessions   int                 `json:"sessions"`
}

// Snapshot returns a snapshot of current metrics, operations sorted by name.
func (m *Metrics) Snapshot() *MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := &MetricsSnapshot{
		Operations: make([]OperationSnapshot, 0, len(m.operations)),
		Tiers:      make(map[string]int64, len(m.tiers)),
	}
	for name, om := range m.operations {
		count := om.count.Load()
		var avg int64
		if count > 0 {
			avg = om.totalDuration.Load() / count
		}
		snap.Operations = append(snap.Operations, OperationSnapshot{
			Name:              name,
			Count:             count,
			Errors:            om.errors.Load(),
			AverageDurationMs: avg,
		})
	}
	sort.Slice(snap.Operations, func(i, j int) bool {
		return snap.Operations[i].Name < snap.Operations[j].Name
	})
	for key, c := range m.tiers {
		snap.Tiers[key] = c.Load()
	}
	return snap
}

// SuccessRate returns the success rate of an operation as a percentage (0-100).
func (s *MetricsSnapshot) SuccessRate(name string) float64 {
	for _, op := range s.Operations {
		if op.Name == name {
			if op.Count == 0 {
				break
			}
			return float64(op.Count-op.Errors) / float64(op.Count) * 100.0
		}
	}
	return 100.0
}
