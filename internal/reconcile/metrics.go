package reconcile

import (
	"sort"
	"sync"
	"time"

	"polarsync/internal/backend"
	"polarsync/pkg/logging"
)

// Metrics tracks how reported outcomes ended up in the store.
type Metrics struct {
	mu sync.RWMutex

	perResult map[backend.Result]*resultMetrics

	totalRecorded  int64
	totalDropped   int64
	totalConflicts int64
	totalIgnored   int64
}

type resultMetrics struct {
	Result         backend.Result
	Recorded       int64
	Dropped        int64
	LastRecordedAt time.Time
	LastDroppedAt  time.Time
}

// NewMetrics returns empty metrics.
func NewMetrics() *Metrics {
	return &Metrics{perResult: make(map[backend.Result]*resultMetrics)}
}

func (m *Metrics) getOrCreate(result backend.Result) *resultMetrics {
	if rm, ok := m.perResult[result]; ok {
		return rm
	}
	rm := &resultMetrics{Result: result}
	m.perResult[result] = rm
	return rm
}

// RecordWrite records a successful write.
func (m *Metrics) RecordWrite(result backend.Result, h backend.Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rm := m.getOrCreate(result)
	rm.Recorded++
	rm.LastRecordedAt = time.Now()
	m.totalRecorded++

	logging.Debug("Reconciler", "Recorded %s for %s", result, h)
}

// RecordDrop records a write given up after retries.
func (m *Metrics) RecordDrop(result backend.Result, h backend.Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rm := m.getOrCreate(result)
	rm.Dropped++
	rm.LastDroppedAt = time.Now()
	m.totalDropped++
}

// RecordConflict records an existing record resolved by an update.
func (m *Metrics) RecordConflict(h backend.Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalConflicts++
}

// RecordIgnored records an outcome the store cannot hold.
func (m *Metrics) RecordIgnored(h backend.Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalIgnored++
}

// MetricsSummary is a snapshot of Metrics.
type MetricsSummary struct {
	TotalRecorded  int64              `json:"total_recorded"`
	TotalDropped   int64              `json:"total_dropped"`
	TotalConflicts int64              `json:"total_conflicts"`
	TotalIgnored   int64              `json:"total_ignored"`
	PerResult      []ResultMetricView `json:"per_result"`
	DropRate       float64            `json:"drop_rate"`
}

// ResultMetricView is a read-only view of the counters of one result.
type ResultMetricView struct {
	Result         backend.Result `json:"result"`
	Recorded       int64          `json:"recorded"`
	Dropped        int64          `json:"dropped"`
	LastRecordedAt time.Time      `json:"last_recorded_at,omitempty"`
	LastDroppedAt  time.Time      `json:"last_dropped_at,omitempty"`
}

// Summary returns a snapshot ordered by result name.
func (m *Metrics) Summary() MetricsSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := MetricsSummary{
		TotalRecorded:  m.totalRecorded,
		TotalDropped:   m.totalDropped,
		TotalConflicts: m.totalConflicts,
		TotalIgnored:   m.totalIgnored,
		PerResult:      make([]ResultMetricView, 0, len(m.perResult)),
	}
	for _, rm := range m.perResult {
		s.PerResult = append(s.PerResult, ResultMetricView{
			Result:         rm.Result,
			Recorded:       rm.Recorded,
			Dropped:        rm.Dropped,
			LastRecordedAt: rm.LastRecordedAt,
			LastDroppedAt:  rm.LastDroppedAt,
		})
	}
	sort.Slice(s.PerResult, func(i, j int) bool {
		return s.PerResult[i].Result < s.PerResult[j].Result
	})

	if attempts := m.totalRecorded + m.totalDropped; attempts > 0 {
		s.DropRate = float64(m.totalDropped) / float64(attempts)
	}
	return s
}
