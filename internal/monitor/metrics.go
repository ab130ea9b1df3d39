package monitor

import (
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics tracks execution engine performance.
type Metrics struct {
	// Latency histograms
	GatewayLatency   *LatencyHistogram
	SequencerLatency *LatencyHistogram
	DBLatency        *LatencyHistogram

	// Counters
	ordersSubmitted uint64
	ordersFilled    uint64
	ordersRejected  uint64
	riskDenials     uint64
	errorsCount     uint64

	startedAt time.Time
}

// LatencyHistogram tracks latency samples over a sliding window with lazily
// recomputed stats.
type LatencyHistogram struct {
	mu          sync.Mutex
	samples     []float64
	maxSize     int
	dirty       bool
	cachedStats LatencyStats
}

// NewMetrics creates a metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{
		GatewayLatency:   NewLatencyHistogram(1000),
		SequencerLatency: NewLatencyHistogram(1000),
		DBLatency:        NewLatencyHistogram(1000),
		startedAt:        time.Now(),
	}
}

// NewLatencyHistogram creates a sliding window histogram.
func NewLatencyHistogram(size int) *LatencyHistogram {
	if size <= 0 {
		size = 1000
	}
	return &LatencyHistogram{
		samples: make([]float64, 0, size),
		maxSize: size,
		dirty:   true,
	}
}

// Record adds a latency sample in milliseconds.
func (h *LatencyHistogram) Record(latencyMs float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.samples) >= h.maxSize {
		h.samples = h.samples[1:]
	}
	h.samples = append(h.samples, latencyMs)
	h.dirty = true
}

// RecordDuration converts duration to ms and records.
func (h *LatencyHistogram) RecordDuration(d time.Duration) {
	h.Record(float64(d.Nanoseconds()) / 1e6)
}

// Stats returns min, max, avg, p50, p95, p99. Recomputed only when samples
// have changed since the last call.
func (h *LatencyHistogram) Stats() LatencyStats {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.dirty && h.cachedStats.Count > 0 {
		return h.cachedStats
	}

	n := len(h.samples)
	if n == 0 {
		return LatencyStats{}
	}

	sorted := make([]float64, n)
	copy(sorted, h.samples)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}

	h.cachedStats = LatencyStats{
		Min:   sorted[0],
		Max:   sorted[n-1],
		Avg:   sum / float64(n),
		P50:   sorted[n/2],
		P95:   sorted[int(float64(n)*0.95)],
		P99:   sorted[int(float64(n)*0.99)],
		Count: n,
	}
	h.dirty = false

	return h.cachedStats
}

// LatencyStats holds computed latency statistics.
type LatencyStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
	Count int     `json:"count"`
}

// IncrementSubmitted counts one order sent to the venue.
func (m *Metrics) IncrementSubmitted() {
	atomic.AddUint64(&m.ordersSubmitted, 1)
}

// IncrementFilled counts one immediate fill.
func (m *Metrics) IncrementFilled() {
	atomic.AddUint64(&m.ordersFilled, 1)
}

// IncrementRejected counts one venue-side rejection.
func (m *Metrics) IncrementRejected() {
	atomic.AddUint64(&m.ordersRejected, 1)
}

// IncrementRiskDenials counts one pre-trade denial.
func (m *Metrics) IncrementRiskDenials() {
	atomic.AddUint64(&m.riskDenials, 1)
}

// IncrementErrors counts one internal error.
func (m *Metrics) IncrementErrors() {
	atomic.AddUint64(&m.errorsCount, 1)
}

// Snapshot is a point-in-time metrics view.
type Snapshot struct {
	GatewayLatency   LatencyStats `json:"gateway_latency"`
	SequencerLatency LatencyStats `json:"sequencer_latency"`
	DBLatency        LatencyStats `json:"db_latency"`
	OrdersSubmitted  uint64       `json:"orders_submitted"`
	OrdersFilled     uint64       `json:"orders_filled"`
	OrdersRejected   uint64       `json:"orders_rejected"`
	RiskDenials      uint64       `json:"risk_denials"`
	ErrorsCount      uint64       `json:"errors_count"`
	UptimeSeconds    float64      `json:"uptime_seconds"`
	GoroutineCount   int          `json:"goroutine_count"`
	HeapAlloc        uint64       `json:"heap_alloc_bytes"`
	Timestamp        time.Time    `json:"timestamp"`
}

// GetSnapshot returns a point-in-time metrics snapshot.
func (m *Metrics) GetSnapshot() Snapshot {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return Snapshot{
		GatewayLatency:   m.GatewayLatency.Stats(),
		SequencerLatency: m.SequencerLatency.Stats(),
		DBLatency:        m.DBLatency.Stats(),
		OrdersSubmitted:  atomic.LoadUint64(&m.ordersSubmitted),
		OrdersFilled:     atomic.LoadUint64(&m.ordersFilled),
		OrdersRejected:   atomic.LoadUint64(&m.ordersRejected),
		RiskDenials:      atomic.LoadUint64(&m.riskDenials),
		ErrorsCount:      atomic.LoadUint64(&m.errorsCount),
		UptimeSeconds:    time.Since(m.startedAt).Seconds(),
		GoroutineCount:   runtime.NumGoroutine(),
		HeapAlloc:        memStats.HeapAlloc,
		Timestamp:        time.Now(),
	}
}

// Timer helps measure operation duration.
type Timer struct {
	start     time.Time
	histogram *LatencyHistogram
}

// NewTimer creates a timer that records to the given histogram.
func NewTimer(h *LatencyHistogram) *Timer {
	return &Timer{
		start:     time.Now(),
		histogram: h,
	}
}

// Stop records elapsed time to histogram.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	if t.histogram != nil {
		t.histogram.RecordDuration(elapsed)
	}
	return elapsed
}
