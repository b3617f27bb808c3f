package monitoring

import (
	"fmt"
	"io"
	"runtime"
	"sort"
	"sync"
	"time"
)

// OutcomeOK 成功请求的结果标签
const OutcomeOK = "ok"

// Metrics 预测服务指标收集器，可被多个请求并发使用
type Metrics struct {
	mu sync.RWMutex

	startTime time.Time
	requests  map[string]int64
	rows      int64
	potable   int64
	imputed   int64
	latency   latencyStats
}

type latencyStats struct {
	count int64
	sum   time.Duration
	max   time.Duration
}

// Snapshot 指标快照
type Snapshot struct {
	Uptime        string           `json:"uptime"`
	Requests      map[string]int64 `json:"requests"`
	RowsPredicted int64            `json:"rows_predicted"`
	RowsPotable   int64            `json:"rows_potable"`
	ValuesImputed int64            `json:"values_imputed"`
	Latency       LatencySnapshot  `json:"latency"`
	Goroutines    int              `json:"goroutines"`
	HeapAlloc     uint64           `json:"heap_alloc"`
}

// LatencySnapshot 延迟统计（毫秒）
type LatencySnapshot struct {
	Count     int64   `json:"count"`
	AverageMs float64 `json:"average_ms"`
	MaxMs     float64 `json:"max_ms"`
}

// NewMetrics 创建指标收集器
func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),
		requests:  make(map[string]int64),
	}
}

// RecordPrediction 记录一次成功的预测
func (m *Metrics) RecordPrediction(rows, potable, imputed int, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests[OutcomeOK]++
	m.rows += int64(rows)
	m.potable += int64(potable)
	m.imputed += int64(imputed)
	m.observe(elapsed)
}

// RecordFailure 记录一次失败的预测，outcome 为错误类别
func (m *Metrics) RecordFailure(outcome string, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests[outcome]++
	m.observe(elapsed)
}

func (m *Metrics) observe(elapsed time.Duration) {
	m.latency.count++
	m.latency.sum += elapsed
	if elapsed > m.latency.max {
		m.latency.max = elapsed
	}
}

// Snapshot 获取当前指标
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	requests := make(map[string]int64, len(m.requests))
	for outcome, n := range m.requests {
		requests[outcome] = n
	}

	latency := LatencySnapshot{Count: m.latency.count, MaxMs: millis(m.latency.max)}
	if m.latency.count > 0 {
		latency.AverageMs = millis(m.latency.sum) / float64(m.latency.count)
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return Snapshot{
		Uptime:        time.Since(m.startTime).Round(time.Second).String(),
		Requests:      requests,
		RowsPredicted: m.rows,
		RowsPotable:   m.potable,
		ValuesImputed: m.imputed,
		Latency:       latency,
		Goroutines:    runtime.NumGoroutine(),
		HeapAlloc:     mem.HeapAlloc,
	}
}

// ExportPrometheus 导出Prometheus文本格式
func (m *Metrics) ExportPrometheus(w io.Writer) error {
	s := m.Snapshot()

	outcomes := make([]string, 0, len(s.Requests))
	for outcome := range s.Requests {
		outcomes = append(outcomes, outcome)
	}
	sort.Strings(outcomes)

	var err error
	write := func(format string, args ...interface{}) {
		if err == nil {
			_, err = fmt.Fprintf(w, format, args...)
		}
	}

	write("# HELP potability_requests_total Prediction requests by outcome.\n")
	write("# TYPE potability_requests_total counter\n")
	for _, outcome := range outcomes {
		write("potability_requests_total{outcome=%q} %d\n", outcome, s.Requests[outcome])
	}
	counter := func(name, help string, value int64) {
		write("# HELP %s %s\n# TYPE %s counter\n%s %d\n", name, help, name, name, value)
	}
	counter("potability_rows_predicted_total", "Rows labelled by the classifier.", s.RowsPredicted)
	counter("potability_rows_potable_total", "Rows labelled Potable.", s.RowsPotable)
	counter("potability_values_imputed_total", "Missing feature values filled by the imputer.", s.ValuesImputed)

	write("# HELP potability_request_duration_seconds Prediction request latency.\n")
	write("# TYPE potability_request_duration_seconds summary\n")
	write("potability_request_duration_seconds_sum %g\n", s.Latency.AverageMs*float64(s.Latency.Count)/1000)
	write("potability_request_duration_seconds_count %d\n", s.Latency.Count)

	write("# HELP go_goroutines Number of goroutines.\n# TYPE go_goroutines gauge\ngo_goroutines %d\n", s.Goroutines)
	return err
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
