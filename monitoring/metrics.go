package monitoring

import (
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MetricType 指标类型
type MetricType string

const (
	MetricTypeCounter MetricType = "counter"
	MetricTypeGauge   MetricType = "gauge"
)

// Metric 指标
type Metric struct {
	Name      string     `json:"name"`
	Type      MetricType `json:"type"`
	Value     float64    `json:"value"`
	Timestamp time.Time  `json:"timestamp"`
}

// StageMetric 阶段耗时
type StageMetric struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`
	Err      string        `json:"error,omitempty"`
}

// MetricsCollector 运行指标收集器
type MetricsCollector struct {
	metrics     map[string]*Metric
	stages      []StageMetric
	metricsLock sync.RWMutex

	startTime time.Time
}

// NewMetricsCollector 创建指标收集器
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		metrics:   make(map[string]*Metric),
		startTime: time.Now(),
	}
}

// Track 执行阶段并记录耗时，返回阶段本身的错误
func (mc *MetricsCollector) Track(name string, fn func() error) error {
	start := time.Now()
	err := fn()

	stage := StageMetric{Name: name, Duration: time.Since(start)}
	if err != nil {
		stage.Err = err.Error()
	}

	mc.metricsLock.Lock()
	mc.stages = append(mc.stages, stage)
	mc.metricsLock.Unlock()
	return err
}

// Add 累加计数器
func (mc *MetricsCollector) Add(name string, delta float64) {
	mc.record(name, MetricTypeCounter, func(m *Metric) { m.Value += delta })
}

// Set 设置仪表值
func (mc *MetricsCollector) Set(name string, value float64) {
	mc.record(name, MetricTypeGauge, func(m *Metric) { m.Value = value })
}

func (mc *MetricsCollector) record(name string, typ MetricType, update func(*Metric)) {
	mc.metricsLock.Lock()
	defer mc.metricsLock.Unlock()

	metric, ok := mc.metrics[name]
	if !ok {
		metric = &Metric{Name: name, Type: typ}
		mc.metrics[name] = metric
	}
	update(metric)
	metric.Timestamp = time.Now()
}

// GetMetric 获取指标
func (mc *MetricsCollector) GetMetric(name string) (Metric, error) {
	mc.metricsLock.RLock()
	defer mc.metricsLock.RUnlock()

	metric, ok := mc.metrics[name]
	if !ok {
		return Metric{}, fmt.Errorf("metric %s not found", name)
	}
	return *metric, nil
}

// Stages 返回阶段耗时副本
func (mc *MetricsCollector) Stages() []StageMetric {
	mc.metricsLock.RLock()
	defer mc.metricsLock.RUnlock()

	return append([]StageMetric(nil), mc.stages...)
}

// Fields 生成运行摘要日志字段
func (mc *MetricsCollector) Fields() []zap.Field {
	mc.metricsLock.RLock()
	defer mc.metricsLock.RUnlock()

	names := make([]string, 0, len(mc.metrics))
	for name := range mc.metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	fields := make([]zap.Field, 0, len(names)+len(mc.stages)+2)
	for _, name := range names {
		fields = append(fields, zap.Float64(name, mc.metrics[name].Value))
	}
	for _, stage := range mc.stages {
		fields = append(fields, zap.Duration("stage_"+stage.Name, stage.Duration))
	}
	fields = append(fields,
		zap.Duration("total", time.Since(mc.startTime)),
		zap.Uint64("heap_alloc_bytes", mem.HeapAlloc),
	)
	return fields
}
