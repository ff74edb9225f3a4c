package telemetry

import (
	"costwatch/config"
	"costwatch/internal/core"

	"github.com/prometheus/client_golang/prometheus"
)

// BudgetSnapshot 預算累計的拉取快照（由 BudgetMonitor 提供）
type BudgetSnapshot struct {
	DailyTotal       float64
	MonthlyTotal     float64
	DailyThreshold   float64
	MonthlyThreshold float64
	DailyUtilPct     float64
	MonthlyUtilPct   float64
	DailyByType      map[string]float64
	EventsProcessed  uint64
}

// BudgetSnapshotSource 拉取時取樣即時狀態的來源
type BudgetSnapshotSource interface {
	BudgetSnapshot() BudgetSnapshot
}

// BudgetCollector 自訂 prometheus.Collector：每次 /metrics 被抓取時
// 取樣一次快照，不在記帳路徑上維護 gauge 狀態
type BudgetCollector struct {
	source BudgetSnapshotSource

	dailyTotal       *prometheus.Desc
	monthlyTotal     *prometheus.Desc
	dailyThreshold   *prometheus.Desc
	monthlyThreshold *prometheus.Desc
	dailyUtilPct     *prometheus.Desc
	monthlyUtilPct   *prometheus.Desc
	dailyByType      *prometheus.Desc
	eventsProcessed  *prometheus.Desc
}

func NewBudgetCollector(config *config.Configuration, source BudgetSnapshotSource) *BudgetCollector {
	prefix := config.App.Name + "_"
	collector := &BudgetCollector{
		source: source,
		dailyTotal: prometheus.NewDesc(
			prefix+string(core.MetricBudgetDailyTotal),
			"Accumulated cost for the current UTC day (USD)", nil, nil),
		monthlyTotal: prometheus.NewDesc(
			prefix+string(core.MetricBudgetMonthlyTotal),
			"Accumulated cost for the current UTC month (USD)", nil, nil),
		dailyThreshold: prometheus.NewDesc(
			prefix+string(core.MetricBudgetDailyThreshold),
			"Configured daily budget threshold (USD, 0 = unset)", nil, nil),
		monthlyThreshold: prometheus.NewDesc(
			prefix+string(core.MetricBudgetMonthlyThreshold),
			"Configured monthly budget threshold (USD, 0 = unset)", nil, nil),
		dailyUtilPct: prometheus.NewDesc(
			prefix+string(core.MetricBudgetDailyUtilization),
			"Daily budget utilization percentage", nil, nil),
		monthlyUtilPct: prometheus.NewDesc(
			prefix+string(core.MetricBudgetMonthlyUtilization),
			"Monthly budget utilization percentage", nil, nil),
		dailyByType: prometheus.NewDesc(
			prefix+string(core.MetricBudgetDailyByType),
			"Current-day accumulated cost split by cost type (USD)",
			labelNames(core.MetricLabelCostType), nil),
		eventsProcessed: prometheus.NewDesc(
			prefix+string(core.MetricBudgetEventsProcessed),
			"Cost events applied to the in-memory budget since start",
			nil, nil),
	}
	if config.Telemetry.Metric.Enabled {
		prometheus.MustRegister(collector)
	}
	return collector
}

func (collector *BudgetCollector) Describe(descs chan<- *prometheus.Desc) {
	descs <- collector.dailyTotal
	descs <- collector.monthlyTotal
	descs <- collector.dailyThreshold
	descs <- collector.monthlyThreshold
	descs <- collector.dailyUtilPct
	descs <- collector.monthlyUtilPct
	descs <- collector.dailyByType
	descs <- collector.eventsProcessed
}

func (collector *BudgetCollector) Collect(metrics chan<- prometheus.Metric) {
	snapshot := collector.source.BudgetSnapshot()
	metrics <- prometheus.MustNewConstMetric(collector.dailyTotal, prometheus.GaugeValue, snapshot.DailyTotal)
	metrics <- prometheus.MustNewConstMetric(collector.monthlyTotal, prometheus.GaugeValue, snapshot.MonthlyTotal)
	metrics <- prometheus.MustNewConstMetric(collector.dailyThreshold, prometheus.GaugeValue, snapshot.DailyThreshold)
	metrics <- prometheus.MustNewConstMetric(collector.monthlyThreshold, prometheus.GaugeValue, snapshot.MonthlyThreshold)
	metrics <- prometheus.MustNewConstMetric(collector.dailyUtilPct, prometheus.GaugeValue, snapshot.DailyUtilPct)
	metrics <- prometheus.MustNewConstMetric(collector.monthlyUtilPct, prometheus.GaugeValue, snapshot.MonthlyUtilPct)
	for costType, total := range snapshot.DailyByType {
		metrics <- prometheus.MustNewConstMetric(
			collector.dailyByType, prometheus.GaugeValue, total, costType)
	}
	metrics <- prometheus.MustNewConstMetric(
		collector.eventsProcessed, prometheus.CounterValue, float64(snapshot.EventsProcessed))
}
