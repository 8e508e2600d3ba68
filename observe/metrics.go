package observe

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 是基于 Prometheus 的 Observer 实现。
type Metrics struct {
	sourceFetch   *prometheus.CounterVec
	sourceLatency *prometheus.HistogramVec
	stageDegraded *prometheus.CounterVec
	feedbackDrop  prometheus.Counter
}

// NewMetrics 创建并注册漏斗指标。reg 为 nil 时使用默认 Registerer。
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		sourceFetch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "funnel",
			Name:      "source_fetch_total",
			Help:      "Source fetch results by source and status.",
		}, []string{"source", "status"}),
		sourceLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "funnel",
			Name:      "source_fetch_seconds",
			Help:      "Source fetch latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		stageDegraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "funnel",
			Name:      "stage_degraded_total",
			Help:      "Stages completed in degraded mode.",
		}, []string{"stage", "reason"}),
		feedbackDrop: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "funnel",
			Name:      "feedback_dropped_total",
			Help:      "Feedback events dropped because the buffer was full.",
		}),
	}
	reg.MustRegister(m.sourceFetch, m.sourceLatency, m.stageDegraded, m.feedbackDrop)
	return m
}

func (m *Metrics) SourceFetch(source string, status SourceStatus, latency time.Duration, items int) {
	m.sourceFetch.WithLabelValues(source, string(status)).Inc()
	m.sourceLatency.WithLabelValues(source).Observe(latency.Seconds())
}

func (m *Metrics) StageDegraded(stage, reason string) {
	m.stageDegraded.WithLabelValues(stage, reason).Inc()
}

func (m *Metrics) FeedbackDropped() {
	m.feedbackDrop.Inc()
}
