package compaction

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks compaction outcomes for the /metrics endpoint.
type Metrics struct {
	runs     *prometheus.CounterVec
	messages prometheus.Counter
	memories prometheus.Counter
	duration prometheus.Histogram
}

// NewMetrics creates and registers the compaction collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mnemo",
			Subsystem: "compaction",
			Name:      "runs_total",
			Help:      "Compaction attempts by outcome (compacted, skipped, failed).",
		}, []string{"outcome"}),
		messages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mnemo",
			Subsystem: "compaction",
			Name:      "messages_compacted_total",
			Help:      "Messages replaced by summaries.",
		}),
		memories: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mnemo",
			Subsystem: "compaction",
			Name:      "memories_extracted_total",
			Help:      "Memory entries extracted during compaction.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mnemo",
			Subsystem: "compaction",
			Name:      "duration_seconds",
			Help:      "Wall time of successful compactions.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.runs, m.messages, m.memories, m.duration)
	}
	return m
}

func (m *Metrics) recordSkipped() {
	if m == nil {
		return
	}
	m.runs.WithLabelValues("skipped").Inc()
}

func (m *Metrics) recordFailed() {
	if m == nil {
		return
	}
	m.runs.WithLabelValues("failed").Inc()
}

func (m *Metrics) recordCompacted(messages, memories int, seconds float64) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues("compacted").Inc()
	m.messages.Add(float64(messages))
	m.memories.Add(float64(memories))
	m.duration.Observe(seconds)
}
