// Package metrics 定义运行处理器的 Prometheus 指标
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "next_assistants"

// 运行结果标签
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
)

var RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "run_processor",
	Name:      "runs_total",
	Help:      "Number of run deliveries handled, by outcome",
}, []string{"status"})

var RunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "run_processor",
	Name:      "run_duration_seconds",
	Help:      "Time spent processing a run delivery",
	Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
}, []string{"status"})

var StreamFragmentsSkipped = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "run_processor",
	Name:      "stream_fragments_skipped_total",
	Help:      "Number of streamed fragments that could not be parsed",
})

var VectorChunksIndexed = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "vector_index",
	Name:      "chunks_total",
	Help:      "Number of chunks embedded and upserted",
})

var QueueDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "queue",
	Name:      "deliveries_total",
	Help:      "Number of queue deliveries fetched, by driver",
}, []string{"driver"})
