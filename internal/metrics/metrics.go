// Package metrics exposes Prometheus instruments for the task manager.
// Counters and histograms are fed by task transition events; the pending
// gauge is read from the manager on every scrape.
package metrics

import (
	"context"

	"github.com/phrazzld/taskqueue/internal/events"
	"github.com/phrazzld/taskqueue/internal/task"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "taskqueue"

// Metrics holds the task manager instruments.
type Metrics struct {
	TasksSubmitted     prometheus.Counter
	TasksFinished      *prometheus.CounterVec
	TasksInFlight      prometheus.Gauge
	TaskProcessingTime prometheus.Histogram
}

// New registers the instruments on reg. pending reports the number of tasks
// waiting to be processed, usually Manager.Len.
func New(reg prometheus.Registerer, pending func() int) *Metrics {
	factory := promauto.With(reg)

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "tasks_pending",
		Help:      "Tasks submitted and waiting to be processed.",
	}, func() float64 { return float64(pending()) })

	return &Metrics{
		TasksSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_submitted_total",
			Help:      "Total tasks accepted by the manager.",
		}),
		TasksFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_finished_total",
			Help:      "Total tasks that reached a terminal status, labelled by status.",
		}, []string{"status"}),
		TasksInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tasks_inflight",
			Help:      "Tasks currently being processed.",
		}),
		TaskProcessingTime: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_processing_seconds",
			Help:      "Time from start of processing to a terminal status, in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}),
	}
}

// HandleEvent implements events.EventHandler.
func (m *Metrics) HandleEvent(_ context.Context, event *events.TaskEvent) error {
	switch task.TaskStatus(event.To) {
	case task.TaskStatusQueued:
		m.TasksSubmitted.Inc()
	case task.TaskStatusProcessing:
		m.TasksInFlight.Inc()
	case task.TaskStatusCompleted, task.TaskStatusFailed:
		m.TasksInFlight.Dec()
		m.TasksFinished.WithLabelValues(event.To).Inc()
		m.TaskProcessingTime.Observe(event.Elapsed.Seconds())
	}
	return nil
}
