package monitoring

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"printqueue/internal/services"
	"printqueue/models"
)

var (
	queueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "printqueue_waiting_entries",
			Help: "Current number of waiting queue entries",
		},
	)

	deskBusy = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "printqueue_desk_busy",
			Help: "1 when the desk is serving an entry, 0 when idle",
		},
		[]string{"desk"},
	)

	averageWait = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "printqueue_average_wait_minutes",
			Help: "Average wait of completed entries in the live queue",
		},
	)

	queueOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "printqueue_operations_total",
			Help: "Total queue operations",
		},
		[]string{"operation", "status"},
	)

	waitMinutes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "printqueue_wait_minutes",
			Help:    "Arrival to completion time of served entries",
			Buckets: []float64{1, 2, 5, 10, 15, 20, 30, 45, 60, 90},
		},
		[]string{"desk"},
	)

	operationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "printqueue_operation_duration_seconds",
			Help:    "Duration of queue operations",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"operation"},
	)
)

// Monitor turns queue views and lifecycle events into Prometheus metrics.
type Monitor struct{}

func NewMonitor() *Monitor {
	return &Monitor{}
}

// Observe refreshes the gauges from a queue view. It is meant to be passed
// to QueueService.Subscribe.
func (m *Monitor) Observe(v services.QueueView) {
	queueLength.Set(float64(v.Stats.CurrentQueueLength))
	averageWait.Set(float64(v.Stats.AverageWaitTime))
	for _, d := range models.AllDesks() {
		busy := 0.0
		if v.Serving[d] != nil {
			busy = 1
		}
		deskBusy.WithLabelValues(string(d)).Set(busy)
	}
}

// QueueEvent implements services.EventSink.
func (m *Monitor) QueueEvent(_ context.Context, ev services.LifecycleEvent) {
	queueOperations.WithLabelValues(string(ev.Type), "success").Inc()
	if ev.Type == services.EventCompleted && ev.Entry != nil {
		waitMinutes.WithLabelValues(string(ev.Desk)).Observe(float64(ev.Entry.WaitTime))
	}
}

// TrackQueueOperation records the duration of an operation and counts it
// when it failed. Successes are counted from lifecycle events, so operation
// should be the matching event type.
func (m *Monitor) TrackQueueOperation(operation string, started time.Time, err error) {
	operationDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
	if err != nil {
		queueOperations.WithLabelValues(operation, "error").Inc()
	}
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
