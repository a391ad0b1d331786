package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "smartbuilding"

var (
	// bridgeMessages counts edge messages handed to the producer.
	// Labels: status (forwarded, dropped)
	bridgeMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "bridge",
		Name:      "messages_total",
		Help:      "Edge messages received by the ingress bridge",
	}, []string{"status"})

	// producerDeliveries counts asynchronous delivery reports.
	// Labels: status (success, error)
	producerDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "producer",
		Name:      "deliveries_total",
		Help:      "Messages acknowledged or rejected by the broker",
	}, []string{"status"})

	consumerMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "consumer",
		Name:      "messages_total",
		Help:      "Messages consumed from the stream",
	}, []string{"status"})

	// stageOutcomes counts the outcome of each processing stage.
	// Labels: stage, outcome
	stageOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "processor",
		Name:      "stage_outcomes_total",
		Help:      "Outcome of every payload processing stage",
	}, []string{"stage", "outcome"})

	processingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "processor",
		Name:      "duration_seconds",
		Help:      "Time to process one payload",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	})

	alertsRaised = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "alerts",
		Name:      "raised_total",
		Help:      "Building alerts created",
	}, []string{"severity"})

	retentionDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "retention",
		Name:      "deleted_readings_total",
		Help:      "Readings removed by the retention job",
	})
)

func RecordBridgeMessage(forwarded bool) {
	status := "forwarded"
	if !forwarded {
		status = "dropped"
	}
	bridgeMessages.WithLabelValues(status).Inc()
}

// RecordDelivery records an asynchronous delivery report of n messages.
func RecordDelivery(n int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	producerDeliveries.WithLabelValues(status).Add(float64(n))
}

// RecordConsumed records a consumed message. status is one of "ok", "error" or "panic".
func RecordConsumed(status string) {
	consumerMessages.WithLabelValues(status).Inc()
}

func RecordStage(stage, outcome string) {
	stageOutcomes.WithLabelValues(stage, outcome).Inc()
}

func ObserveProcessing(started time.Time) {
	processingDuration.Observe(time.Since(started).Seconds())
}

func RecordAlert(severity string) {
	alertsRaised.WithLabelValues(severity).Inc()
}

func RecordRetention(deleted int64) {
	retentionDeleted.Add(float64(deleted))
}
