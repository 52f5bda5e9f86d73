package kafka

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Failure reasons on kafka_producer_publish_errors_total.
const (
	reasonTimeout  = "timeout"
	reasonCanceled = "canceled"
	reasonBroker   = "broker"
)

var (
	publishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_producer_messages_published_total",
			Help: "Kafka messages published, by topic and event type.",
		},
		[]string{"topic", "event_type"},
	)

	publishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_producer_publish_errors_total",
			Help: "Kafka publish failures, by topic and reason.",
		},
		[]string{"topic", "reason"},
	)

	// Publishing is synchronous during an import batch, so the interesting
	// range is a few milliseconds up to the writer timeout.
	publishDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_producer_publish_duration_seconds",
			Help:    "Kafka publish latency in seconds.",
			Buckets: []float64{.002, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"topic"},
	)

	messageBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_producer_message_bytes",
			Help:    "Size of published Kafka message values in bytes.",
			Buckets: prometheus.ExponentialBuckets(128, 2, 10),
		},
		[]string{"topic"},
	)
)

func observePublish(topic, eventType string, size int, elapsed time.Duration, err error) {
	publishDuration.WithLabelValues(topic).Observe(elapsed.Seconds())
	if err != nil {
		publishErrors.WithLabelValues(topic, failureReason(err)).Inc()
		return
	}
	publishedTotal.WithLabelValues(topic, eventType).Inc()
	messageBytes.WithLabelValues(topic).Observe(float64(size))
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return reasonTimeout
	case errors.Is(err, context.Canceled):
		return reasonCanceled
	default:
		return reasonBroker
	}
}
