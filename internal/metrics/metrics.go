// Package metrics exposes the prometheus collectors shared by exports,
// publishes and object stores.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "streampack"

type Metrics struct {
	Exports         *prometheus.CounterVec
	EncodeDuration  *prometheus.HistogramVec
	Uploads         *prometheus.CounterVec
	UploadDuration  *prometheus.HistogramVec
	CleanupFailures *prometheus.CounterVec
}

// New registers the collectors on reg. A nil reg keeps them unregistered,
// which is what tests and embedded uses without an exporter want.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Exports: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Exports by format and result.",
		}, []string{"format", "result"}),
		EncodeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "encode_duration_seconds",
			Help:      "Time spent in the transcoder per export.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"format"}),
		Uploads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Directory uploads by store and result.",
		}, []string{"store", "result"}),
		UploadDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_duration_seconds",
			Help:      "Time spent uploading an artifact directory.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		}, []string{"store"}),
		CleanupFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_failures_total",
			Help:      "Best-effort cleanup operations that failed.",
		}, []string{"op"}),
	}
}

func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
