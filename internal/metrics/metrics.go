// Package metrics exports upload pipeline and HTTP metrics to Prometheus.
package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/maauso/videoupload-api/internal/upload"
)

const namespace = "videoupload"

// Compile-time check that Recorder implements upload.Observer.
var _ upload.Observer = (*Recorder)(nil)

// Recorder collects upload outcomes and request latencies.
type Recorder struct {
	gatherer prometheus.Gatherer

	uploads          *prometheus.CounterVec
	stageFailures    *prometheus.CounterVec
	uploadedBytes    prometheus.Counter
	videoDuration    prometheus.Histogram
	requestDurations *prometheus.HistogramVec
}

// NewRecorder registers the collectors with reg. If reg is nil a fresh
// registry is used.
func NewRecorder(reg *prometheus.Registry) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	r := &Recorder{
		gatherer: reg,
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Upload requests by outcome.",
		}, []string{"outcome"}),
		stageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_failures_total",
			Help:      "Upload pipeline failures by stage.",
		}, []string{"stage"}),
		uploadedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploaded_bytes_total",
			Help:      "Declared size of successfully uploaded videos.",
		}),
		videoDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "video_duration_seconds",
			Help:      "Probed playback duration of uploaded videos.",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		}),
		requestDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method, route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	var err error
	if r.uploads, err = register(reg, r.uploads); err != nil {
		return nil, err
	}
	if r.stageFailures, err = register(reg, r.stageFailures); err != nil {
		return nil, err
	}
	if r.uploadedBytes, err = register(reg, r.uploadedBytes); err != nil {
		return nil, err
	}
	if r.videoDuration, err = register(reg, r.videoDuration); err != nil {
		return nil, err
	}
	if r.requestDurations, err = register(reg, r.requestDurations); err != nil {
		return nil, err
	}

	return r, nil
}

// register adds c to reg, or returns the collector already registered
// under the same descriptor.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("register metric: %w", err)
	}
	return c, nil
}

// UploadSucceeded records a completed upload.
func (r *Recorder) UploadSucceeded(size int64, duration float64) {
	r.uploads.WithLabelValues("success").Inc()
	if size > 0 {
		r.uploadedBytes.Add(float64(size))
	}
	r.videoDuration.Observe(duration)
}

// UploadFailed records a pipeline failure at stage.
func (r *Recorder) UploadFailed(stage upload.Stage) {
	r.uploads.WithLabelValues("failure").Inc()
	r.stageFailures.WithLabelValues(string(stage)).Inc()
}

// ObserveRequest records the latency of one HTTP request.
func (r *Recorder) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	r.requestDurations.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}
