package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder counts catalog operations and upload outcomes.
type Recorder struct {
	registry *prometheus.Registry

	fetches        *prometheus.CounterVec
	saves          *prometheus.CounterVec
	deletes        *prometheus.CounterVec
	uploads        *prometheus.CounterVec
	uploadDuration *prometheus.HistogramVec
}

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "songboard",
			Name:      "catalog_fetches_total",
			Help:      "Full catalog fetches by outcome.",
		}, []string{"outcome"}),
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "songboard",
			Name:      "song_saves_total",
			Help:      "Edit session saves by outcome.",
		}, []string{"outcome"}),
		deletes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "songboard",
			Name:      "song_deletes_total",
			Help:      "Song deletions by outcome.",
		}, []string{"outcome"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "songboard",
			Name:      "media_uploads_total",
			Help:      "Media uploads by kind and outcome.",
		}, []string{"kind", "outcome"}),
		uploadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "songboard",
			Name:      "media_upload_duration_seconds",
			Help:      "Media upload duration by kind.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"kind"}),
	}

	r.registry.MustRegister(r.fetches, r.saves, r.deletes, r.uploads, r.uploadDuration)
	return r
}

// Registry exposes the underlying registry for the /metrics endpoint.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

func (r *Recorder) Fetch(err error) {
	r.fetches.WithLabelValues(outcome(err)).Inc()
}

func (r *Recorder) Save(err error) {
	r.saves.WithLabelValues(outcome(err)).Inc()
}

func (r *Recorder) Delete(err error) {
	r.deletes.WithLabelValues(outcome(err)).Inc()
}

func (r *Recorder) Upload(kind string, took time.Duration, err error) {
	r.uploads.WithLabelValues(kind, outcome(err)).Inc()
	if err == nil {
		r.uploadDuration.WithLabelValues(kind).Observe(took.Seconds())
	}
}
