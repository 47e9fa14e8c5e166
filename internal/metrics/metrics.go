package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Post metrics
var (
	PostsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedrelay_posts_total",
			Help: "Total number of posts processed by media kind and outcome",
		},
		[]string{"kind", "status"},
	)

	PostFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedrelay_post_failures_total",
			Help: "Total number of failed posts by taxonomy reason",
		},
		[]string{"reason"},
	)

	PostDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feedrelay_post_duration_seconds",
			Help:    "Time from classification to delivery for one post",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"kind"},
	)
)

// Media metrics
var (
	FetchedBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feedrelay_fetched_bytes_total",
			Help: "Total bytes downloaded for delivery",
		},
	)

	TranscodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feedrelay_transcode_duration_seconds",
			Help:    "ffmpeg wall clock per adaptive video",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 180, 240, 300},
		},
		[]string{"result"},
	)
)

// Batch metrics
var (
	BatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedrelay_batches_total",
			Help: "Total number of feed runs by source",
		},
		[]string{"source"},
	)

	LastBatchTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feedrelay_last_batch_timestamp_seconds",
			Help: "Unix time the last feed run finished",
		},
	)
)

// WriteTextfile writes every registered collector to path in the textfile
// collector format. An empty path is a no-op.
func WriteTextfile(path string) error {
	return writeTextfile(path, prometheus.DefaultGatherer)
}

func writeTextfile(path string, gatherer prometheus.Gatherer) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if !strings.HasSuffix(path, ".prom") {
		return errors.New("metrics textfile must end in .prom")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return prometheus.WriteToTextfile(path, gatherer)
}
