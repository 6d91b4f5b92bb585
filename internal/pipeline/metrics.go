package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chronoface_runs_started_total",
		Help: "Number of pipeline runs started.",
	})
	runsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chronoface_runs_completed_total",
		Help: "Number of pipeline runs that finished successfully.",
	})
	runsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chronoface_runs_failed_total",
		Help: "Number of pipeline runs that ended in the error phase.",
	})
	photosScanned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chronoface_photos_scanned_total",
		Help: "Number of photos accepted during scanning.",
	})
	facesDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chronoface_faces_detected_total",
		Help: "Number of faces detected across all runs.",
	})
)
