// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	ImagesClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listing_images_classified_total",
			Help: "Images classified, by resulting category (or \"failed\")",
		},
		[]string{"category"},
	)

	TemplateSelected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listing_template_selected_total",
			Help: "Times each template won the ranking",
		},
		[]string{"template_id"},
	)

	ShorteningRounds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "listing_shortening_rounds",
			Help:    "Shortening rounds spent per over-length field",
			Buckets: []float64{0, 1, 2, 3, 4, 5},
		},
	)

	FieldsStillOverLimit = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "listing_fields_still_over_limit_total",
			Help: "Fields left over their length limit after the last shortening round",
		},
	)

	TemplateCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listing_template_cache_lookups_total",
			Help: "Template snapshot cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)
)
