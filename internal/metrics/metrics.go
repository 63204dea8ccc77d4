// Package metrics defines the prometheus collectors exposed on /metrics
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Upload metrics
var (
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_api_uploads_total",
			Help: "Total number of accepted uploads",
		},
		[]string{"media_type"},
	)

	UploadsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_api_uploads_rejected_total",
			Help: "Total number of uploads rejected during validation",
		},
		[]string{"reason"},
	)

	UploadBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_api_upload_bytes_total",
			Help: "Total bytes accepted for storage",
		},
		[]string{"media_type"},
	)
)

// Processing queue metrics
var (
	TasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_api_tasks_total",
			Help: "Processing tasks by type and terminal status",
		},
		[]string{"task_type", "status"},
	)

	TaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_api_task_duration_seconds",
			Help:    "Wall time spent running a single processing task",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"task_type"},
	)

	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_api_queue_depth",
			Help: "Number of rows in the processing queue by status",
		},
		[]string{"status"},
	)
)

// Cleanup metrics
var (
	OrphansDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_api_orphans_deleted_total",
			Help: "Media files removed by the orphan sweeper",
		},
	)

	FailedTasksPurgedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_api_failed_tasks_purged_total",
			Help: "Stale failed queue rows removed by the sweeper",
		},
	)
)
