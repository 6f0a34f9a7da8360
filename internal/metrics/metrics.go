package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Task metrics
	TasksStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_tasks_started_total",
			Help: "Total number of research tasks started",
		},
		[]string{"research_type"},
	)

	TasksFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_tasks_finished_total",
			Help: "Total number of research tasks that reached a terminal status",
		},
		[]string{"research_type", "status"},
	)

	TaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "research_task_duration_seconds",
			Help:    "Research task duration in seconds",
			Buckets: []float64{10, 30, 60, 120, 300, 600, 1200, 1800, 3600},
		},
		[]string{"research_type"},
	)

	// Phase metrics
	PhaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "research_phase_duration_seconds",
			Help:    "Duration of a single research backend call in seconds",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		},
		[]string{"phase", "model", "outcome"},
	)

	PhaseCitations = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "research_phase_citations",
			Help:    "Citations returned by a successful research phase",
			Buckets: []float64{0, 5, 10, 20, 50, 100},
		},
		[]string{"phase"},
	)

	ActiveTasks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "research_active_tasks",
			Help: "Number of research tasks currently pending or running",
		},
	)
)

// Outcome label values
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
