package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns the pipeline metrics and the registry they live on.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         *prometheus.Registry

	playsLoaded     prometheus.Counter
	gameRows        prometheus.Gauge
	trainingRows    prometheus.Gauge
	droppedGames    prometheus.Counter
	droppedTraining prometheus.Gauge
	testMSE         prometheus.Gauge
	testMAE         prometheus.Gauge
	trainR2         prometheus.Gauge
	lastTrainedUnix prometheus.Gauge

	predictions     *prometheus.CounterVec
	predictErrors   *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
	httpRequests    *prometheus.CounterVec
	httpRequestTime *prometheus.HistogramVec
}

// NewManager creates a metrics manager. Without WithPrometheusRegistry the
// metrics go to a fresh registry, so Go runtime collectors are not exported.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "nflspread",
		histogramBuckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		constLabels:      map[string]string{},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.constLabels)

	m.playsLoaded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "plays_loaded_total",
		Help: "Play-by-play records read from the play log",
	})
	m.gameRows = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "game_team_rows",
		Help: "Game-team rows in the last built running-average table",
	})
	m.trainingRows = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "training_rows",
		Help: "Rows in the last assembled training table",
	})
	m.droppedGames = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "incomplete_games_dropped_total",
		Help: "Games dropped from a training table because one side was missing",
	})
	m.droppedTraining = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "training_rows_filtered",
		Help: "Rows removed by the trainer (opening week or missing target)",
	})
	m.testMSE = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "model_test_mse",
		Help: "Mean squared error of the last trained model on its test split",
	})
	m.testMAE = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "model_test_mae",
		Help: "Mean absolute error of the last trained model on its test split",
	})
	m.trainR2 = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "model_train_r2",
		Help: "R squared of the last fit",
	})
	m.lastTrainedUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "model_last_trained_unix",
		Help: "Unix time of the last successful training run",
	})

	m.predictions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "predictions_total",
		Help: "Matchups scored, by caller",
	}, []string{"source"})
	m.predictErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "prediction_errors_total",
		Help: "Matchups that could not be scored, by reason",
	}, []string{"reason"})
	m.stageDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    "stage_duration_seconds",
		Help:    "Wall time of pipeline stages",
		Buckets: m.histogramBuckets,
	}, []string{"stage"})
	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "http_requests_total",
		Help: "HTTP requests by route, method and status code",
	}, []string{"route", "method", "status_code"})
	m.httpRequestTime = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})
}

// RecordPlaysLoaded adds n plays read from the play log.
func (m *Manager) RecordPlaysLoaded(n int) { m.playsLoaded.Add(float64(n)) }

// SetGameRows records the size of the last running-average table.
func (m *Manager) SetGameRows(n int) { m.gameRows.Set(float64(n)) }

// RecordTrainingTable records the assembled table size and the games dropped
// for a missing side.
func (m *Manager) RecordTrainingTable(rows, droppedGames int) {
	m.trainingRows.Set(float64(rows))
	m.droppedGames.Add(float64(droppedGames))
}

// RecordTraining records the outcome of a training run.
func (m *Manager) RecordTraining(filtered int, mse, mae, r2 float64, at time.Time) {
	m.droppedTraining.Set(float64(filtered))
	m.testMSE.Set(mse)
	m.testMAE.Set(mae)
	m.trainR2.Set(r2)
	m.lastTrainedUnix.Set(float64(at.Unix()))
}

// RecordPrediction counts one scored matchup.
func (m *Manager) RecordPrediction(source string) { m.predictions.WithLabelValues(source).Inc() }

// RecordPredictionError counts one matchup that could not be scored.
func (m *Manager) RecordPredictionError(reason string) {
	m.predictErrors.WithLabelValues(reason).Inc()
}

// ObserveStage records how long a pipeline stage took.
func (m *Manager) ObserveStage(stage string, d time.Duration) {
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordHTTPRequest records one served HTTP request.
func (m *Manager) RecordHTTPRequest(route, method string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(route, method, fmt.Sprint(status)).Inc()
	m.httpRequestTime.WithLabelValues(route, method).Observe(d.Seconds())
}

// Registry returns the registry backing the manager.
func (m *Manager) Registry() *prometheus.Registry { return m.registry }

// Handler serves the manager's metrics in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteTextfile writes the current metrics to path for the node-exporter
// textfile collector. Batch commands call it once before exiting.
func (m *Manager) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("%w: %v", ErrExportFailed, err)
	}
	return nil
}
