// Package metrics records batch run outcomes as Prometheus metrics. The
// commands are short lived, so metrics are written to a node exporter
// textfile after each run instead of being scraped.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/riskibarqy/match-predictor/internal/usecase"
)

const namespace = "match_predictor"

type Recorder struct {
	registry *prometheus.Registry

	ingestRecords  *prometheus.CounterVec
	ingestFailures *prometheus.CounterVec

	trainRuns        *prometheus.CounterVec
	trainDuration    prometheus.Histogram
	trainAUC         prometheus.Gauge
	trainRows        prometheus.Gauge
	trainLastSuccess prometheus.Gauge

	predictRuns     *prometheus.CounterVec
	predictDuration prometheus.Histogram
	predictions     prometheus.Counter
	predictSkipped  prometheus.Counter
}

func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	runBuckets := prometheus.ExponentialBuckets(0.05, 2, 12)

	return &Recorder{
		registry: registry,
		ingestRecords: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "records_total",
			Help:      "Rows fetched from the match feed, by source.",
		}, []string{"source"}),
		ingestFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "failures_total",
			Help:      "Feed sources that failed during ingestion.",
		}, []string{"source"}),
		trainRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "train",
			Name:      "runs_total",
			Help:      "Training runs by outcome.",
		}, []string{"outcome"}),
		trainDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "train",
			Name:      "duration_seconds",
			Help:      "Wall time of training runs.",
			Buckets:   runBuckets,
		}),
		trainAUC: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "train",
			Name:      "validation_auc",
			Help:      "Validation AUC of the latest trained model.",
		}),
		trainRows: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "train",
			Name:      "rows",
			Help:      "Feature rows used by the latest trained model.",
		}),
		trainLastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "train",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the latest successful training run.",
		}),
		predictRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "predict",
			Name:      "runs_total",
			Help:      "Prediction runs by outcome.",
		}, []string{"outcome"}),
		predictDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "predict",
			Name:      "duration_seconds",
			Help:      "Wall time of prediction runs.",
			Buckets:   runBuckets,
		}),
		predictions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "predict",
			Name:      "predictions_total",
			Help:      "Matches given a prediction.",
		}),
		predictSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "predict",
			Name:      "skipped_total",
			Help:      "Matches skipped for lacking a complete feature profile.",
		}),
	}
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) ObserveIngestion(source string, records int, err error) {
	if err != nil {
		r.ingestFailures.WithLabelValues(source).Inc()
		return
	}
	r.ingestRecords.WithLabelValues(source).Add(float64(records))
}

func (r *Recorder) ObserveTraining(result usecase.TrainResult, elapsed time.Duration, err error) {
	r.trainDuration.Observe(elapsed.Seconds())
	if err != nil {
		r.trainRuns.WithLabelValues("error").Inc()
		return
	}
	r.trainRuns.WithLabelValues("success").Inc()
	r.trainAUC.Set(result.ValidationAUC)
	r.trainRows.Set(float64(result.Rows))
	r.trainLastSuccess.Set(float64(result.TrainedAt.Unix()))
}

func (r *Recorder) ObservePrediction(result usecase.PredictResult, elapsed time.Duration, err error) {
	r.predictDuration.Observe(elapsed.Seconds())
	if err != nil {
		r.predictRuns.WithLabelValues("error").Inc()
		return
	}
	r.predictRuns.WithLabelValues("success").Inc()
	r.predictions.Add(float64(len(result.Predictions)))
	r.predictSkipped.Add(float64(len(result.Skipped)))
}

// WriteTextfile writes the registry in text exposition format. The file is
// replaced atomically so the node exporter never reads a partial file.
func (r *Recorder) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
