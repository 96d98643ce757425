// internal/prometheus/metrics.go - Prometheus metrics
package prometheus

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stakewatch/internal/engine"
)

var (
	validatorsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stakewatch_validators",
			Help: "Number of validators being tracked",
		},
	)

	delinquentGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stakewatch_delinquent_validators",
			Help: "Number of tracked validators currently delinquent",
		},
	)

	sweepCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stakewatch_sweeps_total",
			Help: "Total number of sweeps by result",
		},
		[]string{"result"},
	)

	sweepDurationGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stakewatch_sweep_duration_seconds",
			Help: "Duration of the last completed sweep",
		},
	)

	snapshotsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stakewatch_snapshots_written_total",
			Help: "Total number of attribute snapshots persisted",
		},
	)

	changeEventsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stakewatch_change_events_total",
			Help: "Total number of change events by severity",
		},
		[]string{"severity"},
	)

	livenessEventsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stakewatch_liveness_events_total",
			Help: "Total number of liveness flips by direction",
		},
		[]string{"kind"},
	)

	notificationsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stakewatch_notifications_total",
			Help: "Total number of notifications handed to the notifier",
		},
	)

	anomaliesCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stakewatch_observation_anomalies_total",
			Help: "Total number of malformed observations clamped during sweeps",
		},
	)
)

type Metrics struct {
	enabled bool
}

func New(enabled bool, port int) *Metrics {
	if !enabled {
		return &Metrics{enabled: false}
	}

	// Register metrics
	prometheus.MustRegister(validatorsGauge)
	prometheus.MustRegister(delinquentGauge)
	prometheus.MustRegister(sweepCounter)
	prometheus.MustRegister(sweepDurationGauge)
	prometheus.MustRegister(snapshotsCounter)
	prometheus.MustRegister(changeEventsCounter)
	prometheus.MustRegister(livenessEventsCounter)
	prometheus.MustRegister(notificationsCounter)
	prometheus.MustRegister(anomaliesCounter)

	// Start HTTP server
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		http.ListenAndServe(fmt.Sprintf(":%d", port), nil)
	}()

	return &Metrics{enabled: true}
}

func (m *Metrics) UpdatePopulation(total, delinquent int) {
	if !m.enabled {
		return
	}
	validatorsGauge.Set(float64(total))
	delinquentGauge.Set(float64(delinquent))
}

// RecordSweep folds one sweep result into the counters.
func (m *Metrics) RecordSweep(res engine.SweepResult, duration time.Duration, err error) {
	if !m.enabled {
		return
	}

	if err != nil {
		sweepCounter.WithLabelValues("error").Inc()
		return
	}
	sweepCounter.WithLabelValues("ok").Inc()
	sweepDurationGauge.Set(duration.Seconds())

	snapshotsCounter.Add(float64(len(res.Snapshots)))
	for _, ev := range res.Events {
		changeEventsCounter.WithLabelValues(ev.Severity.String()).Inc()
	}
	for _, t := range res.Transitions {
		livenessEventsCounter.WithLabelValues(string(t.Event.Kind)).Inc()
	}
	notificationsCounter.Add(float64(len(res.Notifications)))
	anomaliesCounter.Add(float64(res.Anomalies))
}
