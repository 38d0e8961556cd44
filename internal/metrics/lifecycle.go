// Package metrics exposes lifecycle timings and outcomes as Prometheus
// collectors.
//
// A nil *Lifecycle is valid and records nothing, so components accept one
// unconditionally and hosts that run without metrics pay no overhead:
//
//	reg := prometheus.NewRegistry()
//	m := metrics.New(reg)   // nil when reg is nil
//	m.ObserveStart("can-bus", 40*time.Millisecond, nil)
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rvkernel"

// Lifecycle holds every collector the kernel reports.
type Lifecycle struct {
	startDuration    *prometheus.HistogramVec
	stageDuration    *prometheus.HistogramVec
	serviceStatus    *prometheus.GaugeVec
	stopOperations   *prometheus.CounterVec
	emergencyStops   *prometheus.CounterVec
	healthChecks     *prometheus.CounterVec
	listenerFailures *prometheus.CounterVec
}

// New registers the lifecycle collectors with reg. It returns nil when reg
// is nil.
func New(reg prometheus.Registerer) *Lifecycle {
	if reg == nil {
		return nil
	}

	factory := promauto.With(reg)
	return &Lifecycle{
		startDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "service_start_duration_seconds",
				Help:      "Time from a service entering Starting until it is Healthy or Failed",
				Buckets: []float64{
					0.001, // in-memory services
					0.01,
					0.05,
					0.1,
					0.5,
					1,
					5, // bus interfaces coming up
					15,
					30,
				},
			},
			[]string{"service", "outcome"}, // "healthy", "failed"
		),
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Wall time for every member of a startup stage to settle",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 9),
			},
			[]string{"stage"},
		),
		serviceStatus: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "service_status",
				Help:      "Current service status code (0 pending, 1 starting, 2 healthy, 3 degraded, 4 failed, 5 stopped)",
			},
			[]string{"service"},
		),
		stopOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "service_stops_total",
				Help:      "Ordinary stop operations by outcome",
			},
			[]string{"service", "outcome"},
		),
		emergencyStops: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "emergency_stops_total",
				Help:      "Emergency stop attempts by service, safety tier and outcome",
			},
			[]string{"service", "tier", "outcome"},
		),
		healthChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "health_checks_total",
				Help:      "Health check executions by outcome",
			},
			[]string{"service", "outcome"},
		),
		listenerFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "listener_failures_total",
				Help:      "Lifecycle listener faults by event kind",
			},
			[]string{"listener", "kind"},
		),
	}
}

func outcome(err error, ok, failed string) string {
	if err != nil {
		return failed
	}
	return ok
}

// ObserveStart records how long a service took to start.
func (m *Lifecycle) ObserveStart(service string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.startDuration.WithLabelValues(service, outcome(err, "healthy", "failed")).Observe(d.Seconds())
}

// ObserveStage records the wall time of one startup stage.
func (m *Lifecycle) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// SetStatus publishes the numeric status code of a service.
func (m *Lifecycle) SetStatus(service string, code int) {
	if m == nil {
		return
	}
	m.serviceStatus.WithLabelValues(service).Set(float64(code))
}

// RecordStop counts an ordinary stop.
func (m *Lifecycle) RecordStop(service string, err error) {
	if m == nil {
		return
	}
	m.stopOperations.WithLabelValues(service, outcome(err, "success", "error")).Inc()
}

// RecordEmergencyStop counts an emergency stop attempt.
func (m *Lifecycle) RecordEmergencyStop(service, tier string, err error) {
	if m == nil {
		return
	}
	m.emergencyStops.WithLabelValues(service, tier, outcome(err, "success", "error")).Inc()
}

// RecordHealthCheck counts a health check execution.
func (m *Lifecycle) RecordHealthCheck(service string, err error) {
	if m == nil {
		return
	}
	m.healthChecks.WithLabelValues(service, outcome(err, "pass", "fail")).Inc()
}

// RecordListenerFailure counts a listener that returned an error or panicked.
func (m *Lifecycle) RecordListenerFailure(listener, kind string) {
	if m == nil {
		return
	}
	m.listenerFailures.WithLabelValues(listener, kind).Inc()
}
