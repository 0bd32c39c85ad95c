// Package telemetry records per-call metrics for the integration clients.
// A Recorder owns its registry so the CLI can dump it with --metrics-file
// without touching the global default registerer.
package telemetry

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	opserrors "github.com/systmms/devops/internal/errors"
)

const namespace = "devops"

// Outcome labels.
const (
	OutcomeOK          = "ok"
	OutcomeNotFound    = "not_found"
	OutcomeAuthError   = "auth_error"
	OutcomeAPIError    = "api_error"
	OutcomeConfigError = "config_error"
	OutcomeError       = "error"
)

// Recorder holds the client call collectors.
type Recorder struct {
	registry *prometheus.Registry

	// CallsTotal counts client operations, partitioned by integration,
	// operation and outcome.
	CallsTotal *prometheus.CounterVec

	// CallDuration observes client operation latency in seconds.
	CallDuration *prometheus.HistogramVec
}

// NewRecorder creates a Recorder backed by a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		CallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "client_calls_total",
				Help:      "Total number of integration client calls.",
			},
			[]string{"integration", "operation", "outcome"},
		),
		CallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "client_call_duration_seconds",
				Help:      "Integration client call latency, in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"integration", "operation"},
		),
	}
	r.registry.MustRegister(r.CallsTotal, r.CallDuration)
	return r
}

// Registry returns the registry the collectors are registered with.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Observe records one call. A nil Recorder discards the observation.
func (r *Recorder) Observe(integration, operation string, elapsed time.Duration, err error) {
	if r == nil {
		return
	}
	r.CallsTotal.WithLabelValues(integration, operation, Outcome(err)).Inc()
	r.CallDuration.WithLabelValues(integration, operation).Observe(elapsed.Seconds())
}

// WriteTextfile writes the current metrics in the Prometheus text format,
// suitable for the node_exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

// Outcome maps an error to its outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, opserrors.ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, opserrors.ErrAuth):
		return OutcomeAuthError
	case errors.Is(err, opserrors.ErrAPI):
		return OutcomeAPIError
	case errors.Is(err, opserrors.ErrConfig):
		return OutcomeConfigError
	default:
		return OutcomeError
	}
}
