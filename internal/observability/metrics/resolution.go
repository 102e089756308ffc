// Package metrics records role-resolution metrics in Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	obserrors "github.com/glosswerks/glosswerks-api/internal/observability/errors"
)

// Result constants for metric labels.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// Recorder holds the resolution collectors. A nil *Recorder is a valid no-op.
type Recorder struct {
	signals      *prometheus.CounterVec
	signalTime   *prometheus.HistogramVec
	resolutions  *prometheus.CounterVec
	writes       *prometheus.CounterVec
	commits      *prometheus.CounterVec
	runs         *prometheus.CounterVec
	runDuration  prometheus.Histogram
	signOuts     *prometheus.CounterVec
	liveMachines prometheus.Gauge
	breakerState *prometheus.GaugeVec
	breakerMoves *prometheus.CounterVec
	breakerCalls *prometheus.CounterVec
}

// NewRecorder registers the collectors on reg (prometheus.DefaultRegisterer when nil).
func NewRecorder(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		signals: f.NewCounterVec(prometheus.CounterOpts{
			Name: "glosswerks_role_signal_total",
			Help: "Role signal reads by source and outcome",
		}, []string{"source", "outcome", "error_class"}),
		signalTime: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "glosswerks_role_signal_duration_seconds",
			Help:    "Latency of role signal reads",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 3, 10},
		}, []string{"source"}),
		resolutions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "glosswerks_role_resolution_total",
			Help: "Resolved roles by deciding source",
		}, []string{"source", "role", "non_regression"}),
		writes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "glosswerks_profile_write_total",
			Help: "Persistence reconciler outcomes",
		}, []string{"outcome", "error_class"}),
		commits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "glosswerks_session_commit_total",
			Help: "Session cache commits by result",
		}, []string{"result"}),
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "glosswerks_resolution_run_total",
			Help: "Resolution runs by event and fate",
		}, []string{"event", "fate"}),
		runDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "glosswerks_resolution_run_duration_seconds",
			Help:    "Duration of resolution runs from dispatch to settle",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}),
		signOuts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "glosswerks_provider_signout_total",
			Help: "Remote provider sign-out attempts",
		}, []string{"result", "error_class"}),
		liveMachines: f.NewGauge(prometheus.GaugeOpts{
			Name: "glosswerks_session_machines",
			Help: "Client state machines currently held in memory",
		}),
		breakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "glosswerks_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		}, []string{"name"}),
		breakerMoves: f.NewCounterVec(prometheus.CounterOpts{
			Name: "glosswerks_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		}, []string{"name", "from", "to"}),
		breakerCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "glosswerks_circuit_breaker_requests_total",
			Help: "Calls through a circuit breaker by result",
		}, []string{"name", "result"}),
	}
}

// Signal records one settled signal read.
func (r *Recorder) Signal(source, outcome string, d time.Duration, err error) {
	if r == nil {
		return
	}
	r.signals.WithLabelValues(source, outcome, obserrors.Classify(err)).Inc()
	if d > 0 {
		r.signalTime.WithLabelValues(source).Observe(d.Seconds())
	}
}

// Resolution records which source decided a role.
func (r *Recorder) Resolution(source, role string, nonRegression bool) {
	if r == nil {
		return
	}
	nr := "false"
	if nonRegression {
		nr = "true"
	}
	r.resolutions.WithLabelValues(source, role, nr).Inc()
}

// Write records a persistence reconciler outcome.
func (r *Recorder) Write(outcome string, err error) {
	if r == nil {
		return
	}
	r.writes.WithLabelValues(outcome, obserrors.Classify(err)).Inc()
}

// Commit records a cache commit; changed=false counts as a no-op.
func (r *Recorder) Commit(changed bool) {
	if r == nil {
		return
	}
	if changed {
		r.commits.WithLabelValues(ResultSuccess).Inc()
		return
	}
	r.commits.WithLabelValues(ResultNoop).Inc()
}

// Run records how a resolution run ended (committed, stale, coalesced, rejected).
func (r *Recorder) Run(event, fate string, d time.Duration) {
	if r == nil {
		return
	}
	r.runs.WithLabelValues(event, fate).Inc()
	if d > 0 {
		r.runDuration.Observe(d.Seconds())
	}
}

// SignOut records a remote sign-out attempt.
func (r *Recorder) SignOut(err error) {
	if r == nil {
		return
	}
	if err != nil {
		r.signOuts.WithLabelValues(ResultError, obserrors.Classify(err)).Inc()
		return
	}
	r.signOuts.WithLabelValues(ResultSuccess, "").Inc()
}

// Machines sets the number of live client machines.
func (r *Recorder) Machines(n int) {
	if r == nil {
		return
	}
	r.liveMachines.Set(float64(n))
}

// BreakerState sets the state gauge of a named breaker.
func (r *Recorder) BreakerState(name string, state float64) {
	if r == nil {
		return
	}
	r.breakerState.WithLabelValues(name).Set(state)
}

// BreakerTransition counts a breaker state change.
func (r *Recorder) BreakerTransition(name, from, to string) {
	if r == nil {
		return
	}
	r.breakerMoves.WithLabelValues(name, from, to).Inc()
}

// BreakerCall counts one call through a breaker (success, failure or rejected).
func (r *Recorder) BreakerCall(name, result string) {
	if r == nil {
		return
	}
	r.breakerCalls.WithLabelValues(name, result).Inc()
}
