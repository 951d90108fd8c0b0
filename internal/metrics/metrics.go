// Package metrics exposes Prometheus counters for a playground session.
//
// A Recorder owns a private registry so several sessions in one process (or
// one test binary) never collide on the default registerer. All methods are
// safe on a nil *Recorder, which records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "llm_playground"

// Recorder holds the session counters.
type Recorder struct {
	registry *prometheus.Registry

	Frames     *prometheus.CounterVec
	Reconnects prometheus.Counter
	Failures   *prometheus.CounterVec
	Turns      *prometheus.CounterVec
	ParamPush  *prometheus.CounterVec
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		Frames: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "frames_total",
				Help:      "Inbound frames by interpreted kind",
			},
			[]string{"kind"},
		),
		Reconnects: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconnects_total",
				Help:      "Reconnect attempts issued by the retry policy",
			},
		),
		Failures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "failures_total",
				Help:      "Session failures by kind",
			},
			[]string{"kind"},
		),
		Turns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "turns_total",
				Help:      "Conversation turns appended by role",
			},
			[]string{"role"},
		),
		ParamPush: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "param_updates_total",
				Help:      "Settings requests sent to the backend by outcome",
			},
			[]string{"name", "status"},
		),
	}
}

// Frame counts one interpreted inbound frame.
func (r *Recorder) Frame(kind string) {
	if r == nil {
		return
	}
	r.Frames.WithLabelValues(kind).Inc()
}

// Reconnect counts one reconnect attempt. The attempt number is accepted so
// the method can be passed directly as a retry hook.
func (r *Recorder) Reconnect(int) {
	if r == nil {
		return
	}
	r.Reconnects.Inc()
}

// Failure counts one session failure.
func (r *Recorder) Failure(kind string) {
	if r == nil {
		return
	}
	r.Failures.WithLabelValues(kind).Inc()
}

// Turn counts one appended conversation turn.
func (r *Recorder) Turn(role string) {
	if r == nil {
		return
	}
	r.Turns.WithLabelValues(role).Inc()
}

// Param counts one settings request.
func (r *Recorder) Param(name string, ok bool) {
	if r == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "error"
	}
	r.ParamPush.WithLabelValues(name, status).Inc()
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the recorder's metrics in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
