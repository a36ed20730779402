// Package metrics exposes sync and remote-store metrics in Prometheus form.
// The Collector implements the observer interfaces of the remote, syncer
// and repo packages.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/manav03panchal/personalvault/internal/errors"
)

// Namespace prefixes every metric name.
const Namespace = "personalvault"

// Result labels.
const (
	ResultOK          = "ok"
	ResultUnavailable = "unavailable"
	ResultAuth        = "auth_expired"
	ResultNotFound    = "not_found"
	ResultMalformed   = "malformed"
	ResultError       = "error"
)

var breakerStates = []string{"closed", "half-open", "open"}

// Collector holds all Prometheus metrics on a private registry.
type Collector struct {
	registry *prometheus.Registry

	// Sync metrics
	Flushes       *prometheus.CounterVec
	FlushDuration *prometheus.HistogramVec
	Coalesced     *prometheus.CounterVec

	// Remote metrics
	RemoteCalls    *prometheus.CounterVec
	RemoteDuration *prometheus.HistogramVec
	RemoteReads    *prometheus.CounterVec
	AuthRefreshes  *prometheus.CounterVec
	BreakerState   *prometheus.GaugeVec
}

// New creates a Collector with its own registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		Flushes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "sync_flushes_total",
				Help:      "Remote writes by domain and result",
			},
			[]string{"domain", "result"},
		),
		FlushDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "sync_flush_duration_seconds",
				Help:      "Time spent writing a domain to the remote store",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"domain"},
		),
		Coalesced: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "sync_coalesced_total",
				Help:      "Changes absorbed into an already pending flush",
			},
			[]string{"domain"},
		),
		RemoteCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "remote_calls_total",
				Help:      "Remote store calls by operation and result",
			},
			[]string{"op", "result"},
		),
		RemoteDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "remote_call_duration_seconds",
				Help:      "Remote store call latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		RemoteReads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "remote_reads_total",
				Help:      "Domain refreshes from the remote store by result",
			},
			[]string{"domain", "result"},
		),
		AuthRefreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "auth_refreshes_total",
				Help:      "Silent token refreshes triggered by the remote store",
			},
			[]string{"result"},
		),
		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "remote_breaker_state",
				Help:      "1 for the remote circuit breaker's current state",
			},
			[]string{"state"},
		),
	}

	c.registry.MustRegister(
		c.Flushes,
		c.FlushDuration,
		c.Coalesced,
		c.RemoteCalls,
		c.RemoteDuration,
		c.RemoteReads,
		c.AuthRefreshes,
		c.BreakerState,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	c.ObserveBreakerState("closed")
	return c
}

// Registry returns the private registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveFlush implements syncer.Observer.
func (c *Collector) ObserveFlush(domain string, d time.Duration, err error) {
	c.Flushes.WithLabelValues(domain, Result(err)).Inc()
	c.FlushDuration.WithLabelValues(domain).Observe(d.Seconds())
}

// ObserveCoalesced implements syncer.Observer.
func (c *Collector) ObserveCoalesced(domain string) {
	c.Coalesced.WithLabelValues(domain).Inc()
}

// ObserveRemoteCall implements remote.Observer.
func (c *Collector) ObserveRemoteCall(op string, d time.Duration, err error) {
	c.RemoteCalls.WithLabelValues(op, Result(err)).Inc()
	c.RemoteDuration.WithLabelValues(op).Observe(d.Seconds())
}

// ObserveAuthRefresh implements remote.Observer.
func (c *Collector) ObserveAuthRefresh(err error) {
	c.AuthRefreshes.WithLabelValues(Result(err)).Inc()
}

// ObserveBreakerState implements remote.Observer.
func (c *Collector) ObserveBreakerState(state string) {
	for _, s := range breakerStates {
		v := 0.0
		if s == state {
			v = 1
		}
		c.BreakerState.WithLabelValues(s).Set(v)
	}
}

// ObserveRemoteRead implements repo.Observer.
func (c *Collector) ObserveRemoteRead(domain string, err error) {
	c.RemoteReads.WithLabelValues(domain, Result(err)).Inc()
}

// Result maps an error to its result label.
func Result(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.IsAuthExpired(err):
		return ResultAuth
	case errors.IsRemoteUnavailable(err):
		return ResultUnavailable
	case errors.IsMalformed(err):
		return ResultMalformed
	case errors.IsNotFound(err):
		return ResultNotFound
	default:
		return ResultError
	}
}
