// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "do4btc"

// Collector holds the service's Prometheus metrics on its own registry.
// Every method is safe to call on a nil Collector.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	Sessions      prometheus.Gauge
	TickDuration  prometheus.Histogram
	FramesDropped prometheus.Counter
	ChangeEvents  *prometheus.CounterVec

	IdeasCreated  prometheus.Counter
	VoteRequests  prometheus.Counter
	Charges       *prometheus.CounterVec
	VotesCredited prometheus.Counter
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_sessions",
			Help:      "Number of connected board viewers",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "board_tick_duration_seconds",
			Help:      "Time to step one board and build its frame",
			Buckets:   []float64{.00005, .0001, .00025, .0005, .001, .0025, .005, .01},
		}),
		FramesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_dropped_total",
			Help:      "Frames not sent because a viewer's buffer was full",
		}),
		ChangeEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "change_events_total",
			Help:      "Change feed events received, by type",
		}, []string{"type"}),
		IdeasCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ideas_created_total",
			Help:      "Ideas submitted successfully",
		}),
		VoteRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vote_requests_total",
			Help:      "Vote charge requests started",
		}),
		Charges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "charges_total",
			Help:      "Charge creation outcomes",
		}, []string{"outcome"}),
		VotesCredited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_credited_total",
			Help:      "Votes added to ideas",
		}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.HTTPRequests, c.HTTPDuration,
		c.Sessions, c.TickDuration, c.FramesDropped, c.ChangeEvents,
		c.IdeasCreated, c.VoteRequests, c.Charges, c.VotesCredited,
	)
	return c
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) ObserveRequest(method, route string, status int, d time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (c *Collector) SessionOpened() {
	if c != nil {
		c.Sessions.Inc()
	}
}

func (c *Collector) SessionClosed() {
	if c != nil {
		c.Sessions.Dec()
	}
}

func (c *Collector) ObserveTick(d time.Duration) {
	if c != nil {
		c.TickDuration.Observe(d.Seconds())
	}
}

func (c *Collector) FrameDropped() {
	if c != nil {
		c.FramesDropped.Inc()
	}
}

func (c *Collector) ChangeEvent(typ string) {
	if c != nil {
		c.ChangeEvents.WithLabelValues(typ).Inc()
	}
}

func (c *Collector) IdeaCreated() {
	if c != nil {
		c.IdeasCreated.Inc()
	}
}

func (c *Collector) VoteRequested() {
	if c != nil {
		c.VoteRequests.Inc()
	}
}

// ChargeOutcome counts a charge result: "ok" or "error".
func (c *Collector) ChargeOutcome(ok bool) {
	if c == nil {
		return
	}
	outcome := "error"
	if ok {
		outcome = "ok"
	}
	c.Charges.WithLabelValues(outcome).Inc()
}

func (c *Collector) VoteCredited() {
	if c != nil {
		c.VotesCredited.Inc()
	}
}
