package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics of the server
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Feed metrics
	ReactionsPosted prometheus.Counter
	PagesServed     *prometheus.CounterVec
	PositionWrites  prometheus.Counter

	// Search metrics
	Searches      prometheus.Counter
	FollowChanges *prometheus.CounterVec
}

// NewCollector creates a collector with its own registry
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		ReactionsPosted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reactions_posted_total",
				Help:      "Total number of reactions appended to space feeds",
			},
		),
		PagesServed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "feed_pages_served_total",
				Help:      "Total number of feed pages served, by whether more pages follow",
			},
			[]string{"has_more"},
		),
		PositionWrites: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scroll_position_writes_total",
				Help:      "Total number of scroll position saves",
			},
		),
		Searches: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "user_searches_total",
				Help:      "Total number of user searches",
			},
		),
		FollowChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "follow_changes_total",
				Help:      "Total number of follow and unfollow requests",
			},
			[]string{"action"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.HTTPRequests,
		c.HTTPDuration,
		c.ReactionsPosted,
		c.PagesServed,
		c.PositionWrites,
		c.Searches,
		c.FollowChanges,
	)

	return c
}

// ObserveRequest records one finished HTTP request
func (c *Collector) ObserveRequest(method, route, status string, duration time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, status).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObservePage records a served feed page
func (c *Collector) ObservePage(hasMore bool) {
	label := "false"
	if hasMore {
		label = "true"
	}
	c.PagesServed.WithLabelValues(label).Inc()
}

// ObserveFollow records a follow or unfollow
func (c *Collector) ObserveFollow(follow bool) {
	action := "unfollow"
	if follow {
		action = "follow"
	}
	c.FollowChanges.WithLabelValues(action).Inc()
}

// Registry returns the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
