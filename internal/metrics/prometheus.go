package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus holds the exported collectors on a registry of its own, so
// several instances can coexist in one process.
type Prometheus struct {
	registry     *prometheus.Registry
	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	failures     *prometheus.CounterVec
	repositoryUp prometheus.Gauge
	published    prometheus.Counter
}

func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blog_http_requests_total",
			Help: "Total number of requests handled, by strategy and status code",
		}, []string{"strategy", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "blog_http_request_duration_seconds",
			Help:    "Time spent handling a request, by strategy",
			Buckets: prometheus.DefBuckets,
		}, []string{"strategy"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blog_strategy_failures_total",
			Help: "Requests a strategy could not complete, by error kind",
		}, []string{"strategy", "kind"}),
		repositoryUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "blog_repository_up",
			Help: "Whether the last repository health check succeeded",
		}),
		published: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blog_posts_published_total",
			Help: "Scheduled posts published by the publisher job",
		}),
	}

	p.registry.MustRegister(p.requests, p.duration, p.failures, p.repositoryUp, p.published)
	return p
}

func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *Prometheus) observeResponse(strategy string, status int, d time.Duration) {
	p.requests.WithLabelValues(strategy, strconv.Itoa(status)).Inc()
	p.duration.WithLabelValues(strategy).Observe(d.Seconds())
}

func (p *Prometheus) setHealthy(healthy bool) {
	if healthy {
		p.repositoryUp.Set(1)
		return
	}
	p.repositoryUp.Set(0)
}
