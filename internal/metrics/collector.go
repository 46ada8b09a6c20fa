package metrics

import (
	"context"
	"log/slog"
	"time"
)

type EventType string

const (
	EventRequestReceived   EventType = "request_received"
	EventResponseCompleted EventType = "response_completed"
	EventRequestFailed     EventType = "request_failed"
	EventHealthChanged     EventType = "health_changed"
	EventPostsPublished    EventType = "posts_published"
)

type MetricEvent struct {
	Type       EventType
	Timestamp  time.Time
	Strategy   string
	Duration   time.Duration
	StatusCode int
	ErrorKind  string
	Healthy    bool
	Count      int
}

type Collector struct {
	eventCh    chan MetricEvent
	metrics    *Metrics
	prometheus *Prometheus
	logger     *slog.Logger
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	return &Collector{
		eventCh:    make(chan MetricEvent, bufferSize),
		metrics:    NewMetrics(),
		prometheus: NewPrometheus(),
		logger:     logger,
	}
}

func (c *Collector) EventChannel() chan<- MetricEvent {
	return c.eventCh
}

// Emit queues event without blocking; it is dropped when the buffer is full.
// A nil collector ignores events.
func (c *Collector) Emit(event MetricEvent) {
	if c == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case c.eventCh <- event:
	default:
	}
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			// Drain remaining events before shutdown
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event MetricEvent) {
	switch event.Type {
	case EventRequestReceived:
		c.metrics.IncrementRequests(event.Strategy)

	case EventResponseCompleted:
		c.metrics.RecordResponse(event.Strategy, event.Duration, event.StatusCode)
		c.prometheus.observeResponse(event.Strategy, event.StatusCode, event.Duration)

	case EventRequestFailed:
		c.metrics.RecordFailure(event.Strategy, event.ErrorKind)
		c.prometheus.failures.WithLabelValues(event.Strategy, event.ErrorKind).Inc()

	case EventHealthChanged:
		c.metrics.UpdateHealthStatus(event.Healthy)
		c.prometheus.setHealthy(event.Healthy)

	case EventPostsPublished:
		c.metrics.AddPublished(event.Count)
		c.prometheus.published.Add(float64(event.Count))
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

func (c *Collector) Snapshot(driver string) Snapshot {
	return c.metrics.Snapshot(driver)
}

func (c *Collector) Prometheus() *Prometheus {
	return c.prometheus
}
