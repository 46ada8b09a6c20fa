// Package metrics collects request metrics for the blog server.
//
// Events travel over a buffered channel to a collector goroutine that
// keeps:
//   - request counts per strategy
//   - response times with percentiles (P50, P95, P99)
//   - status codes and failure kinds per strategy
//   - repository health and the number of posts published by schedule
//
// The same events feed Prometheus collectors registered on a dedicated
// registry, served at /metrics. /stats serves the JSON snapshot.
//
// Example usage:
//
//	collector := metrics.NewCollector(1000, logger)
//	collector.Start(ctx)
//
//	collector.Emit(metrics.MetricEvent{
//		Type:       metrics.EventResponseCompleted,
//		Strategy:   "show-post",
//		Duration:   15 * time.Millisecond,
//		StatusCode: 200,
//	})
//
//	snapshot := collector.Snapshot("sqlite")
//
// Emit never blocks; events are dropped when the buffer is full. On
// shutdown the collector drains what is left in the channel.
package metrics
