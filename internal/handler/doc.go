// Package handler adapts request strategies to net/http.
//
// StrategyHandler logs each request, reports it to the metrics collector
// and translates the strategy's error into a response: a processing error
// carries its own status, an unavailable repository becomes 503, a write
// failure is only logged, and anything else becomes 500.
package handler
