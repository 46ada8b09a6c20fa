package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/angeloszaimis/blog/internal/blog"
	"github.com/angeloszaimis/blog/internal/metrics"
	"github.com/angeloszaimis/blog/internal/strategy"
)

// Error kinds reported with EventRequestFailed.
const (
	KindProcessing  = "processing"
	KindUnavailable = "unavailable"
	KindIO          = "io"
	KindInternal    = "internal"
)

// StrategyHandler serves one named strategy and turns its errors into
// responses.
type StrategyHandler struct {
	logger           *slog.Logger
	name             string
	strategy         strategy.Strategy
	metricsCollector *metrics.Collector
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func NewStrategyHandler(logger *slog.Logger, name string, s strategy.Strategy, collector *metrics.Collector) *StrategyHandler {
	return &StrategyHandler{
		logger:           logger.With(slog.String("strategy", name)),
		name:             name,
		strategy:         s,
		metricsCollector: collector,
	}
}

func (h *StrategyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	clientIP := ClientIP(r)

	h.logger.Info("Received request",
		slog.String("from", clientIP),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("user_agent", r.UserAgent()))

	h.metricsCollector.Emit(metrics.MetricEvent{
		Type:     metrics.EventRequestReceived,
		Strategy: h.name,
	})

	start := time.Now()
	wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

	if err := h.strategy.Handle(wrapped, r); err != nil {
		kind := h.fail(wrapped, r, err)
		h.metricsCollector.Emit(metrics.MetricEvent{
			Type:      metrics.EventRequestFailed,
			Strategy:  h.name,
			ErrorKind: kind,
		})
	}

	h.metricsCollector.Emit(metrics.MetricEvent{
		Type:       metrics.EventResponseCompleted,
		Strategy:   h.name,
		Duration:   time.Since(start),
		StatusCode: wrapped.statusCode,
	})
}

// fail writes the response for err and returns its kind.
func (h *StrategyHandler) fail(w *statusRecorder, r *http.Request, err error) string {
	var (
		ioErr   *strategy.IOError
		procErr *strategy.ProcessingError
	)

	switch {
	case errors.As(err, &ioErr):
		h.logger.Warn("Response write failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		return KindIO

	case errors.As(err, &procErr):
		level := slog.LevelInfo
		if procErr.Status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "Request not completed",
			slog.String("path", r.URL.Path),
			slog.Int("status", procErr.Status),
			slog.Any("error", err))
		h.writeError(w, procErr.Status, procErr.Message)
		return KindProcessing

	case errors.Is(err, blog.ErrUnavailable):
		h.logger.Warn("Repository unavailable", slog.String("path", r.URL.Path), slog.Any("error", err))
		h.writeError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
		return KindUnavailable

	default:
		h.logger.Error("Request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return KindInternal
	}
}

// writeError is a no-op once the strategy has started the response.
func (h *StrategyHandler) writeError(w *statusRecorder, status int, message string) {
	if w.wroteHeader {
		return
	}
	http.Error(w, message, status)
}


func (r *statusRecorder) WriteHeader(code int) {
	if r.wroteHeader {
		return
	}
	r.statusCode = code
	r.wroteHeader = true
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	return r.ResponseWriter.Write(b)
}
