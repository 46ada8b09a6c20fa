package healthcheck

import (
	"context"
	"log/slog"
	"time"

	"github.com/angeloszaimis/blog/internal/metrics"
)

const pingTimeout = 5 * time.Second

// Pinger is the part of blog.Repository the checker needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthCheck pings the repository once right away and then on every tick
// until ctx is done. Transitions are logged and reported to the collector,
// which may be nil.
func HealthCheck(
	ctx context.Context,
	repo Pinger,
	status *Status,
	interval time.Duration,
	logger *slog.Logger,
	collector *metrics.Collector,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	check(ctx, repo, status, logger, collector)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Health check stopped")
			return

		case <-ticker.C:
			check(ctx, repo, status, logger, collector)
		}
	}
}

func check(ctx context.Context, repo Pinger, status *Status, logger *slog.Logger, collector *metrics.Collector) {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	err := repo.Ping(pingCtx)
	if ctx.Err() != nil {
		return
	}

	healthy := err == nil
	if !status.Set(healthy, err, time.Now()) {
		return
	}

	if healthy {
		logger.Info("Repository is back up")
	} else {
		logger.Warn("Repository is down", slog.Any("error", err))
	}

	collector.Emit(metrics.MetricEvent{
		Type:    metrics.EventHealthChanged,
		Healthy: healthy,
	})
}
