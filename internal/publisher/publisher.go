// Package publisher runs the scheduled-post job. On every cron tick it
// asks the repository to publish drafts whose publish time has passed.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/angeloszaimis/blog/internal/metrics"
)

const runTimeout = 30 * time.Second

// Publishable is the part of blog.Repository the job needs.
type Publishable interface {
	PublishDue(ctx context.Context, now time.Time) (int, error)
}

type Publisher struct {
	repo      Publishable
	cron      *cron.Cron
	logger    *slog.Logger
	collector *metrics.Collector
	now       func() time.Time
}

// New schedules the job with a standard cron spec or a descriptor such as
// "@every 1m". The collector may be nil.
func New(repo Publishable, schedule string, logger *slog.Logger, collector *metrics.Collector) (*Publisher, error) {
	p := &Publisher{
		repo:      repo,
		cron:      cron.New(),
		logger:    logger,
		collector: collector,
		now:       time.Now,
	}

	if _, err := p.cron.AddFunc(schedule, p.run); err != nil {
		return nil, fmt.Errorf("invalid publisher schedule %q: %w", schedule, err)
	}

	return p, nil
}

// RunOnce publishes everything due now.
func (p *Publisher) RunOnce(ctx context.Context) (int, error) {
	n, err := p.repo.PublishDue(ctx, p.now())
	if err != nil {
		return n, err
	}

	if n > 0 {
		p.logger.Info("Published scheduled posts", slog.Int("count", n))
		p.collector.Emit(metrics.MetricEvent{
			Type:  metrics.EventPostsPublished,
			Count: n,
		})
	}

	return n, nil
}

func (p *Publisher) run() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	if _, err := p.RunOnce(ctx); err != nil {
		p.logger.Error("Publishing scheduled posts failed", slog.Any("error", err))
	}
}

func (p *Publisher) Start() {
	p.logger.Info("Publisher started")
	p.cron.Start()
}

// Stop halts the schedule and waits for a running job, or for ctx.
func (p *Publisher) Stop(ctx context.Context) error {
	done := p.cron.Stop().Done()

	select {
	case <-done:
		p.logger.Info("Publisher stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("publisher stop: %w", ctx.Err())
	}
}
