package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/hashicorp/go-multierror"

	"github.com/angeloszaimis/blog/config"
	"github.com/angeloszaimis/blog/internal/auth"
	"github.com/angeloszaimis/blog/internal/blog"
	"github.com/angeloszaimis/blog/internal/circuitbreaker"
	"github.com/angeloszaimis/blog/internal/handler"
	"github.com/angeloszaimis/blog/internal/healthcheck"
	"github.com/angeloszaimis/blog/internal/httpserver"
	"github.com/angeloszaimis/blog/internal/metrics"
	"github.com/angeloszaimis/blog/internal/publisher"
	"github.com/angeloszaimis/blog/internal/ratelimit"
	"github.com/angeloszaimis/blog/internal/repository/cached"
	"github.com/angeloszaimis/blog/internal/repository/guarded"
	"github.com/angeloszaimis/blog/internal/repository/memory"
	redisrepo "github.com/angeloszaimis/blog/internal/repository/redis"
	"github.com/angeloszaimis/blog/internal/repository/sqlite"
	"github.com/angeloszaimis/blog/internal/router"
	"github.com/angeloszaimis/blog/internal/strategy"
	"github.com/angeloszaimis/blog/internal/view"
	"github.com/angeloszaimis/blog/pkg/logger"
)

const (
	metricsBufferSize = 1000
	shutdownTimeout   = 15 * time.Second
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "hash-password" {
		if err := hashPassword(os.Args[2:], os.Stdin, os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	breakers := circuitbreaker.NewRegistry(cfg.Repository.Breaker.Threshold, config.Duration(cfg.Repository.Breaker.ResetTimeout))

	repo, err := openRepository(ctx, cfg.Repository, breakers)
	if err != nil {
		log.Error("Failed to open repository",
			slog.String("driver", cfg.Repository.Driver),
			slog.Any("err", err))
		os.Exit(1)
	}

	views, err := view.New()
	if err != nil {
		log.Error("Failed to load views", slog.Any("err", err))
		os.Exit(1)
	}

	strategies, err := createStrategies(repo, views, siteFromConfig(cfg.Site))
	if err != nil {
		log.Error("Failed to create strategies", slog.Any("err", err))
		os.Exit(1)
	}

	collector := metrics.NewCollector(metricsBufferSize, log)
	collector.Start(ctx)

	status := healthcheck.NewStatus()
	go healthcheck.HealthCheck(ctx, repo, status, config.Duration(cfg.HealthCheck.Interval), log, collector)

	pub, err := publisher.New(repo, cfg.Publisher.Schedule, log, collector)
	if err != nil {
		log.Error("Failed to create publisher", slog.Any("err", err))
		os.Exit(1)
	}
	pub.Start()

	limiter := ratelimit.New(cfg.Comments.RatePerMinute, cfg.Comments.Burst)
	go limiter.Run(ctx, ratelimit.DefaultSweepInterval)

	if cfg.Admin.PasswordHash == "" {
		log.Warn("admin.password_hash is not set, the admin area is locked")
	}

	proxies, err := handler.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		log.Error("Failed to parse trusted proxies", slog.Any("err", err))
		os.Exit(1)
	}

	root, err := router.New(strategies, router.Dependencies{
		Logger:    log,
		Collector: collector,
		Auth:      auth.NewBasicAuth(cfg.Admin.Username, cfg.Admin.PasswordHash, log),
		Limiter:   limiter,
		Health:    status,
		Driver:    cfg.Repository.Driver,
		Breakers:  breakers,
		Proxies:   proxies,
	})
	if err != nil {
		log.Error("Failed to create router", slog.Any("err", err))
		os.Exit(1)
	}

	srv, err := httpserver.New(cfg.Server.Address, root, cfg.Server.Timeouts())
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)

	go func() {
		log.Info("Blog listening",
			slog.String("addr", srv.Addr()),
			slog.String("driver", cfg.Repository.Driver))
		srvErrCh <- srv.Start()
	}()

	exitCode := 0

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting blog server", slog.Any("err", err))
			exitCode = 1
		}
		cancel()
	}

	if err := shutdown(srv, pub, repo); err != nil {
		log.Error("Error during shutdown", slog.Any("err", err))
		exitCode = 1
	}

	os.Exit(exitCode)
}

// openRepository opens the configured driver and layers the circuit
// breakers and, when cache_ttl is set, the read cache on top of it.
func openRepository(ctx context.Context, cfg config.RepositoryConfig, breakers *circuitbreaker.Registry) (blog.Repository, error) {
	var repo blog.Repository

	switch cfg.Driver {
	case config.DriverMemory:
		repo = memory.New()
	case config.DriverSQLite:
		r, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.SQLite.Path, err)
		}
		repo = r
	case config.DriverRedis:
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		repo = redisrepo.New(client)
	default:
		return nil, fmt.Errorf("unknown repository driver %q", cfg.Driver)
	}

	repo = guarded.New(repo, breakers)

	if ttl := config.Duration(cfg.CacheTTL); ttl > 0 {
		repo = cached.New(repo, ttl)
	}

	return repo, nil
}

func createStrategies(repo blog.Repository, views strategy.Renderer, site strategy.Site) (map[string]strategy.Strategy, error) {
	constructors := map[string]func() (strategy.Strategy, error){
		router.ListPosts: func() (strategy.Strategy, error) { return strategy.NewListPostsStrategy(repo, views) },
		router.ShowPost:  func() (strategy.Strategy, error) { return strategy.NewShowPostStrategy(repo, views) },
		router.NewPost:   func() (strategy.Strategy, error) { return strategy.NewNewPostStrategy(repo, views) },
		router.CreatePost: func() (strategy.Strategy, error) {
			return strategy.NewCreatePostStrategy(repo, views)
		},
		router.EditPost: func() (strategy.Strategy, error) { return strategy.NewEditPostStrategy(repo, views) },
		router.UpdatePost: func() (strategy.Strategy, error) {
			return strategy.NewUpdatePostStrategy(repo, views)
		},
		router.DeletePost: func() (strategy.Strategy, error) { return strategy.NewDeletePostStrategy(repo) },
		router.CreateComment: func() (strategy.Strategy, error) {
			return strategy.NewCreateCommentStrategy(repo, views)
		},
		router.DeleteComment: func() (strategy.Strategy, error) { return strategy.NewDeleteCommentStrategy(repo) },
		router.Feed:          func() (strategy.Strategy, error) { return strategy.NewFeedStrategy(repo, views, site) },
	}

	strategies := make(map[string]strategy.Strategy, len(constructors))
	for name, newStrategy := range constructors {
		s, err := newStrategy()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		strategies[name] = s
	}

	return strategies, nil
}

func siteFromConfig(cfg config.SiteConfig) strategy.Site {
	return strategy.Site{
		Title:       cfg.Title,
		Description: cfg.Description,
		BaseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		Author:      cfg.Author,
	}
}

type stopper interface {
	Stop(ctx context.Context) error
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// shutdown stops the server, the publisher and the repository in that
// order and reports every failure.
func shutdown(srv shutdowner, pub stopper, repo io.Closer) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var result *multierror.Error

	if err := srv.Shutdown(ctx); err != nil {
		result = multierror.Append(result, fmt.Errorf("http server: %w", err))
	}
	if err := pub.Stop(ctx); err != nil {
		result = multierror.Append(result, err)
	}
	if err := repo.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("repository: %w", err))
	}

	return result.ErrorOrNil()
}

// hashPassword prints the bcrypt hash of the password given as argument,
// or read from the first line of in.
func hashPassword(args []string, in io.Reader, out io.Writer) error {
	var password string

	if len(args) > 0 {
		password = args[0]
	} else {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		password = strings.TrimRight(line, "\r\n")
	}

	if password == "" {
		return errors.New("usage: blog hash-password <password>")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(out, hash)
	return err
}
