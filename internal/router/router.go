// Package router maps blog routes to strategies and assembles the HTTP
// handler tree with gorilla/mux. Admin routes sit behind basic auth, the
// comment route behind the per-client rate limiter, and the whole tree
// behind panic recovery and response compression.
package router

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/angeloszaimis/blog/internal/auth"
	"github.com/angeloszaimis/blog/internal/circuitbreaker"
	"github.com/angeloszaimis/blog/internal/handler"
	"github.com/angeloszaimis/blog/internal/healthcheck"
	"github.com/angeloszaimis/blog/internal/metrics"
	"github.com/angeloszaimis/blog/internal/ratelimit"
	"github.com/angeloszaimis/blog/internal/strategy"
)

// Strategy names. They label logs and metrics.
const (
	ListPosts     = "list-posts"
	ShowPost      = "show-post"
	NewPost       = "new-post"
	CreatePost    = "create-post"
	EditPost      = "edit-post"
	UpdatePost    = "update-post"
	DeletePost    = "delete-post"
	CreateComment = "create-comment"
	DeleteComment = "delete-comment"
	Feed          = "feed"
)

type Route struct {
	Name    string
	Method  string
	Path    string
	Admin   bool
	Limited bool
}

var Routes = []Route{
	{Name: ListPosts, Method: http.MethodGet, Path: "/"},
	{Name: ListPosts, Method: http.MethodGet, Path: "/posts"},
	{Name: ShowPost, Method: http.MethodGet, Path: "/posts/{id:[0-9]+}"},
	{Name: CreateComment, Method: http.MethodPost, Path: "/posts/{id:[0-9]+}/comments", Limited: true},
	{Name: Feed, Method: http.MethodGet, Path: "/feed.xml"},
	{Name: NewPost, Method: http.MethodGet, Path: "/admin/posts/new", Admin: true},
	{Name: CreatePost, Method: http.MethodPost, Path: "/admin/posts", Admin: true},
	{Name: EditPost, Method: http.MethodGet, Path: "/admin/posts/{id:[0-9]+}/edit", Admin: true},
	{Name: UpdatePost, Method: http.MethodPost, Path: "/admin/posts/{id:[0-9]+}", Admin: true},
	{Name: DeletePost, Method: http.MethodPost, Path: "/admin/posts/{id:[0-9]+}/delete", Admin: true},
	{Name: DeleteComment, Method: http.MethodPost, Path: "/admin/posts/{id:[0-9]+}/comments/{cid:[0-9]+}/delete", Admin: true},
}

// Dependencies are the collaborators shared by every route.
type Dependencies struct {
	Logger    *slog.Logger
	Collector *metrics.Collector
	Auth      *auth.BasicAuth
	Limiter   *ratelimit.Limiter
	Health    *healthcheck.Status
	Driver    string

	// Breakers is optional; its states are reported on /stats.
	Breakers *circuitbreaker.Registry

	// Proxies may report the client address used as the rate limit key.
	// Nil keys on the connection peer.
	Proxies *handler.TrustedProxies
}

// New builds the handler tree. Every name in Routes needs a strategy.
func New(strategies map[string]strategy.Strategy, deps Dependencies) (http.Handler, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("router: logger is required")
	}
	if deps.Collector == nil {
		return nil, fmt.Errorf("router: metrics collector is required")
	}
	if deps.Auth == nil {
		return nil, fmt.Errorf("router: admin authentication is required")
	}
	if deps.Limiter == nil {
		return nil, fmt.Errorf("router: comment rate limiter is required")
	}
	if deps.Health == nil {
		return nil, fmt.Errorf("router: health status is required")
	}

	r := mux.NewRouter()

	for _, route := range Routes {
		s, ok := strategies[route.Name]
		if !ok || s == nil {
			return nil, fmt.Errorf("router: no strategy for %q", route.Name)
		}

		var h http.Handler = handler.NewStrategyHandler(deps.Logger, route.Name, s, deps.Collector)
		if route.Limited {
			h = deps.Limiter.Middleware(deps.Proxies.ClientIP)(h)
		}
		if route.Admin {
			h = deps.Auth.Middleware(h)
		}

		r.Methods(route.Method).Path(route.Path).Handler(h)
	}

	r.Methods(http.MethodGet).Path("/health").Handler(healthcheck.Handler(deps.Health, deps.Logger))
	r.Methods(http.MethodGet).Path("/metrics").Handler(deps.Collector.Prometheus().Handler())
	r.Methods(http.MethodGet).Path("/stats").Handler(deps.Collector.Handler(deps.Driver, breakerStates(deps.Breakers)))

	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{deps.Logger}),
	)(handlers.CompressHandler(r)), nil
}

func breakerStates(registry *circuitbreaker.Registry) func() map[string]string {
	if registry == nil {
		return nil
	}

	return func() map[string]string {
		states := make(map[string]string)
		for name, state := range registry.Stats() {
			states[name] = state.String()
		}
		return states
	}
}

type recoveryLogger struct {
	logger *slog.Logger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.logger.Error("Recovered from panic", slog.String("panic", fmt.Sprint(v...)))
}
