package router_test

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gorilla/mux"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/blog/internal/auth"
	"github.com/angeloszaimis/blog/internal/circuitbreaker"
	"github.com/angeloszaimis/blog/internal/handler"
	"github.com/angeloszaimis/blog/internal/healthcheck"
	"github.com/angeloszaimis/blog/internal/metrics"
	"github.com/angeloszaimis/blog/internal/ratelimit"
	"github.com/angeloszaimis/blog/internal/router"
	"github.com/angeloszaimis/blog/internal/strategy"
)

// echo answers with the route name and its path variables.
func echo(name string) strategy.Strategy {
	return strategy.Func(func(w http.ResponseWriter, r *http.Request) error {
		vars := mux.Vars(r)
		_, err := io.WriteString(w, name+" "+vars["id"]+" "+vars["cid"])
		return err
	})
}

func echoAll() map[string]strategy.Strategy {
	strategies := map[string]strategy.Strategy{}
	for _, route := range router.Routes {
		strategies[route.Name] = echo(route.Name)
	}
	return strategies
}

var _ = Describe("Router", func() {
	var (
		logger    *slog.Logger
		collector *metrics.Collector
		deps      router.Dependencies
		cancel    context.CancelFunc
		h         http.Handler
	)

	BeforeEach(func() {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		collector = metrics.NewCollector(100, logger)

		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		collector.Start(ctx)

		hash, err := auth.HashPassword("s3cret")
		Expect(err).NotTo(HaveOccurred())

		status := healthcheck.NewStatus()
		status.Set(true, nil, time.Now())

		deps = router.Dependencies{
			Logger:    logger,
			Collector: collector,
			Auth:      auth.NewBasicAuth("admin", hash, logger),
			Limiter:   ratelimit.New(60, 2),
			Health:    status,
			Driver:    "memory",
			Breakers:  circuitbreaker.NewRegistry(1, time.Minute),
		}

		h, err = router.New(echoAll(), deps)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		cancel()
	})

	serve := func(req *http.Request) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	admin := func(method, path string) *http.Request {
		req := httptest.NewRequest(method, path, nil)
		req.SetBasicAuth("admin", "s3cret")
		return req
	}

	Describe("New", func() {
		It("should fail when a route has no strategy", func() {
			strategies := echoAll()
			delete(strategies, router.Feed)

			_, err := router.New(strategies, deps)
			Expect(err).To(MatchError(ContainSubstring(`"feed"`)))
		})

		It("should fail without an authenticator", func() {
			deps.Auth = nil

			_, err := router.New(echoAll(), deps)
			Expect(err).To(HaveOccurred())
		})
	})

	DescribeTable("public routes",
		func(method, path, expected string) {
			rec := serve(httptest.NewRequest(method, path, nil))

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(Equal(expected))
		},
		Entry("home", http.MethodGet, "/", "list-posts  "),
		Entry("post index", http.MethodGet, "/posts", "list-posts  "),
		Entry("post", http.MethodGet, "/posts/7", "show-post 7 "),
		Entry("comment", http.MethodPost, "/posts/7/comments", "create-comment 7 "),
		Entry("feed", http.MethodGet, "/feed.xml", "feed  "),
	)

	DescribeTable("admin routes",
		func(method, path, expected string) {
			Expect(serve(httptest.NewRequest(method, path, nil)).Code).To(Equal(http.StatusUnauthorized))

			rec := serve(admin(method, path))
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(Equal(expected))
		},
		Entry("new post", http.MethodGet, "/admin/posts/new", "new-post  "),
		Entry("create post", http.MethodPost, "/admin/posts", "create-post  "),
		Entry("edit post", http.MethodGet, "/admin/posts/3/edit", "edit-post 3 "),
		Entry("update post", http.MethodPost, "/admin/posts/3", "update-post 3 "),
		Entry("delete post", http.MethodPost, "/admin/posts/3/delete", "delete-post 3 "),
		Entry("delete comment", http.MethodPost, "/admin/posts/3/comments/9/delete", "delete-comment 3 9"),
	)

	It("should answer 404 for unknown paths and non-numeric ids", func() {
		Expect(serve(httptest.NewRequest(http.MethodGet, "/nope", nil)).Code).To(Equal(http.StatusNotFound))
		Expect(serve(httptest.NewRequest(http.MethodGet, "/posts/abc", nil)).Code).To(Equal(http.StatusNotFound))
	})

	It("should answer 405 for the wrong method", func() {
		Expect(serve(httptest.NewRequest(http.MethodDelete, "/posts/1", nil)).Code).To(Equal(http.StatusMethodNotAllowed))
	})

	It("should rate limit comments per client", func() {
		post := func(ip string) int {
			req := httptest.NewRequest(http.MethodPost, "/posts/1/comments", nil)
			req.RemoteAddr = ip + ":5555"
			return serve(req).Code
		}

		Expect(post("10.0.0.1")).To(Equal(http.StatusOK))
		Expect(post("10.0.0.1")).To(Equal(http.StatusOK))
		Expect(post("10.0.0.1")).To(Equal(http.StatusTooManyRequests))
		Expect(post("10.0.0.2")).To(Equal(http.StatusOK))
	})

	It("should not let a client dodge the comment limit with forged headers", func() {
		accepted := 0
		for i := 0; i < 20; i++ {
			req := httptest.NewRequest(http.MethodPost, "/posts/1/comments", nil)
			req.RemoteAddr = "203.0.113.9:4000"
			req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
			if serve(req).Code == http.StatusOK {
				accepted++
			}
		}

		Expect(accepted).To(Equal(2))
		Expect(deps.Limiter.Len()).To(Equal(1))
	})

	It("should key comments on the forwarded client behind a trusted proxy", func() {
		proxies, err := handler.ParseTrustedProxies([]string{"10.0.0.0/8"})
		Expect(err).NotTo(HaveOccurred())
		deps.Proxies = proxies

		h, err = router.New(echoAll(), deps)
		Expect(err).NotTo(HaveOccurred())

		post := func(client string) int {
			req := httptest.NewRequest(http.MethodPost, "/posts/1/comments", nil)
			req.RemoteAddr = "10.0.0.1:5555"
			req.Header.Set("X-Forwarded-For", client)
			return serve(req).Code
		}

		Expect(post("198.51.100.1")).To(Equal(http.StatusOK))
		Expect(post("198.51.100.1")).To(Equal(http.StatusOK))
		Expect(post("198.51.100.1")).To(Equal(http.StatusTooManyRequests))
		Expect(post("198.51.100.2")).To(Equal(http.StatusOK))
	})

	It("should not rate limit reads", func() {
		for i := 0; i < 5; i++ {
			Expect(serve(httptest.NewRequest(http.MethodGet, "/posts/1", nil)).Code).To(Equal(http.StatusOK))
		}
	})

	It("should serve health", func() {
		rec := serve(httptest.NewRequest(http.MethodGet, "/health", nil))

		Expect(rec.Code).To(Equal(http.StatusOK))

		var report healthcheck.Report
		Expect(json.Unmarshal(rec.Body.Bytes(), &report)).To(Succeed())
		Expect(report.Status).To(Equal("ok"))
	})

	It("should report 503 health when the repository is down", func() {
		deps.Health.Set(false, errors.New("connection refused"), time.Now())

		Expect(serve(httptest.NewRequest(http.MethodGet, "/health", nil)).Code).To(Equal(http.StatusServiceUnavailable))
	})

	It("should expose Prometheus and JSON metrics", func() {
		serve(httptest.NewRequest(http.MethodGet, "/posts/1", nil))

		Eventually(func() int64 {
			return collector.Snapshot("memory").TotalRequests
		}).Should(Equal(int64(1)))

		rec := serve(httptest.NewRequest(http.MethodGet, "/metrics", nil))
		Expect(rec.Code).To(Equal(http.StatusOK))
		Eventually(func() string {
			return serve(httptest.NewRequest(http.MethodGet, "/metrics", nil)).Body.String()
		}).Should(ContainSubstring(`blog_http_requests_total{code="200",strategy="show-post"} 1`))

		var snap metrics.Snapshot
		rec = serve(httptest.NewRequest(http.MethodGet, "/stats", nil))
		Expect(json.Unmarshal(rec.Body.Bytes(), &snap)).To(Succeed())
		Expect(snap.Repository).To(Equal("memory"))
	})

	It("should report breaker states on /stats", func() {
		deps.Breakers.Breaker("ListPosts").RecordFailure()

		var snap metrics.Snapshot
		rec := serve(httptest.NewRequest(http.MethodGet, "/stats", nil))
		Expect(json.Unmarshal(rec.Body.Bytes(), &snap)).To(Succeed())
		Expect(snap.Breakers).To(HaveKeyWithValue("ListPosts", "OPEN"))
	})

	It("should recover from panicking strategies", func() {
		strategies := echoAll()
		strategies[router.Feed] = strategy.Func(func(w http.ResponseWriter, r *http.Request) error {
			panic("boom")
		})

		var err error
		h, err = router.New(strategies, deps)
		Expect(err).NotTo(HaveOccurred())

		Expect(serve(httptest.NewRequest(http.MethodGet, "/feed.xml", nil)).Code).To(Equal(http.StatusInternalServerError))
	})

	It("should compress responses when asked", func() {
		req := httptest.NewRequest(http.MethodGet, "/posts/42", nil)
		req.Header.Set("Accept-Encoding", "gzip")

		rec := serve(req)
		Expect(rec.Header().Get("Content-Encoding")).To(Equal("gzip"))

		zr, err := gzip.NewReader(rec.Body)
		Expect(err).NotTo(HaveOccurred())
		body, err := io.ReadAll(zr)
		Expect(err).NotTo(HaveOccurred())
		Expect(strings.TrimSpace(string(body))).To(Equal("show-post 42"))
	})
})
