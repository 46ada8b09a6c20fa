package metrics_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/blog/internal/metrics"
)

var _ = Describe("Prometheus", func() {
	var (
		collector *metrics.Collector
		cancel    context.CancelFunc
	)

	BeforeEach(func() {
		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		collector = metrics.NewCollector(10, slog.New(slog.NewTextHandler(io.Discard, nil)))
		collector.Start(ctx)
	})

	AfterEach(func() {
		cancel()
	})

	It("should export request counters labelled by strategy and code", func() {
		collector.Emit(metrics.MetricEvent{
			Type:       metrics.EventResponseCompleted,
			Strategy:   "show-post",
			StatusCode: 404,
			Duration:   time.Millisecond,
		})

		expected := `
# HELP blog_http_requests_total Total number of requests handled, by strategy and status code
# TYPE blog_http_requests_total counter
blog_http_requests_total{code="404",strategy="show-post"} 1
`
		Eventually(func() error {
			return testutil.GatherAndCompare(collector.Prometheus().Registry(),
				strings.NewReader(expected), "blog_http_requests_total")
		}).Should(Succeed())
	})

	It("should export repository health as a gauge", func() {
		collector.Emit(metrics.MetricEvent{Type: metrics.EventHealthChanged, Healthy: true})

		Eventually(func() (int, error) {
			return testutil.GatherAndCount(collector.Prometheus().Registry(), "blog_repository_up")
		}).Should(Equal(1))
	})

	It("should serve the exposition format", func() {
		collector.Emit(metrics.MetricEvent{Type: metrics.EventPostsPublished, Count: 2})
		Eventually(func() int64 { return collector.Snapshot("memory").PostsPublished }).Should(Equal(int64(2)))

		rec := httptest.NewRecorder()
		collector.Prometheus().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("blog_posts_published_total 2"))
	})

	It("should keep separate registries per collector", func() {
		Expect(func() {
			metrics.NewPrometheus()
			metrics.NewPrometheus()
		}).NotTo(Panic())
	})
})
