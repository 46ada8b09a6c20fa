package publisher_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/blog/internal/blog"
	"github.com/angeloszaimis/blog/internal/metrics"
	"github.com/angeloszaimis/blog/internal/publisher"
	"github.com/angeloszaimis/blog/internal/repository/memory"
)

type countingRepo struct {
	calls atomic.Int32
	err   error
}

func (r *countingRepo) PublishDue(ctx context.Context, now time.Time) (int, error) {
	r.calls.Add(1)
	return 0, r.err
}

var _ = Describe("Publisher", func() {
	var (
		ctx    context.Context
		logger *slog.Logger
	)

	BeforeEach(func() {
		ctx = context.Background()
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	})

	Describe("New", func() {
		It("should reject an invalid schedule", func() {
			p, err := publisher.New(&countingRepo{}, "every minute please", logger, nil)

			Expect(err).To(HaveOccurred())
			Expect(p).To(BeNil())
		})
	})

	Describe("RunOnce", func() {
		It("should publish due drafts and report them", func() {
			repo := memory.New()
			past := time.Now().Add(-time.Hour)
			future := time.Now().Add(time.Hour)

			due, err := repo.CreatePost(ctx, blog.Post{Title: "Due", Body: "b", Author: "a", Draft: true, PublishAt: past})
			Expect(err).NotTo(HaveOccurred())
			_, err = repo.CreatePost(ctx, blog.Post{Title: "Later", Body: "b", Author: "a", Draft: true, PublishAt: future})
			Expect(err).NotTo(HaveOccurred())

			collector := metrics.NewCollector(10, logger)
			cctx, cancel := context.WithCancel(ctx)
			defer cancel()
			collector.Start(cctx)

			p, err := publisher.New(repo, "@every 1h", logger, collector)
			Expect(err).NotTo(HaveOccurred())

			n, err := p.RunOnce(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(1))

			posts, err := repo.ListPosts(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(posts).To(HaveLen(1))
			Expect(posts[0].ID).To(Equal(due.ID))

			Eventually(func() int64 { return collector.Snapshot("memory").PostsPublished }).Should(Equal(int64(1)))
		})

		It("should return repository errors", func() {
			p, err := publisher.New(&countingRepo{err: blog.ErrUnavailable}, "@every 1h", logger, nil)
			Expect(err).NotTo(HaveOccurred())

			_, err = p.RunOnce(ctx)
			Expect(errors.Is(err, blog.ErrUnavailable)).To(BeTrue())
		})
	})

	Describe("Start and Stop", func() {
		It("should run the job on schedule until stopped", func() {
			repo := &countingRepo{}
			p, err := publisher.New(repo, "@every 1s", logger, nil)
			Expect(err).NotTo(HaveOccurred())

			p.Start()
			Eventually(repo.calls.Load, 3*time.Second, 100*time.Millisecond).Should(BeNumerically(">=", 1))

			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			Expect(p.Stop(stopCtx)).To(Succeed())
		})
	})
})
