package guarded_test

import (
	"context"
	"errors"
	"time"

	"github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/blog/internal/blog"
	"github.com/angeloszaimis/blog/internal/blog/mock"
	"github.com/angeloszaimis/blog/internal/circuitbreaker"
	"github.com/angeloszaimis/blog/internal/repository/guarded"
	"github.com/angeloszaimis/blog/internal/repository/memory"
	"github.com/angeloszaimis/blog/internal/repository/repositorytest"
)

var _ = Describe("Repository", func() {
	Context("over a memory repository", func() {
		repositorytest.ItBehavesLikeARepository(func() blog.Repository {
			return guarded.New(memory.New(), circuitbreaker.NewRegistry(3, time.Minute))
		})
	})

	Context("with a failing backend", func() {
		var (
			ctx      context.Context
			next     *mock.MockRepository
			breakers *circuitbreaker.Registry
			repo     *guarded.Repository
			errDown  = errors.New("connection refused")
		)

		BeforeEach(func() {
			ctx = context.Background()
			next = mock.NewMockRepository(gomock.NewController(GinkgoT()))
			breakers = circuitbreaker.NewRegistry(2, time.Minute)
			repo = guarded.New(next, breakers)
		})

		It("should pass backend errors through until the breaker opens", func() {
			next.EXPECT().ListPosts(ctx).Return(nil, errDown).Times(2)

			_, err := repo.ListPosts(ctx)
			Expect(err).To(MatchError(errDown))
			_, err = repo.ListPosts(ctx)
			Expect(err).To(MatchError(errDown))

			_, err = repo.ListPosts(ctx)
			Expect(err).To(MatchError(blog.ErrUnavailable))
			Expect(breakers.Stats()).To(HaveKeyWithValue("ListPosts", circuitbreaker.StateOpen))
		})

		It("should keep one breaker per operation", func() {
			next.EXPECT().ListPosts(ctx).Return(nil, errDown).Times(2)
			next.EXPECT().GetPost(ctx, int64(1)).Return(blog.Post{ID: 1}, nil)

			_, _ = repo.ListPosts(ctx)
			_, _ = repo.ListPosts(ctx)

			post, err := repo.GetPost(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(post.ID).To(Equal(int64(1)))
		})

		It("should not count not-found errors as failures", func() {
			next.EXPECT().GetPost(ctx, int64(9)).Return(blog.Post{}, blog.ErrPostNotFound).Times(5)

			for i := 0; i < 5; i++ {
				_, err := repo.GetPost(ctx, 9)
				Expect(err).To(MatchError(blog.ErrPostNotFound))
			}
			Expect(breakers.Stats()).To(HaveKeyWithValue("GetPost", circuitbreaker.StateClosed))
		})

		It("should let Ping through while a breaker is open", func() {
			next.EXPECT().DeletePost(ctx, int64(1)).Return(errDown).Times(2)
			next.EXPECT().Ping(ctx).Return(nil)

			_ = repo.DeletePost(ctx, 1)
			_ = repo.DeletePost(ctx, 1)
			Expect(repo.DeletePost(ctx, 1)).To(MatchError(blog.ErrUnavailable))

			Expect(repo.Ping(ctx)).To(Succeed())
		})
	})
})
