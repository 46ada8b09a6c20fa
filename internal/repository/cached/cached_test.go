package cached_test

import (
	"context"
	"errors"
	"time"

	"github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/blog/internal/blog"
	"github.com/angeloszaimis/blog/internal/blog/mock"
	"github.com/angeloszaimis/blog/internal/repository/cached"
	"github.com/angeloszaimis/blog/internal/repository/memory"
	"github.com/angeloszaimis/blog/internal/repository/repositorytest"
)

var _ = Describe("Repository", func() {
	Context("over a memory repository", func() {
		repositorytest.ItBehavesLikeARepository(func() blog.Repository {
			return cached.New(memory.New(), time.Minute)
		})
	})

	Context("with a mocked backend", func() {
		var (
			ctx  context.Context
			ctrl *gomock.Controller
			next *mock.MockRepository
			repo *cached.Repository
		)

		BeforeEach(func() {
			ctx = context.Background()
			ctrl = gomock.NewController(GinkgoT())
			next = mock.NewMockRepository(ctrl)
			repo = cached.New(next, time.Minute)
		})

		It("should serve repeated ListPosts calls from the cache", func() {
			next.EXPECT().ListPosts(ctx).Return([]blog.Post{{ID: 1, Title: "a"}}, nil).Times(1)

			for i := 0; i < 3; i++ {
				posts, err := repo.ListPosts(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(posts).To(HaveLen(1))
			}
		})

		It("should not let callers modify the cached list", func() {
			next.EXPECT().ListPosts(ctx).Return([]blog.Post{{ID: 1, Title: "a"}}, nil).Times(1)

			posts, err := repo.ListPosts(ctx)
			Expect(err).NotTo(HaveOccurred())
			posts[0].Title = "changed"

			posts, err = repo.ListPosts(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(posts[0].Title).To(Equal("a"))
		})

		It("should not cache errors", func() {
			boom := errors.New("boom")
			gomock.InOrder(
				next.EXPECT().GetPost(ctx, int64(1)).Return(blog.Post{}, boom),
				next.EXPECT().GetPost(ctx, int64(1)).Return(blog.Post{ID: 1}, nil),
			)

			_, err := repo.GetPost(ctx, 1)
			Expect(err).To(MatchError(boom))

			post, err := repo.GetPost(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(post.ID).To(Equal(int64(1)))
		})

		It("should invalidate the post and the list on update", func() {
			next.EXPECT().GetPost(ctx, int64(1)).Return(blog.Post{ID: 1, Title: "old"}, nil).Times(2)
			next.EXPECT().ListPosts(ctx).Return([]blog.Post{{ID: 1}}, nil).Times(2)
			next.EXPECT().UpdatePost(ctx, gomock.Any()).Return(blog.Post{ID: 1, Title: "new"}, nil)

			_, _ = repo.GetPost(ctx, 1)
			_, _ = repo.ListPosts(ctx)

			_, err := repo.UpdatePost(ctx, blog.Post{ID: 1, Title: "new"})
			Expect(err).NotTo(HaveOccurred())

			_, _ = repo.GetPost(ctx, 1)
			_, _ = repo.ListPosts(ctx)
		})

		It("should invalidate comments when one is added", func() {
			next.EXPECT().ListComments(ctx, int64(1)).Return([]blog.Comment{}, nil).Times(2)
			next.EXPECT().AddComment(ctx, gomock.Any()).Return(blog.Comment{ID: 5, PostID: 1}, nil)

			_, _ = repo.ListComments(ctx, 1)
			_, err := repo.AddComment(ctx, blog.Comment{PostID: 1, Author: "a", Body: "b"})
			Expect(err).NotTo(HaveOccurred())
			_, _ = repo.ListComments(ctx, 1)
		})

		It("should flush everything when PublishDue publishes posts", func() {
			now := time.Now()
			next.EXPECT().ListPosts(ctx).Return([]blog.Post{}, nil).Times(2)
			next.EXPECT().PublishDue(ctx, now).Return(1, nil)

			_, _ = repo.ListPosts(ctx)
			Expect(repo.PublishDue(ctx, now)).To(Equal(1))
			_, _ = repo.ListPosts(ctx)
		})

		It("should keep the cache when PublishDue publishes nothing", func() {
			now := time.Now()
			next.EXPECT().ListPosts(ctx).Return([]blog.Post{}, nil).Times(1)
			next.EXPECT().PublishDue(ctx, now).Return(0, nil)

			_, _ = repo.ListPosts(ctx)
			Expect(repo.PublishDue(ctx, now)).To(Equal(0))
			_, _ = repo.ListPosts(ctx)
		})
	})
})
