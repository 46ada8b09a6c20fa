// Package repositorytest holds the behaviour every blog.Repository
// implementation shares, as Ginkgo specs.
package repositorytest

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/blog/internal/blog"
)

// ItBehavesLikeARepository registers the shared specs. newRepo is called
// once per spec and must return an empty repository.
func ItBehavesLikeARepository(newRepo func() blog.Repository) {
	var (
		ctx  context.Context
		repo blog.Repository
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = newRepo()
	})

	create := func(title string, draft bool) blog.Post {
		p, err := repo.CreatePost(ctx, blog.Post{Title: title, Body: "Body of " + title, Author: "ada", Draft: draft})
		Expect(err).NotTo(HaveOccurred())
		return p
	}

	Describe("CreatePost", func() {
		It("should assign an id and timestamps", func() {
			before := time.Now()
			p := create("First", false)

			Expect(p.ID).To(BeNumerically(">", 0))
			Expect(p.CreatedAt).To(BeTemporally("~", before, time.Second))
			Expect(p.UpdatedAt).To(BeTemporally("==", p.CreatedAt))
		})

		It("should assign distinct ids", func() {
			a := create("A", false)
			b := create("B", false)
			Expect(b.ID).NotTo(Equal(a.ID))
		})
	})

	Describe("GetPost", func() {
		It("should return the stored post", func() {
			p := create("Hello", true)

			got, err := repo.GetPost(ctx, p.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(p.ID))
			Expect(got.Title).To(Equal("Hello"))
			Expect(got.Body).To(Equal("Body of Hello"))
			Expect(got.Author).To(Equal("ada"))
			Expect(got.Draft).To(BeTrue())
			Expect(got.CreatedAt).To(BeTemporally("~", p.CreatedAt, time.Millisecond))
		})

		It("should return ErrPostNotFound for an unknown id", func() {
			_, err := repo.GetPost(ctx, 999)
			Expect(err).To(MatchError(blog.ErrPostNotFound))
		})
	})

	Describe("ListPosts", func() {
		It("should return an empty list when there are no posts", func() {
			posts, err := repo.ListPosts(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(posts).To(BeEmpty())
		})

		It("should return published posts newest first", func() {
			first := create("First", false)
			create("Draft", true)
			second := create("Second", false)

			posts, err := repo.ListPosts(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(posts).To(HaveLen(2))
			Expect(posts[0].ID).To(Equal(second.ID))
			Expect(posts[1].ID).To(Equal(first.ID))
		})
	})

	Describe("UpdatePost", func() {
		It("should replace the content and keep CreatedAt", func() {
			p := create("Old", true)

			p.Title = "New"
			p.Draft = false
			updated, err := repo.UpdatePost(ctx, p)
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.UpdatedAt).To(BeTemporally(">=", p.CreatedAt))

			got, err := repo.GetPost(ctx, p.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Title).To(Equal("New"))
			Expect(got.Draft).To(BeFalse())
			Expect(got.CreatedAt).To(BeTemporally("~", p.CreatedAt, time.Millisecond))
		})

		It("should return ErrPostNotFound for an unknown id", func() {
			_, err := repo.UpdatePost(ctx, blog.Post{ID: 42, Title: "x", Body: "y"})
			Expect(err).To(MatchError(blog.ErrPostNotFound))
		})
	})

	Describe("DeletePost", func() {
		It("should remove the post and its comments", func() {
			p := create("Doomed", false)
			_, err := repo.AddComment(ctx, blog.Comment{PostID: p.ID, Author: "bob", Body: "hi"})
			Expect(err).NotTo(HaveOccurred())

			Expect(repo.DeletePost(ctx, p.ID)).To(Succeed())

			_, err = repo.GetPost(ctx, p.ID)
			Expect(err).To(MatchError(blog.ErrPostNotFound))
			_, err = repo.ListComments(ctx, p.ID)
			Expect(err).To(MatchError(blog.ErrPostNotFound))
		})

		It("should return ErrPostNotFound for an unknown id", func() {
			Expect(repo.DeletePost(ctx, 7)).To(MatchError(blog.ErrPostNotFound))
		})
	})

	Describe("comments", func() {
		var post blog.Post

		BeforeEach(func() {
			post = create("Commented", false)
		})

		It("should list comments oldest first", func() {
			a, err := repo.AddComment(ctx, blog.Comment{PostID: post.ID, Author: "a", Body: "one"})
			Expect(err).NotTo(HaveOccurred())
			b, err := repo.AddComment(ctx, blog.Comment{PostID: post.ID, Author: "b", Body: "two"})
			Expect(err).NotTo(HaveOccurred())

			Expect(a.ID).To(BeNumerically(">", 0))
			Expect(a.PostID).To(Equal(post.ID))
			Expect(a.CreatedAt).NotTo(BeZero())

			comments, err := repo.ListComments(ctx, post.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(comments).To(HaveLen(2))
			Expect(comments[0].ID).To(Equal(a.ID))
			Expect(comments[0].Body).To(Equal("one"))
			Expect(comments[1].ID).To(Equal(b.ID))
		})

		It("should return an empty list for a post without comments", func() {
			comments, err := repo.ListComments(ctx, post.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(comments).To(BeEmpty())
		})

		It("should refuse comments on an unknown post", func() {
			_, err := repo.AddComment(ctx, blog.Comment{PostID: 999, Author: "a", Body: "b"})
			Expect(err).To(MatchError(blog.ErrPostNotFound))
		})

		It("should delete a single comment", func() {
			a, err := repo.AddComment(ctx, blog.Comment{PostID: post.ID, Author: "a", Body: "one"})
			Expect(err).NotTo(HaveOccurred())
			b, err := repo.AddComment(ctx, blog.Comment{PostID: post.ID, Author: "b", Body: "two"})
			Expect(err).NotTo(HaveOccurred())

			Expect(repo.DeleteComment(ctx, post.ID, a.ID)).To(Succeed())

			comments, err := repo.ListComments(ctx, post.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(comments).To(HaveLen(1))
			Expect(comments[0].ID).To(Equal(b.ID))
		})

		It("should return ErrCommentNotFound for an unknown comment", func() {
			Expect(repo.DeleteComment(ctx, post.ID, 999)).To(MatchError(blog.ErrCommentNotFound))
		})

		It("should not delete a comment through another post", func() {
			other := create("Other", false)
			c, err := repo.AddComment(ctx, blog.Comment{PostID: post.ID, Author: "a", Body: "one"})
			Expect(err).NotTo(HaveOccurred())

			Expect(repo.DeleteComment(ctx, other.ID, c.ID)).To(MatchError(blog.ErrCommentNotFound))
		})
	})

	Describe("PublishDue", func() {
		It("should publish scheduled drafts once their time has come", func() {
			publishAt := time.Now().Add(time.Hour).Truncate(time.Second).UTC()
			scheduled, err := repo.CreatePost(ctx, blog.Post{Title: "Later", Body: "soon", Draft: true, PublishAt: publishAt})
			Expect(err).NotTo(HaveOccurred())
			create("Plain draft", true)

			n, err := repo.PublishDue(ctx, time.Now())
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(BeZero())

			n, err = repo.PublishDue(ctx, publishAt.Add(time.Minute))
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(1))

			got, err := repo.GetPost(ctx, scheduled.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Draft).To(BeFalse())

			posts, err := repo.ListPosts(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(posts).To(HaveLen(1))
			Expect(posts[0].ID).To(Equal(scheduled.ID))
		})

		It("should not publish the same post twice", func() {
			publishAt := time.Now().Add(-time.Minute).Truncate(time.Second).UTC()
			_, err := repo.CreatePost(ctx, blog.Post{Title: "Due", Body: "now", Draft: true, PublishAt: publishAt})
			Expect(err).NotTo(HaveOccurred())

			Expect(repo.PublishDue(ctx, time.Now())).To(Equal(1))
			Expect(repo.PublishDue(ctx, time.Now())).To(Equal(0))
		})

		It("should keep publish times far in the future", func() {
			publishAt := time.Date(3000, 1, 1, 0, 0, 0, 0, time.UTC)
			created, err := repo.CreatePost(ctx, blog.Post{Title: "Millennium", Body: "b", Draft: true, PublishAt: publishAt})
			Expect(err).NotTo(HaveOccurred())

			got, err := repo.GetPost(ctx, created.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.PublishAt.Equal(publishAt)).To(BeTrue(), "read back %s", got.PublishAt)

			Expect(repo.PublishDue(ctx, time.Now())).To(Equal(0))
			Expect(repo.PublishDue(ctx, publishAt.Add(time.Minute))).To(Equal(1))
		})
	})

	Describe("Ping", func() {
		It("should succeed", func() {
			Expect(repo.Ping(ctx)).To(Succeed())
		})
	})
}
