package guarded

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angeloszaimis/blog/internal/blog"
	"github.com/angeloszaimis/blog/internal/circuitbreaker"
)

// Repository routes every call through a circuit breaker named after the
// operation. While a breaker is open, calls fail fast with
// blog.ErrUnavailable.
type Repository struct {
	next     blog.Repository
	breakers *circuitbreaker.Registry
}

func New(next blog.Repository, breakers *circuitbreaker.Registry) *Repository {
	return &Repository{next: next, breakers: breakers}
}

// failure reports whether err says something about the health of the store.
func failure(err error) bool {
	switch {
	case errors.Is(err, blog.ErrPostNotFound),
		errors.Is(err, blog.ErrCommentNotFound),
		errors.Is(err, context.Canceled):
		return false
	}
	return true
}

func (r *Repository) call(op string, fn func() error) error {
	err := r.breakers.Breaker(op).Execute(fn, failure)
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return fmt.Errorf("%s: %w", op, blog.ErrUnavailable)
	}
	return err
}

func (r *Repository) ListPosts(ctx context.Context) (posts []blog.Post, err error) {
	err = r.call("ListPosts", func() error {
		posts, err = r.next.ListPosts(ctx)
		return err
	})
	return posts, err
}

func (r *Repository) GetPost(ctx context.Context, id int64) (post blog.Post, err error) {
	err = r.call("GetPost", func() error {
		post, err = r.next.GetPost(ctx, id)
		return err
	})
	return post, err
}

func (r *Repository) CreatePost(ctx context.Context, in blog.Post) (post blog.Post, err error) {
	err = r.call("CreatePost", func() error {
		post, err = r.next.CreatePost(ctx, in)
		return err
	})
	return post, err
}

func (r *Repository) UpdatePost(ctx context.Context, in blog.Post) (post blog.Post, err error) {
	err = r.call("UpdatePost", func() error {
		post, err = r.next.UpdatePost(ctx, in)
		return err
	})
	return post, err
}

func (r *Repository) DeletePost(ctx context.Context, id int64) error {
	return r.call("DeletePost", func() error {
		return r.next.DeletePost(ctx, id)
	})
}

func (r *Repository) ListComments(ctx context.Context, postID int64) (comments []blog.Comment, err error) {
	err = r.call("ListComments", func() error {
		comments, err = r.next.ListComments(ctx, postID)
		return err
	})
	return comments, err
}

func (r *Repository) AddComment(ctx context.Context, in blog.Comment) (comment blog.Comment, err error) {
	err = r.call("AddComment", func() error {
		comment, err = r.next.AddComment(ctx, in)
		return err
	})
	return comment, err
}

func (r *Repository) DeleteComment(ctx context.Context, postID, commentID int64) error {
	return r.call("DeleteComment", func() error {
		return r.next.DeleteComment(ctx, postID, commentID)
	})
}

func (r *Repository) PublishDue(ctx context.Context, now time.Time) (n int, err error) {
	err = r.call("PublishDue", func() error {
		n, err = r.next.PublishDue(ctx, now)
		return err
	})
	return n, err
}

// Ping bypasses the breakers so health checks see the real store.
func (r *Repository) Ping(ctx context.Context) error {
	return r.next.Ping(ctx)
}

func (r *Repository) Close() error {
	return r.next.Close()
}
