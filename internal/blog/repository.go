package blog

import (
	"context"
	"errors"
	"time"
)

var (
	ErrPostNotFound    = errors.New("post not found")
	ErrCommentNotFound = errors.New("comment not found")

	// ErrUnavailable is returned when the backing store refuses work,
	// for example while a circuit breaker is open.
	ErrUnavailable = errors.New("repository unavailable")
)

//go:generate mockgen -destination=mock/repository.go -package=mock github.com/angeloszaimis/blog/internal/blog Repository

// Repository provides blog content operations. Implementations must be
// safe for concurrent use; strategies share one instance.
type Repository interface {
	// ListPosts returns published posts, newest first.
	ListPosts(ctx context.Context) ([]Post, error)
	// GetPost returns the post with the given id, drafts included.
	GetPost(ctx context.Context, id int64) (Post, error)
	// CreatePost assigns ID, CreatedAt and UpdatedAt and returns the stored post.
	CreatePost(ctx context.Context, post Post) (Post, error)
	// UpdatePost replaces title, body, author, draft and publish time.
	// CreatedAt is preserved.
	UpdatePost(ctx context.Context, post Post) (Post, error)
	// DeletePost removes the post together with its comments.
	DeletePost(ctx context.Context, id int64) error

	// ListComments returns the comments of a post, oldest first.
	ListComments(ctx context.Context, postID int64) ([]Comment, error)
	AddComment(ctx context.Context, comment Comment) (Comment, error)
	DeleteComment(ctx context.Context, postID, commentID int64) error

	// PublishDue publishes every scheduled draft whose PublishAt is not
	// after now and returns how many were published.
	PublishDue(ctx context.Context, now time.Time) (int, error)

	Ping(ctx context.Context) error
	Close() error
}
