package cached

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/angeloszaimis/blog/internal/blog"
)

const keyPosts = "posts"

// Repository serves ListPosts, GetPost and ListComments from an in-process
// cache and invalidates the affected keys on every write.
type Repository struct {
	blog.Repository
	cache *gocache.Cache
}

func New(next blog.Repository, ttl time.Duration) *Repository {
	return &Repository{
		Repository: next,
		cache:      gocache.New(ttl, 2*ttl),
	}
}

func postKey(id int64) string     { return fmt.Sprintf("post:%d", id) }
func commentsKey(id int64) string { return fmt.Sprintf("comments:%d", id) }

func (r *Repository) ListPosts(ctx context.Context) ([]blog.Post, error) {
	if v, ok := r.cache.Get(keyPosts); ok {
		return append([]blog.Post(nil), v.([]blog.Post)...), nil
	}

	posts, err := r.Repository.ListPosts(ctx)
	if err != nil {
		return nil, err
	}

	r.cache.SetDefault(keyPosts, posts)
	return append([]blog.Post(nil), posts...), nil
}

func (r *Repository) GetPost(ctx context.Context, id int64) (blog.Post, error) {
	if v, ok := r.cache.Get(postKey(id)); ok {
		return v.(blog.Post), nil
	}

	post, err := r.Repository.GetPost(ctx, id)
	if err != nil {
		return blog.Post{}, err
	}

	r.cache.SetDefault(postKey(id), post)
	return post, nil
}

func (r *Repository) ListComments(ctx context.Context, postID int64) ([]blog.Comment, error) {
	if v, ok := r.cache.Get(commentsKey(postID)); ok {
		return append([]blog.Comment(nil), v.([]blog.Comment)...), nil
	}

	comments, err := r.Repository.ListComments(ctx, postID)
	if err != nil {
		return nil, err
	}

	r.cache.SetDefault(commentsKey(postID), comments)
	return append([]blog.Comment(nil), comments...), nil
}

func (r *Repository) CreatePost(ctx context.Context, post blog.Post) (blog.Post, error) {
	defer r.cache.Delete(keyPosts)
	return r.Repository.CreatePost(ctx, post)
}

func (r *Repository) UpdatePost(ctx context.Context, post blog.Post) (blog.Post, error) {
	defer r.invalidatePost(post.ID)
	return r.Repository.UpdatePost(ctx, post)
}

func (r *Repository) DeletePost(ctx context.Context, id int64) error {
	defer func() {
		r.invalidatePost(id)
		r.cache.Delete(commentsKey(id))
	}()
	return r.Repository.DeletePost(ctx, id)
}

func (r *Repository) AddComment(ctx context.Context, comment blog.Comment) (blog.Comment, error) {
	defer r.cache.Delete(commentsKey(comment.PostID))
	return r.Repository.AddComment(ctx, comment)
}

func (r *Repository) DeleteComment(ctx context.Context, postID, commentID int64) error {
	defer r.cache.Delete(commentsKey(postID))
	return r.Repository.DeleteComment(ctx, postID, commentID)
}

// PublishDue drops every cached entry when at least one post changed state;
// the ids of the published posts are not reported back.
func (r *Repository) PublishDue(ctx context.Context, now time.Time) (int, error) {
	n, err := r.Repository.PublishDue(ctx, now)
	if n > 0 {
		r.cache.Flush()
	}
	return n, err
}

func (r *Repository) invalidatePost(id int64) {
	r.cache.Delete(keyPosts)
	r.cache.Delete(postKey(id))
}
