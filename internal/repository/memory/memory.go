package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/angeloszaimis/blog/internal/blog"
)

// Repository keeps posts and comments in memory.
type Repository struct {
	mutex         sync.RWMutex
	posts         map[int64]blog.Post
	comments      map[int64][]blog.Comment
	nextPostID    int64
	nextCommentID int64
	now           func() time.Time
}

func New() *Repository {
	return &Repository{
		posts:    make(map[int64]blog.Post),
		comments: make(map[int64][]blog.Comment),
		now:      time.Now,
	}
}

func (r *Repository) ListPosts(ctx context.Context) ([]blog.Post, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	posts := make([]blog.Post, 0, len(r.posts))
	for _, p := range r.posts {
		if !p.Draft {
			posts = append(posts, p)
		}
	}

	sort.Slice(posts, func(i, j int) bool {
		if posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].ID > posts[j].ID
		}
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})

	return posts, nil
}

func (r *Repository) GetPost(ctx context.Context, id int64) (blog.Post, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	p, ok := r.posts[id]
	if !ok {
		return blog.Post{}, blog.ErrPostNotFound
	}
	return p, nil
}

func (r *Repository) CreatePost(ctx context.Context, post blog.Post) (blog.Post, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.nextPostID++
	now := r.now().UTC()

	post.ID = r.nextPostID
	post.CreatedAt = now
	post.UpdatedAt = now
	r.posts[post.ID] = post

	return post, nil
}

func (r *Repository) UpdatePost(ctx context.Context, post blog.Post) (blog.Post, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	existing, ok := r.posts[post.ID]
	if !ok {
		return blog.Post{}, blog.ErrPostNotFound
	}

	post.CreatedAt = existing.CreatedAt
	post.UpdatedAt = r.now().UTC()
	r.posts[post.ID] = post

	return post, nil
}

func (r *Repository) DeletePost(ctx context.Context, id int64) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.posts[id]; !ok {
		return blog.ErrPostNotFound
	}

	delete(r.posts, id)
	delete(r.comments, id)
	return nil
}

func (r *Repository) ListComments(ctx context.Context, postID int64) ([]blog.Comment, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if _, ok := r.posts[postID]; !ok {
		return nil, blog.ErrPostNotFound
	}

	comments := make([]blog.Comment, len(r.comments[postID]))
	copy(comments, r.comments[postID])
	return comments, nil
}

func (r *Repository) AddComment(ctx context.Context, comment blog.Comment) (blog.Comment, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.posts[comment.PostID]; !ok {
		return blog.Comment{}, blog.ErrPostNotFound
	}

	r.nextCommentID++
	comment.ID = r.nextCommentID
	comment.CreatedAt = r.now().UTC()
	r.comments[comment.PostID] = append(r.comments[comment.PostID], comment)

	return comment, nil
}

func (r *Repository) DeleteComment(ctx context.Context, postID, commentID int64) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	comments := r.comments[postID]
	for i, c := range comments {
		if c.ID == commentID {
			r.comments[postID] = append(comments[:i:i], comments[i+1:]...)
			return nil
		}
	}

	return blog.ErrCommentNotFound
}

func (r *Repository) PublishDue(ctx context.Context, now time.Time) (int, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	published := 0
	for id, p := range r.posts {
		if p.Due(now) {
			p.Draft = false
			p.UpdatedAt = now.UTC()
			r.posts[id] = p
			published++
		}
	}

	return published, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (r *Repository) Close() error {
	return nil
}
