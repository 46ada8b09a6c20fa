package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/angeloszaimis/blog/internal/blog"
)

const (
	keyPostSeq    = "blog:posts:seq"
	keyCommentSeq = "blog:comments:seq"
	keyPosts      = "blog:posts"
	keyScheduled  = "blog:posts:scheduled"
)

func postKey(id int64) string {
	return fmt.Sprintf("blog:post:%d", id)
}

func commentsKey(postID int64) string {
	return fmt.Sprintf("blog:post:%d:comments", postID)
}

func commentKey(id int64) string {
	return fmt.Sprintf("blog:comment:%d", id)
}

// Repository stores posts and comments as JSON documents. Ordering is
// kept in sorted sets scored by id, which grows with creation time.
// Scheduled drafts are indexed by publish time in a separate set.
type Repository struct {
	client *redis.Client
	now    func() time.Time
}

func New(client *redis.Client) *Repository {
	return &Repository{client: client, now: time.Now}
}

func (r *Repository) ListPosts(ctx context.Context) ([]blog.Post, error) {
	ids, err := r.client.ZRevRange(ctx, keyPosts, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	posts := []blog.Post{}
	if len(ids) == 0 {
		return posts, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = "blog:post:" + id
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}

		var p blog.Post
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, err
		}
		if !p.Draft {
			posts = append(posts, p)
		}
	}

	return posts, nil
}

func (r *Repository) GetPost(ctx context.Context, id int64) (blog.Post, error) {
	return r.getPost(ctx, r.client, id)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *Repository) getPost(ctx context.Context, c getter, id int64) (blog.Post, error) {
	raw, err := c.Get(ctx, postKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return blog.Post{}, blog.ErrPostNotFound
	}
	if err != nil {
		return blog.Post{}, err
	}

	var p blog.Post
	if err := json.Unmarshal(raw, &p); err != nil {
		return blog.Post{}, err
	}
	return p, nil
}

func (r *Repository) CreatePost(ctx context.Context, post blog.Post) (blog.Post, error) {
	id, err := r.client.Incr(ctx, keyPostSeq).Result()
	if err != nil {
		return blog.Post{}, err
	}

	now := r.now().UTC()
	post.ID = id
	post.CreatedAt = now
	post.UpdatedAt = now

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		return queuePost(ctx, pipe, post)
	})
	if err != nil {
		return blog.Post{}, err
	}
	return post, nil
}

func (r *Repository) UpdatePost(ctx context.Context, post blog.Post) (blog.Post, error) {
	key := postKey(post.ID)

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		existing, err := r.getPost(ctx, tx, post.ID)
		if err != nil {
			return err
		}

		post.CreatedAt = existing.CreatedAt
		post.UpdatedAt = r.now().UTC()

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			return queuePost(ctx, pipe, post)
		})
		return err
	}, key)
	if err != nil {
		return blog.Post{}, err
	}

	return post, nil
}

// queuePost adds the commands storing post and its index entries to pipe.
func queuePost(ctx context.Context, pipe redis.Pipeliner, post blog.Post) error {
	raw, err := json.Marshal(post)
	if err != nil {
		return err
	}

	member := strconv.FormatInt(post.ID, 10)

	pipe.Set(ctx, postKey(post.ID), raw, 0)
	pipe.ZAdd(ctx, keyPosts, &redis.Z{Score: float64(post.ID), Member: member})
	if post.Scheduled() {
		pipe.ZAdd(ctx, keyScheduled, &redis.Z{Score: float64(post.PublishAt.Unix()), Member: member})
	} else {
		pipe.ZRem(ctx, keyScheduled, member)
	}
	return nil
}

func (r *Repository) DeletePost(ctx context.Context, id int64) error {
	exists, err := r.client.Exists(ctx, postKey(id)).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return blog.ErrPostNotFound
	}

	commentIDs, err := r.client.ZRange(ctx, commentsKey(id), 0, -1).Result()
	if err != nil {
		return err
	}

	keys := []string{postKey(id), commentsKey(id)}
	for _, cid := range commentIDs {
		keys = append(keys, "blog:comment:"+cid)
	}

	member := strconv.FormatInt(id, 10)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		pipe.ZRem(ctx, keyPosts, member)
		pipe.ZRem(ctx, keyScheduled, member)
		return nil
	})
	return err
}

func (r *Repository) ListComments(ctx context.Context, postID int64) ([]blog.Comment, error) {
	exists, err := r.client.Exists(ctx, postKey(postID)).Result()
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, blog.ErrPostNotFound
	}

	ids, err := r.client.ZRange(ctx, commentsKey(postID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	comments := []blog.Comment{}
	if len(ids) == 0 {
		return comments, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = "blog:comment:" + id
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}

		var c blog.Comment
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}

	return comments, nil
}

func (r *Repository) AddComment(ctx context.Context, comment blog.Comment) (blog.Comment, error) {
	id, err := r.client.Incr(ctx, keyCommentSeq).Result()
	if err != nil {
		return blog.Comment{}, err
	}

	comment.ID = id
	comment.CreatedAt = r.now().UTC()

	raw, err := json.Marshal(comment)
	if err != nil {
		return blog.Comment{}, err
	}

	// Watching the post key aborts the write if the post is deleted
	// concurrently.
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, postKey(comment.PostID)).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return blog.ErrPostNotFound
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, commentKey(id), raw, 0)
			pipe.ZAdd(ctx, commentsKey(comment.PostID), &redis.Z{Score: float64(id), Member: strconv.FormatInt(id, 10)})
			return nil
		})
		return err
	}, postKey(comment.PostID))
	if err != nil {
		return blog.Comment{}, err
	}

	return comment, nil
}

func (r *Repository) DeleteComment(ctx context.Context, postID, commentID int64) error {
	removed, err := r.client.ZRem(ctx, commentsKey(postID), strconv.FormatInt(commentID, 10)).Result()
	if err != nil {
		return err
	}
	if removed == 0 {
		return blog.ErrCommentNotFound
	}

	return r.client.Del(ctx, commentKey(commentID)).Err()
}

func (r *Repository) PublishDue(ctx context.Context, now time.Time) (int, error) {
	ids, err := r.client.ZRangeByScore(ctx, keyScheduled, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()
	if err != nil {
		return 0, err
	}

	published := 0
	for _, raw := range ids {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return published, err
		}

		ok, err := r.publishPost(ctx, id, now)
		switch {
		case errors.Is(err, blog.ErrPostNotFound):
			if err := r.client.ZRem(ctx, keyScheduled, raw).Err(); err != nil {
				return published, err
			}
			continue
		case errors.Is(err, redis.TxFailedErr):
			// Edited while we looked at it; the next run sees the new version.
			continue
		case err != nil:
			return published, err
		}
		if ok {
			published++
		}
	}

	return published, nil
}

// publishPost clears the draft flag of a due post. The post key is watched
// so a concurrent edit aborts the write with redis.TxFailedErr.
func (r *Repository) publishPost(ctx context.Context, id int64, now time.Time) (bool, error) {
	published := false

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		p, err := r.getPost(ctx, tx, id)
		if err != nil {
			return err
		}
		if !p.Due(now) {
			return nil
		}

		p.Draft = false
		p.UpdatedAt = now.UTC()

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			return queuePost(ctx, pipe, p)
		})
		if err != nil {
			return err
		}
		published = true
		return nil
	}, postKey(id))

	return published, err
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Repository) Close() error {
	return r.client.Close()
}
