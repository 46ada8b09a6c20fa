package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/angeloszaimis/blog/internal/blog"
)

const schema = `
CREATE TABLE IF NOT EXISTS posts (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	title      TEXT    NOT NULL,
	body       TEXT    NOT NULL,
	author     TEXT    NOT NULL DEFAULT '',
	draft      INTEGER NOT NULL DEFAULT 0,
	publish_at INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at DESC);
CREATE TABLE IF NOT EXISTS comments (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	post_id    INTEGER NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
	author     TEXT    NOT NULL,
	body       TEXT    NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_comments_post_id ON comments(post_id);
`

const postColumns = "id, title, body, author, draft, publish_at, created_at, updated_at"

// Repository stores posts and comments in a SQLite database. Creation and
// update times are stored as UTC Unix nanoseconds. publish_at holds Unix
// seconds so any four-digit year fits; zero means unset.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

func Open(ctx context.Context, path string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Pragmas are per connection; one connection keeps them in effect
	// and serialises writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Repository{db: db, now: time.Now}, nil
}

func (r *Repository) ListPosts(ctx context.Context) ([]blog.Post, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+postColumns+" FROM posts WHERE draft = 0 ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []blog.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}

	return posts, rows.Err()
}

func (r *Repository) GetPost(ctx context.Context, id int64) (blog.Post, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+postColumns+" FROM posts WHERE id = ?", id)

	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return blog.Post{}, blog.ErrPostNotFound
	}
	return p, err
}

func (r *Repository) CreatePost(ctx context.Context, post blog.Post) (blog.Post, error) {
	now := r.now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO posts (title, body, author, draft, publish_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		post.Title, post.Body, post.Author, post.Draft, toUnixSeconds(post.PublishAt), toUnix(now), toUnix(now))
	if err != nil {
		return blog.Post{}, err
	}

	post.ID, err = res.LastInsertId()
	return post, err
}

func (r *Repository) UpdatePost(ctx context.Context, post blog.Post) (blog.Post, error) {
	existing, err := r.GetPost(ctx, post.ID)
	if err != nil {
		return blog.Post{}, err
	}

	post.CreatedAt = existing.CreatedAt
	post.UpdatedAt = r.now().UTC()

	_, err = r.db.ExecContext(ctx, `
		UPDATE posts SET title = ?, body = ?, author = ?, draft = ?, publish_at = ?, updated_at = ?
		WHERE id = ?`,
		post.Title, post.Body, post.Author, post.Draft, toUnixSeconds(post.PublishAt), toUnix(post.UpdatedAt), post.ID)
	if err != nil {
		return blog.Post{}, err
	}

	return post, nil
}

func (r *Repository) DeletePost(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM posts WHERE id = ?", id)
	if err != nil {
		return err
	}
	return expectAffected(res, blog.ErrPostNotFound)
}

func (r *Repository) ListComments(ctx context.Context, postID int64) ([]blog.Comment, error) {
	if _, err := r.GetPost(ctx, postID); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, post_id, author, body, created_at FROM comments
		WHERE post_id = ? ORDER BY created_at ASC, id ASC`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := []blog.Comment{}
	for rows.Next() {
		var (
			c       blog.Comment
			created int64
		)
		if err := rows.Scan(&c.ID, &c.PostID, &c.Author, &c.Body, &created); err != nil {
			return nil, err
		}
		c.CreatedAt = fromUnix(created)
		comments = append(comments, c)
	}

	return comments, rows.Err()
}

func (r *Repository) AddComment(ctx context.Context, comment blog.Comment) (blog.Comment, error) {
	if _, err := r.GetPost(ctx, comment.PostID); err != nil {
		return blog.Comment{}, err
	}

	comment.CreatedAt = r.now().UTC()

	res, err := r.db.ExecContext(ctx,
		"INSERT INTO comments (post_id, author, body, created_at) VALUES (?, ?, ?, ?)",
		comment.PostID, comment.Author, comment.Body, toUnix(comment.CreatedAt))
	if err != nil {
		return blog.Comment{}, err
	}

	comment.ID, err = res.LastInsertId()
	return comment, err
}

func (r *Repository) DeleteComment(ctx context.Context, postID, commentID int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM comments WHERE id = ? AND post_id = ?", commentID, postID)
	if err != nil {
		return err
	}
	return expectAffected(res, blog.ErrCommentNotFound)
}

func (r *Repository) PublishDue(ctx context.Context, now time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE posts SET draft = 0, updated_at = ?
		WHERE draft = 1 AND publish_at > 0 AND publish_at <= ?`,
		toUnix(now.UTC()), now.Unix())
	if err != nil {
		return 0, err
	}

	n, err := res.RowsAffected()
	return int(n), err
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(s scanner) (blog.Post, error) {
	var (
		p                           blog.Post
		publishAt, created, updated int64
	)

	if err := s.Scan(&p.ID, &p.Title, &p.Body, &p.Author, &p.Draft, &publishAt, &created, &updated); err != nil {
		return blog.Post{}, err
	}

	p.PublishAt = fromUnixSeconds(publishAt)
	p.CreatedAt = fromUnix(created)
	p.UpdatedAt = fromUnix(updated)
	return p, nil
}

func expectAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func toUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnix(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

func toUnixSeconds(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func fromUnixSeconds(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(n, 0).UTC()
}
