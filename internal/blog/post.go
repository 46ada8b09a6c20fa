package blog

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Post is a single blog entry. Body holds Markdown source.
type Post struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Author    string    `json:"author"`
	Draft     bool      `json:"draft"`
	PublishAt time.Time `json:"publish_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Comment belongs to exactly one post.
type Comment struct {
	ID        int64     `json:"id"`
	PostID    int64     `json:"post_id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Scheduled reports whether the post is a draft waiting for its PublishAt time.
func (p Post) Scheduled() bool {
	return p.Draft && !p.PublishAt.IsZero()
}

// Due reports whether a scheduled post should be published at now.
func (p Post) Due(now time.Time) bool {
	return p.Scheduled() && !p.PublishAt.After(now)
}

func (p Post) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Title, validation.Required, validation.RuneLength(1, 200)),
		validation.Field(&p.Body, validation.Required),
		validation.Field(&p.Author, validation.RuneLength(0, 100)),
	)
}

func (c Comment) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Author, validation.Required, validation.RuneLength(1, 100)),
		validation.Field(&c.Body, validation.Required, validation.RuneLength(1, 5000)),
	)
}
