package strategy

import (
	"errors"
	"html/template"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/angeloszaimis/blog/internal/blog"
)

// View names rendered by the strategies.
const (
	ViewPosts    = "posts.html"
	ViewPost     = "post.html"
	ViewPostForm = "post_form.html"
)

type ListPage struct {
	Posts []blog.Post
}

type PostPage struct {
	Post        blog.Post
	Content     template.HTML
	Comments    []blog.Comment
	CommentForm CommentForm
}

type PostForm struct {
	Post      blog.Post
	PublishAt string
	Action    string
	Errors    map[string]string
}

type CommentForm struct {
	Author string
	Body   string
	Errors map[string]string
}

func fieldErrors(err error) map[string]string {
	fields := make(map[string]string)

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for name, ferr := range verrs {
			fields[name] = ferr.Error()
		}
		return fields
	}

	fields["form"] = err.Error()
	return fields
}
