package strategy

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/angeloszaimis/blog/internal/blog"
)

type newPostStrategy struct {
	Base
	views Renderer
}

func (s *newPostStrategy) Handle(w http.ResponseWriter, r *http.Request) error {
	return render(w, s.views, http.StatusOK, ViewPostForm, PostForm{Action: "/admin/posts"})
}

func NewNewPostStrategy(repo blog.Repository, views Renderer) (Strategy, error) {
	base, err := NewBase(repo)
	if err != nil {
		return nil, err
	}
	return &newPostStrategy{Base: base, views: views}, nil
}

type createPostStrategy struct {
	Base
	views Renderer
	now   func() time.Time
}

func (s *createPostStrategy) Handle(w http.ResponseWriter, r *http.Request) error {
	post, form, err := readPostForm(r, s.now())
	if err != nil {
		return err
	}

	if len(form.Errors) > 0 {
		form.Action = "/admin/posts"
		return render(w, s.views, http.StatusBadRequest, ViewPostForm, form)
	}

	created, err := s.Repository().CreatePost(r.Context(), post)
	if err != nil {
		return lookupError(err, "create post")
	}

	return redirect(w, r, afterSave(created))
}

func NewCreatePostStrategy(repo blog.Repository, views Renderer) (Strategy, error) {
	base, err := NewBase(repo)
	if err != nil {
		return nil, err
	}
	return &createPostStrategy{Base: base, views: views, now: time.Now}, nil
}

type editPostStrategy struct {
	Base
	views Renderer
}

func (s *editPostStrategy) Handle(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}

	post, err := s.Repository().GetPost(r.Context(), id)
	if err != nil {
		return lookupError(err, "get post")
	}

	return render(w, s.views, http.StatusOK, ViewPostForm, PostForm{
		Post:      post,
		PublishAt: FormatTime(post.PublishAt),
		Action:    adminPostURL(id),
	})
}

func NewEditPostStrategy(repo blog.Repository, views Renderer) (Strategy, error) {
	base, err := NewBase(repo)
	if err != nil {
		return nil, err
	}
	return &editPostStrategy{Base: base, views: views}, nil
}

type updatePostStrategy struct {
	Base
	views Renderer
	now   func() time.Time
}

func (s *updatePostStrategy) Handle(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}

	post, form, err := readPostForm(r, s.now())
	if err != nil {
		return err
	}
	post.ID = id

	if len(form.Errors) > 0 {
		form.Post.ID = id
		form.Action = adminPostURL(id)
		return render(w, s.views, http.StatusBadRequest, ViewPostForm, form)
	}

	updated, err := s.Repository().UpdatePost(r.Context(), post)
	if err != nil {
		return lookupError(err, "update post")
	}

	return redirect(w, r, afterSave(updated))
}

func NewUpdatePostStrategy(repo blog.Repository, views Renderer) (Strategy, error) {
	base, err := NewBase(repo)
	if err != nil {
		return nil, err
	}
	return &updatePostStrategy{Base: base, views: views, now: time.Now}, nil
}

type deletePostStrategy struct {
	Base
}

func (s *deletePostStrategy) Handle(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}

	if err := s.Repository().DeletePost(r.Context(), id); err != nil {
		return lookupError(err, "delete post")
	}

	return redirect(w, r, "/")
}

func NewDeletePostStrategy(repo blog.Repository) (Strategy, error) {
	base, err := NewBase(repo)
	if err != nil {
		return nil, err
	}
	return &deletePostStrategy{Base: base}, nil
}

// readPostForm decodes the post form. Field problems are returned in
// form.Errors; only a malformed body is an error.
func readPostForm(r *http.Request, now time.Time) (blog.Post, PostForm, error) {
	if err := r.ParseForm(); err != nil {
		return blog.Post{}, PostForm{}, BadRequest("malformed form", err)
	}

	post := blog.Post{
		Title:  strings.TrimSpace(r.PostForm.Get("title")),
		Body:   r.PostForm.Get("body"),
		Author: strings.TrimSpace(r.PostForm.Get("author")),
		Draft:  r.PostForm.Get("draft") != "",
	}
	form := PostForm{
		PublishAt: strings.TrimSpace(r.PostForm.Get("publish_at")),
		Errors:    make(map[string]string),
	}

	if err := post.Validate(); err != nil {
		form.Errors = fieldErrors(err)
	}

	if form.PublishAt != "" {
		at, err := ParseTime(form.PublishAt)
		if err != nil {
			form.Errors["publish_at"] = "must look like 2024-03-05 08:07"
		} else {
			switch {
			case at.After(now):
				// A future publish time holds the post back until the publisher runs.
				post.PublishAt = at
				post.Draft = true
			case !post.Draft:
				post.PublishAt = at
			}
			// A draft with a past publish time stays unscheduled, otherwise
			// the publisher would put it back online.
		}
	}

	form.Post = post
	return post, form, nil
}

func adminPostURL(id int64) string {
	return fmt.Sprintf("/admin/posts/%d", id)
}

// afterSave sends drafts back to their edit page since they are not
// publicly visible yet.
func afterSave(post blog.Post) string {
	if post.Draft {
		return adminPostURL(post.ID) + "/edit"
	}
	return postURL(post.ID)
}
