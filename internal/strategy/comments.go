package strategy

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/angeloszaimis/blog/internal/blog"
)

type createCommentStrategy struct {
	Base
	views Renderer
}

func (s *createCommentStrategy) Handle(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}

	if err := r.ParseForm(); err != nil {
		return BadRequest("malformed form", err)
	}

	comment := blog.Comment{
		PostID: id,
		Author: strings.TrimSpace(r.PostForm.Get("author")),
		Body:   strings.TrimSpace(r.PostForm.Get("body")),
	}

	if verr := comment.Validate(); verr != nil {
		page, err := loadPostPage(r, s.Base, s.views, id)
		if err != nil {
			return err
		}
		page.CommentForm = CommentForm{
			Author: comment.Author,
			Body:   comment.Body,
			Errors: fieldErrors(verr),
		}
		return render(w, s.views, http.StatusBadRequest, ViewPost, page)
	}

	post, err := s.Repository().GetPost(r.Context(), id)
	if err != nil {
		return lookupError(err, "get post")
	}
	if post.Draft {
		return NotFound("post not found")
	}

	created, err := s.Repository().AddComment(r.Context(), comment)
	if err != nil {
		return lookupError(err, "add comment")
	}

	return redirect(w, r, fmt.Sprintf("%s#comment-%d", postURL(id), created.ID))
}

func NewCreateCommentStrategy(repo blog.Repository, views Renderer) (Strategy, error) {
	base, err := NewBase(repo)
	if err != nil {
		return nil, err
	}
	return &createCommentStrategy{Base: base, views: views}, nil
}

type deleteCommentStrategy struct {
	Base
}

func (s *deleteCommentStrategy) Handle(w http.ResponseWriter, r *http.Request) error {
	postID, err := pathID(r, "id")
	if err != nil {
		return err
	}

	commentID, err := pathID(r, "cid")
	if err != nil {
		return err
	}

	if err := s.Repository().DeleteComment(r.Context(), postID, commentID); err != nil {
		return lookupError(err, "delete comment")
	}

	return redirect(w, r, postURL(postID))
}

func NewDeleteCommentStrategy(repo blog.Repository) (Strategy, error) {
	base, err := NewBase(repo)
	if err != nil {
		return nil, err
	}
	return &deleteCommentStrategy{Base: base}, nil
}
