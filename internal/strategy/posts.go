package strategy

import (
	"html/template"
	"net/http"

	"github.com/angeloszaimis/blog/internal/blog"
)

type listPostsStrategy struct {
	Base
	views Renderer
}

func (s *listPostsStrategy) Handle(w http.ResponseWriter, r *http.Request) error {
	posts, err := s.Repository().ListPosts(r.Context())
	if err != nil {
		return lookupError(err, "list posts")
	}

	return render(w, s.views, http.StatusOK, ViewPosts, ListPage{Posts: posts})
}

func NewListPostsStrategy(repo blog.Repository, views Renderer) (Strategy, error) {
	base, err := NewBase(repo)
	if err != nil {
		return nil, err
	}
	return &listPostsStrategy{Base: base, views: views}, nil
}

type showPostStrategy struct {
	Base
	views Renderer
}

func (s *showPostStrategy) Handle(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}

	page, err := loadPostPage(r, s.Base, s.views, id)
	if err != nil {
		return err
	}

	return render(w, s.views, http.StatusOK, ViewPost, page)
}

func NewShowPostStrategy(repo blog.Repository, views Renderer) (Strategy, error) {
	base, err := NewBase(repo)
	if err != nil {
		return nil, err
	}
	return &showPostStrategy{Base: base, views: views}, nil
}

// loadPostPage fetches a published post with its comments. Drafts are
// reported as not found.
func loadPostPage(r *http.Request, base Base, views Renderer, id int64) (PostPage, error) {
	ctx := r.Context()

	post, err := base.Repository().GetPost(ctx, id)
	if err != nil {
		return PostPage{}, lookupError(err, "get post")
	}
	if post.Draft {
		return PostPage{}, NotFound("post not found")
	}

	comments, err := base.Repository().ListComments(ctx, id)
	if err != nil {
		return PostPage{}, lookupError(err, "list comments")
	}

	content, err := views.Markdown(post.Body)
	if err != nil {
		return PostPage{}, Processing(http.StatusInternalServerError, "could not render post", err)
	}

	return PostPage{
		Post:     post,
		Content:  template.HTML(content),
		Comments: comments,
	}, nil
}
