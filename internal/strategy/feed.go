package strategy

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/feeds"

	"github.com/angeloszaimis/blog/internal/blog"
)

const feedSize = 20

// Site describes the blog in syndication output.
type Site struct {
	Title       string
	Description string
	BaseURL     string
	Author      string
}

type feedStrategy struct {
	Base
	views Renderer
	site  Site
}

func (s *feedStrategy) Handle(w http.ResponseWriter, r *http.Request) error {
	posts, err := s.Repository().ListPosts(r.Context())
	if err != nil {
		return lookupError(err, "list posts")
	}
	if len(posts) > feedSize {
		posts = posts[:feedSize]
	}

	base := strings.TrimRight(s.site.BaseURL, "/")
	feed := &feeds.Feed{
		Title:       s.site.Title,
		Link:        &feeds.Link{Href: base + "/"},
		Description: s.site.Description,
		Author:      &feeds.Author{Name: s.site.Author},
		Created:     time.Now(),
	}
	if len(posts) > 0 {
		feed.Created = posts[0].CreatedAt
	}

	for _, post := range posts {
		content, err := s.views.Markdown(post.Body)
		if err != nil {
			return Processing(http.StatusInternalServerError, "could not render feed", err)
		}

		link := base + postURL(post.ID)
		feed.Items = append(feed.Items, &feeds.Item{
			Id:          link,
			Title:       post.Title,
			Link:        &feeds.Link{Href: link},
			Author:      &feeds.Author{Name: post.Author},
			Description: FormatTime(post.CreatedAt),
			Content:     content,
			Created:     post.CreatedAt,
			Updated:     post.UpdatedAt,
		})
	}

	rss, err := feed.ToRss()
	if err != nil {
		return Processing(http.StatusInternalServerError, "could not build feed", err)
	}

	w.Header().Set("Content-Length", strconv.Itoa(len(rss)))
	return Write(w, http.StatusOK, "application/rss+xml; charset=utf-8", []byte(rss))
}

func NewFeedStrategy(repo blog.Repository, views Renderer, site Site) (Strategy, error) {
	base, err := NewBase(repo)
	if err != nil {
		return nil, err
	}
	return &feedStrategy{Base: base, views: views, site: site}, nil
}
