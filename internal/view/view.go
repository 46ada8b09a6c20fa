// Package view renders the blog's HTML pages from embedded templates.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/angeloszaimis/blog/internal/strategy"
)

//go:embed templates/*.html
var files embed.FS

var pages = []string{
	strategy.ViewPosts,
	strategy.ViewPost,
	strategy.ViewPostForm,
}

// Renderer implements strategy.Renderer.
type Renderer struct {
	pages    map[string]*template.Template
	markdown goldmark.Markdown
}

func New() (*Renderer, error) {
	r := &Renderer{
		pages: make(map[string]*template.Template, len(pages)),
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
	}

	funcs := template.FuncMap{
		"datetime": strategy.FormatTime,
		"ago":      humanize.Time,
	}

	for _, page := range pages {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(files, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parse view %s: %w", page, err)
		}
		r.pages[page] = t
	}

	return r, nil
}

func (r *Renderer) Render(w io.Writer, name string, data any) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown view %q", name)
	}
	return t.ExecuteTemplate(w, "layout.html", data)
}

// Markdown converts Markdown to HTML. Raw HTML in the source is omitted.
func (r *Renderer) Markdown(source string) (string, error) {
	var buf bytes.Buffer
	if err := r.markdown.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
