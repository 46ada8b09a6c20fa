package strategy

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/angeloszaimis/blog/internal/blog"
)

// Renderer produces the HTML views used by strategies.
type Renderer interface {
	Render(w io.Writer, name string, data any) error
	Markdown(source string) (string, error)
}

// Write sends body with the given status and content type. A failing
// writer is reported as *IOError.
func Write(w http.ResponseWriter, status int, contentType string, body []byte) error {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)

	if _, err := w.Write(body); err != nil {
		return &IOError{Err: err}
	}

	return nil
}

// render executes the view into a buffer first so a template failure
// never leaves a half-written page behind.
func render(w http.ResponseWriter, views Renderer, status int, name string, data any) error {
	var buf bytes.Buffer
	if err := views.Render(&buf, name, data); err != nil {
		return Processing(http.StatusInternalServerError, "could not render page", err)
	}

	return Write(w, status, "text/html; charset=utf-8", buf.Bytes())
}

func redirect(w http.ResponseWriter, r *http.Request, location string) error {
	http.Redirect(w, r, location, http.StatusSeeOther)
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, NotFound("page not found")
	}

	return id, nil
}

func postURL(id int64) string {
	return fmt.Sprintf("/posts/%d", id)
}

// lookupError maps repository not-found errors to 404 and wraps the rest.
func lookupError(err error, op string) error {
	switch {
	case errors.Is(err, blog.ErrPostNotFound):
		return NotFound("post not found")
	case errors.Is(err, blog.ErrCommentNotFound):
		return NotFound("comment not found")
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
