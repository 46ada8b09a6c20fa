package strategy

import (
	"errors"
	"net/http"
	"reflect"

	"github.com/angeloszaimis/blog/internal/blog"
)

// ErrNilRepository signals a wiring defect: a strategy was constructed
// without a repository.
var ErrNilRepository = errors.New("strategy: repository must not be nil")

// Strategy handles one kind of web request. Handle writes the response
// and returns a non-nil error when the request could not be completed;
// recovery belongs to the caller.
type Strategy interface {
	Handle(w http.ResponseWriter, r *http.Request) error
}

// Func adapts a plain function to Strategy.
type Func func(w http.ResponseWriter, r *http.Request) error

func (f Func) Handle(w http.ResponseWriter, r *http.Request) error {
	return f(w, r)
}

// Base carries the repository shared by all concrete strategies. It is
// immutable after construction.
type Base struct {
	repository blog.Repository
}

// NewBase returns ErrNilRepository if repo is nil, including a typed nil
// pointer stored in the interface.
func NewBase(repo blog.Repository) (Base, error) {
	if isNil(repo) {
		return Base{}, ErrNilRepository
	}

	return Base{repository: repo}, nil
}

func (b Base) Repository() blog.Repository {
	return b.repository
}

func isNil(repo blog.Repository) bool {
	if repo == nil {
		return true
	}

	v := reflect.ValueOf(repo)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}
