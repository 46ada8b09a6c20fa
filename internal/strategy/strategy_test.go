package strategy_test

import (
	"errors"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/blog/internal/blog"
	"github.com/angeloszaimis/blog/internal/repository/memory"
	"github.com/angeloszaimis/blog/internal/strategy"
)

// echoStrategy writes "ok" and keeps the base it was built with.
type echoStrategy struct {
	strategy.Base
}

func (s *echoStrategy) Handle(w http.ResponseWriter, r *http.Request) error {
	return strategy.Write(w, http.StatusOK, "text/plain; charset=utf-8", []byte("ok"))
}

var _ = Describe("Base", func() {
	Describe("NewBase", func() {
		It("should keep the repository it was given", func() {
			repo := memory.New()

			base, err := strategy.NewBase(repo)
			Expect(err).NotTo(HaveOccurred())
			Expect(base.Repository()).To(BeIdenticalTo(repo))
		})

		It("should reject a nil repository", func() {
			base, err := strategy.NewBase(nil)
			Expect(err).To(MatchError(strategy.ErrNilRepository))
			Expect(base.Repository()).To(BeNil())
		})

		It("should reject a typed nil repository", func() {
			var repo *memory.Repository
			_, err := strategy.NewBase(repo)
			Expect(err).To(MatchError(strategy.ErrNilRepository))
		})
	})

	Describe("constructors", func() {
		views := &fakeRenderer{}

		DescribeTable("should all refuse a nil repository",
			func(build func(blog.Repository) (strategy.Strategy, error)) {
				s, err := build(nil)
				Expect(err).To(MatchError(strategy.ErrNilRepository))
				Expect(s).To(BeNil())
			},
			Entry("list posts", func(r blog.Repository) (strategy.Strategy, error) { return strategy.NewListPostsStrategy(r, views) }),
			Entry("show post", func(r blog.Repository) (strategy.Strategy, error) { return strategy.NewShowPostStrategy(r, views) }),
			Entry("new post", func(r blog.Repository) (strategy.Strategy, error) { return strategy.NewNewPostStrategy(r, views) }),
			Entry("create post", func(r blog.Repository) (strategy.Strategy, error) { return strategy.NewCreatePostStrategy(r, views) }),
			Entry("edit post", func(r blog.Repository) (strategy.Strategy, error) { return strategy.NewEditPostStrategy(r, views) }),
			Entry("update post", func(r blog.Repository) (strategy.Strategy, error) { return strategy.NewUpdatePostStrategy(r, views) }),
			Entry("delete post", func(r blog.Repository) (strategy.Strategy, error) { return strategy.NewDeletePostStrategy(r) }),
			Entry("create comment", func(r blog.Repository) (strategy.Strategy, error) { return strategy.NewCreateCommentStrategy(r, views) }),
			Entry("delete comment", func(r blog.Repository) (strategy.Strategy, error) { return strategy.NewDeleteCommentStrategy(r) }),
			Entry("feed", func(r blog.Repository) (strategy.Strategy, error) {
				return strategy.NewFeedStrategy(r, views, strategy.Site{})
			}),
		)
	})

	Describe("an echo strategy", func() {
		var (
			repo *memory.Repository
			echo *echoStrategy
		)

		BeforeEach(func() {
			repo = memory.New()
			base, err := strategy.NewBase(repo)
			Expect(err).NotTo(HaveOccurred())
			echo = &echoStrategy{Base: base}
		})

		It("should write ok", func() {
			rec := httptest.NewRecorder()

			Expect(echo.Handle(rec, httptest.NewRequest(http.MethodGet, "/", nil))).To(Succeed())
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(Equal("ok"))
		})

		It("should not change its repository while handling requests", func() {
			for i := 0; i < 3; i++ {
				_ = echo.Handle(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
			}
			Expect(echo.Repository()).To(BeIdenticalTo(repo))
		})

		It("should report a failing writer as an IOError", func() {
			err := echo.Handle(&failingWriter{}, httptest.NewRequest(http.MethodGet, "/", nil))

			var ioErr *strategy.IOError
			Expect(errors.As(err, &ioErr)).To(BeTrue())
			Expect(err).To(MatchError(errBrokenPipe))
			Expect(err.Error()).To(Equal("write response: broken pipe"))
		})
	})

	Describe("Func", func() {
		It("should adapt a function", func() {
			called := false
			var s strategy.Strategy = strategy.Func(func(w http.ResponseWriter, r *http.Request) error {
				called = true
				return nil
			})

			Expect(s.Handle(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))).To(Succeed())
			Expect(called).To(BeTrue())
		})
	})
})

var _ = Describe("ProcessingError", func() {
	It("should expose status and message", func() {
		cause := errors.New("disk full")
		err := strategy.Processing(http.StatusInternalServerError, "could not save", cause)

		var perr *strategy.ProcessingError
		Expect(errors.As(err, &perr)).To(BeTrue())
		Expect(perr.Status).To(Equal(http.StatusInternalServerError))
		Expect(perr.Message).To(Equal("could not save"))
		Expect(err).To(MatchError(cause))
		Expect(err.Error()).To(Equal("could not save: disk full"))
	})

	DescribeTable("helpers",
		func(err error, status int, message string) {
			var perr *strategy.ProcessingError
			Expect(errors.As(err, &perr)).To(BeTrue())
			Expect(perr.Status).To(Equal(status))
			Expect(perr.Error()).To(Equal(message))
		},
		Entry("not found", strategy.NotFound("post not found"), http.StatusNotFound, "post not found"),
		Entry("bad request", strategy.BadRequest("malformed form", nil), http.StatusBadRequest, "malformed form"),
	)
})
