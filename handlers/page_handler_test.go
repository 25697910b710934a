package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
	"github.com/rs/zerolog"

	"github.com/theemilyd/react-riftsurge/content"
	"github.com/theemilyd/react-riftsurge/fallback"
	"github.com/theemilyd/react-riftsurge/triemux"
)

func body(rr *httptest.ResponseRecorder) string {
	b, err := io.ReadAll(rr.Result().Body)
	Expect(err).NotTo(HaveOccurred())
	return string(b)
}

var _ = Describe("Page handlers", func() {
	var (
		server *ghttp.Server
		cms    *fakeCMS
		pages  *PageOptions
		mux    *triemux.Mux
		rr     *httptest.ResponseRecorder
	)

	mount := func() {
		mux = triemux.NewMux(zerolog.Nop())
		mux.Handle("/", false, NewHomeHandler(pages))
		mux.Handle("/services", false, NewFixedPageHandler(pages, "services"))
		mux.Handle("/blog", false, NewBlogHandler(pages))
		mux.Handle("/blog/:slug", false, NewPostHandler(pages))
		mux.Handle("/portfolio", false, NewPortfolioHandler(pages))
		mux.Handle("/portfolio/:slug", false, NewPortfolioItemHandler(pages))
		mux.Handle("/", true, NewGenericPageHandler(pages))
		mux.NotFound(NewNotFoundHandler(pages))
	}

	get := func(path string) {
		mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	}

	BeforeEach(func() {
		cms = newFakeCMS()
		server = ghttp.NewServer()
		server.RouteToHandler(http.MethodPost, "/graphql", cms.ServeHTTP)
		server.SetAllowUnhandledRequests(false)
		pages = newTestPages(server, nil)
		mount()
		rr = httptest.NewRecorder()
	})

	AfterEach(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		Expect(pages.Resolver.Shutdown(ctx)).To(Succeed())
		server.Close()
	})

	Context("a blog post that exists", func() {
		BeforeEach(func() {
			cms.reply(content.PostBySlugQuery.Name, map[string]any{"post": map[string]any{
				"id":      "cG9zdDox",
				"title":   "My Post",
				"slug":    "my-post",
				"content": "<p>Hello from the CMS</p>",
				"date":    "2024-03-05T10:00:00",
			}})
			get("/blog/my-post")
		})

		It("renders the post with its body verbatim", func() {
			Expect(rr.Code).To(Equal(http.StatusOK))
			html := body(rr)
			Expect(html).To(ContainSubstring("<title>My Post | RiftSurge</title>"))
			Expect(html).To(ContainSubstring("<p>Hello from the CMS</p>"))
			Expect(html).To(ContainSubstring("March 5, 2024"))
			Expect(html).NotTo(ContainSubstring("Static mode."))
		})

		It("sends the slug from the path", func() {
			Expect(server.ReceivedRequests()).NotTo(BeEmpty())
		})
	})

	Context("a page that does not exist", func() {
		It("renders the not-found view with 404", func() {
			get("/nonexistent-page")
			Expect(rr.Code).To(Equal(http.StatusNotFound))
			Expect(body(rr)).To(ContainSubstring("couldn't find the page"))
		})

		It("treats a missing post the same way", func() {
			get("/blog/nope")
			Expect(rr.Code).To(Equal(http.StatusNotFound))
		})
	})

	Context("a CMS page at an arbitrary path", func() {
		It("renders it through the catch-all", func() {
			cms.reply(content.PageByURIQuery.Name, map[string]any{"page": map[string]any{
				"id":      "cGFnZTo5",
				"title":   "Press Kit",
				"slug":    "press-kit",
				"content": "<p>Logos</p>",
			}})
			get("/press-kit")
			Expect(rr.Code).To(Equal(http.StatusOK))
			Expect(body(rr)).To(ContainSubstring("<p>Logos</p>"))
		})
	})

	Context("when the posts query fails", func() {
		It("renders the archive error inline with 503", func() {
			cms.reply(content.PostsQuery.Name, map[string]any{"posts": nil})
			get("/blog")
			Expect(rr.Code).To(Equal(http.StatusServiceUnavailable))
			Expect(body(rr)).To(ContainSubstring("couldn't load the latest posts"))
		})
	})

	Context("when the CMS is slower than the render budget", func() {
		It("renders a skeleton that refreshes itself", func() {
			pages.Budget = 50 * time.Millisecond
			cms.delay = 300 * time.Millisecond
			get("/services")

			Expect(rr.Code).To(Equal(http.StatusOK))
			Expect(rr.Header().Get("Cache-Control")).To(Equal("no-store"))
			Expect(body(rr)).To(ContainSubstring(`<meta http-equiv="refresh" content="2">`))
		})
	})

	Context("in static fallback mode", func() {
		BeforeEach(func() {
			pages.Policy = &fallback.Policy{ForceStatic: true}
		})

		It("serves bundled copy with the banner and never calls the CMS", func() {
			get("/services")

			Expect(rr.Code).To(Equal(http.StatusOK))
			html := body(rr)
			Expect(html).To(ContainSubstring("Static mode."))
			Expect(html).To(ContainSubstring("AI Portraits"))
			Expect(server.ReceivedRequests()).To(BeEmpty())
		})

		It("renders detail pages as not found with the banner", func() {
			get("/blog/my-post")

			Expect(rr.Code).To(Equal(http.StatusNotFound))
			Expect(body(rr)).To(ContainSubstring("Static mode."))
			Expect(server.ReceivedRequests()).To(BeEmpty())
		})
	})

	Context("on a preview host", func() {
		It("falls back to static content", func() {
			pages.Policy = &fallback.Policy{HostFragments: []string{fallback.DefaultHostFragment}}

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Host = "riftsurge-git-main.vercel.app"
			mux.ServeHTTP(rr, req)

			Expect(rr.Code).To(Equal(http.StatusOK))
			Expect(body(rr)).To(ContainSubstring("AI-Powered Art for Brands and Collectors"))
			Expect(server.ReceivedRequests()).To(BeEmpty())
		})
	})

	It("rejects methods other than GET and HEAD", func() {
		mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/services", nil))
		Expect(rr.Code).To(Equal(http.StatusMethodNotAllowed))
	})
})
