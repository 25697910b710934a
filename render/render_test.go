package render_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/rs/zerolog"

	"github.com/theemilyd/react-riftsurge/content"
	"github.com/theemilyd/react-riftsurge/render"
	"github.com/theemilyd/react-riftsurge/resolver"
)

func nodeOutcome(state resolver.State, n *content.Node) resolver.Outcome[*content.Node] {
	return resolver.Outcome[*content.Node]{State: state, Value: n}
}

func connOutcome(state resolver.State, c *content.Connection) resolver.Outcome[*content.Connection] {
	return resolver.Outcome[*content.Connection]{State: state, Value: c}
}

var _ = Describe("Renderer", func() {
	var (
		rd     *render.Renderer
		rw     *httptest.ResponseRecorder
		layout render.Layout
	)

	BeforeEach(func() {
		var err error
		rd, err = render.New(render.Options{
			Assets: content.AssetResolver{BaseURL: "https://cms.example.com"},
			Logger: zerolog.New(GinkgoWriter),
		})
		Expect(err).NotTo(HaveOccurred())

		rw = httptest.NewRecorder()
		layout = rd.Layout(render.LayoutInput{Path: "/about"})
	})

	Describe("Layout", func() {
		It("uses built-in defaults when layout queries did not succeed", func() {
			Expect(layout.SiteTitle).To(Equal("RiftSurge"))
			Expect(layout.Menu).To(HaveLen(6))
			Expect(layout.Menu[4]).To(Equal(render.MenuLink{Label: "About", Path: "/about", Active: true}))
		})

		It("uses the site settings and top-level menu items in order", func() {
			l := rd.Layout(render.LayoutInput{
				Path: "/blog/my-post",
				Settings: resolver.Outcome[*content.GeneralSettings]{
					State: resolver.Success,
					Value: &content.GeneralSettings{Title: "Rift Surge Studio", Description: "AI art"},
				},
				Menu: resolver.Outcome[[]content.MenuItem]{
					State: resolver.Success,
					Value: []content.MenuItem{
						{ID: "2", Label: "Blog", Path: "/blog", Order: 2},
						{ID: "3", Label: "Archive", Path: "/blog/archive", Order: 3, ParentID: "2"},
						{ID: "1", Label: "Home", Path: "/", Order: 1},
					},
				},
			})

			Expect(l.SiteTitle).To(Equal("Rift Surge Studio"))
			Expect(l.SiteDescription).To(Equal("AI art"))
			Expect(l.Menu).To(Equal([]render.MenuLink{
				{Label: "Home", Path: "/"},
				{Label: "Blog", Path: "/blog", Active: true},
			}))
		})
	})

	Describe("Node", func() {
		It("renders the body verbatim on success", func() {
			rd.Node(rw, layout, nodeOutcome(resolver.Success, &content.Node{
				ID:      "cGFnZTox",
				Title:   "About",
				Content: `<p>We make <em>images</em>.</p><script>track()</script>`,
				SEO:     &content.SEO{Title: "About RiftSurge", MetaDesc: "Who we are"},
			}), render.FixedPageView)

			Expect(rw.Code).To(Equal(http.StatusOK))
			Expect(rw.Header().Get("Content-Type")).To(Equal("text/html; charset=utf-8"))
			body := rw.Body.String()
			Expect(body).To(ContainSubstring(`<p>We make <em>images</em>.</p><script>track()</script>`))
			Expect(body).To(ContainSubstring("<title>About RiftSurge | RiftSurge</title>"))
			Expect(body).To(ContainSubstring(`content="Who we are"`))
			Expect(body).NotTo(ContainSubstring("Static mode."))
		})

		It("renders post metadata", func() {
			rd.Node(rw, layout, nodeOutcome(resolver.Success, &content.Node{
				ID:            "cG9zdDox",
				Title:         "My Post",
				Content:       "<p>Body</p>",
				Date:          "2024-03-05T10:00:00",
				Author:        &content.Author{Node: &content.Person{Name: "Emily"}},
				FeaturedImage: &content.FeaturedImage{Node: &content.Image{SourceURL: "/wp-content/uploads/a.png", AltText: "A"}},
			}), render.PostView)

			body := rw.Body.String()
			Expect(body).To(ContainSubstring("<h1>My Post</h1>"))
			Expect(body).To(ContainSubstring("By Emily"))
			Expect(body).To(ContainSubstring("March 5, 2024"))
			Expect(body).To(ContainSubstring(`src="https://cms.example.com/wp-content/uploads/a.png"`))
		})

		DescribeTable("renders the not-found view",
			func(state resolver.State) {
				rd.Node(rw, layout, nodeOutcome(state, nil), render.GenericPageView)

				Expect(rw.Code).To(Equal(http.StatusNotFound))
				Expect(rw.Body.String()).To(ContainSubstring("couldn't find the page"))
			},
			Entry("when absent", resolver.Absent),
			Entry("when failed", resolver.Error),
		)

		It("renders a skeleton while pending", func() {
			rd.Node(rw, layout, nodeOutcome(resolver.Pending, nil), render.PostView)

			Expect(rw.Code).To(Equal(http.StatusOK))
			Expect(rw.Header().Get("Cache-Control")).To(Equal("no-store"))
			Expect(rw.Body.String()).To(ContainSubstring("skeleton-post"))
			Expect(rw.Body.String()).To(ContainSubstring(`http-equiv="refresh" content="2"`))
		})

		It("renders static copy with the banner in static mode", func() {
			view := render.FixedPageView
			view.StaticSlug = "services"
			rd.Node(rw, layout, nodeOutcome(resolver.StaticFallback, nil), view)

			Expect(rw.Code).To(Equal(http.StatusOK))
			body := rw.Body.String()
			Expect(body).To(ContainSubstring("Static mode."))
			Expect(body).To(ContainSubstring(`<h2 id="ai-portraits">AI Portraits</h2>`))
		})

		It("renders not-found with the banner for pages without static copy", func() {
			rd.Node(rw, layout, nodeOutcome(resolver.StaticFallback, nil), render.PortfolioItemView)

			Expect(rw.Code).To(Equal(http.StatusNotFound))
			Expect(rw.Body.String()).To(ContainSubstring("Static mode."))
		})
	})

	Describe("Home", func() {
		preview := &content.Connection{Nodes: []content.Node{
			{ID: "1", Title: "Neon City", Slug: "neon-city"},
		}}

		It("renders the page and the preview", func() {
			rd.Home(rw, layout,
				nodeOutcome(resolver.Success, &content.Node{ID: "1", Title: "Home", Content: "<p>Welcome</p>"}),
				connOutcome(resolver.Success, preview))

			body := rw.Body.String()
			Expect(body).To(ContainSubstring("<p>Welcome</p>"))
			Expect(body).To(ContainSubstring(`href="/portfolio/neon-city"`))
			Expect(body).To(ContainSubstring(`src="/placeholder.png"`))
		})

		It("keeps the page while the preview is still loading", func() {
			rd.Home(rw, layout,
				nodeOutcome(resolver.Success, &content.Node{ID: "1", Title: "Home", Content: "<p>Welcome</p>"}),
				connOutcome(resolver.Pending, nil))

			body := rw.Body.String()
			Expect(body).To(ContainSubstring("<p>Welcome</p>"))
			Expect(body).To(ContainSubstring(`aria-busy="true"`))
			Expect(body).To(ContainSubstring(`http-equiv="refresh"`))
		})

		It("falls back to static copy with a notice when the page cannot be loaded", func() {
			rd.Home(rw, layout, nodeOutcome(resolver.Error, nil), connOutcome(resolver.Error, nil))

			Expect(rw.Code).To(Equal(http.StatusOK))
			body := rw.Body.String()
			Expect(body).To(ContainSubstring("couldn&#39;t reach our content service"))
			Expect(body).To(ContainSubstring("AI-Powered Art for Brands and Collectors"))
		})

		It("uses static copy without the outage notice when the backend has no home page", func() {
			rd.Home(rw, layout, nodeOutcome(resolver.Absent, nil), connOutcome(resolver.Success, preview))

			Expect(rw.Code).To(Equal(http.StatusOK))
			body := rw.Body.String()
			Expect(body).To(ContainSubstring("AI-Powered Art for Brands and Collectors"))
			Expect(body).NotTo(ContainSubstring("couldn&#39;t reach our content service"))
			Expect(body).NotTo(ContainSubstring("Static mode."))
			Expect(body).To(ContainSubstring(`href="/portfolio/neon-city"`))
		})
	})

	Describe("Blog", func() {
		It("features the newest post and links to older ones", func() {
			rd.Blog(rw, layout, connOutcome(resolver.Success, &content.Connection{
				PageInfo: content.PageInfo{HasNextPage: true, EndCursor: "YXJyYXk6MTA="},
				Nodes: []content.Node{
					{ID: "1", Title: "Newest", Slug: "newest", Date: "2024-05-01T09:00:00"},
					{ID: "2", Title: "Older", Slug: "older"},
				},
			}), url.Values{})

			body := rw.Body.String()
			Expect(body).To(ContainSubstring(`<article class="featured">`))
			Expect(body).To(ContainSubstring("<h2>Newest</h2>"))
			Expect(body).To(ContainSubstring("May 1, 2024"))
			Expect(body).To(ContainSubstring("<h3>Older</h3>"))
			Expect(body).To(ContainSubstring(`href="/blog?after=YXJyYXk6MTA%3D"`))
		})

		It("shows an empty state", func() {
			rd.Blog(rw, layout, connOutcome(resolver.Success, &content.Connection{}), url.Values{})
			Expect(rw.Body.String()).To(ContainSubstring("No posts found."))
		})

		It("reports a failed load", func() {
			rd.Blog(rw, layout, connOutcome(resolver.Error, nil), url.Values{})
			Expect(rw.Code).To(Equal(http.StatusServiceUnavailable))
			Expect(rw.Body.String()).To(ContainSubstring("couldn't load the latest posts"))
		})
	})

	Describe("Portfolio", func() {
		It("marks the active category", func() {
			rd.Portfolio(rw, layout, connOutcome(resolver.Success, &content.Connection{
				Nodes: []content.Node{{ID: "1", Title: "Portrait", Slug: "portrait"}},
			}), "ai-portraits")

			body := rw.Body.String()
			Expect(body).To(ContainSubstring(`<a href="/portfolio?category=ai-portraits" aria-current="true">AI Portraits</a>`))
			Expect(body).To(ContainSubstring(`href="/portfolio/portrait"`))
		})

		It("renders static copy in static mode", func() {
			rd.Portfolio(rw, layout, connOutcome(resolver.StaticFallback, nil), "")
			Expect(rw.Body.String()).To(ContainSubstring("not available in static mode"))
		})
	})

	Describe("Contact", func() {
		It("re-renders the form with errors", func() {
			rd.Contact(rw, layout, nodeOutcome(resolver.StaticFallback, nil), render.ContactForm{
				Values: map[string]string{"name": "Ada", "email": "not-an-email"},
				Errors: map[string]string{"email": "Please enter a valid email address."},
			})

			Expect(rw.Code).To(Equal(http.StatusUnprocessableEntity))
			body := rw.Body.String()
			Expect(body).To(ContainSubstring(`value="Ada"`))
			Expect(body).To(ContainSubstring("Please enter a valid email address."))
			Expect(body).To(ContainSubstring("Let&#39;s Create Together"))
		})

		It("keeps the form reachable when the backend has no contact page", func() {
			rd.Contact(rw, layout, nodeOutcome(resolver.Absent, nil), render.ContactForm{})

			Expect(rw.Code).To(Equal(http.StatusOK))
			body := rw.Body.String()
			Expect(body).To(ContainSubstring(`<form class="contact-form"`))
			Expect(body).To(ContainSubstring("Let&#39;s Create Together"))
			Expect(body).NotTo(ContainSubstring("Static mode."))
		})

		It("shows the outage notice beside the form when the page cannot be loaded", func() {
			rd.Contact(rw, layout, nodeOutcome(resolver.Error, nil), render.ContactForm{})

			Expect(rw.Code).To(Equal(http.StatusOK))
			body := rw.Body.String()
			Expect(body).To(ContainSubstring(`<form class="contact-form"`))
			Expect(body).To(ContainSubstring("couldn&#39;t reach our content service"))
		})
	})

	Describe("Error", func() {
		It("renders the generic error view with a reload action", func() {
			rd.Error(rw, layout, errors.New("boom"))

			Expect(rw.Code).To(Equal(http.StatusInternalServerError))
			body := rw.Body.String()
			Expect(body).To(ContainSubstring("Something went wrong"))
			Expect(body).To(ContainSubstring("Refresh Page"))
			Expect(body).NotTo(ContainSubstring("boom"))
		})
	})

	It("bundles static copy for every fixed page", func() {
		for _, slug := range []string{"home", "services", "about", "contact", "blog", "portfolio"} {
			doc, ok := rd.StaticDoc(slug)
			Expect(ok).To(BeTrue(), slug)
			Expect(doc.Title).NotTo(BeEmpty())
			Expect(string(doc.Body)).NotTo(BeEmpty())
		}
	})
})
