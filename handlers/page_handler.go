package handlers

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/theemilyd/react-riftsurge/content"
	"github.com/theemilyd/react-riftsurge/fallback"
	"github.com/theemilyd/react-riftsurge/render"
	"github.com/theemilyd/react-riftsurge/resolver"
	"github.com/theemilyd/react-riftsurge/triemux"
)

const DefaultRenderBudget = 3 * time.Second

// PageOptions is shared by every page handler.
type PageOptions struct {
	Resolver *resolver.Resolver
	Renderer *render.Renderer
	Policy   *fallback.Policy
	// Budget bounds how long a render waits for its queries before it
	// falls back to a skeleton.
	Budget       time.Duration
	MenuLocation string
	Logger       zerolog.Logger
}

// pageContext holds the per-request state of one render: the resolver view,
// the layout queries and the render budget.
type pageContext struct {
	opts   *PageOptions
	r      *http.Request
	view   *resolver.View
	reason string

	ctx    context.Context
	cancel context.CancelFunc

	menu     *resolver.Task[[]content.MenuItem]
	settings *resolver.Task[*content.GeneralSettings]
}

func (o *PageOptions) begin(r *http.Request, page string) *pageContext {
	budget := o.Budget
	if budget <= 0 {
		budget = DefaultRenderBudget
	}
	location := o.MenuLocation
	if location == "" {
		location = resolver.DefaultMenuLocation
	}

	reason := o.Policy.Reason(r)
	fallbackLabel := reason
	if fallbackLabel == "" {
		fallbackLabel = "none"
	}
	pageRenderCountMetric.With(prometheus.Labels{
		"page":     page,
		"fallback": fallbackLabel,
	}).Inc()

	view := o.Resolver.Open(r.Context(), reason != "")
	ctx, cancel := context.WithTimeout(r.Context(), budget)

	return &pageContext{
		opts:     o,
		r:        r,
		view:     view,
		reason:   reason,
		ctx:      ctx,
		cancel:   cancel,
		menu:     o.Resolver.Menu(view, location),
		settings: o.Resolver.SiteSettings(view),
	}
}

func (pc *pageContext) static() bool {
	return pc.reason != ""
}

// layout waits for the layout queries within what is left of the budget.
func (pc *pageContext) layout(flash string) render.Layout {
	return pc.opts.Renderer.Layout(render.LayoutInput{
		Path:     pc.r.URL.Path,
		Static:   pc.static(),
		Flash:    flash,
		Menu:     pc.menu.Wait(pc.ctx),
		Settings: pc.settings.Wait(pc.ctx),
	})
}

func (pc *pageContext) close() {
	pc.view.Close()
	pc.cancel()
}

type pageHandler struct {
	opts   *PageOptions
	name   string
	render func(pc *pageContext, w http.ResponseWriter, r *http.Request)
}

func (h *pageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	pc := h.opts.begin(r, h.name)
	defer pc.close()

	if pc.static() {
		h.opts.Logger.Debug().Str("path", r.URL.Path).Str("reason", pc.reason).Msg("serving static fallback")
	}
	h.render(pc, w, r)
}

// NewHomeHandler renders "/" from the home page node and a portfolio
// preview.
func NewHomeHandler(o *PageOptions) http.Handler {
	return &pageHandler{opts: o, name: "home", render: func(pc *pageContext, w http.ResponseWriter, r *http.Request) {
		page := o.Resolver.Page(pc.view, "/")
		preview := o.Resolver.PortfolioItems(pc.view, resolver.CollectionParams{First: resolver.HomePortfolioPreview})

		pageOutcome := page.Wait(pc.ctx)
		previewOutcome := preview.Wait(pc.ctx)
		o.Renderer.Home(w, pc.layout(""), pageOutcome, previewOutcome)
	}}
}

// NewFixedPageHandler renders a CMS page with a bundled static
// counterpart, such as /services or /about.
func NewFixedPageHandler(o *PageOptions, slug string) http.Handler {
	view := render.FixedPageView
	view.StaticSlug = slug
	return &pageHandler{opts: o, name: slug, render: func(pc *pageContext, w http.ResponseWriter, r *http.Request) {
		outcome := o.Resolver.Page(pc.view, slug).Wait(pc.ctx)
		o.Renderer.Node(w, pc.layout(""), outcome, view)
	}}
}

func NewBlogHandler(o *PageOptions) http.Handler {
	return &pageHandler{opts: o, name: "blog", render: func(pc *pageContext, w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		params := resolver.CollectionParams{After: q.Get("after"), Category: q.Get("category")}

		outcome := o.Resolver.Posts(pc.view, params).Wait(pc.ctx)

		carry := url.Values{}
		if params.Category != "" {
			carry.Set("category", params.Category)
		}
		o.Renderer.Blog(w, pc.layout(""), outcome, carry)
	}}
}

func NewPortfolioHandler(o *PageOptions) http.Handler {
	return &pageHandler{opts: o, name: "portfolio", render: func(pc *pageContext, w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		params := resolver.CollectionParams{After: q.Get("after"), Category: q.Get("category")}

		outcome := o.Resolver.PortfolioItems(pc.view, params).Wait(pc.ctx)
		o.Renderer.Portfolio(w, pc.layout(""), outcome, params.Category)
	}}
}

// NewPostHandler renders /blog/:slug.
func NewPostHandler(o *PageOptions) http.Handler {
	return &pageHandler{opts: o, name: "post", render: func(pc *pageContext, w http.ResponseWriter, r *http.Request) {
		outcome := o.Resolver.Post(pc.view, triemux.Param(r, "slug")).Wait(pc.ctx)
		o.Renderer.Node(w, pc.layout(""), outcome, render.PostView)
	}}
}

// NewPortfolioItemHandler renders /portfolio/:slug.
func NewPortfolioItemHandler(o *PageOptions) http.Handler {
	return &pageHandler{opts: o, name: "portfolio_item", render: func(pc *pageContext, w http.ResponseWriter, r *http.Request) {
		outcome := o.Resolver.PortfolioItem(pc.view, triemux.Param(r, "slug")).Wait(pc.ctx)
		o.Renderer.Node(w, pc.layout(""), outcome, render.PortfolioItemView)
	}}
}

// NewGenericPageHandler looks any other path up as a CMS page URI.
func NewGenericPageHandler(o *PageOptions) http.Handler {
	return &pageHandler{opts: o, name: "generic", render: func(pc *pageContext, w http.ResponseWriter, r *http.Request) {
		outcome := o.Resolver.Generic(pc.view, r.URL.Path).Wait(pc.ctx)
		o.Renderer.Node(w, pc.layout(""), outcome, render.GenericPageView)
	}}
}

// NewNotFoundHandler renders the not-found view inside the usual layout.
func NewNotFoundHandler(o *PageOptions) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pc := o.begin(r, "not_found")
		defer pc.close()
		o.Renderer.NotFound(w, pc.layout(""))
	})
}
