// Package render turns query outcomes into HTML pages.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/theemilyd/react-riftsurge/content"
	"github.com/theemilyd/react-riftsurge/resolver"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	DefaultSiteTitle = "RiftSurge"

	// PendingRefresh is how many seconds a skeleton waits before the browser
	// asks again.
	PendingRefresh = 2

	unavailableNotice = "We couldn't reach our content service, so you're seeing a static version of this page."
)

var pageTemplates = []string{
	"skeleton",
	"page",
	"post",
	"portfolio_item",
	"home",
	"static",
	"blog",
	"portfolio",
	"contact",
	"not_found",
	"error",
}

type Options struct {
	Assets    content.AssetResolver
	SiteTitle string
	Logger    zerolog.Logger
	// ShowErrorDetail includes panic messages on the error page.
	ShowErrorDetail bool
}

type Renderer struct {
	pages           map[string]*template.Template
	static          map[string]StaticDoc
	siteTitle       string
	logger          zerolog.Logger
	showErrorDetail bool
	now             func() time.Time
}

// LayoutInput is what a page knows about its surroundings when it renders.
type LayoutInput struct {
	Path     string
	Static   bool
	Flash    string
	Menu     resolver.Outcome[[]content.MenuItem]
	Settings resolver.Outcome[*content.GeneralSettings]
}

// NodeView describes how a single-node page is presented.
type NodeView struct {
	Template   string
	Shape      Shape
	StaticSlug string
}

var (
	FixedPageView     = NodeView{Template: "page", Shape: ShapePage}
	GenericPageView   = NodeView{Template: "page", Shape: ShapePage}
	PostView          = NodeView{Template: "post", Shape: ShapePost}
	PortfolioItemView = NodeView{Template: "portfolio_item", Shape: ShapePost}
)

func New(o Options) (*Renderer, error) {
	if o.SiteTitle == "" {
		o.SiteTitle = DefaultSiteTitle
	}

	funcs := template.FuncMap{
		"asset":   o.Assets.Resolve,
		"date":    FormatDate,
		"trusted": trusted,
	}

	base, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parsing layout: %w", err)
	}

	pages := make(map[string]*template.Template, len(pageTemplates))
	for _, name := range pageTemplates {
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(templateFS, "templates/"+name+".html"); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}
		pages[name] = t
	}

	docs, err := loadStaticDocs(staticFS, newMarkdown())
	if err != nil {
		return nil, err
	}

	return &Renderer{
		pages:           pages,
		static:          docs,
		siteTitle:       o.SiteTitle,
		logger:          o.Logger,
		showErrorDetail: o.ShowErrorDetail,
		now:             time.Now,
	}, nil
}

// StaticDoc returns the bundled copy for slug.
func (rd *Renderer) StaticDoc(slug string) (StaticDoc, bool) {
	doc, ok := rd.static[slug]
	return doc, ok
}

// Layout builds the page chrome. Menu and settings fall back to built-in
// defaults unless their queries succeeded.
func (rd *Renderer) Layout(in LayoutInput) Layout {
	l := Layout{
		SiteTitle: rd.siteTitle,
		Path:      in.Path,
		Static:    in.Static,
		Flash:     in.Flash,
		Year:      rd.now().Year(),
	}

	if in.Settings.State == resolver.Success && in.Settings.Value != nil {
		if in.Settings.Value.Title != "" {
			l.SiteTitle = in.Settings.Value.Title
		}
		l.SiteDescription = in.Settings.Value.Description
	}

	if in.Menu.State == resolver.Success && len(in.Menu.Value) > 0 {
		l.Menu = menuLinks(in.Menu.Value, in.Path)
	} else {
		l.Menu = make([]MenuLink, len(defaultMenu))
		for i, link := range defaultMenu {
			link.Active = isActive(link.Path, in.Path)
			l.Menu[i] = link
		}
	}

	return l
}

// Node renders a page showing a single content node.
func (rd *Renderer) Node(w http.ResponseWriter, l Layout, o resolver.Outcome[*content.Node], v NodeView) {
	switch o.State {
	case resolver.Success:
		l.Title = o.Value.SEOTitle()
		l.Description = o.Value.MetaDescription()
		rd.write(w, http.StatusOK, v.Template, o.State, nodeData{Layout: l, Node: o.Value})
	case resolver.Absent, resolver.Error:
		rd.NotFound(w, l)
	case resolver.StaticFallback:
		l.Static = true
		if doc, ok := rd.static[v.StaticSlug]; ok && v.StaticSlug != "" {
			rd.staticPage(w, l, doc)
			return
		}
		rd.NotFound(w, l)
	default:
		rd.Skeleton(w, l, v.Shape)
	}
}

// Home renders the landing page from the home page node and the portfolio
// preview, which settle independently.
func (rd *Renderer) Home(w http.ResponseWriter, l Layout, page resolver.Outcome[*content.Node], preview resolver.Outcome[*content.Connection]) {
	data := homeData{}

	switch page.State {
	case resolver.Idle, resolver.Pending:
		rd.Skeleton(w, l, ShapePage)
		return
	case resolver.Success:
		data.Page = page.Value
		l.Description = page.Value.MetaDescription()
	case resolver.StaticFallback:
		l.Static = true
		data.Doc = rd.staticDoc("home")
	case resolver.Error:
		l.Static = true
		l.Notice = unavailableNotice
		data.Doc = rd.staticDoc("home")
	default:
		// The backend answered but has no home page.
		data.Doc = rd.staticDoc("home")
	}
	if data.Doc != nil {
		l.Description = data.Doc.Description
	}

	switch preview.State {
	case resolver.Idle, resolver.Pending:
		data.PreviewPending = true
		l.Refresh = PendingRefresh
	case resolver.Success:
		data.Preview = cards(preview.Value, "/portfolio")
	}

	data.Layout = l
	rd.write(w, http.StatusOK, "home", page.State, data)
}

// Blog renders the post archive. The newest post is featured.
func (rd *Renderer) Blog(w http.ResponseWriter, l Layout, posts resolver.Outcome[*content.Connection], query url.Values) {
	l.Title = "Blog"

	switch posts.State {
	case resolver.Idle, resolver.Pending:
		rd.Skeleton(w, l, ShapeGrid)
	case resolver.StaticFallback:
		l.Static = true
		rd.staticPage(w, l, *rd.staticDoc("blog"))
	case resolver.Success:
		all := cards(posts.Value, "/blog")
		data := blogData{Layout: l, NextHref: nextHref("/blog", posts.Value, query)}
		if len(all) > 0 {
			data.Featured = &all[0]
			data.Posts = all[1:]
		}
		rd.write(w, http.StatusOK, "blog", posts.State, data)
	default:
		rd.write(w, http.StatusServiceUnavailable, "blog", posts.State, blogData{Layout: l, Failed: true})
	}
}

// Portfolio renders the portfolio archive filtered by category.
func (rd *Renderer) Portfolio(w http.ResponseWriter, l Layout, items resolver.Outcome[*content.Connection], category string) {
	l.Title = "Portfolio"

	categories := make([]Category, len(PortfolioCategories))
	for i, c := range PortfolioCategories {
		c.Active = c.Slug == category
		categories[i] = c
	}

	switch items.State {
	case resolver.Idle, resolver.Pending:
		rd.Skeleton(w, l, ShapeGrid)
	case resolver.StaticFallback:
		l.Static = true
		rd.staticPage(w, l, *rd.staticDoc("portfolio"))
	case resolver.Success:
		query := url.Values{}
		if category != "" {
			query.Set("category", category)
		}
		rd.write(w, http.StatusOK, "portfolio", items.State, portfolioData{
			Layout:     l,
			Items:      cards(items.Value, "/portfolio"),
			Categories: categories,
			NextHref:   nextHref("/portfolio", items.Value, query),
		})
	default:
		rd.write(w, http.StatusServiceUnavailable, "portfolio", items.State, portfolioData{
			Layout:     l,
			Categories: categories,
			Failed:     true,
		})
	}
}

// Contact renders the contact page with its form. A form carrying errors is
// answered with 422 unless it sets its own status.
func (rd *Renderer) Contact(w http.ResponseWriter, l Layout, page resolver.Outcome[*content.Node], form ContactForm) {
	status := form.Status
	if status == 0 {
		status = http.StatusOK
		if len(form.Errors) > 0 {
			status = http.StatusUnprocessableEntity
		}
	}

	// The form is always reachable: without a CMS page the bundled copy
	// stands in for the introduction.
	data := contactData{Form: form}
	switch page.State {
	case resolver.Idle, resolver.Pending:
		rd.Skeleton(w, l, ShapePage)
		return
	case resolver.Success:
		data.Node = page.Value
		l.Title = page.Value.SEOTitle()
		l.Description = page.Value.MetaDescription()
	default:
		switch page.State {
		case resolver.StaticFallback:
			l.Static = true
		case resolver.Error:
			l.Static = true
			l.Notice = unavailableNotice
		}
		data.Doc = rd.staticDoc("contact")
		l.Title = data.Doc.Title
		l.Description = data.Doc.Description
	}

	data.Layout = l
	rd.write(w, status, "contact", page.State, data)
}

// Skeleton renders the loading shape of a page and asks the browser to
// reload shortly.
func (rd *Renderer) Skeleton(w http.ResponseWriter, l Layout, shape Shape) {
	l.Refresh = PendingRefresh
	w.Header().Set("Cache-Control", "no-store")
	rd.write(w, http.StatusOK, "skeleton", resolver.Pending, skeletonData{Layout: l, Shape: shape})
}

func (rd *Renderer) NotFound(w http.ResponseWriter, l Layout) {
	l.Title = "Page not found"
	rd.write(w, http.StatusNotFound, "not_found", resolver.Absent, nodeData{Layout: l})
}

// Error renders the last-resort error page.
func (rd *Renderer) Error(w http.ResponseWriter, l Layout, cause error) {
	l.Title = "Something went wrong"
	l.Refresh = 0
	data := errorData{Layout: l}
	if rd.showErrorDetail && cause != nil {
		data.Detail = cause.Error()
	}
	w.Header().Set("Cache-Control", "no-store")
	rd.write(w, http.StatusInternalServerError, "error", resolver.Error, data)
}

func (rd *Renderer) staticPage(w http.ResponseWriter, l Layout, doc StaticDoc) {
	l.Title = doc.Title
	l.Description = doc.Description
	rd.write(w, http.StatusOK, "static", resolver.StaticFallback, staticData{Layout: l, Doc: &doc})
}

func (rd *Renderer) staticDoc(slug string) *StaticDoc {
	doc, ok := rd.static[slug]
	if !ok {
		doc = StaticDoc{Slug: slug, Title: rd.siteTitle}
	}
	return &doc
}

func (rd *Renderer) write(w http.ResponseWriter, status int, page string, state resolver.State, data any) {
	t, ok := rd.pages[page]
	if !ok {
		panic(fmt.Sprintf("render: unknown page template %q", page))
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		rd.logger.Error().Err(err).Str("template", page).Msg("failed to render page")
		renderFailureCountMetric.WithLabelValues(page).Inc()
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	renderCountMetric.WithLabelValues(page, state.String()).Inc()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		rd.logger.Debug().Err(err).Str("template", page).Msg("client went away while writing page")
	}
}
