package site

import (
	"errors"
	"fmt"

	"github.com/theemilyd/react-riftsurge/triemux"
)

// Kind names the handler a route is served by.
type Kind string

const (
	KindHome          Kind = "home"
	KindPage          Kind = "page"
	KindContact       Kind = "contact"
	KindBlog          Kind = "blog"
	KindPost          Kind = "post"
	KindPortfolio     Kind = "portfolio"
	KindPortfolioItem Kind = "portfolio_item"
	KindMedia         Kind = "media"
	KindAssets        Kind = "assets"
	KindPlaceholder   Kind = "placeholder"
	KindGeneric       Kind = "generic"
)

var knownKinds = map[Kind]bool{
	KindHome:          true,
	KindPage:          true,
	KindContact:       true,
	KindBlog:          true,
	KindPost:          true,
	KindPortfolio:     true,
	KindPortfolioItem: true,
	KindMedia:         true,
	KindAssets:        true,
	KindPlaceholder:   true,
	KindGeneric:       true,
}

// Route maps a URL pattern to a handler kind. Slug names the CMS page and
// bundled copy behind a KindPage route.
type Route struct {
	Pattern string
	Kind    Kind
	Slug    string
}

// Routes returns the site's routing table. Order is only cosmetic: the mux
// ranks exact and parameter routes above prefix routes, and longer prefixes
// above shorter ones.
func Routes() []Route {
	return []Route{
		{Pattern: "/", Kind: KindHome},
		{Pattern: "/services", Kind: KindPage, Slug: "services"},
		{Pattern: "/about", Kind: KindPage, Slug: "about"},
		{Pattern: "/contact", Kind: KindContact},
		{Pattern: "/portfolio", Kind: KindPortfolio},
		{Pattern: "/portfolio/:slug", Kind: KindPortfolioItem},
		{Pattern: "/blog", Kind: KindBlog},
		{Pattern: "/blog/:slug", Kind: KindPost},
		{Pattern: "/wp-content/*", Kind: KindMedia},
		{Pattern: "/assets/*", Kind: KindAssets},
		{Pattern: "/placeholder.png", Kind: KindPlaceholder},
		{Pattern: "/*", Kind: KindGeneric},
	}
}

// ValidateRoutes reports every duplicate pattern, unknown kind and page route
// without a slug.
func ValidateRoutes(routes []Route) error {
	var errs []error
	seen := make(map[string]bool, len(routes))

	for _, r := range routes {
		path, prefix := triemux.ParsePattern(r.Pattern)
		key := fmt.Sprintf("%s(%t)", path, prefix)
		if seen[key] {
			errs = append(errs, fmt.Errorf("duplicate route %q", r.Pattern))
		}
		seen[key] = true

		if !knownKinds[r.Kind] {
			errs = append(errs, fmt.Errorf("route %q has unknown kind %q", r.Pattern, r.Kind))
		}
		if r.Kind == KindPage && r.Slug == "" {
			errs = append(errs, fmt.Errorf("page route %q has no slug", r.Pattern))
		}
	}

	return errors.Join(errs...)
}

// StaticPaths are the pages written by a static export.
func StaticPaths() []string {
	var paths []string
	for _, r := range Routes() {
		switch r.Kind {
		case KindHome, KindPage, KindContact, KindBlog, KindPortfolio:
			paths = append(paths, r.Pattern)
		}
	}
	return paths
}
