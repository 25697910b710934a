// Package site assembles the public site: the routing table, the legacy
// redirects, the last-resort error boundary and the operational API.
package site

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/theemilyd/react-riftsurge/content"
	"github.com/theemilyd/react-riftsurge/fallback"
	"github.com/theemilyd/react-riftsurge/handlers"
	"github.com/theemilyd/react-riftsurge/logger"
	"github.com/theemilyd/react-riftsurge/render"
	"github.com/theemilyd/react-riftsurge/resolver"
	"github.com/theemilyd/react-riftsurge/triemux"
)

const reloadCheckInterval = 5 * time.Second

// Site is a wrapper around an HTTP multiplexer (triemux.Mux) serving the
// fixed routing table plus legacy redirects, which can be reloaded.
type Site struct {
	routes                []Route
	handlers              map[string]http.Handler
	notFound              http.Handler
	mux                   *triemux.Mux
	lock                  sync.RWMutex
	opts                  Options
	ReloadChan            chan bool
	lastAttemptReloadTime time.Time
	Logger                zerolog.Logger

	lowercase     http.Handler
	trailingSlash http.Handler
}

type Options struct {
	Resolver     *resolver.Resolver
	Renderer     *render.Renderer
	Policy       *fallback.Policy
	ContactStore handlers.ContactStore

	// MediaOrigin is where /wp-content/ requests are proxied. Nil serves the
	// placeholder image instead.
	MediaOrigin          *url.URL
	BackendConnTimeout   time.Duration
	BackendHeaderTimeout time.Duration

	RenderBudget         time.Duration
	ContactRatePerMinute int

	RedirectsFile          string
	RedirectReloadInterval time.Duration

	Logger zerolog.Logger
}

// RegisterMetrics registers Prometheus metrics from the site module and the
// modules that it directly depends on. To use the default (global) registry,
// pass prometheus.DefaultRegisterer.
func RegisterMetrics(r prometheus.Registerer) {
	registerMetrics(r)
}

func NewSite(o Options) (*Site, error) {
	routes := Routes()
	if err := ValidateRoutes(routes); err != nil {
		return nil, fmt.Errorf("invalid routing table: %w", err)
	}

	pages := &handlers.PageOptions{
		Resolver: o.Resolver,
		Renderer: o.Renderer,
		Policy:   o.Policy,
		Budget:   o.RenderBudget,
		Logger:   o.Logger,
	}

	s := &Site{
		routes:     routes,
		handlers:   make(map[string]http.Handler, len(routes)),
		notFound:   handlers.NewNotFoundHandler(pages),
		Logger:     o.Logger,
		opts:       o,
		ReloadChan: make(chan bool, 1),

		lowercase:     handlers.NewLowercaseRedirect(o.Logger),
		trailingSlash: handlers.NewTrailingSlashRedirect(o.Logger),
	}

	for _, r := range routes {
		h, err := s.handlerFor(r, pages)
		if err != nil {
			return nil, err
		}
		s.handlers[r.Pattern] = h
	}

	s.reloadRedirects()
	go s.waitForReload()

	return s, nil
}

func (s *Site) handlerFor(r Route, pages *handlers.PageOptions) (http.Handler, error) {
	switch r.Kind {
	case KindHome:
		return handlers.NewHomeHandler(pages), nil
	case KindPage:
		return handlers.NewFixedPageHandler(pages, r.Slug), nil
	case KindContact:
		store := s.opts.ContactStore
		if store == nil {
			store = LogContactStore{Logger: s.Logger}
		}
		return handlers.NewContactHandler(handlers.ContactOptions{
			Pages:         pages,
			Store:         store,
			RatePerMinute: s.opts.ContactRatePerMinute,
		}), nil
	case KindBlog:
		return handlers.NewBlogHandler(pages), nil
	case KindPost:
		return handlers.NewPostHandler(pages), nil
	case KindPortfolio:
		return handlers.NewPortfolioHandler(pages), nil
	case KindPortfolioItem:
		return handlers.NewPortfolioItemHandler(pages), nil
	case KindMedia:
		return handlers.NewMediaHandler(s.opts.MediaOrigin, s.opts.BackendConnTimeout, s.opts.BackendHeaderTimeout, s.Logger), nil
	case KindAssets:
		path, _ := triemux.ParsePattern(r.Pattern)
		return handlers.NewAssetHandler(path, render.Assets()), nil
	case KindPlaceholder:
		return handlers.NewFileHandler(render.Assets(), strings.TrimPrefix(content.DefaultPlaceholder, "/")), nil
	case KindGeneric:
		return handlers.NewGenericPageHandler(pages), nil
	default:
		return nil, fmt.Errorf("no handler for route kind %q", r.Kind)
	}
}

// ServeHTTP delegates responsibility for serving requests to the mux
// instance for this site. Panics end in the generic error page.
func (s *Site) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%v", r)
			s.Logger.Err(err).Str("path", req.URL.Path).Msg("recovered from panic in ServeHTTP")

			logger.NotifySentry(logger.ReportableError{
				Error:   logger.RecoveredError{ErrorMessage: err.Error()},
				Request: req,
			})
			internalServerErrorCountMetric.With(prometheus.Labels{"host": req.Host}).Inc()

			s.opts.Renderer.Error(w, s.opts.Renderer.Layout(render.LayoutInput{Path: req.URL.Path}), err)
		}
	}()

	path := req.URL.Path
	if !s.verbatim(path) {
		switch {
		case len(path) > 1 && strings.HasSuffix(path, "/"):
			s.trailingSlash.ServeHTTP(w, req)
			return
		case strings.ToLower(path) != path:
			s.lowercase.ServeHTTP(w, req)
			return
		}
	}

	var mux *triemux.Mux

	s.lock.RLock()
	mux = s.mux
	s.lock.RUnlock()

	mux.ServeHTTP(w, req)
}

// verbatim is true under the media and asset prefixes, where paths are file
// names and are passed through without canonicalisation.
func (s *Site) verbatim(path string) bool {
	for _, r := range s.routes {
		if r.Kind != KindMedia && r.Kind != KindAssets {
			continue
		}
		if prefix, _ := triemux.ParsePattern(r.Pattern); strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// RouteCount is the number of registrations in the live mux.
func (s *Site) RouteCount() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.mux.RouteCount()
}

// Reload queues a redirect reload and drops memoised content.
func (s *Site) Reload() {
	// Non-blocking: a queued reload already covers this request.
	select {
	case s.ReloadChan <- true:
	default:
	}
	if s.opts.Resolver != nil {
		s.opts.Resolver.Purge()
	}
}

// PeriodicRedirectUpdates queues a reload whenever the last attempt is
// older than the reload interval. It returns when ctx is done.
func (s *Site) PeriodicRedirectUpdates(ctx context.Context) {
	if s.opts.RedirectsFile == "" || s.opts.RedirectReloadInterval <= 0 {
		return
	}

	tick := time.NewTicker(reloadCheckInterval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			s.lock.RLock()
			last := s.lastAttemptReloadTime
			s.lock.RUnlock()
			if time.Since(last) > s.opts.RedirectReloadInterval {
				select {
				case s.ReloadChan <- true:
				default:
				}
			}
		}
	}
}

func (s *Site) waitForReload() {
	for range s.ReloadChan {
		s.reloadRedirects()
	}
}

// reloadRedirects builds a fresh mux from the routing table and the
// redirects file and swaps it in. On failure the live mux is kept.
func (s *Site) reloadRedirects() {
	var success bool
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		redirectReloadDurationMetric.With(prometheus.Labels{"success": strconv.FormatBool(success)}).Observe(v)
	}))

	defer func() {
		if r := recover(); r != nil {
			success = false
			s.Logger.Err(fmt.Errorf("%v", r)).Msg("recovered from panic in reloadRedirects")
			s.Logger.Info().Msg("reload failed and existing routes have not been modified")
		}
		redirectReloadCountMetric.With(prometheus.Labels{"success": strconv.FormatBool(success)}).Inc()
		timer.ObserveDuration()
	}()

	s.lock.Lock()
	s.lastAttemptReloadTime = time.Now()
	s.lock.Unlock()

	newmux := triemux.NewMux(s.Logger)
	newmux.NotFound(s.notFound)

	reserved := make(map[string]bool, len(s.routes))
	for _, r := range s.routes {
		path, prefix := triemux.ParsePattern(r.Pattern)
		newmux.Handle(path, prefix, s.handlers[r.Pattern])
		if !prefix {
			reserved[path] = true
		}
	}

	if s.opts.RedirectsFile != "" {
		s.Logger.Info().Str("file", s.opts.RedirectsFile).Msg("reloading redirects")
		if err := loadRedirectsFromFile(s.opts.RedirectsFile, newmux, reserved, s.Logger); err != nil {
			redirectReloadErrorCountMetric.Inc()
			s.Logger.Warn().Err(err).Msg("error reloading redirects")
			s.lock.RLock()
			live := s.mux
			s.lock.RUnlock()
			// Boot must still produce a working mux without the file.
			if live != nil {
				return
			}
		}
	}

	routeCount := newmux.RouteCount()

	s.lock.Lock()
	s.mux = newmux
	s.lock.Unlock()

	success = true
	s.Logger.Info().Int("route_count", routeCount).Msg("reloaded routes")
	routesCountMetric.Set(float64(routeCount))
}
