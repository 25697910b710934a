package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Redirect kinds, used as the redirect_type metric label and in logs.
const (
	LegacyRedirect        = "legacy"
	LegacyPrefixRedirect  = "legacy-prefix"
	LowercaseRedirect     = "lowercase"
	TrailingSlashRedirect = "trailing-slash"
)

const redirectMaxAge = 30 * time.Minute

// permanentRedirect answers with a 301 to whatever location computes for the
// request.
type permanentRedirect struct {
	kind     string
	location func(*http.Request) string
	logger   zerolog.Logger
}

func (p *permanentRedirect) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	to := p.location(r)

	setRedirectCaching(w.Header())
	http.Redirect(w, r, to, http.StatusMovedPermanently)

	p.logger.Debug().
		Str("kind", p.kind).
		Str("from", r.URL.RequestURI()).
		Str("to", to).
		Msg("redirecting")
	redirectCountMetric.With(prometheus.Labels{"redirect_type": p.kind}).Inc()
}

// NewLegacyRedirect sends an old WordPress URL to its new home. With keepRest
// set, the rest of the request path after from is appended to to and the
// query is kept whole; otherwise only analytics parameters survive.
func NewLegacyRedirect(from, to string, keepRest bool, logger zerolog.Logger) http.Handler {
	if keepRest {
		return &permanentRedirect{
			kind:   LegacyPrefixRedirect,
			logger: logger,
			location: func(r *http.Request) string {
				return withRawQuery(to+strings.TrimPrefix(r.URL.Path, from), r.URL.RawQuery)
			},
		}
	}
	return &permanentRedirect{
		kind:   LegacyRedirect,
		logger: logger,
		location: func(r *http.Request) string {
			loc, err := withTrackingParams(to, r.URL.Query())
			if err != nil {
				logger.Warn().Err(err).Str("to", to).Msg("legacy redirect target does not parse, dropping analytics parameters")
			}
			return loc
		},
	}
}

// NewLowercaseRedirect sends "/Blog?Ref=X" to "/blog?Ref=X".
func NewLowercaseRedirect(logger zerolog.Logger) http.Handler {
	return &permanentRedirect{
		kind:   LowercaseRedirect,
		logger: logger,
		location: func(r *http.Request) string {
			return withRawQuery(strings.ToLower(r.URL.Path), r.URL.RawQuery)
		},
	}
}

// NewTrailingSlashRedirect sends "/blog/" to "/blog".
func NewTrailingSlashRedirect(logger zerolog.Logger) http.Handler {
	return &permanentRedirect{
		kind:   TrailingSlashRedirect,
		logger: logger,
		location: func(r *http.Request) string {
			path := strings.TrimRight(r.URL.Path, "/")
			if path == "" {
				path = "/"
			}
			return withRawQuery(path, r.URL.RawQuery)
		},
	}
}

type retiredHandler struct {
	logger zerolog.Logger
}

// NewRetiredHandler answers 410 for WordPress paths that were removed on
// purpose and have no replacement.
func NewRetiredHandler(logger zerolog.Logger) http.Handler {
	return &retiredHandler{logger: logger}
}

func (h *retiredHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	setRedirectCaching(w.Header())
	http.Error(w, http.StatusText(http.StatusGone), http.StatusGone)

	h.logger.Debug().Str("path", r.URL.Path).Msg("retired path requested")
	goneCountMetric.Inc()
}

func setRedirectCaching(h http.Header) {
	h.Set("Expires", time.Now().Add(redirectMaxAge).Format(time.RFC1123))
	h.Set("Cache-Control", fmt.Sprintf("max-age=%d, public", redirectMaxAge/time.Second))
}

func withRawQuery(path, rawQuery string) string {
	if rawQuery == "" {
		return path
	}
	return path + "?" + rawQuery
}

func isTrackingParam(name string) bool {
	return name == "_ga" || strings.HasPrefix(name, "utm_")
}

// withTrackingParams copies the analytics parameters of query onto to. On a
// parse error to is returned unchanged.
func withTrackingParams(to string, query url.Values) (string, error) {
	tracking := url.Values{}
	for name, vals := range query {
		if isTrackingParam(name) && len(vals) > 0 && vals[0] != "" {
			tracking.Set(name, vals[0])
		}
	}
	if len(tracking) == 0 {
		return to, nil
	}

	u, err := url.Parse(to)
	if err != nil {
		return to, err
	}
	values := u.Query()
	for name := range tracking {
		values.Set(name, tracking.Get(name))
	}
	u.RawQuery = values.Encode()
	return u.String(), nil
}
