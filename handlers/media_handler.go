package handlers

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/theemilyd/react-riftsurge/content"
)

// NewMediaHandler proxies uploaded media (images referenced from content
// bodies) to the content origin. Without an origin it redirects to the
// placeholder image.
func NewMediaHandler(origin *url.URL, connectTimeout, headerTimeout time.Duration, logger zerolog.Logger) http.Handler {
	if origin == nil {
		return http.RedirectHandler(content.DefaultPlaceholder, http.StatusFound)
	}

	proxy := httputil.NewSingleHostReverseProxy(origin)
	proxy.Transport = newMediaTransport(connectTimeout, headerTimeout, logger)

	defaultDirector := proxy.Director
	proxy.Director = func(req *http.Request) {
		defaultDirector(req)

		// The origin serves media by virtual host.
		req.Host = origin.Host

		// An empty User-Agent header stops net/http from sending its default.
		if _, present := req.Header["User-Agent"]; !present {
			req.Header.Set("User-Agent", "")
		}

		// Only the path is forwarded; media never needs cookies.
		req.Header.Del("Cookie")

		populateViaHeader(req.Header, fmt.Sprintf("%d.%d", req.ProtoMajor, req.ProtoMinor))
	}

	return &mediaHandler{proxy: proxy, logger: logger}
}

type mediaHandler struct {
	proxy  http.Handler
	logger zerolog.Logger
}

func (h *mediaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	mediaRequestCountMetric.With(prometheus.Labels{
		"request_method": r.Method,
	}).Inc()

	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	h.proxy.ServeHTTP(rec, r)
	elapsed := time.Since(start)

	mediaResponseDurationSecondsMetric.With(prometheus.Labels{
		"request_method": r.Method,
		"response_code":  strconv.Itoa(rec.status),
	}).Observe(elapsed.Seconds())

	if rec.status >= http.StatusInternalServerError {
		h.logger.Warn().
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", elapsed).
			Msg("media proxy error")
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func populateViaHeader(header http.Header, httpVersion string) {
	via := httpVersion + " site"
	if prior, ok := header["Via"]; ok {
		via = strings.Join(prior, ", ") + ", " + via
	}
	header.Set("Via", via)
}

type mediaTransport struct {
	wrapped *http.Transport
	logger  zerolog.Logger
}

// newMediaTransport wraps an http.Transport so that connection failures
// become gateway responses instead of proxy errors.
func newMediaTransport(connectTimeout, headerTimeout time.Duration, logger zerolog.Logger) *mediaTransport {
	dialer := &net.Dialer{Timeout: connectTimeout}
	return &mediaTransport{
		wrapped: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           dialer.DialContext,
			MaxIdleConnsPerHost:   20,
			ResponseHeaderTimeout: headerTimeout,
			TLSHandshakeTimeout:   connectTimeout,
		},
		logger: logger,
	}
}

func (mt *mediaTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := mt.wrapped.RoundTrip(req)
	if err == nil {
		populateViaHeader(resp.Header, fmt.Sprintf("%d.%d", resp.ProtoMajor, resp.ProtoMinor))
		return resp, nil
	}

	mt.logger.Debug().Err(err).Str("url", req.URL.String()).Msg("media origin request failed")

	var netErr net.Error
	switch {
	case errors.As(err, &netErr) && netErr.Timeout():
		return newErrorResponse(http.StatusGatewayTimeout), nil
	case errors.Is(err, syscall.ECONNREFUSED):
		return newErrorResponse(http.StatusBadGateway), nil
	case err.Error() == "net/http: timeout awaiting response headers":
		return newErrorResponse(http.StatusGatewayTimeout), nil
	}
	return nil, err
}

func newErrorResponse(status int) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader("")),
	}
}
