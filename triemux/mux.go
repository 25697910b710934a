// Package triemux implements an HTTP multiplexer, or URL router, which can be
// used to serve responses from multiple distinct handlers within a single URL
// hierarchy.
//
// Exact routes (which may contain ":name" parameter segments) always take
// precedence over prefix routes, and longer prefixes take precedence over
// shorter ones. Precedence therefore depends only on the shape of the
// registered patterns, never on the order in which they were registered.
package triemux

import (
	"context"
	"crypto/sha1"
	"hash"
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/theemilyd/react-riftsurge/trie"
)

type Mux struct {
	mu         sync.RWMutex
	exactTrie  *trie.Trie[muxEntry]
	prefixTrie *trie.Trie[muxEntry]
	count      int
	checksum   hash.Hash
	notFound   http.Handler
	logger     zerolog.Logger
}

type muxEntry struct {
	pattern string
	prefix  bool
	handler http.Handler
}

// Match describes the registered route selected for a path.
type Match struct {
	Pattern string
	Prefix  bool
	Handler http.Handler
	Params  trie.Params
}

type paramsKey struct{}

// NewMux makes a new empty Mux.
func NewMux(logger zerolog.Logger) *Mux {
	return &Mux{
		exactTrie:  trie.NewTrie[muxEntry](),
		prefixTrie: trie.NewTrie[muxEntry](),
		checksum:   sha1.New(),
		notFound:   http.NotFoundHandler(),
		logger:     logger,
	}
}

// ParsePattern splits a route pattern into the path to register and whether
// it is a prefix route. A trailing "/*" marks a prefix route, so "/*" is the
// catch-all and "/wp-content/*" covers everything below /wp-content.
func ParsePattern(pattern string) (path string, prefix bool) {
	if pattern == "*" || pattern == "/*" {
		return "/", true
	}
	if strings.HasSuffix(pattern, "/*") {
		return strings.TrimSuffix(pattern, "/*"), true
	}
	return pattern, false
}

// NotFound sets the handler used when no registered route matches.
func (mux *Mux) NotFound(handler http.Handler) {
	mux.mu.Lock()
	defer mux.mu.Unlock()
	mux.notFound = handler
}

// ServeHTTP dispatches the request to the handler registered for the
// request path, or to the not-found handler. Captured parameters are
// available to the handler through Param.
func (mux *Mux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	match, ok := mux.Lookup(r.URL.Path)
	if !ok {
		entryNotFoundCountMetric.Inc()
		mux.mu.RLock()
		notFound := mux.notFound
		mux.mu.RUnlock()
		notFound.ServeHTTP(w, r)
		return
	}

	if len(match.Params) > 0 {
		r = r.WithContext(context.WithValue(r.Context(), paramsKey{}, match.Params))
	}
	match.Handler.ServeHTTP(w, r)
}

// Lookup takes a path and looks up its registered entry in the mux tries,
// returning the match for that path, if any.
func (mux *Mux) Lookup(path string) (match Match, ok bool) {
	mux.mu.RLock()
	defer mux.mu.RUnlock()

	pathSegments := splitpath(path)
	entry, params, ok := mux.exactTrie.Get(pathSegments)
	if !ok {
		entry, ok = mux.prefixTrie.GetLongestPrefix(pathSegments)
		params = nil
	}
	if !ok {
		return Match{}, false
	}
	if entry.handler == nil {
		mux.logger.Warn().Str("path", path).Str("pattern", entry.pattern).Msg("route registered without a handler")
		return Match{}, false
	}

	return Match{
		Pattern: entry.pattern,
		Prefix:  entry.prefix,
		Handler: entry.handler,
		Params:  params,
	}, true
}

// Handle registers the specified route (either an exact or a prefix route)
// and associates it with the specified handler. Requests through the mux for
// paths matching the route will be passed to that handler.
func (mux *Mux) Handle(path string, prefix bool, handler http.Handler) {
	mux.mu.Lock()
	defer mux.mu.Unlock()

	mux.addToChecksum(path, prefix)
	mux.count++
	entry := muxEntry{pattern: path, prefix: prefix, handler: handler}
	if prefix {
		mux.prefixTrie.Set(splitpath(path), entry)
	} else {
		mux.exactTrie.Set(splitpath(path), entry)
	}
}

// RouteCount returns the number of registrations made on the mux.
func (mux *Mux) RouteCount() int {
	mux.mu.RLock()
	defer mux.mu.RUnlock()
	return mux.count
}

func (mux *Mux) addToChecksum(path string, prefix bool) {
	mux.checksum.Write([]byte(path))
	if prefix {
		mux.checksum.Write([]byte("(true)"))
	} else {
		mux.checksum.Write([]byte("(false)"))
	}
}

func (mux *Mux) Checksum() []byte {
	mux.mu.RLock()
	defer mux.mu.RUnlock()
	return mux.checksum.Sum(nil)
}

// Param returns the value captured for the named parameter segment of the
// route that matched r, or "" if there is none.
func Param(r *http.Request, name string) string {
	params, ok := r.Context().Value(paramsKey{}).(trie.Params)
	if !ok {
		return ""
	}
	return params[name]
}

// splitpath turns a slash-delimited string into a lookup path (a slice
// containing the strings between slashes). Empty items produced by
// leading, trailing, or adjacent slashes are removed.
func splitpath(path string) []string {
	partsWithBlanks := strings.Split(path, "/")

	parts := make([]string, 0, len(partsWithBlanks))
	for _, part := range partsWithBlanks {
		if part != "" {
			parts = append(parts, part)
		}
	}

	return parts
}
