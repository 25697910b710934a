// Command fakecms serves canned GraphQL responses for local development of
// the site without a CMS.
package main

import (
	_ "embed"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/theemilyd/react-riftsurge/content"
)

//go:embed fixtures.json
var defaultFixtures []byte

var (
	addr     = flag.String("addr", ":6061", "Address to listen on")
	fixtures = flag.String("fixtures", "", "JSON fixtures file; the bundled fixtures are used if empty")
	delay    = flag.Duration("delay", 0, "Delay before every response")
	failRate = flag.Float64("fail-rate", 0, "Fraction of requests answered with 502")
)

type fixtureSet struct {
	Settings       content.GeneralSettings `json:"settings"`
	Menu           []content.MenuItem      `json:"menu"`
	Pages          map[string]content.Node `json:"pages"`
	Posts          []content.Node          `json:"posts"`
	PortfolioItems []content.Node          `json:"portfolioItems"`
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type server struct {
	fx       fixtureSet
	queries  map[string]string
	delay    time.Duration
	failRate float64
	logger   zerolog.Logger
}

func newServer(fx fixtureSet, logger zerolog.Logger) *server {
	queries := make(map[string]string)
	for _, q := range []content.Query{
		content.PageByURIQuery,
		content.PostsQuery,
		content.PostsByCategoryQuery,
		content.PostBySlugQuery,
		content.PortfolioItemsQuery,
		content.PortfolioItemsByCategoryQuery,
		content.PortfolioItemBySlugQuery,
		content.MenuItemsQuery,
		content.SiteSettingsQuery,
	} {
		queries[q.Document] = q.Name
	}
	return &server{fx: fx, queries: queries, logger: logger}
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	time.Sleep(s.delay)
	if s.failRate > 0 && rand.Float64() < s.failRate { //nolint:gosec
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
		return
	}

	var req graphQLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	name, ok := s.queries[req.Query]
	if !ok {
		writeJSON(w, map[string]any{
			"data":   nil,
			"errors": []map[string]any{{"message": "Cannot query unknown document"}},
		})
		return
	}
	s.logger.Info().Str("query", name).Interface("variables", req.Variables).Msg("query")

	writeJSON(w, map[string]any{"data": s.answer(name, req.Variables)})
}

func (s *server) answer(name string, vars map[string]any) map[string]any {
	switch name {
	case content.PageByURIQuery.Name:
		return map[string]any{"page": s.page(str(vars, "uri"))}
	case content.PostBySlugQuery.Name:
		return map[string]any{"post": find(s.fx.Posts, str(vars, "slug"))}
	case content.PortfolioItemBySlugQuery.Name:
		return map[string]any{"portfolioItem": find(s.fx.PortfolioItems, str(vars, "slug"))}
	case content.PostsQuery.Name, content.PostsByCategoryQuery.Name:
		return map[string]any{"posts": paginate(filter(s.fx.Posts, str(vars, "category"), false), vars)}
	case content.PortfolioItemsQuery.Name, content.PortfolioItemsByCategoryQuery.Name:
		return map[string]any{"portfolioItems": paginate(filter(s.fx.PortfolioItems, str(vars, "category"), true), vars)}
	case content.MenuItemsQuery.Name:
		return map[string]any{"menuItems": map[string]any{"nodes": s.fx.Menu}}
	default:
		return map[string]any{"generalSettings": s.fx.Settings}
	}
}

func (s *server) page(uri string) *content.Node {
	if n, ok := s.fx.Pages[uri]; ok {
		return &n
	}
	if n, ok := s.fx.Pages[strings.Trim(uri, "/")]; ok {
		return &n
	}
	return nil
}

func find(nodes []content.Node, slug string) *content.Node {
	for i := range nodes {
		if nodes[i].Slug == slug {
			return &nodes[i]
		}
	}
	return nil
}

func filter(nodes []content.Node, category string, portfolio bool) []content.Node {
	if category == "" {
		return nodes
	}
	var out []content.Node
	for _, n := range nodes {
		terms := n.Categories
		if portfolio {
			terms = n.PortfolioCategories
		}
		if terms == nil {
			continue
		}
		for _, t := range terms.Nodes {
			if t.Slug == category || t.Name == category {
				out = append(out, n)
				break
			}
		}
	}
	return out
}

// paginate mimics WPGraphQL's opaque "arrayconnection:N" cursors.
func paginate(nodes []content.Node, vars map[string]any) content.Connection {
	first := 10
	if f, ok := vars["first"].(float64); ok && f > 0 {
		first = int(f)
	}
	start := 0
	if after := str(vars, "after"); after != "" {
		if raw, err := base64.StdEncoding.DecodeString(after); err == nil {
			if n, err := strconv.Atoi(strings.TrimPrefix(string(raw), "arrayconnection:")); err == nil {
				start = n + 1
			}
		}
	}
	if start > len(nodes) {
		start = len(nodes)
	}
	end := min(start+first, len(nodes))

	conn := content.Connection{Nodes: nodes[start:end]}
	if conn.Nodes == nil {
		conn.Nodes = []content.Node{}
	}
	if end < len(nodes) {
		conn.PageInfo = content.PageInfo{
			HasNextPage: true,
			EndCursor:   base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("arrayconnection:%d", end-1))),
		}
	}
	return conn
}

func str(vars map[string]any, key string) string {
	s, _ := vars[key].(string)
	return s
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func loadFixtures(path string) (fixtureSet, error) {
	raw := defaultFixtures
	if path != "" {
		var err error
		raw, err = os.ReadFile(path) //nolint:gosec
		if err != nil {
			return fixtureSet{}, err
		}
	}
	var fx fixtureSet
	if err := json.Unmarshal(raw, &fx); err != nil {
		return fixtureSet{}, fmt.Errorf("parsing fixtures: %w", err)
	}
	return fx, nil
}

func main() {
	flag.Parse()

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	fx, err := loadFixtures(*fixtures)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load fixtures")
	}

	s := newServer(fx, logger)
	s.delay = *delay
	s.failRate = *failRate

	mux := http.NewServeMux()
	mux.Handle("/graphql", s)

	logger.Info().Str("addr", *addr).Msg("fake CMS listening; set CONTENT_API_URL=http://localhost" + *addr + "/graphql")
	srv := &http.Server{Addr: *addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	if err := srv.ListenAndServe(); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
}
