package integration

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"github.com/onsi/gomega/ghttp"

	"github.com/theemilyd/react-riftsurge/content"
)

var queryNames = func() map[string]string {
	names := make(map[string]string)
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
		names[q.Document] = q.Name
	}
	return names
}()

var cmsReplies = map[string]map[string]any{
	content.PostBySlugQuery.Name: {"post": map[string]any{
		"id":      "cG9zdDox",
		"title":   "My Post",
		"slug":    "my-post",
		"date":    "2024-03-05T10:00:00",
		"content": "<p>Hello from the CMS.</p>",
	}},
	content.PostsQuery.Name: {"posts": map[string]any{
		"pageInfo": map[string]any{"hasNextPage": false},
		"nodes":    []any{},
	}},
	content.MenuItemsQuery.Name:    {"menuItems": map[string]any{"nodes": []any{}}},
	content.SiteSettingsQuery.Name: {"generalSettings": map[string]any{"title": "RiftSurge", "description": ""}},
}

// fakeCMS answers GraphQL documents by query name. Lookups without a canned
// reply resolve to null, which the site treats as absent content.
type fakeCMS struct {
	*ghttp.Server
	requests atomic.Int64
}

func startFakeCMS() *fakeCMS {
	f := &fakeCMS{Server: ghttp.NewServer()}
	f.RouteToHandler(http.MethodPost, "/graphql", f.serveGraphQL)
	return f
}

func (f *fakeCMS) Endpoint() string {
	return f.URL() + "/graphql"
}

func (f *fakeCMS) Requests() int64 {
	return f.requests.Load()
}

func (f *fakeCMS) serveGraphQL(w http.ResponseWriter, r *http.Request) {
	f.requests.Add(1)

	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	data, ok := cmsReplies[queryNames[req.Query]]
	if !ok {
		data = map[string]any{"page": nil, "post": nil, "portfolioItem": nil}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}
