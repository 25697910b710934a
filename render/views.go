package render

import (
	"html/template"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/theemilyd/react-riftsurge/content"
)

type Shape string

const (
	ShapePage Shape = "page"
	ShapePost Shape = "post"
	ShapeGrid Shape = "grid"
)

type MenuLink struct {
	Label  string
	Path   string
	Active bool
}

// Layout is the chrome shared by every page.
type Layout struct {
	SiteTitle       string
	SiteDescription string
	Title           string
	Description     string
	Path            string
	Menu            []MenuLink
	Static          bool
	Notice          string
	Flash           string
	Refresh         int
	Year            int
}

// Card links to a node from a listing.
type Card struct {
	Href string
	Node *content.Node
}

type Category struct {
	Name   string
	Slug   string
	Active bool
}

// PortfolioCategories are the filters offered on the portfolio archive. The
// empty slug shows every project.
var PortfolioCategories = []Category{
	{Name: "All Projects", Slug: ""},
	{Name: "AI Portraits", Slug: "ai-portraits"},
	{Name: "AI Landscapes", Slug: "ai-landscapes"},
	{Name: "Abstract Art", Slug: "abstract-art"},
	{Name: "Commercial", Slug: "commercial"},
}

var defaultMenu = []MenuLink{
	{Label: "Home", Path: "/"},
	{Label: "Services", Path: "/services"},
	{Label: "Portfolio", Path: "/portfolio"},
	{Label: "Blog", Path: "/blog"},
	{Label: "About", Path: "/about"},
	{Label: "Contact", Path: "/contact"},
}

type nodeData struct {
	Layout
	Node *content.Node
}

type staticData struct {
	Layout
	Doc *StaticDoc
}

type skeletonData struct {
	Layout
	Shape Shape
}

func (d skeletonData) Placeholders() []int {
	if d.Shape == ShapeGrid {
		return make([]int, 6)
	}
	return make([]int, 8)
}

type homeData struct {
	Layout
	Page           *content.Node
	Doc            *StaticDoc
	Preview        []Card
	PreviewPending bool
}

func (homeData) Placeholders() []int {
	return make([]int, 6)
}

type blogData struct {
	Layout
	Featured *Card
	Posts    []Card
	NextHref string
	Failed   bool
}

type portfolioData struct {
	Layout
	Items      []Card
	Categories []Category
	NextHref   string
	Failed     bool
}

type errorData struct {
	Layout
	Detail string
}

// ContactField is one input of the contact form.
type ContactField struct {
	Name  string
	Label string
	Value string
	Error string
}

// ContactForm carries submitted values and per-field validation messages
// back into the page. A non-zero Status overrides the response code.
type ContactForm struct {
	Values map[string]string
	Errors map[string]string
	Status int
}

var contactFields = []struct{ name, label string }{
	{"name", "Name"},
	{"email", "Email"},
	{"subject", "Subject"},
	{"message", "Message"},
}

func (f ContactForm) Fields() []ContactField {
	fields := make([]ContactField, 0, len(contactFields))
	for _, cf := range contactFields {
		fields = append(fields, ContactField{
			Name:  cf.name,
			Label: cf.label,
			Value: f.Values[cf.name],
			Error: f.Errors[cf.name],
		})
	}
	return fields
}

type contactData struct {
	Layout
	Node *content.Node
	Doc  *StaticDoc
	Form ContactForm
}

// FormatDate renders a content date as "January 2, 2006". Dates that cannot
// be parsed are returned unchanged.
func FormatDate(s string) string {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("January 2, 2006")
		}
	}
	return s
}

// trusted marks content bodies as safe HTML. Bodies come pre-sanitised from
// the content backend and are rendered verbatim.
func trusted(s string) template.HTML {
	return template.HTML(s) //nolint:gosec
}

func cards(conn *content.Connection, base string) []Card {
	if conn == nil {
		return nil
	}
	out := make([]Card, 0, len(conn.Nodes))
	for i := range conn.Nodes {
		n := &conn.Nodes[i]
		out = append(out, Card{Href: base + "/" + url.PathEscape(n.Slug), Node: n})
	}
	return out
}

func nextHref(base string, conn *content.Connection, query url.Values) string {
	if conn == nil || !conn.PageInfo.HasNextPage || conn.PageInfo.EndCursor == "" {
		return ""
	}
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	q.Set("after", conn.PageInfo.EndCursor)
	return base + "?" + q.Encode()
}

func menuLinks(items []content.MenuItem, current string) []MenuLink {
	top := make([]content.MenuItem, 0, len(items))
	for _, item := range items {
		if item.ParentID == "" {
			top = append(top, item)
		}
	}
	sort.SliceStable(top, func(i, j int) bool { return top[i].Order < top[j].Order })

	links := make([]MenuLink, 0, len(top))
	for _, item := range top {
		p := item.Path
		if p == "" {
			p = item.URL
		}
		links = append(links, MenuLink{Label: item.Label, Path: p, Active: isActive(p, current)})
	}
	return links
}

func isActive(link, current string) bool {
	if link == "/" {
		return current == "/"
	}
	return current == link || strings.HasPrefix(current, strings.TrimSuffix(link, "/")+"/")
}
