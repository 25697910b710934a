package content

// Node is a single addressable unit of remote content: a page, a post or a
// portfolio item. The wire shape follows the WPGraphQL schema, so edges such
// as author and categories are nested one level deeper than callers usually
// care about; the accessor methods flatten them.
type Node struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Slug    string `json:"slug,omitempty"`
	Content string `json:"content,omitempty"`
	Excerpt string `json:"excerpt,omitempty"`
	Date    string `json:"date,omitempty"`

	SEO                 *SEO           `json:"seo,omitempty"`
	FeaturedImage       *FeaturedImage `json:"featuredImage,omitempty"`
	Author              *Author        `json:"author,omitempty"`
	Categories          *Terms         `json:"categories,omitempty"`
	PortfolioCategories *Terms         `json:"portfolioCategories,omitempty"`
}

type SEO struct {
	Title    string `json:"title,omitempty"`
	MetaDesc string `json:"metaDesc,omitempty"`
}

type Image struct {
	SourceURL string `json:"sourceUrl"`
	AltText   string `json:"altText,omitempty"`
}

type FeaturedImage struct {
	Node *Image `json:"node"`
}

type Person struct {
	Name string `json:"name"`
}

type Author struct {
	Node *Person `json:"node"`
}

type Term struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type Terms struct {
	Nodes []Term `json:"nodes"`
}

type PageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor,omitempty"`
}

// Connection is a page of nodes from a collection query.
type Connection struct {
	PageInfo PageInfo `json:"pageInfo"`
	Nodes    []Node   `json:"nodes"`
}

type MenuItem struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Path     string `json:"path"`
	URL      string `json:"url,omitempty"`
	Order    int    `json:"order,omitempty"`
	ParentID string `json:"parentId,omitempty"`
}

type GeneralSettings struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// SEOTitle returns the SEO title override, or the node title.
func (n *Node) SEOTitle() string {
	if n.SEO != nil && n.SEO.Title != "" {
		return n.SEO.Title
	}
	return n.Title
}

func (n *Node) MetaDescription() string {
	if n.SEO == nil {
		return ""
	}
	return n.SEO.MetaDesc
}

func (n *Node) AuthorName() string {
	if n.Author == nil || n.Author.Node == nil {
		return ""
	}
	return n.Author.Node.Name
}

// Image returns the featured image, or nil.
func (n *Node) Image() *Image {
	if n.FeaturedImage == nil {
		return nil
	}
	return n.FeaturedImage.Node
}

// Terms returns the taxonomy terms attached to the node. Posts carry
// categories; portfolio items carry portfolio categories.
func (n *Node) Terms() []Term {
	switch {
	case n.Categories != nil && len(n.Categories.Nodes) > 0:
		return n.Categories.Nodes
	case n.PortfolioCategories != nil:
		return n.PortfolioCategories.Nodes
	default:
		return nil
	}
}
