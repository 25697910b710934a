package content

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Query is a named GraphQL document. The name labels logs and metrics.
type Query struct {
	Name     string
	Document string
}

// Validator is implemented by query results that carry a shape contract
// beyond what JSON decoding enforces.
type Validator interface {
	Validate() error
}

var (
	PageByURIQuery = Query{Name: "page_by_uri", Document: `
query GetPageByUri($uri: ID!) {
  page(id: $uri, idType: URI) {
    id
    title
    content
    date
    seo {
      title
      metaDesc
    }
  }
}`}

	PostsQuery = Query{Name: "posts", Document: `
query GetPosts($first: Int = 10, $after: String) {
  posts(first: $first, after: $after) {
    pageInfo {
      hasNextPage
      endCursor
    }
    nodes {
      id
      title
      slug
      date
      excerpt
      author {
        node {
          name
        }
      }
      categories {
        nodes {
          name
          slug
        }
      }
      featuredImage {
        node {
          sourceUrl
          altText
        }
      }
    }
  }
}`}

	PostsByCategoryQuery = Query{Name: "posts_by_category", Document: `
query GetPostsByCategory($first: Int = 10, $after: String, $category: String) {
  posts(first: $first, after: $after, where: {categoryName: $category}) {
    pageInfo {
      hasNextPage
      endCursor
    }
    nodes {
      id
      title
      slug
      date
      excerpt
      author {
        node {
          name
        }
      }
      categories {
        nodes {
          name
          slug
        }
      }
      featuredImage {
        node {
          sourceUrl
          altText
        }
      }
    }
  }
}`}

	PostBySlugQuery = Query{Name: "post_by_slug", Document: `
query GetPostBySlug($slug: ID!) {
  post(id: $slug, idType: SLUG) {
    id
    title
    content
    date
    author {
      node {
        name
      }
    }
    categories {
      nodes {
        name
        slug
      }
    }
    featuredImage {
      node {
        sourceUrl
        altText
      }
    }
    seo {
      title
      metaDesc
    }
  }
}`}

	PortfolioItemsQuery = Query{Name: "portfolio_items", Document: `
query GetPortfolioItems($first: Int = 9, $after: String) {
  portfolioItems(first: $first, after: $after) {
    pageInfo {
      hasNextPage
      endCursor
    }
    nodes {
      id
      title
      slug
      excerpt
      featuredImage {
        node {
          sourceUrl
          altText
        }
      }
      portfolioCategories {
        nodes {
          name
          slug
        }
      }
    }
  }
}`}

	PortfolioItemsByCategoryQuery = Query{Name: "portfolio_items_by_category", Document: `
query GetPortfolioItemsByCategory($first: Int = 9, $after: String, $category: String!) {
  portfolioItems(
    first: $first
    after: $after
    where: {taxQuery: {taxArray: [{taxonomy: PORTFOLIOCATEGORY, terms: [$category], field: SLUG}]}}
  ) {
    pageInfo {
      hasNextPage
      endCursor
    }
    nodes {
      id
      title
      slug
      excerpt
      featuredImage {
        node {
          sourceUrl
          altText
        }
      }
      portfolioCategories {
        nodes {
          name
          slug
        }
      }
    }
  }
}`}

	PortfolioItemBySlugQuery = Query{Name: "portfolio_item_by_slug", Document: `
query GetPortfolioItemBySlug($slug: ID!) {
  portfolioItem(id: $slug, idType: SLUG) {
    id
    title
    content
    date
    featuredImage {
      node {
        sourceUrl
        altText
      }
    }
    portfolioCategories {
      nodes {
        name
        slug
      }
    }
    seo {
      title
      metaDesc
    }
  }
}`}

	MenuItemsQuery = Query{Name: "menu_items", Document: `
query GetMenuItems($location: MenuLocationEnum = PRIMARY) {
  menuItems(where: {location: $location}) {
    nodes {
      id
      label
      path
      url
      order
      parentId
    }
  }
}`}

	SiteSettingsQuery = Query{Name: "site_settings", Document: `
query GetSiteSettings {
  generalSettings {
    title
    description
  }
}`}
)

// NodeResult is implemented by single node query results. A nil node means
// the backend reported the resource absent.
type NodeResult interface {
	Validator
	Node() *Node
}

type PageResult struct {
	Page *Node `json:"page"`
}

func (r *PageResult) Node() *Node     { return r.Page }
func (r *PageResult) Validate() error { return validateNode("page", r.Page) }

func (r *PageResult) UnmarshalJSON(b []byte) (err error) {
	r.Page, err = decodeNodeField(b, "page")
	return err
}

type PostResult struct {
	Post *Node `json:"post"`
}

func (r *PostResult) Node() *Node     { return r.Post }
func (r *PostResult) Validate() error { return validateNode("post", r.Post) }

func (r *PostResult) UnmarshalJSON(b []byte) (err error) {
	r.Post, err = decodeNodeField(b, "post")
	return err
}

type PortfolioItemResult struct {
	PortfolioItem *Node `json:"portfolioItem"`
}

func (r *PortfolioItemResult) Node() *Node     { return r.PortfolioItem }
func (r *PortfolioItemResult) Validate() error { return validateNode("portfolioItem", r.PortfolioItem) }

func (r *PortfolioItemResult) UnmarshalJSON(b []byte) (err error) {
	r.PortfolioItem, err = decodeNodeField(b, "portfolioItem")
	return err
}

// ConnectionResult is implemented by collection query results.
type ConnectionResult interface {
	Validator
	Connection() *Connection
}

type PostsResult struct {
	Posts *Connection `json:"posts"`
}

func (r *PostsResult) Connection() *Connection { return r.Posts }
func (r *PostsResult) Validate() error         { return validateConnection("posts", r.Posts) }

type PortfolioItemsResult struct {
	PortfolioItems *Connection `json:"portfolioItems"`
}

func (r *PortfolioItemsResult) Connection() *Connection { return r.PortfolioItems }
func (r *PortfolioItemsResult) Validate() error {
	return validateConnection("portfolioItems", r.PortfolioItems)
}

type MenuItemsResult struct {
	MenuItems *struct {
		Nodes []MenuItem `json:"nodes"`
	} `json:"menuItems"`
}

// Items returns the menu entries, or nil when the menu is missing.
func (r *MenuItemsResult) Items() []MenuItem {
	if r.MenuItems == nil {
		return nil
	}
	return r.MenuItems.Nodes
}

func (r *MenuItemsResult) Validate() error {
	if r.MenuItems == nil {
		return errors.New("menuItems missing from response")
	}
	for i, item := range r.MenuItems.Nodes {
		if item.Label == "" {
			return fmt.Errorf("menu item %d has no label", i)
		}
	}
	return nil
}

type SiteSettingsResult struct {
	GeneralSettings *GeneralSettings `json:"generalSettings"`
}

func (r *SiteSettingsResult) Validate() error {
	if r.GeneralSettings == nil {
		return errors.New("generalSettings missing from response")
	}
	return nil
}

// decodeNodeField reads the single node stored under field. An explicit null
// is an absent node; a missing field is a contract violation.
func decodeNodeField(data []byte, field string) (*Node, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	raw, ok := fields[field]
	if !ok {
		return nil, fmt.Errorf("%s missing from response", field)
	}
	var n *Node
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, err
	}
	return n, nil
}

func validateNode(field string, n *Node) error {
	if n == nil {
		return nil
	}
	if n.ID == "" {
		return fmt.Errorf("%s has no id", field)
	}
	return nil
}

func validateConnection(field string, c *Connection) error {
	if c == nil {
		return fmt.Errorf("%s missing from response", field)
	}
	for i, n := range c.Nodes {
		if n.ID == "" {
			return fmt.Errorf("%s node %d has no id", field, i)
		}
		if n.Slug == "" {
			return fmt.Errorf("%s node %d has no slug", field, i)
		}
	}
	return nil
}
