package content

import (
	"net/url"
	"strings"
)

const DefaultPlaceholder = "/placeholder.png"

// AssetResolver turns asset references found in content into URLs usable by
// the browser.
type AssetResolver struct {
	BaseURL     string
	Placeholder string
}

// Resolve returns the placeholder for an empty reference, absolute
// references unchanged, and relative references joined to BaseURL with
// exactly one slash between them.
func (a AssetResolver) Resolve(ref string) string {
	if ref == "" {
		if a.Placeholder == "" {
			return DefaultPlaceholder
		}
		return a.Placeholder
	}
	if u, err := url.Parse(ref); err == nil && u.Scheme != "" {
		return ref
	}
	if strings.HasPrefix(ref, "//") || a.BaseURL == "" {
		return ref
	}
	return strings.TrimRight(a.BaseURL, "/") + "/" + strings.TrimLeft(ref, "/")
}
