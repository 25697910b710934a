package render

import (
	"embed"
	"io/fs"
)

//go:embed assets
var assetFS embed.FS

// Assets returns the stylesheet and placeholder image served under the site
// root.
func Assets() fs.FS {
	sub, err := fs.Sub(assetFS, "assets")
	if err != nil {
		panic(err)
	}
	return sub
}
