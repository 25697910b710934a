package handlers

import (
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"time"
)

const assetCacheDuration = 24 * time.Hour

// NewAssetHandler serves files from fsys below prefix. Directory listings
// are not served.
func NewAssetHandler(prefix string, fsys fs.FS) http.Handler {
	files := http.StripPrefix(prefix, http.FileServerFS(fsys))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", fmt.Sprintf("max-age=%d, public", assetCacheDuration/time.Second))
		files.ServeHTTP(w, r)
	})
}

// NewFileHandler serves a single file from fsys.
func NewFileHandler(fsys fs.FS, name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", fmt.Sprintf("max-age=%d, public", assetCacheDuration/time.Second))
		http.ServeFileFS(w, r, fsys, name)
	})
}
