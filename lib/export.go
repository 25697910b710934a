package site

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
)

const exportConcurrency = 4

// Export renders paths through h and writes each page to dir as
// <path>/index.html. Requests carry no host, so fallback is decided by
// configuration and environment alone.
func Export(ctx context.Context, h http.Handler, dir string, paths []string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(exportConcurrency)

	for _, p := range paths {
		g.Go(func() error {
			return exportPage(ctx, h, dir, p)
		})
	}
	return g.Wait()
}

func exportPage(ctx context.Context, h http.Handler, dir, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", path, err)
	}
	req.Host = ""
	req.RequestURI = path

	w := newBufferedResponse()
	h.ServeHTTP(w, req)
	if w.status != http.StatusOK {
		return fmt.Errorf("exporting %s: status %d", path, w.status)
	}

	target := filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(path, "/")), "index.html")
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(target, w.body.Bytes(), 0o644); err != nil { //nolint:gosec
		return fmt.Errorf("writing %s: %w", target, err)
	}
	return nil
}

// bufferedResponse collects a response in memory.
type bufferedResponse struct {
	header http.Header
	body   bytes.Buffer
	status int
}

func newBufferedResponse() *bufferedResponse {
	return &bufferedResponse{header: http.Header{}}
}

func (b *bufferedResponse) Header() http.Header {
	return b.header
}

func (b *bufferedResponse) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	return b.body.Write(p)
}

func (b *bufferedResponse) WriteHeader(status int) {
	if b.status == 0 {
		b.status = status
	}
}
