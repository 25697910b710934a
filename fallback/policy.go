// Package fallback decides whether a render should skip the content backend
// and serve bundled static content instead.
package fallback

import (
	"net/http"
	"os"
	"strings"
)

const (
	DefaultEnvVar       = "DEPLOYMENT_ENV"
	DefaultHostFragment = "vercel.app"
)

// Policy is consulted once per render. ShouldUseFallback is true when any of
// the following holds: ForceStatic is set, the deployment environment
// variable is non-empty, or the request host contains one of HostFragments.
type Policy struct {
	ForceStatic   bool
	EnvVar        string
	HostFragments []string
	// Getenv defaults to os.Getenv. The variable is read on every call.
	Getenv func(string) string
}

// NewPolicy returns a policy with the default deployment variable and host
// fragment.
func NewPolicy(forceStatic bool) *Policy {
	return &Policy{
		ForceStatic:   forceStatic,
		EnvVar:        DefaultEnvVar,
		HostFragments: []string{DefaultHostFragment},
	}
}

// ShouldUseFallback reports whether static content should be served. r may
// be nil when there is no request in flight, such as during a static export.
func (p *Policy) ShouldUseFallback(r *http.Request) bool {
	return p.Reason(r) != ""
}

// Reason returns which condition triggered static fallback, or "".
func (p *Policy) Reason(r *http.Request) string {
	if p == nil {
		return ""
	}
	if p.ForceStatic {
		return "forced"
	}
	if p.EnvVar != "" && p.getenv(p.EnvVar) != "" {
		return "deployment_env"
	}
	if r != nil {
		host := strings.ToLower(r.Host)
		for _, fragment := range p.HostFragments {
			if fragment != "" && strings.Contains(host, strings.ToLower(fragment)) {
				return "host"
			}
		}
	}
	return ""
}

func (p *Policy) getenv(key string) string {
	if p.Getenv != nil {
		return p.Getenv(key)
	}
	return os.Getenv(key)
}
