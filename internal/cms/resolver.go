// Package cms resolves content page references to front-office URLs.
//
// CMS-type links store a page id instead of a URL; at render time the id is
// turned into a URL by a Resolver. Resolution is deliberately non-fatal: a
// page that cannot be resolved yields an empty URL and the caller falls back
// to its own default, so a misconfigured page never breaks rendering.
package cms

import (
	"context"
	"fmt"
	"strings"
)

// Resolver turns CMS page ids into front-office URLs.
type Resolver interface {
	// ResolveURL returns the URL for a page id, or "" when the page is
	// unknown or the resolver is not configured. It never returns an error.
	ResolveURL(ctx context.Context, pageID int64) string

	// ListPages returns the known pages as a name → id map, for building
	// selection lists in the admin UI.
	ListPages(ctx context.Context) (map[string]int64, error)
}

// BaseURLResolver resolves pages from a static name → id map configured
// alongside a base URL. The URL for a page is <base_url>/<name>.
type BaseURLResolver struct {
	baseURL string
	pages   map[string]int64
	byID    map[int64]string
}

// NewBaseURLResolver builds a resolver from configuration. Duplicate ids keep
// the first name encountered; map iteration order makes "first" arbitrary but
// stable for any sane configuration, where ids are unique.
func NewBaseURLResolver(baseURL string, pages map[string]int64) *BaseURLResolver {
	byID := make(map[int64]string, len(pages))
	for name, id := range pages {
		if _, ok := byID[id]; !ok {
			byID[id] = name
		}
	}
	return &BaseURLResolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		pages:   pages,
		byID:    byID,
	}
}

func (r *BaseURLResolver) ResolveURL(_ context.Context, pageID int64) string {
	if r.baseURL == "" {
		return ""
	}
	name, ok := r.byID[pageID]
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s/%s", r.baseURL, name)
}

func (r *BaseURLResolver) ListPages(_ context.Context) (map[string]int64, error) {
	pages := make(map[string]int64, len(r.pages))
	for name, id := range r.pages {
		pages[name] = id
	}
	return pages, nil
}
