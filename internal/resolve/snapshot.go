// Package resolve answers "what URL does this placement (or link name) point
// at right now". Resolution is layered — per-request snapshot, then the
// repositories, then a direct database query — and never fails: every path
// ends in a URL string, with "#" as the terminal default. Rendering a page
// must not break because a link row is missing or the database hiccuped.
package resolve

import (
	"context"
	"sort"

	"github.com/evolane/linkmanager/internal/cms"
	"github.com/evolane/linkmanager/internal/db/models"
)

// DefaultURL is returned when no layer can produce a URL for a lookup.
const DefaultURL = "#"

type snapshotCtxKey struct{}

// WithSnapshot attaches a snapshot to the context so every resolution within
// the request hits the precomputed map first.
func WithSnapshot(ctx context.Context, snap *Snapshot) context.Context {
	return context.WithValue(ctx, snapshotCtxKey{}, snap)
}

// SnapshotFrom returns the snapshot attached to the context, or nil.
func SnapshotFrom(ctx context.Context) *Snapshot {
	snap, _ := ctx.Value(snapshotCtxKey{}).(*Snapshot)
	return snap
}

type snapshotLink struct {
	id       int64
	name     string
	url      string
	position int
}

// Snapshot is an immutable precomputed view of the active placements and
// links, built once per request. Lookups never touch the database. A
// placement present in the snapshot answers immediately — even when its
// stored value is the default "#" — so one build bounds the query cost of a
// page render no matter how many placements the templates resolve.
type Snapshot struct {
	placementURLs map[string]string
	links         []snapshotLink
}

// BuildSnapshot precomputes the placement → URL map and the flat active link
// list from one ListWithLinks pass. CMS links are resolved through the
// resolver; an unbound placement or an unresolvable CMS page stores "#".
func BuildSnapshot(ctx context.Context, placements PlacementStore, resolver cms.Resolver) (*Snapshot, error) {
	withLinks, err := placements.ListWithLinks(ctx, true)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		placementURLs: make(map[string]string, len(withLinks)),
	}
	for _, pw := range withLinks {
		url := DefaultURL
		if pw.Link != nil && pw.Link.Active {
			if resolved := linkURL(ctx, pw.Link, resolver); resolved != "" {
				url = resolved
			}
			snap.links = append(snap.links, snapshotLink{
				id:       pw.Link.ID,
				name:     pw.Link.Name,
				url:      url,
				position: pw.Link.Position,
			})
		}
		snap.placementURLs[pw.Identifier] = url
	}

	// By-name lookup takes the first match, so keep the list in display order.
	sort.Slice(snap.links, func(i, j int) bool {
		if snap.links[i].position != snap.links[j].position {
			return snap.links[i].position < snap.links[j].position
		}
		return snap.links[i].id < snap.links[j].id
	})

	return snap, nil
}

// URLForPlacement returns the snapshot value for an identifier. ok is false
// only when the identifier is absent from the snapshot entirely.
func (s *Snapshot) URLForPlacement(identifier string) (string, bool) {
	url, ok := s.placementURLs[identifier]
	return url, ok
}

// URLForName returns the URL of the first snapshot link carrying the name.
func (s *Snapshot) URLForName(name string) (string, bool) {
	for _, l := range s.links {
		if l.name == name {
			return l.url, true
		}
	}
	return "", false
}

// linkURL produces the outward URL of a link: the stored URL for custom and
// contact links, the CMS-resolved URL for cms links. Empty means the link
// has no usable URL.
func linkURL(ctx context.Context, link *models.Link, resolver cms.Resolver) string {
	if link.Type == models.LinkTypeCMS {
		if resolver == nil || link.CMSPageID == nil {
			return ""
		}
		return resolver.ResolveURL(ctx, *link.CMSPageID)
	}
	return link.URL
}
