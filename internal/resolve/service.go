package resolve

import (
	"context"
	"log/slog"

	"github.com/evolane/linkmanager/internal/cms"
	"github.com/evolane/linkmanager/internal/db/models"
	"github.com/evolane/linkmanager/internal/db/repositories"
	"github.com/evolane/linkmanager/internal/telemetry"
	"github.com/jmoiron/sqlx"
)

// LinkStore is the slice of the link repository the resolver needs.
type LinkStore interface {
	GetByID(ctx context.Context, id int64) (*models.Link, error)
	ListByName(ctx context.Context, name string) ([]models.Link, error)
}

// PlacementStore is the slice of the placement repository the resolver needs.
type PlacementStore interface {
	GetLinkIDByIdentifier(ctx context.Context, identifier string) (*int64, error)
	ListWithLinks(ctx context.Context, activeOnly bool) ([]models.PlacementWithLink, error)
}

// PlacementResolver is one layer of the placement resolution chain.
type PlacementResolver interface {
	// Name labels the layer in logs and metrics.
	Name() string
	// TryResolve reports the URL for an identifier when this layer can
	// answer. Errors are handled inside the layer; a failed layer simply
	// reports ok=false and the chain moves on.
	TryResolve(ctx context.Context, identifier string) (string, bool)
}

// Service resolves placement identifiers and link names to URLs. It never
// returns an error and never panics: any failure inside a layer falls through
// to the next, and a full miss yields DefaultURL.
type Service struct {
	chain      []PlacementResolver
	links      LinkStore
	placements PlacementStore
	cms        cms.Resolver
	db         *sqlx.DB
}

// NewService wires the three-layer chain: context snapshot, repository
// lookup, direct query. db may be nil in tests; the direct layer then always
// misses.
func NewService(links LinkStore, placements PlacementStore, db *sqlx.DB, resolver cms.Resolver) *Service {
	return &Service{
		chain: []PlacementResolver{
			&snapshotLayer{},
			&storeLayer{links: links, placements: placements, cms: resolver},
			&directLayer{db: db, cms: resolver},
		},
		links:      links,
		placements: placements,
		cms:        resolver,
		db:         db,
	}
}

// BuildSnapshot precomputes the request snapshot from this service's stores.
func (s *Service) BuildSnapshot(ctx context.Context) (*Snapshot, error) {
	return BuildSnapshot(ctx, s.placements, s.cms)
}

// ResolveByPlacement walks the chain and returns the first answer, or
// DefaultURL when every layer misses.
func (s *Service) ResolveByPlacement(ctx context.Context, identifier string) string {
	for _, layer := range s.chain {
		if url, ok := layer.TryResolve(ctx, identifier); ok {
			telemetry.ResolutionsTotal.WithLabelValues("placement", layer.Name(), "hit").Inc()
			return url
		}
		telemetry.ResolutionFallbacksTotal.WithLabelValues("placement", layer.Name()).Inc()
		slog.Info("placement resolution fell through layer",
			"identifier", identifier, "layer", layer.Name())
	}

	telemetry.ResolutionsTotal.WithLabelValues("placement", "none", "miss").Inc()
	slog.Warn("placement did not resolve", "identifier", identifier)
	return DefaultURL
}

// ResolveByName returns the URL of the first active link carrying the name:
// snapshot flat list first, repository lookup second, DefaultURL last.
func (s *Service) ResolveByName(ctx context.Context, name string) string {
	if snap := SnapshotFrom(ctx); snap != nil {
		if url, ok := snap.URLForName(name); ok {
			telemetry.ResolutionsTotal.WithLabelValues("name", "snapshot", "hit").Inc()
			return url
		}
		telemetry.ResolutionFallbacksTotal.WithLabelValues("name", "snapshot").Inc()
	}

	links, err := s.links.ListByName(ctx, name)
	if err != nil {
		slog.Warn("link lookup by name failed", "name", name, "error", err)
	}
	if len(links) > 0 {
		url := linkURL(ctx, &links[0], s.cms)
		if url == "" {
			url = DefaultURL
		}
		telemetry.ResolutionsTotal.WithLabelValues("name", "store", "hit").Inc()
		return url
	}

	telemetry.ResolutionsTotal.WithLabelValues("name", "none", "miss").Inc()
	slog.Warn("link name did not resolve", "name", name)
	return DefaultURL
}

// snapshotLayer answers from the snapshot attached to the request context.
type snapshotLayer struct{}

func (l *snapshotLayer) Name() string { return "snapshot" }

func (l *snapshotLayer) TryResolve(ctx context.Context, identifier string) (string, bool) {
	snap := SnapshotFrom(ctx)
	if snap == nil {
		return "", false
	}
	return snap.URLForPlacement(identifier)
}

// storeLayer answers through the repositories: identifier → link id → link.
type storeLayer struct {
	links      LinkStore
	placements PlacementStore
	cms        cms.Resolver
}

func (l *storeLayer) Name() string { return "store" }

func (l *storeLayer) TryResolve(ctx context.Context, identifier string) (string, bool) {
	linkID, err := l.placements.GetLinkIDByIdentifier(ctx, identifier)
	if err != nil {
		slog.Warn("store layer lookup failed", "identifier", identifier, "error", err)
		return "", false
	}
	if linkID == nil {
		return "", false
	}

	link, err := l.links.GetByID(ctx, *linkID)
	if err != nil {
		if !repositories.IsNotFound(err) {
			slog.Warn("store layer link fetch failed", "identifier", identifier, "link_id", *linkID, "error", err)
		}
		return "", false
	}

	url := linkURL(ctx, link, l.cms)
	if url == "" {
		url = DefaultURL
	}
	return url, true
}

// directLayer is the last resort: one three-way join straight against the
// database, bypassing the repositories entirely.
type directLayer struct {
	db  *sqlx.DB
	cms cms.Resolver
}

func (l *directLayer) Name() string { return "direct" }

func (l *directLayer) TryResolve(ctx context.Context, identifier string) (string, bool) {
	if l.db == nil {
		return "", false
	}

	var row struct {
		URL       string          `db:"url"`
		Type      models.LinkType `db:"link_type"`
		CMSPageID *int64          `db:"cms_page_id"`
	}
	query := `
		SELECT l.url, l.link_type, l.cms_page_id
		FROM placements p
		INNER JOIN placement_links pl ON pl.placement_id = p.id
		INNER JOIN links l ON l.id = pl.link_id
		WHERE p.identifier = $1 AND p.active = TRUE AND l.active = TRUE
		LIMIT 1
	`
	if err := l.db.GetContext(ctx, &row, query, identifier); err != nil {
		return "", false
	}

	url := linkURL(ctx, &models.Link{URL: row.URL, Type: row.Type, CMSPageID: row.CMSPageID}, l.cms)
	if url == "" {
		url = DefaultURL
	}
	return url, true
}
