package resolve

import (
	"context"
	"errors"
	"testing"

	"github.com/evolane/linkmanager/internal/db/models"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type mockLinkStore struct {
	links  map[int64]*models.Link
	byName map[string][]models.Link
	err    error
}

func (m *mockLinkStore) GetByID(_ context.Context, id int64) (*models.Link, error) {
	if m.err != nil {
		return nil, m.err
	}
	link, ok := m.links[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return link, nil
}

func (m *mockLinkStore) ListByName(_ context.Context, name string) ([]models.Link, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.byName[name], nil
}

type mockPlacementStore struct {
	linkIDs   map[string]int64
	withLinks []models.PlacementWithLink
	err       error
}

func (m *mockPlacementStore) GetLinkIDByIdentifier(_ context.Context, identifier string) (*int64, error) {
	if m.err != nil {
		return nil, m.err
	}
	id, ok := m.linkIDs[identifier]
	if !ok {
		return nil, nil
	}
	return &id, nil
}

func (m *mockPlacementStore) ListWithLinks(_ context.Context, _ bool) ([]models.PlacementWithLink, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.withLinks, nil
}

type staticCMS struct {
	urls map[int64]string
}

func (c *staticCMS) ResolveURL(_ context.Context, pageID int64) string { return c.urls[pageID] }
func (c *staticCMS) ListPages(_ context.Context) (map[string]int64, error) {
	return nil, nil
}

func activeLink(id int64, name, url string, position int) *models.Link {
	return &models.Link{ID: id, Name: name, URL: url, Type: models.LinkTypeCustom, Position: position, Active: true}
}

// ---------------------------------------------------------------------------
// ResolveByPlacement
// ---------------------------------------------------------------------------

func TestResolveByPlacement_SnapshotWins(t *testing.T) {
	// The store knows a different answer; the snapshot must still win.
	links := &mockLinkStore{links: map[int64]*models.Link{3: activeLink(3, "Contact", "https://store.example/contact", 1)}}
	placements := &mockPlacementStore{linkIDs: map[string]int64{"footer_contact": 3}}
	svc := NewService(links, placements, nil, nil)

	snap := &Snapshot{placementURLs: map[string]string{"footer_contact": "https://snapshot.example/contact"}}
	ctx := WithSnapshot(context.Background(), snap)

	got := svc.ResolveByPlacement(ctx, "footer_contact")
	if got != "https://snapshot.example/contact" {
		t.Errorf("got %q, want snapshot URL", got)
	}
}

func TestResolveByPlacement_SnapshotDefaultIsStillAHit(t *testing.T) {
	links := &mockLinkStore{links: map[int64]*models.Link{3: activeLink(3, "Contact", "https://store.example/contact", 1)}}
	placements := &mockPlacementStore{linkIDs: map[string]int64{"footer_contact": 3}}
	svc := NewService(links, placements, nil, nil)

	snap := &Snapshot{placementURLs: map[string]string{"footer_contact": DefaultURL}}
	ctx := WithSnapshot(context.Background(), snap)

	if got := svc.ResolveByPlacement(ctx, "footer_contact"); got != DefaultURL {
		t.Errorf("got %q, want %q", got, DefaultURL)
	}
}

func TestResolveByPlacement_FallsThroughToStore(t *testing.T) {
	links := &mockLinkStore{links: map[int64]*models.Link{3: activeLink(3, "Contact", "https://store.example/contact", 1)}}
	placements := &mockPlacementStore{linkIDs: map[string]int64{"footer_contact": 3}}
	svc := NewService(links, placements, nil, nil)

	// No snapshot on the context at all.
	got := svc.ResolveByPlacement(context.Background(), "footer_contact")
	if got != "https://store.example/contact" {
		t.Errorf("got %q, want store URL", got)
	}
}

func TestResolveByPlacement_SnapshotMissFallsThrough(t *testing.T) {
	links := &mockLinkStore{links: map[int64]*models.Link{3: activeLink(3, "Contact", "https://store.example/contact", 1)}}
	placements := &mockPlacementStore{linkIDs: map[string]int64{"footer_contact": 3}}
	svc := NewService(links, placements, nil, nil)

	snap := &Snapshot{placementURLs: map[string]string{"other": "https://x.example"}}
	ctx := WithSnapshot(context.Background(), snap)

	got := svc.ResolveByPlacement(ctx, "footer_contact")
	if got != "https://store.example/contact" {
		t.Errorf("got %q, want store URL", got)
	}
}

func TestResolveByPlacement_UnknownIdentifier(t *testing.T) {
	svc := NewService(&mockLinkStore{}, &mockPlacementStore{}, nil, nil)

	if got := svc.ResolveByPlacement(context.Background(), "no_such_thing"); got != DefaultURL {
		t.Errorf("got %q, want %q", got, DefaultURL)
	}
}

func TestResolveByPlacement_StoreErrorDoesNotPanic(t *testing.T) {
	links := &mockLinkStore{err: errors.New("db down")}
	placements := &mockPlacementStore{err: errors.New("db down")}
	svc := NewService(links, placements, nil, nil)

	if got := svc.ResolveByPlacement(context.Background(), "footer_contact"); got != DefaultURL {
		t.Errorf("got %q, want %q", got, DefaultURL)
	}
}

func TestResolveByPlacement_CMSLink(t *testing.T) {
	pageID := int64(4)
	cmsLink := &models.Link{ID: 7, Name: "Legal", Type: models.LinkTypeCMS, CMSPageID: &pageID, Active: true}
	links := &mockLinkStore{links: map[int64]*models.Link{7: cmsLink}}
	placements := &mockPlacementStore{linkIDs: map[string]int64{"footer_legal": 7}}
	resolver := &staticCMS{urls: map[int64]string{4: "https://store.example/content/legal"}}
	svc := NewService(links, placements, nil, resolver)

	got := svc.ResolveByPlacement(context.Background(), "footer_legal")
	if got != "https://store.example/content/legal" {
		t.Errorf("got %q, want cms URL", got)
	}
}

func TestResolveByPlacement_CMSLinkWithNilResolver(t *testing.T) {
	pageID := int64(4)
	cmsLink := &models.Link{ID: 7, Name: "Legal", Type: models.LinkTypeCMS, CMSPageID: &pageID, Active: true}
	links := &mockLinkStore{links: map[int64]*models.Link{7: cmsLink}}
	placements := &mockPlacementStore{linkIDs: map[string]int64{"footer_legal": 7}}
	svc := NewService(links, placements, nil, nil)

	// The link is bound, so the layer answers, but the URL degrades to "#".
	if got := svc.ResolveByPlacement(context.Background(), "footer_legal"); got != DefaultURL {
		t.Errorf("got %q, want %q", got, DefaultURL)
	}
}

// ---------------------------------------------------------------------------
// ResolveByName
// ---------------------------------------------------------------------------

func TestResolveByName_SnapshotFirst(t *testing.T) {
	links := &mockLinkStore{byName: map[string][]models.Link{
		"Contact": {*activeLink(3, "Contact", "https://store.example/contact", 1)},
	}}
	svc := NewService(links, &mockPlacementStore{}, nil, nil)

	snap := &Snapshot{links: []snapshotLink{{id: 3, name: "Contact", url: "https://snapshot.example/contact", position: 1}}}
	ctx := WithSnapshot(context.Background(), snap)

	if got := svc.ResolveByName(ctx, "Contact"); got != "https://snapshot.example/contact" {
		t.Errorf("got %q, want snapshot URL", got)
	}
}

func TestResolveByName_StoreFallback(t *testing.T) {
	links := &mockLinkStore{byName: map[string][]models.Link{
		"Contact": {*activeLink(3, "Contact", "https://store.example/contact", 1)},
	}}
	svc := NewService(links, &mockPlacementStore{}, nil, nil)

	if got := svc.ResolveByName(context.Background(), "Contact"); got != "https://store.example/contact" {
		t.Errorf("got %q, want store URL", got)
	}
}

func TestResolveByName_Unknown(t *testing.T) {
	svc := NewService(&mockLinkStore{}, &mockPlacementStore{}, nil, nil)

	if got := svc.ResolveByName(context.Background(), "nope"); got != DefaultURL {
		t.Errorf("got %q, want %q", got, DefaultURL)
	}
}

// ---------------------------------------------------------------------------
// BuildSnapshot
// ---------------------------------------------------------------------------

func TestBuildSnapshot(t *testing.T) {
	pageID := int64(4)
	placements := &mockPlacementStore{withLinks: []models.PlacementWithLink{
		{
			Placement: models.Placement{ID: 1, Identifier: "footer_contact", Active: true},
			Link:      activeLink(3, "Contact", "https://store.example/contact", 2),
		},
		{
			Placement: models.Placement{ID: 2, Identifier: "footer_legal", Active: true},
			Link:      &models.Link{ID: 7, Name: "Legal", Type: models.LinkTypeCMS, CMSPageID: &pageID, Position: 1, Active: true},
		},
		{
			Placement: models.Placement{ID: 3, Identifier: "header_promo", Active: true},
		},
	}}
	resolver := &staticCMS{urls: map[int64]string{4: "https://store.example/content/legal"}}

	snap, err := BuildSnapshot(context.Background(), placements, resolver)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if url, ok := snap.URLForPlacement("footer_contact"); !ok || url != "https://store.example/contact" {
		t.Errorf("footer_contact = %q, %v", url, ok)
	}
	if url, ok := snap.URLForPlacement("footer_legal"); !ok || url != "https://store.example/content/legal" {
		t.Errorf("footer_legal = %q, %v", url, ok)
	}
	if url, ok := snap.URLForPlacement("header_promo"); !ok || url != DefaultURL {
		t.Errorf("unbound placement = %q, %v, want %q", url, ok, DefaultURL)
	}
	if _, ok := snap.URLForPlacement("absent"); ok {
		t.Error("absent identifier reported as present")
	}

	// Flat list is position-ordered: Legal (position 1) before Contact (2).
	if url, ok := snap.URLForName("Legal"); !ok || url != "https://store.example/content/legal" {
		t.Errorf("by-name Legal = %q, %v", url, ok)
	}
	if len(snap.links) != 2 || snap.links[0].name != "Legal" {
		t.Errorf("links = %+v, want Legal first", snap.links)
	}
}

func TestBuildSnapshot_PropagatesError(t *testing.T) {
	placements := &mockPlacementStore{err: errors.New("db down")}

	if _, err := BuildSnapshot(context.Background(), placements, nil); err == nil {
		t.Fatal("expected error, got nil")
	}
}
