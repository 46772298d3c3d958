// Package models - link.go defines the Link model, a stored named destination
// (custom URL, contact page, or reference to a CMS page whose URL is resolved
// dynamically at render time).
package models

import "time"

// LinkType enumerates the kinds of destinations a link can point at.
type LinkType string

const (
	LinkTypeCustom  LinkType = "custom"
	LinkTypeContact LinkType = "contact"
	LinkTypeCMS     LinkType = "cms"
)

// Valid reports whether the value is one of the known link types.
func (t LinkType) Valid() bool {
	switch t {
	case LinkTypeCustom, LinkTypeContact, LinkTypeCMS:
		return true
	}
	return false
}

// Link represents a managed link record.
//
// Invariant: CMSPageID is non-nil iff Type == LinkTypeCMS, and URL is empty
// for CMS links (the URL is produced by the CMS resolver) and non-empty for
// every other type. The invariant is enforced on the save path, not by the
// model itself.
type Link struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	URL       string    `db:"url" json:"url"`
	Type      LinkType  `db:"link_type" json:"link_type"`
	CMSPageID *int64    `db:"cms_page_id" json:"cms_page_id"`
	Position  int       `db:"position" json:"position"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// IsCMS reports whether the link points at a CMS page.
func (l *Link) IsCMS() bool {
	return l.Type == LinkTypeCMS && l.CMSPageID != nil
}
