// Package services holds the orchestration layer between the HTTP handlers
// and the repositories. The central piece is LinkSaver, which implements the
// save-and-bind flow of the admin form: normalize and validate the submitted
// values, create or update the link, then reconcile the placement binding.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/evolane/linkmanager/internal/cms"
	"github.com/evolane/linkmanager/internal/db/models"
	"github.com/evolane/linkmanager/internal/db/repositories"
)

// LinkStore is the slice of the link repository the saver needs.
type LinkStore interface {
	GetByID(ctx context.Context, id int64) (*models.Link, error)
	List(ctx context.Context, activeOnly *bool, orderBy, dir string) ([]models.Link, error)
	Create(ctx context.Context, link *models.Link) (int64, error)
	Update(ctx context.Context, id int64, upd repositories.LinkUpdate) (bool, error)
}

// PlacementStore is the slice of the placement repository the saver needs.
type PlacementStore interface {
	GetByIdentifier(ctx context.Context, identifier string) (*models.Placement, error)
	GetPlacementByLinkID(ctx context.Context, linkID int64) (*models.Placement, error)
	Create(ctx context.Context, placement *models.Placement) (int64, error)
	AssociateLink(ctx context.Context, placementID, linkID int64) (bool, error)
	DissociateLink(ctx context.Context, placementID, linkID int64) (bool, error)
}

// LinkForm carries one admin form submission. ID mirrors the hidden id field
// of the form; when set it designates the link to update regardless of how
// the request was routed.
type LinkForm struct {
	ID                  *int64          `json:"id"`
	Name                string          `json:"name"`
	URL                 string          `json:"url"`
	Type                models.LinkType `json:"link_type"`
	CMSPageID           *int64          `json:"cms_page_id"`
	Position            int             `json:"position"`
	Active              bool            `json:"active"`
	PlacementIdentifier string          `json:"placement_identifier"`
}

// SaveResult reports what Save did.
type SaveResult struct {
	LinkID  int64 `json:"link_id"`
	Created bool  `json:"created"`
}

// LinkSaver orchestrates the save-and-bind flow of the admin form.
type LinkSaver struct {
	links      LinkStore
	placements PlacementStore
	cms        cms.Resolver
}

// NewLinkSaver wires a saver. cms may be nil when no CMS links are in play.
func NewLinkSaver(links LinkStore, placements PlacementStore, resolver cms.Resolver) *LinkSaver {
	return &LinkSaver{links: links, placements: placements, cms: resolver}
}

// Save persists a form submission and reconciles the placement binding.
//
// The form-embedded id wins over the caller-supplied one. An update that
// fails at the storage level falls through to a create with the same values,
// so a save never silently drops the submitted data. A non-empty placement
// identifier binds the link (creating the placement on first use, replacing
// any previous binding); an empty identifier unbinds it.
func (s *LinkSaver) Save(ctx context.Context, callerID *int64, form LinkForm) (*SaveResult, error) {
	if s.links == nil || s.placements == nil {
		return nil, &ConfigurationError{Missing: "link saver stores"}
	}

	id := callerID
	if form.ID != nil {
		id = form.ID
	}

	if err := s.normalize(&form); err != nil {
		return nil, err
	}

	result, err := s.persist(ctx, id, form)
	if err != nil {
		return nil, err
	}

	if err := s.reconcilePlacement(ctx, result.LinkID, form.PlacementIdentifier); err != nil {
		return nil, err
	}

	return result, nil
}

// normalize enforces the type rules in place and collects every violation.
func (s *LinkSaver) normalize(form *LinkForm) error {
	var messages []string

	if form.Name == "" {
		messages = append(messages, "name is required")
	}
	if !form.Type.Valid() {
		messages = append(messages, fmt.Sprintf("invalid link type %q", form.Type))
	}

	if form.Type == models.LinkTypeCMS {
		form.URL = ""
		if form.CMSPageID == nil {
			messages = append(messages, "cms_page_id is required for cms links")
		}
	} else {
		form.CMSPageID = nil
		if form.URL == "" {
			messages = append(messages, "url is required")
		}
	}

	if form.PlacementIdentifier != "" {
		if err := models.ValidateIdentifier(form.PlacementIdentifier); err != nil {
			messages = append(messages, err.Error())
		}
	}

	if len(messages) > 0 {
		return &ValidationError{Messages: messages}
	}
	return nil
}

// persist updates the designated link, or creates one when there is no id or
// the update path fails.
func (s *LinkSaver) persist(ctx context.Context, id *int64, form LinkForm) (*SaveResult, error) {
	if id != nil {
		upd := repositories.LinkUpdate{
			Name:         &form.Name,
			URL:          &form.URL,
			Type:         &form.Type,
			CMSPageID:    form.CMSPageID,
			SetCMSPageID: true,
			Active:       &form.Active,
		}
		if form.Position > 0 {
			upd.Position = &form.Position
		}

		ok, err := s.links.Update(ctx, *id, upd)
		if err == nil && ok {
			return &SaveResult{LinkID: *id}, nil
		}
		if err != nil {
			slog.Warn("link update failed, falling through to create", "link_id", *id, "error", err)
		}
	}

	link := &models.Link{
		Name:      form.Name,
		URL:       form.URL,
		Type:      form.Type,
		CMSPageID: form.CMSPageID,
		Position:  form.Position,
		Active:    form.Active,
	}
	linkID, err := s.links.Create(ctx, link)
	if err != nil {
		return nil, fmt.Errorf("failed to save link: %w", err)
	}
	return &SaveResult{LinkID: linkID, Created: true}, nil
}

// reconcilePlacement binds or unbinds the link according to the submitted
// identifier.
func (s *LinkSaver) reconcilePlacement(ctx context.Context, linkID int64, identifier string) error {
	if identifier == "" {
		current, err := s.placements.GetPlacementByLinkID(ctx, linkID)
		if err != nil {
			return fmt.Errorf("failed to look up current placement: %w", err)
		}
		if current == nil {
			return nil
		}
		if _, err := s.placements.DissociateLink(ctx, current.ID, linkID); err != nil {
			return fmt.Errorf("failed to dissociate link: %w", err)
		}
		return nil
	}

	placement, err := s.placements.GetByIdentifier(ctx, identifier)
	if err != nil {
		return fmt.Errorf("failed to look up placement: %w", err)
	}
	if placement == nil {
		description := fmt.Sprintf("Auto-created for link #%d", linkID)
		placement = &models.Placement{
			Identifier:  identifier,
			Name:        fmt.Sprintf("Placement for link #%d", linkID),
			Description: &description,
			Active:      true,
		}
		if _, err := s.placements.Create(ctx, placement); err != nil {
			return fmt.Errorf("failed to create placement: %w", err)
		}
	}

	if _, err := s.placements.AssociateLink(ctx, placement.ID, linkID); err != nil {
		return fmt.Errorf("failed to associate link: %w", err)
	}
	return nil
}

// FormValues is the prefill payload for the admin form.
type FormValues struct {
	ID                  *int64          `json:"id,omitempty"`
	Name                string          `json:"name"`
	URL                 string          `json:"url"`
	Type                models.LinkType `json:"link_type"`
	CMSPageID           *int64          `json:"cms_page_id,omitempty"`
	ResolvedURL         string          `json:"resolved_url,omitempty"`
	Position            int             `json:"position"`
	Active              bool            `json:"active"`
	PlacementIdentifier string          `json:"placement_identifier"`
}

// FormData returns the values the admin form should show: defaults for a new
// link, the stored state plus the resolved CMS URL and the current placement
// binding for an existing one.
func (s *LinkSaver) FormData(ctx context.Context, linkID *int64) (*FormValues, error) {
	if linkID == nil {
		all, err := s.links.List(ctx, nil, "", "")
		if err != nil {
			return nil, fmt.Errorf("failed to count links: %w", err)
		}
		return &FormValues{
			Type:     models.LinkTypeCustom,
			Position: len(all) + 1,
			Active:   true,
		}, nil
	}

	link, err := s.links.GetByID(ctx, *linkID)
	if err != nil {
		return nil, err
	}

	values := &FormValues{
		ID:        &link.ID,
		Name:      link.Name,
		URL:       link.URL,
		Type:      link.Type,
		CMSPageID: link.CMSPageID,
		Position:  link.Position,
		Active:    link.Active,
	}
	if link.IsCMS() && s.cms != nil {
		values.ResolvedURL = s.cms.ResolveURL(ctx, *link.CMSPageID)
	}

	placement, err := s.placements.GetPlacementByLinkID(ctx, link.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up placement: %w", err)
	}
	if placement != nil {
		values.PlacementIdentifier = placement.Identifier
	}

	return values, nil
}
