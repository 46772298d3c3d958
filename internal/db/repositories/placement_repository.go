// placement_repository.go implements PlacementRepository, providing database
// queries for placements and the placement↔link association table. Each
// placement holds at most one association; AssociateLink enforces this with
// replace-on-write semantics inside a transaction.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/evolane/linkmanager/internal/audit"
	"github.com/evolane/linkmanager/internal/db/models"
	"github.com/jmoiron/sqlx"
)

const placementColumns = `id, identifier, name, description, active, created_at, updated_at`

// PlacementRepository handles database operations for placements and their
// link associations.
type PlacementRepository struct {
	db    *sqlx.DB
	audit *audit.Recorder
}

// NewPlacementRepository creates a new placement repository. recorder may be
// nil, in which case mutations are not audited.
func NewPlacementRepository(db *sqlx.DB, recorder *audit.Recorder) *PlacementRepository {
	return &PlacementRepository{db: db, audit: recorder}
}

// PlacementUpdate carries a partial update; nil fields are left untouched.
// Description is only written when SetDescription is true so it can be
// explicitly cleared to NULL.
type PlacementUpdate struct {
	Identifier     *string
	Name           *string
	Description    *string
	SetDescription bool
	Active         *bool
}

// GetByID retrieves a placement by primary key. Returns NotFoundError when
// absent.
func (r *PlacementRepository) GetByID(ctx context.Context, id int64) (*models.Placement, error) {
	var placement models.Placement
	query := `SELECT ` + placementColumns + ` FROM placements WHERE id = $1`
	err := r.db.GetContext(ctx, &placement, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Resource: "placement", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get placement: %w", err)
	}
	return &placement, nil
}

// GetByIdentifier retrieves a placement by its template identifier. A miss is
// a normal outcome here and returns (nil, nil).
func (r *PlacementRepository) GetByIdentifier(ctx context.Context, identifier string) (*models.Placement, error) {
	var placement models.Placement
	query := `SELECT ` + placementColumns + ` FROM placements WHERE identifier = $1`
	err := r.db.GetContext(ctx, &placement, query, identifier)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get placement by identifier: %w", err)
	}
	return &placement, nil
}

// GetPlacementByLinkID retrieves the placement currently associated with a
// link, or (nil, nil) when the link is unbound.
func (r *PlacementRepository) GetPlacementByLinkID(ctx context.Context, linkID int64) (*models.Placement, error) {
	var placement models.Placement
	query := `
		SELECT p.id, p.identifier, p.name, p.description, p.active, p.created_at, p.updated_at
		FROM placements p
		INNER JOIN placement_links pl ON pl.placement_id = p.id
		WHERE pl.link_id = $1
	`
	err := r.db.GetContext(ctx, &placement, query, linkID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get placement by link id: %w", err)
	}
	return &placement, nil
}

// GetLinkIDByIdentifier returns the id of the link bound to an identifier,
// or (nil, nil) when the identifier resolves to nothing. Both the placement
// and the link must be active: an inactive link is invisible at render time
// no matter which entry point asks for it.
func (r *PlacementRepository) GetLinkIDByIdentifier(ctx context.Context, identifier string) (*int64, error) {
	var linkID int64
	query := `
		SELECT pl.link_id
		FROM placements p
		INNER JOIN placement_links pl ON pl.placement_id = p.id
		INNER JOIN links l ON l.id = pl.link_id
		WHERE p.identifier = $1 AND p.active = TRUE AND l.active = TRUE
	`
	err := r.db.GetContext(ctx, &linkID, query, identifier)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get link id by identifier: %w", err)
	}
	return &linkID, nil
}

// List retrieves placements, optionally filtered by active status.
func (r *PlacementRepository) List(ctx context.Context, activeOnly *bool) ([]models.Placement, error) {
	query := `SELECT ` + placementColumns + ` FROM placements`
	args := make([]any, 0, 1)
	if activeOnly != nil {
		query += ` WHERE active = $1`
		args = append(args, *activeOnly)
	}
	query += ` ORDER BY identifier ASC`

	placements := make([]models.Placement, 0)
	if err := r.db.SelectContext(ctx, &placements, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list placements: %w", err)
	}
	return placements, nil
}

// ListWithLinks retrieves placements joined with their associated link (nil
// when unbound). Rows are grouped by placement; should the association table
// ever hold more than one row for a placement, the first link row wins.
func (r *PlacementRepository) ListWithLinks(ctx context.Context, activeOnly bool) ([]models.PlacementWithLink, error) {
	query := `
		SELECT p.id, p.identifier, p.name, p.description, p.active, p.created_at, p.updated_at,
		       l.id, l.name, l.url, l.link_type, l.cms_page_id, l.position, l.active
		FROM placements p
		LEFT JOIN placement_links pl ON pl.placement_id = p.id
		LEFT JOIN links l ON l.id = pl.link_id
	`
	args := make([]any, 0, 1)
	if activeOnly {
		query += ` WHERE p.active = $1`
		args = append(args, true)
	}
	query += ` ORDER BY p.id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list placements with links: %w", err)
	}
	defer rows.Close()

	placements := make([]models.PlacementWithLink, 0)
	seen := make(map[int64]bool)

	for rows.Next() {
		var p models.Placement
		var linkID, cmsPageID sql.NullInt64
		var linkName, linkURL, linkType sql.NullString
		var position sql.NullInt64
		var linkActive sql.NullBool

		err := rows.Scan(
			&p.ID, &p.Identifier, &p.Name, &p.Description, &p.Active, &p.CreatedAt, &p.UpdatedAt,
			&linkID, &linkName, &linkURL, &linkType, &cmsPageID, &position, &linkActive,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan placement row: %w", err)
		}

		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true

		entry := models.PlacementWithLink{Placement: p}
		if linkID.Valid {
			link := &models.Link{
				ID:       linkID.Int64,
				Name:     linkName.String,
				URL:      linkURL.String,
				Type:     models.LinkType(linkType.String),
				Position: int(position.Int64),
				Active:   linkActive.Bool,
			}
			if cmsPageID.Valid {
				link.CMSPageID = &cmsPageID.Int64
			}
			entry.Link = link
		}
		placements = append(placements, entry)
	}

	return placements, rows.Err()
}

// Create inserts a new placement and returns its id. The identifier is
// validated against the format rules before touching the database so schema
// constraint violations never surface as opaque driver errors.
func (r *PlacementRepository) Create(ctx context.Context, placement *models.Placement) (int64, error) {
	if err := models.ValidateIdentifier(placement.Identifier); err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	placement.CreatedAt = now
	placement.UpdatedAt = now

	query := `
		INSERT INTO placements (identifier, name, description, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		placement.Identifier, placement.Name, placement.Description,
		placement.Active, placement.CreatedAt, placement.UpdatedAt,
	).Scan(&placement.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to create placement: %w", err)
	}

	r.audit.TryRecord(ctx, &models.LogEntry{
		Severity:     models.SeveritySuccess,
		ResourceType: models.ResourcePlacement,
		ResourceID:   &placement.ID,
		Action:       models.ActionCreate,
		Message:      fmt.Sprintf("Placement %q (ID: %d) has been created", placement.Identifier, placement.ID),
		Details:      map[string]any{"identifier": placement.Identifier, "name": placement.Name},
	})

	return placement.ID, nil
}

// Update applies a partial update and restamps updated_at. Returns true when
// a row was modified.
func (r *PlacementRepository) Update(ctx context.Context, id int64, upd PlacementUpdate) (bool, error) {
	if upd.Identifier != nil {
		if err := models.ValidateIdentifier(*upd.Identifier); err != nil {
			return false, err
		}
	}

	sets := []string{"updated_at = $1"}
	args := []any{time.Now().UTC()}
	next := 2

	addSet := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, next))
		args = append(args, value)
		next++
	}

	if upd.Identifier != nil {
		addSet("identifier", *upd.Identifier)
	}
	if upd.Name != nil {
		addSet("name", *upd.Name)
	}
	if upd.SetDescription {
		addSet("description", upd.Description)
	}
	if upd.Active != nil {
		addSet("active", *upd.Active)
	}

	query := fmt.Sprintf(`UPDATE placements SET %s WHERE id = $%d`, joinSets(sets), next)
	args = append(args, id)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update placement: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read update result: %w", err)
	}
	if rows == 0 {
		return false, nil
	}

	r.audit.TryRecord(ctx, &models.LogEntry{
		Severity:     models.SeverityInfo,
		ResourceType: models.ResourcePlacement,
		ResourceID:   &id,
		Action:       models.ActionUpdate,
		Message:      fmt.Sprintf("Placement (ID: %d) has been updated", id),
	})

	return true, nil
}

// Delete removes a placement row. No cascade: association rows are handled
// by the schema's foreign key, and links are never deleted from here.
func (r *PlacementRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM placements WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete placement: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read delete result: %w", err)
	}
	if rows == 0 {
		return false, nil
	}

	r.audit.TryRecord(ctx, &models.LogEntry{
		Severity:     models.SeverityWarning,
		ResourceType: models.ResourcePlacement,
		ResourceID:   &id,
		Action:       models.ActionDelete,
		Message:      fmt.Sprintf("Placement (ID: %d) has been deleted", id),
	})

	return true, nil
}

// AssociateLink binds a placement to a link with replace semantics: any
// existing association rows for the placement are removed and exactly one
// new row is inserted, all inside one transaction. Concurrent calls on the
// same placement resolve as last-committed-write-wins.
func (r *PlacementRepository) AssociateLink(ctx context.Context, placementID, linkID int64) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM placement_links WHERE placement_id = $1`, placementID); err != nil {
		return false, fmt.Errorf("failed to clear existing association: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO placement_links (placement_id, link_id) VALUES ($1, $2)`, placementID, linkID); err != nil {
		return false, fmt.Errorf("failed to associate link: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit association: %w", err)
	}

	r.audit.PlacementAssociated(ctx, placementID, linkID)

	return true, nil
}

// DissociateLink removes the exact (placement, link) association row.
// Idempotent: a second call finds no row and returns false.
func (r *PlacementRepository) DissociateLink(ctx context.Context, placementID, linkID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM placement_links WHERE placement_id = $1 AND link_id = $2`, placementID, linkID)
	if err != nil {
		return false, fmt.Errorf("failed to dissociate link: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read dissociate result: %w", err)
	}
	if rows == 0 {
		return false, nil
	}

	r.audit.PlacementDissociated(ctx, placementID, linkID)

	return true, nil
}
