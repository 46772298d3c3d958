// link_repository.go implements LinkRepository, providing database queries for
// link CRUD, position sequencing, active toggling, and the cascade that
// removes orphaned placements when a link is deleted.
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

const linkColumns = `id, name, url, link_type, cms_page_id, position, active, created_at, updated_at`

// linkOrderColumns whitelists the sortable columns for List so user-supplied
// sort fields never reach the SQL text.
var linkOrderColumns = map[string]string{
	"id":         "id",
	"name":       "name",
	"position":   "position",
	"created_at": "created_at",
}

// LinkRepository handles database operations for links.
type LinkRepository struct {
	db    *sqlx.DB
	audit *audit.Recorder
}

// NewLinkRepository creates a new link repository. recorder may be nil, in
// which case mutations are not audited.
func NewLinkRepository(db *sqlx.DB, recorder *audit.Recorder) *LinkRepository {
	return &LinkRepository{db: db, audit: recorder}
}

// LinkUpdate carries a partial update; nil fields are left untouched.
// CMSPageID is only written when SetCMSPageID is true, so the page reference
// can be explicitly cleared to NULL (required when a link stops being a CMS
// link) without colliding with "field not supplied".
type LinkUpdate struct {
	Name         *string
	URL          *string
	Type         *models.LinkType
	CMSPageID    *int64
	SetCMSPageID bool
	Position     *int
	Active       *bool
}

// GetByID retrieves a link by primary key. Returns NotFoundError when absent.
func (r *LinkRepository) GetByID(ctx context.Context, id int64) (*models.Link, error) {
	var link models.Link
	query := `SELECT ` + linkColumns + ` FROM links WHERE id = $1`
	err := r.db.GetContext(ctx, &link, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Resource: "link", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get link: %w", err)
	}
	return &link, nil
}

// List retrieves links, optionally filtered by active status. orderBy must be
// one of the whitelisted columns (default "position"); dir is ASC or DESC.
func (r *LinkRepository) List(ctx context.Context, activeOnly *bool, orderBy, dir string) ([]models.Link, error) {
	column, ok := linkOrderColumns[orderBy]
	if !ok {
		column = "position"
	}
	if dir != "DESC" {
		dir = "ASC"
	}

	query := `SELECT ` + linkColumns + ` FROM links`
	args := make([]any, 0, 1)
	if activeOnly != nil {
		query += ` WHERE active = $1`
		args = append(args, *activeOnly)
	}
	query += fmt.Sprintf(` ORDER BY %s %s, id ASC`, column, dir)

	links := make([]models.Link, 0)
	if err := r.db.SelectContext(ctx, &links, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	return links, nil
}

// ListByName retrieves the active links carrying the given name, ordered by
// position with id as the deterministic tie-break.
func (r *LinkRepository) ListByName(ctx context.Context, name string) ([]models.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE name = $1 AND active = TRUE ORDER BY position ASC, id ASC`
	links := make([]models.Link, 0)
	if err := r.db.SelectContext(ctx, &links, query, name); err != nil {
		return nil, fmt.Errorf("failed to list links by name: %w", err)
	}
	return links, nil
}

// Create inserts a new link and returns its id. When Position is zero or
// negative the link is sequenced after the current maximum. Timestamps are
// stamped here; the model's ID, CreatedAt and UpdatedAt are filled in.
func (r *LinkRepository) Create(ctx context.Context, link *models.Link) (int64, error) {
	if link.Position <= 0 {
		if err := r.db.GetContext(ctx, &link.Position,
			`SELECT COALESCE(MAX(position), 0) + 1 FROM links`); err != nil {
			return 0, fmt.Errorf("failed to compute next link position: %w", err)
		}
	}

	now := time.Now().UTC()
	link.CreatedAt = now
	link.UpdatedAt = now

	query := `
		INSERT INTO links (name, url, link_type, cms_page_id, position, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		link.Name, link.URL, link.Type, link.CMSPageID,
		link.Position, link.Active, link.CreatedAt, link.UpdatedAt,
	).Scan(&link.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to create link: %w", err)
	}

	r.audit.LinkCreated(ctx, link.ID, link.Name, linkDetails(link))

	return link.ID, nil
}

// Update applies a partial update and restamps updated_at. It returns true
// when a row was modified. The audit entry carries the merged before/after
// state; fetching the "before" snapshot is best-effort and never blocks the
// update itself.
func (r *LinkRepository) Update(ctx context.Context, id int64, upd LinkUpdate) (bool, error) {
	// Best-effort snapshot for the audit trail.
	before, beforeErr := r.GetByID(ctx, id)
	if beforeErr != nil {
		before = nil
	}

	sets := []string{"updated_at = $1"}
	args := []any{time.Now().UTC()}
	next := 2

	addSet := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, next))
		args = append(args, value)
		next++
	}

	if upd.Name != nil {
		addSet("name", *upd.Name)
	}
	if upd.URL != nil {
		addSet("url", *upd.URL)
	}
	if upd.Type != nil {
		addSet("link_type", *upd.Type)
	}
	if upd.SetCMSPageID {
		addSet("cms_page_id", upd.CMSPageID)
	}
	if upd.Position != nil {
		addSet("position", *upd.Position)
	}
	if upd.Active != nil {
		addSet("active", *upd.Active)
	}

	query := fmt.Sprintf(`UPDATE links SET %s WHERE id = $%d`, joinSets(sets), next)
	args = append(args, id)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update link: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read update result: %w", err)
	}
	if rows == 0 {
		return false, nil
	}

	name := ""
	details := map[string]any{}
	if before != nil {
		name = before.Name
		details = linkDetails(before)
	}
	if upd.Name != nil {
		name = *upd.Name
	}
	mergeUpdateDetails(details, upd)
	r.audit.LinkUpdated(ctx, id, name, details)

	return true, nil
}

// Delete removes a link inside a single transaction. When cascadePlacements
// is set, each placement that was associated with the link is removed as well
// — but only if a live count shows it holds zero associations once the link
// and its association rows are gone. Any failure rolls the whole transaction
// back; nothing is partially applied.
func (r *LinkRepository) Delete(ctx context.Context, id int64, cascadePlacements bool) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Best-effort snapshot for the audit trail; tolerate failure.
	var before models.Link
	hasBefore := true
	if err := tx.GetContext(ctx, &before, `SELECT `+linkColumns+` FROM links WHERE id = $1`, id); err != nil {
		hasBefore = false
	}

	var placementIDs []int64
	if cascadePlacements {
		if err := tx.SelectContext(ctx, &placementIDs,
			`SELECT placement_id FROM placement_links WHERE link_id = $1`, id); err != nil {
			return false, fmt.Errorf("failed to collect placements for link %d: %w", id, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM placement_links WHERE link_id = $1`, id); err != nil {
		return false, fmt.Errorf("failed to delete link associations: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM links WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete link: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read delete result: %w", err)
	}
	deleted := rows > 0

	var orphans []int64
	for _, placementID := range placementIDs {
		// Live count inside the transaction, so it reflects the state after
		// the association rows above are gone.
		var count int
		if err := tx.GetContext(ctx, &count,
			`SELECT COUNT(*) FROM placement_links WHERE placement_id = $1`, placementID); err != nil {
			return false, fmt.Errorf("failed to count associations for placement %d: %w", placementID, err)
		}
		if count != 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM placements WHERE id = $1`, placementID); err != nil {
			return false, fmt.Errorf("failed to delete orphaned placement %d: %w", placementID, err)
		}
		orphans = append(orphans, placementID)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit link deletion: %w", err)
	}

	if deleted {
		name := ""
		details := map[string]any{}
		if hasBefore {
			name = before.Name
			details = linkDetails(&before)
		}
		r.audit.LinkDeleted(ctx, id, name, details)
	}
	for _, placementID := range orphans {
		r.audit.OrphanPlacementRemoved(ctx, placementID, id)
	}

	return deleted, nil
}

// ToggleActive flips the active flag. It delegates the write to Update and
// records a distinct toggle entry so the log reads as an intentional
// enable/disable rather than a generic edit.
func (r *LinkRepository) ToggleActive(ctx context.Context, id int64) (bool, error) {
	link, err := r.GetByID(ctx, id)
	if err != nil {
		return false, err
	}

	newStatus := !link.Active
	ok, err := r.Update(ctx, id, LinkUpdate{Active: &newStatus})
	if err != nil {
		return false, err
	}
	if ok {
		r.audit.LinkToggled(ctx, id, link.Name, newStatus)
	}
	return ok, nil
}

// UpdatePositions applies a batch of position changes. The batch is
// best-effort: every entry is attempted even after a failure, nothing is
// rolled back, and the result is false if any entry failed or matched no
// row. This is the one mutation where partial application is acceptable —
// a half-reordered list is recoverable, a half-deleted link is not.
func (r *LinkRepository) UpdatePositions(ctx context.Context, positions map[int64]int) (bool, error) {
	success := true
	var errs []error
	now := time.Now().UTC()

	for id, position := range positions {
		res, err := r.db.ExecContext(ctx,
			`UPDATE links SET position = $1, updated_at = $2 WHERE id = $3`, position, now, id)
		if err != nil {
			success = false
			errs = append(errs, fmt.Errorf("failed to update position of link %d: %w", id, err))
			continue
		}
		rows, err := res.RowsAffected()
		if err != nil || rows == 0 {
			success = false
		}
	}

	return success, errors.Join(errs...)
}

// linkDetails flattens a link into the structured payload stored with audit
// entries.
func linkDetails(l *models.Link) map[string]any {
	details := map[string]any{
		"name":      l.Name,
		"url":       l.URL,
		"link_type": string(l.Type),
		"position":  l.Position,
		"active":    l.Active,
	}
	if l.CMSPageID != nil {
		details["cms_page_id"] = *l.CMSPageID
	}
	return details
}

// mergeUpdateDetails overlays the supplied fields of a partial update onto a
// before-snapshot payload, mirroring what the update wrote.
func mergeUpdateDetails(details map[string]any, upd LinkUpdate) {
	if upd.Name != nil {
		details["name"] = *upd.Name
	}
	if upd.URL != nil {
		details["url"] = *upd.URL
	}
	if upd.Type != nil {
		details["link_type"] = string(*upd.Type)
	}
	if upd.SetCMSPageID {
		if upd.CMSPageID != nil {
			details["cms_page_id"] = *upd.CMSPageID
		} else {
			delete(details, "cms_page_id")
		}
	}
	if upd.Position != nil {
		details["position"] = *upd.Position
	}
	if upd.Active != nil {
		details["active"] = *upd.Active
	}
}

func joinSets(sets []string) string {
	out := sets[0]
	for _, s := range sets[1:] {
		out += ", " + s
	}
	return out
}
