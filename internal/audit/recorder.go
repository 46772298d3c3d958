// Package audit handles activity log emission for link manager mutations.
// The activity log is intentionally separate from application logs: slog
// output is ephemeral debug material for on-call engineers, while activity
// log entries are records shown to back-office users and kept until an
// explicit clear. The Recorder routes entries to the database store and, when
// the store is unavailable, to a fallback sink so a database outage never
// loses the record of what was attempted.
package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/evolane/linkmanager/internal/db/models"
	"github.com/evolane/linkmanager/internal/telemetry"
)

// Actor identifies the back-office user a mutation is attributed to.
// The zero value means "system" and leaves the employee columns null.
type Actor struct {
	ID   int64
	Name string
}

type actorKey struct{}

// WithActor returns a context carrying the acting user for audit attribution.
// The actor travels per-request as a context value, never as process state.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom extracts the acting user from the context. ok is false when no
// actor was attached (system-initiated work, background jobs, tests).
func ActorFrom(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}

// Store is the primary destination for activity log entries.
// *repositories.LogRepository satisfies it.
type Store interface {
	Append(ctx context.Context, entry *models.LogEntry) (int64, error)
}

// Recorder writes activity log entries with actor attribution and a
// fallback channel for store failures. A nil *Recorder is valid and records
// nothing, so callers never need to guard their audit calls.
type Recorder struct {
	store Store
	sink  Sink // optional; receives entries the store rejected
}

// NewRecorder creates a Recorder. sink may be nil.
func NewRecorder(store Store, sink Sink) *Recorder {
	return &Recorder{store: store, sink: sink}
}

// Append writes an entry to the store, stamping the actor from the context
// when the entry does not carry one. On store failure the entry is diverted
// to the fallback sink and logged, and the original error is returned so the
// caller decides whether the surrounding operation survives.
func (r *Recorder) Append(ctx context.Context, entry *models.LogEntry) (int64, error) {
	if r == nil || r.store == nil {
		return 0, nil
	}

	if entry.Severity == "" {
		entry.Severity = models.SeverityInfo
	}
	if entry.EmployeeID == nil {
		if actor, ok := ActorFrom(ctx); ok {
			entry.EmployeeID = &actor.ID
			entry.EmployeeName = &actor.Name
		}
	}

	id, err := r.store.Append(ctx, entry)
	if err != nil {
		slog.Error("activity log append failed, diverting to fallback sink",
			"action", entry.Action, "resource_type", entry.ResourceType, "message", entry.Message, "error", err)
		telemetry.AuditFallbackTotal.Inc()
		if r.sink != nil {
			if sinkErr := r.sink.Write(entry); sinkErr != nil {
				slog.Error("activity log fallback sink write failed", "error", sinkErr)
			}
		}
		return 0, err
	}

	telemetry.AuditEntriesTotal.WithLabelValues(string(entry.Action)).Inc()
	return id, nil
}

// TryRecord appends an entry and discards the result. This is the non-fatal
// side effect path used around domain mutations: emission failures are
// handled inside Append (fallback sink, slog, metrics) and must never abort
// the mutation they describe.
func (r *Recorder) TryRecord(ctx context.Context, entry *models.LogEntry) {
	if r == nil {
		return
	}
	_, _ = r.Append(ctx, entry)
}

// LinkCreated records the successful creation of a link.
func (r *Recorder) LinkCreated(ctx context.Context, linkID int64, name string, details map[string]any) {
	r.TryRecord(ctx, &models.LogEntry{
		Severity:     models.SeveritySuccess,
		ResourceType: models.ResourceLink,
		ResourceID:   &linkID,
		Action:       models.ActionCreate,
		Message:      fmt.Sprintf("Link %q (ID: %d) has been created", name, linkID),
		Details:      details,
	})
}

// LinkUpdated records a link update, with the merged before/after snapshot
// in details.
func (r *Recorder) LinkUpdated(ctx context.Context, linkID int64, name string, details map[string]any) {
	r.TryRecord(ctx, &models.LogEntry{
		Severity:     models.SeverityInfo,
		ResourceType: models.ResourceLink,
		ResourceID:   &linkID,
		Action:       models.ActionUpdate,
		Message:      fmt.Sprintf("Link %q (ID: %d) has been updated", name, linkID),
		Details:      details,
	})
}

// LinkDeleted records a link deletion.
func (r *Recorder) LinkDeleted(ctx context.Context, linkID int64, name string, details map[string]any) {
	r.TryRecord(ctx, &models.LogEntry{
		Severity:     models.SeverityWarning,
		ResourceType: models.ResourceLink,
		ResourceID:   &linkID,
		Action:       models.ActionDelete,
		Message:      fmt.Sprintf("Link %q (ID: %d) has been deleted", name, linkID),
		Details:      details,
	})
}

// LinkToggled records an active-status flip, distinct from a plain update so
// the log reads as an intentional enable/disable.
func (r *Recorder) LinkToggled(ctx context.Context, linkID int64, name string, newStatus bool) {
	verb := "deactivated"
	if newStatus {
		verb = "activated"
	}
	r.TryRecord(ctx, &models.LogEntry{
		Severity:     models.SeverityInfo,
		ResourceType: models.ResourceLink,
		ResourceID:   &linkID,
		Action:       models.ActionToggle,
		Message:      fmt.Sprintf("Link %q (ID: %d) has been %s", name, linkID, verb),
		Details:      map[string]any{"previous_status": !newStatus, "new_status": newStatus},
	})
}

// PlacementAssociated records a placement→link association replacing any
// previous binding of the placement.
func (r *Recorder) PlacementAssociated(ctx context.Context, placementID, linkID int64) {
	r.TryRecord(ctx, &models.LogEntry{
		Severity:     models.SeverityInfo,
		ResourceType: models.ResourcePlacement,
		ResourceID:   &placementID,
		Action:       models.ActionAssociate,
		Message:      fmt.Sprintf("Placement (ID: %d) has been associated with Link (ID: %d)", placementID, linkID),
		Details:      map[string]any{"link_id": linkID},
	})
}

// PlacementDissociated records the removal of a placement→link binding.
func (r *Recorder) PlacementDissociated(ctx context.Context, placementID, linkID int64) {
	r.TryRecord(ctx, &models.LogEntry{
		Severity:     models.SeverityInfo,
		ResourceType: models.ResourcePlacement,
		ResourceID:   &placementID,
		Action:       models.ActionDissociate,
		Message:      fmt.Sprintf("Placement (ID: %d) has been dissociated from Link (ID: %d)", placementID, linkID),
		Details:      map[string]any{"link_id": linkID},
	})
}

// OrphanPlacementRemoved records the cascade removal of a placement left with
// zero associations after its link was deleted.
func (r *Recorder) OrphanPlacementRemoved(ctx context.Context, placementID, linkID int64) {
	r.TryRecord(ctx, &models.LogEntry{
		Severity:     models.SeverityWarning,
		ResourceType: models.ResourcePlacement,
		ResourceID:   &placementID,
		Action:       models.ActionDelete,
		Message:      fmt.Sprintf("Orphaned placement (ID: %d) deleted during deletion of link %d", placementID, linkID),
		Details:      map[string]any{"link_id": linkID},
	})
}
