// log_repository.go implements LogRepository, providing database queries for
// the activity log: append, filtered paginated listing, lookup, and purge.
package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/evolane/linkmanager/internal/db/models"
	"github.com/jmoiron/sqlx"
)

const logColumns = `id, employee_id, employee_name, severity, resource_type, resource_id, action, message, details, created_at`

var logOrderColumns = map[string]string{
	"id":         "id",
	"severity":   "severity",
	"action":     "action",
	"created_at": "created_at",
}

// LogRepository handles database operations for the activity log. It is the
// persistent store behind the audit recorder.
type LogRepository struct {
	db *sqlx.DB
}

// NewLogRepository creates a new log repository.
func NewLogRepository(db *sqlx.DB) *LogRepository {
	return &LogRepository{db: db}
}

// LogFilters narrows a log listing. Nil and zero fields are ignored.
// DateFrom and DateTo are interpreted at day granularity: DateFrom matches
// from midnight of its day, DateTo through the end of its day.
type LogFilters struct {
	Severity     *models.Severity
	ResourceType *models.ResourceType
	ResourceID   *int64
	Action       *models.LogAction
	DateFrom     *time.Time
	DateTo       *time.Time
	Search       string
}

// Pagination describes the page window of a listing result.
type Pagination struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int   `json:"pages"`
}

// LogPage is one page of log entries with its pagination envelope.
type LogPage struct {
	Entries    []models.LogEntry `json:"entries"`
	Pagination Pagination        `json:"pagination"`
}

// Append inserts a log entry and returns its id. Details are serialized to
// JSON; a nil map is stored as NULL. Append satisfies audit.Store.
func (r *LogRepository) Append(ctx context.Context, entry *models.LogEntry) (int64, error) {
	var details *string
	if entry.Details != nil {
		encoded, err := json.Marshal(entry.Details)
		if err != nil {
			return 0, fmt.Errorf("failed to encode log details: %w", err)
		}
		s := string(encoded)
		details = &s
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO activity_logs (employee_id, employee_name, severity, resource_type, resource_id, action, message, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		entry.EmployeeID, entry.EmployeeName, entry.Severity, entry.ResourceType,
		entry.ResourceID, entry.Action, entry.Message, details, entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to append log entry: %w", err)
	}
	return entry.ID, nil
}

// List retrieves a page of log entries matching the filters, newest first by
// default. orderBy must name a whitelisted column; dir other than "asc" means
// descending.
func (r *LogRepository) List(ctx context.Context, filters LogFilters, page, limit int, orderBy, dir string) (*LogPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	where := ""
	args := make([]any, 0, 8)
	next := 1

	addWhere := func(clause string, value any) {
		if where == "" {
			where = " WHERE "
		} else {
			where += " AND "
		}
		where += fmt.Sprintf(clause, next)
		next++
		args = append(args, value)
	}

	if filters.Severity != nil {
		addWhere("severity = $%d", *filters.Severity)
	}
	if filters.ResourceType != nil {
		addWhere("resource_type = $%d", *filters.ResourceType)
	}
	if filters.ResourceID != nil {
		addWhere("resource_id = $%d", *filters.ResourceID)
	}
	if filters.Action != nil {
		addWhere("action = $%d", *filters.Action)
	}
	if filters.DateFrom != nil {
		from := filters.DateFrom.Truncate(24 * time.Hour)
		addWhere("created_at >= $%d", from)
	}
	if filters.DateTo != nil {
		to := filters.DateTo.Truncate(24 * time.Hour).Add(24 * time.Hour)
		addWhere("created_at < $%d", to)
	}
	if filters.Search != "" {
		pattern := "%" + filters.Search + "%"
		clause := fmt.Sprintf("(message ILIKE $%d OR details ILIKE $%d OR employee_name ILIKE $%d)", next, next+1, next+2)
		next += 3
		if where == "" {
			where = " WHERE "
		} else {
			where += " AND "
		}
		where += clause
		args = append(args, pattern, pattern, pattern)
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM activity_logs` + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, fmt.Errorf("failed to count log entries: %w", err)
	}

	column, ok := logOrderColumns[orderBy]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if dir == "asc" {
		direction = "ASC"
	}

	offset := (page - 1) * limit
	pageQuery := fmt.Sprintf(
		`SELECT %s FROM activity_logs%s ORDER BY %s %s, id %s LIMIT $%d OFFSET $%d`,
		logColumns, where, column, direction, direction, next, next+1,
	)
	args = append(args, limit, offset)

	entries := make([]models.LogEntry, 0, limit)
	if err := r.db.SelectContext(ctx, &entries, pageQuery, args...); err != nil {
		return nil, fmt.Errorf("failed to list log entries: %w", err)
	}
	for i := range entries {
		decodeDetails(&entries[i])
	}

	pages := int((total + int64(limit) - 1) / int64(limit))
	return &LogPage{
		Entries: entries,
		Pagination: Pagination{
			Total: total,
			Page:  page,
			Limit: limit,
			Pages: pages,
		},
	}, nil
}

// GetByID retrieves one log entry, or (nil, nil) when absent.
func (r *LogRepository) GetByID(ctx context.Context, id int64) (*models.LogEntry, error) {
	var entry models.LogEntry
	query := `SELECT ` + logColumns + ` FROM activity_logs WHERE id = $1`
	err := r.db.GetContext(ctx, &entry, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get log entry: %w", err)
	}
	decodeDetails(&entry)
	return &entry, nil
}

// Clear deletes all log entries and returns how many were removed.
func (r *LogRepository) Clear(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM activity_logs`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear log entries: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read clear result: %w", err)
	}
	return rows, nil
}

// decodeDetails populates the Details map from the raw JSON column. Rows with
// unparseable details keep the raw string so the entry is still readable.
func decodeDetails(entry *models.LogEntry) {
	if entry.RawDetails == nil || *entry.RawDetails == "" {
		return
	}
	var details map[string]any
	if err := json.Unmarshal([]byte(*entry.RawDetails), &details); err != nil {
		return
	}
	entry.Details = details
}
