package repositories

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/evolane/linkmanager/internal/db/models"
	"github.com/jmoiron/sqlx"
)

// ---------------------------------------------------------------------------
// Column definitions
// ---------------------------------------------------------------------------

var logCols = []string{"id", "employee_id", "employee_name", "severity", "resource_type", "resource_id", "action", "message", "details", "created_at"}

// ---------------------------------------------------------------------------
// Row builders
// ---------------------------------------------------------------------------

func sampleLogRow() *sqlmock.Rows {
	return sqlmock.NewRows(logCols).
		AddRow(int64(1), int64(7), "Alice", "success", "link", int64(3), "create",
			`Link "Contact us" (ID: 3) has been created`, `{"name":"Contact us"}`, time.Now())
}

func newLogRepo(t *testing.T) (*LogRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewLogRepository(sqlx.NewDb(db, "sqlmock")), mock
}

// ---------------------------------------------------------------------------
// Append
// ---------------------------------------------------------------------------

func TestLogAppend(t *testing.T) {
	repo, mock := newLogRepo(t)
	mock.ExpectQuery("INSERT INTO activity_logs").
		WithArgs(nil, nil, models.SeveritySuccess, models.ResourceLink, sqlmock.AnyArg(),
			models.ActionCreate, "created", `{"name":"Contact us"}`, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	resourceID := int64(3)
	entry := &models.LogEntry{
		Severity:     models.SeveritySuccess,
		ResourceType: models.ResourceLink,
		ResourceID:   &resourceID,
		Action:       models.ActionCreate,
		Message:      "created",
		Details:      map[string]any{"name": "Contact us"},
	}
	id, err := repo.Append(context.Background(), entry)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 42 {
		t.Errorf("id = %d, want 42", id)
	}
	if entry.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be stamped")
	}
}

func TestLogAppend_NilDetailsStoredAsNull(t *testing.T) {
	repo, mock := newLogRepo(t)
	mock.ExpectQuery("INSERT INTO activity_logs").
		WithArgs(nil, nil, models.SeverityInfo, models.ResourceModule, nil,
			models.ActionInstall, "installed", nil, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(43)))

	entry := &models.LogEntry{
		Severity:     models.SeverityInfo,
		ResourceType: models.ResourceModule,
		Action:       models.ActionInstall,
		Message:      "installed",
	}
	if _, err := repo.Append(context.Background(), entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// ---------------------------------------------------------------------------
// List
// ---------------------------------------------------------------------------

func TestLogList_NoFilters(t *testing.T) {
	repo, mock := newLogRepo(t)
	mock.ExpectQuery("SELECT COUNT.*FROM activity_logs").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery("SELECT.*FROM activity_logs ORDER BY created_at DESC, id DESC LIMIT").
		WithArgs(50, 0).
		WillReturnRows(sampleLogRow())

	page, err := repo.List(context.Background(), LogFilters{}, 1, 50, "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Pagination.Total != 1 {
		t.Errorf("Total = %d, want 1", page.Pagination.Total)
	}
	if page.Pagination.Pages != 1 {
		t.Errorf("Pages = %d, want 1", page.Pagination.Pages)
	}
	if len(page.Entries) != 1 {
		t.Fatalf("len = %d, want 1", len(page.Entries))
	}
	if page.Entries[0].Details["name"] != "Contact us" {
		t.Errorf("Details[name] = %v, want Contact us", page.Entries[0].Details["name"])
	}
}

func TestLogList_SeverityAndActionFilters(t *testing.T) {
	repo, mock := newLogRepo(t)
	mock.ExpectQuery("SELECT COUNT.*FROM activity_logs WHERE severity.*AND action").
		WithArgs(models.SeverityWarning, models.ActionDelete).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(0)))
	mock.ExpectQuery("SELECT.*FROM activity_logs WHERE severity.*AND action.*ORDER BY").
		WithArgs(models.SeverityWarning, models.ActionDelete, 50, 0).
		WillReturnRows(sqlmock.NewRows(logCols))

	severity := models.SeverityWarning
	action := models.ActionDelete
	page, err := repo.List(context.Background(), LogFilters{Severity: &severity, Action: &action}, 1, 50, "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Entries) != 0 {
		t.Errorf("len = %d, want 0", len(page.Entries))
	}
}

func TestLogList_DateRangeIsDayGranular(t *testing.T) {
	repo, mock := newLogRepo(t)
	day := time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)
	from := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT COUNT.*FROM activity_logs WHERE created_at >=.*AND created_at <").
		WithArgs(from, to).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(0)))
	mock.ExpectQuery("SELECT.*FROM activity_logs WHERE created_at >=.*AND created_at <.*ORDER BY").
		WithArgs(from, to, 50, 0).
		WillReturnRows(sqlmock.NewRows(logCols))

	if _, err := repo.List(context.Background(), LogFilters{DateFrom: &day, DateTo: &day}, 1, 50, "", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestLogList_SearchSpansMessageDetailsAndEmployee(t *testing.T) {
	repo, mock := newLogRepo(t)
	mock.ExpectQuery(`message ILIKE.*OR details ILIKE.*OR employee_name ILIKE`).
		WithArgs("%contact%", "%contact%", "%contact%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery(`SELECT.*FROM activity_logs WHERE.*ILIKE.*ORDER BY`).
		WithArgs("%contact%", "%contact%", "%contact%", 50, 0).
		WillReturnRows(sampleLogRow())

	page, err := repo.List(context.Background(), LogFilters{Search: "contact"}, 1, 50, "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Entries) != 1 {
		t.Errorf("len = %d, want 1", len(page.Entries))
	}
}

func TestLogList_ClampsPageAndLimit(t *testing.T) {
	repo, mock := newLogRepo(t)
	mock.ExpectQuery("SELECT COUNT.*FROM activity_logs").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(0)))
	mock.ExpectQuery("SELECT.*FROM activity_logs ORDER BY").
		WithArgs(50, 0).
		WillReturnRows(sqlmock.NewRows(logCols))

	if _, err := repo.List(context.Background(), LogFilters{}, 0, 100000, "", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLogList_IgnoresUnknownOrderColumn(t *testing.T) {
	repo, mock := newLogRepo(t)
	mock.ExpectQuery("SELECT COUNT.*FROM activity_logs").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(0)))
	mock.ExpectQuery("SELECT.*FROM activity_logs ORDER BY created_at DESC").
		WithArgs(50, 0).
		WillReturnRows(sqlmock.NewRows(logCols))

	if _, err := repo.List(context.Background(), LogFilters{}, 1, 50, "details; DROP TABLE activity_logs", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// ---------------------------------------------------------------------------
// GetByID / Clear
// ---------------------------------------------------------------------------

func TestLogGetByID_Found(t *testing.T) {
	repo, mock := newLogRepo(t)
	mock.ExpectQuery("SELECT.*FROM activity_logs WHERE id").
		WithArgs(int64(1)).
		WillReturnRows(sampleLogRow())

	entry, err := repo.GetByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry == nil {
		t.Fatal("expected entry, got nil")
	}
	if entry.Details["name"] != "Contact us" {
		t.Errorf("Details[name] = %v, want Contact us", entry.Details["name"])
	}
}

func TestLogGetByID_Miss(t *testing.T) {
	repo, mock := newLogRepo(t)
	mock.ExpectQuery("SELECT.*FROM activity_logs WHERE id").
		WillReturnRows(sqlmock.NewRows(logCols))

	entry, err := repo.GetByID(context.Background(), 99)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry != nil {
		t.Error("expected nil, got non-nil")
	}
}

func TestLogGetByID_ToleratesBadDetailsJSON(t *testing.T) {
	repo, mock := newLogRepo(t)
	rows := sqlmock.NewRows(logCols).
		AddRow(int64(2), nil, nil, "info", "link", nil, "update", "updated", "{not json", time.Now())
	mock.ExpectQuery("SELECT.*FROM activity_logs WHERE id").
		WillReturnRows(rows)

	entry, err := repo.GetByID(context.Background(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry == nil {
		t.Fatal("expected entry, got nil")
	}
	if entry.Details != nil {
		t.Error("expected nil Details for unparseable JSON")
	}
	if entry.RawDetails == nil || *entry.RawDetails != "{not json" {
		t.Error("expected raw details to be preserved")
	}
}

func TestLogClear(t *testing.T) {
	repo, mock := newLogRepo(t)
	mock.ExpectExec("DELETE FROM activity_logs").
		WillReturnResult(sqlmock.NewResult(0, 12))

	removed, err := repo.Clear(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed != 12 {
		t.Errorf("removed = %d, want 12", removed)
	}
}
