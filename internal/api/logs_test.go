package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evolane/linkmanager/internal/db/repositories"
)

var logCols = []string{
	"id", "employee_id", "employee_name", "severity", "resource_type",
	"resource_id", "action", "message", "details", "created_at",
}

func sampleLogRows() *sqlmock.Rows {
	return sqlmock.NewRows(logCols).AddRow(
		int64(1), int64(7), "Alice", "warning", "link",
		int64(5), "delete", `Link "Contact" (ID: 5) has been deleted`, nil, time.Now(),
	)
}

func newLogRouter(t *testing.T) (sqlmock.Sqlmock, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	h := NewLogHandlers(repositories.NewLogRepository(sqlx.NewDb(db, "sqlmock")))
	r := gin.New()
	r.GET("/logs", h.ListHandler())
	r.GET("/logs/:id", h.GetHandler())
	r.DELETE("/logs", h.ClearHandler())

	return mock, r
}

func TestListLogs_Success(t *testing.T) {
	mock, r := newLogRouter(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM activity_logs`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery(`SELECT .* FROM activity_logs ORDER BY`).
		WithArgs(50, 0).
		WillReturnRows(sampleLogRows())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/logs", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	entries := resp["entries"].([]interface{})
	assert.Len(t, entries, 1)
	pagination := resp["pagination"].(map[string]interface{})
	assert.EqualValues(t, 1, pagination["total"])
}

func TestListLogs_SeverityFilter(t *testing.T) {
	mock, r := newLogRouter(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM activity_logs WHERE severity`).
		WithArgs("warning").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery(`SELECT .* FROM activity_logs WHERE severity`).
		WithArgs("warning", 50, 0).
		WillReturnRows(sampleLogRows())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/logs?severity=warning", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListLogs_RejectsUnknownSeverity(t *testing.T) {
	_, r := newLogRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/logs?severity=critical", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "severity")
}

func TestListLogs_RejectsBadDate(t *testing.T) {
	_, r := newLogRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/logs?from=15-03-2026", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetLog_NotFound(t *testing.T) {
	mock, r := newLogRouter(t)

	mock.ExpectQuery(`SELECT .* FROM activity_logs WHERE id`).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows(logCols))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/logs/99", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestClearLogs_ReportsRemovedCount(t *testing.T) {
	mock, r := newLogRouter(t)

	mock.ExpectExec(`DELETE FROM activity_logs`).
		WillReturnResult(sqlmock.NewResult(0, 12))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/logs", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.EqualValues(t, 12, resp["removed"])
}
