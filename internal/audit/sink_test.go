package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/evolane/linkmanager/internal/db/models"
)

func TestFileSink_WritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fallback.log")
	sink, err := NewFileSink(path, 0, 0)
	if err != nil {
		t.Fatalf("failed to create sink: %v", err)
	}
	defer sink.Close()

	resourceID := int64(4)
	entries := []*models.LogEntry{
		{Severity: models.SeverityInfo, ResourceType: models.ResourceLink, ResourceID: &resourceID, Action: models.ActionCreate, Message: "created"},
		{Severity: models.SeverityWarning, ResourceType: models.ResourcePlacement, Action: models.ActionDelete, Message: "deleted", Details: map[string]any{"link_id": 4}},
	}
	for _, entry := range entries {
		if err := sink.Write(entry); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open fallback file: %v", err)
	}
	defer file.Close()

	var records []fileSinkRecord
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var record fileSinkRecord
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			t.Fatalf("line is not valid JSON: %v", err)
		}
		records = append(records, record)
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Message != "created" || records[0].ResourceID == nil || *records[0].ResourceID != 4 {
		t.Errorf("unexpected first record: %+v", records[0])
	}
	if records[1].Severity != models.SeverityWarning {
		t.Errorf("unexpected second record severity: %s", records[1].Severity)
	}
	if records[0].Timestamp.IsZero() {
		t.Error("expected write-time timestamp to be stamped")
	}
}

func TestFileSink_AppendsAcrossReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fallback.log")

	for i := 0; i < 2; i++ {
		sink, err := NewFileSink(path, 0, 0)
		if err != nil {
			t.Fatalf("failed to create sink: %v", err)
		}
		if err := sink.Write(&models.LogEntry{Message: "entry", Action: models.ActionUpdate}); err != nil {
			t.Fatalf("write failed: %v", err)
		}
		if err := sink.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read fallback file: %v", err)
	}
	if lines := strings.Count(string(data), "\n"); lines != 2 {
		t.Errorf("expected 2 lines after reopen, got %d", lines)
	}
}

func TestFileSink_RotatesWhenOversized(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fallback.log")

	// Fill the file past the 1 MB threshold before handing it to the sink.
	padding := strings.Repeat("x", 1024)
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to seed file: %v", err)
	}
	for i := 0; i < 1025; i++ {
		if _, err := file.WriteString(padding); err != nil {
			t.Fatalf("failed to seed file: %v", err)
		}
	}
	file.Close()

	sink, err := NewFileSink(path, 1, 2)
	if err != nil {
		t.Fatalf("failed to create sink: %v", err)
	}
	defer sink.Close()

	if err := sink.Write(&models.LogEntry{Message: "after rotation", Action: models.ActionCreate}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	if _, err := os.Stat(path + ".1"); err != nil {
		t.Fatalf("expected rotated backup to exist: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read fresh file: %v", err)
	}
	if !strings.Contains(string(data), "after rotation") {
		t.Error("expected fresh file to contain only the new entry")
	}
	if strings.Contains(string(data), "xxxx") {
		t.Error("expected padding to have moved to the rotated backup")
	}
}
