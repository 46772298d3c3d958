package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/evolane/linkmanager/internal/db/models"
)

// Sink is a secondary destination for activity log entries that could not be
// written to the primary store.
type Sink interface {
	// Write persists one entry to the fallback destination.
	Write(entry *models.LogEntry) error
	// Close releases any resources held by the sink.
	Close() error
}

// FileSink appends entries as JSON lines to a local file, rotating by size.
// It exists so that a database outage leaves an on-disk trace of every
// mutation that could not be audited, for later replay or inspection.
type FileSink struct {
	path       string
	maxSizeMB  int
	maxBackups int
	file       *os.File
	mu         sync.Mutex
}

// fileSinkRecord is the serialized form of a diverted entry. The timestamp is
// stamped at write time because the primary store never assigned one.
type fileSinkRecord struct {
	Timestamp    time.Time           `json:"timestamp"`
	EmployeeID   *int64              `json:"employee_id,omitempty"`
	EmployeeName *string             `json:"employee_name,omitempty"`
	Severity     models.Severity     `json:"severity"`
	ResourceType models.ResourceType `json:"resource_type"`
	ResourceID   *int64              `json:"resource_id,omitempty"`
	Action       models.LogAction    `json:"action"`
	Message      string              `json:"message"`
	Details      map[string]any      `json:"details,omitempty"`
}

// NewFileSink opens (or creates) the fallback file. maxSizeMB <= 0 disables
// rotation; maxBackups bounds the number of rotated files kept.
func NewFileSink(path string, maxSizeMB, maxBackups int) (*FileSink, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit fallback file: %w", err)
	}

	return &FileSink{
		path:       path,
		maxSizeMB:  maxSizeMB,
		maxBackups: maxBackups,
		file:       file,
	}, nil
}

// Write appends the entry as one JSON line.
func (s *FileSink) Write(entry *models.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxSizeMB > 0 {
		info, err := s.file.Stat()
		if err == nil && info.Size() > int64(s.maxSizeMB)*1024*1024 {
			if err := s.rotate(); err != nil {
				// Rotation failure is not fatal; keep appending to the
				// oversized file rather than dropping the entry.
				fmt.Fprintf(os.Stderr, "audit fallback sink: rotate failed: %v\n", err)
			}
		}
	}

	data, err := json.Marshal(fileSinkRecord{
		Timestamp:    time.Now().UTC(),
		EmployeeID:   entry.EmployeeID,
		EmployeeName: entry.EmployeeName,
		Severity:     entry.Severity,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		Action:       entry.Action,
		Message:      entry.Message,
		Details:      entry.Details,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	if _, err := s.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}

	return nil
}

// rotate shifts existing backups up by one and starts a fresh file.
func (s *FileSink) rotate() error {
	if err := s.file.Close(); err != nil {
		return err
	}

	for i := s.maxBackups - 1; i >= 1; i-- {
		oldPath := fmt.Sprintf("%s.%d", s.path, i)
		newPath := fmt.Sprintf("%s.%d", s.path, i+1)
		_ = os.Rename(oldPath, newPath)
	}

	_ = os.Rename(s.path, s.path+".1")

	if s.maxBackups > 0 {
		_ = os.Remove(fmt.Sprintf("%s.%d", s.path, s.maxBackups+1))
	}

	file, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}

	s.file = file
	return nil
}

// Close closes the underlying file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
