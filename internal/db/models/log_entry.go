// Package models - log_entry.go defines the LogEntry model for the append-only
// activity log. Entries record who did what to which resource; they are never
// updated after insertion and are only removed through a bulk clear.
package models

import "time"

// Severity classifies a log entry for filtering and display.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Valid reports whether the value is one of the known severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeveritySuccess, SeverityWarning, SeverityError:
		return true
	}
	return false
}

// ResourceType names the kind of resource an entry refers to.
type ResourceType string

const (
	ResourceLink          ResourceType = "link"
	ResourcePlacement     ResourceType = "placement"
	ResourceConfiguration ResourceType = "configuration"
	ResourceModule        ResourceType = "module"
)

// Valid reports whether the value is one of the known resource types.
func (r ResourceType) Valid() bool {
	switch r {
	case ResourceLink, ResourcePlacement, ResourceConfiguration, ResourceModule:
		return true
	}
	return false
}

// LogAction names the mutation that produced an entry.
type LogAction string

const (
	ActionCreate     LogAction = "create"
	ActionUpdate     LogAction = "update"
	ActionDelete     LogAction = "delete"
	ActionToggle     LogAction = "toggle"
	ActionInstall    LogAction = "install"
	ActionUninstall  LogAction = "uninstall"
	ActionAssociate  LogAction = "associate"
	ActionDissociate LogAction = "dissociate"
)

// Valid reports whether the value is one of the known actions.
func (a LogAction) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete, ActionToggle,
		ActionInstall, ActionUninstall, ActionAssociate, ActionDissociate:
		return true
	}
	return false
}

// LogEntry represents one row of the activity log.
//
// EmployeeID and EmployeeName are nil for system-initiated actions.
// Details holds arbitrary structured context; it is serialized to JSON on
// write. When reading back, a payload that fails to deserialize is kept as
// raw text in RawDetails and Details stays nil.
type LogEntry struct {
	ID           int64          `db:"id" json:"id"`
	EmployeeID   *int64         `db:"employee_id" json:"employee_id"`
	EmployeeName *string        `db:"employee_name" json:"employee_name"`
	Severity     Severity       `db:"severity" json:"severity"`
	ResourceType ResourceType   `db:"resource_type" json:"resource_type"`
	ResourceID   *int64         `db:"resource_id" json:"resource_id"`
	Action       LogAction      `db:"action" json:"action"`
	Message      string         `db:"message" json:"message"`
	Details      map[string]any `db:"-" json:"details,omitempty"`
	RawDetails   *string        `db:"details" json:"raw_details,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}
