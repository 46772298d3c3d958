// Package models - placement.go defines the Placement model, a named template
// slot addressed by a stable identifier, and its optional link association.
package models

import (
	"fmt"
	"regexp"
	"time"
)

// identifierPattern restricts placement identifiers to lowercase
// alphanumerics and underscores so they remain safe to embed in templates.
var identifierPattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// MaxIdentifierLength is the schema limit on placement identifiers.
const MaxIdentifierLength = 50

// ValidateIdentifier checks a placement identifier against the format rules.
// It returns a descriptive error suitable for surfacing to a form.
func ValidateIdentifier(identifier string) error {
	if identifier == "" {
		return fmt.Errorf("identifier must not be empty")
	}
	if len(identifier) > MaxIdentifierLength {
		return fmt.Errorf("identifier must be at most %d characters", MaxIdentifierLength)
	}
	if !identifierPattern.MatchString(identifier) {
		return fmt.Errorf("identifier %q must contain only lowercase letters, digits and underscores", identifier)
	}
	return nil
}

// Placement represents a template slot record. Identifier is globally unique
// and is the lookup key used by the render-time resolution path.
type Placement struct {
	ID          int64     `db:"id" json:"id"`
	Identifier  string    `db:"identifier" json:"identifier"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// PlacementWithLink is a placement joined with its (at most one) associated
// link. Link is nil when the placement has no association.
type PlacementWithLink struct {
	Placement
	Link *Link `json:"link"`
}
