// Package repositories implements the database stores for links, placements,
// and the activity log. Queries are raw SQL with positional parameters;
// multi-statement mutations (cascade delete, association replace) run inside
// a single transaction and roll back fully on any failure.
package repositories

import (
	"errors"
	"fmt"
)

// NotFoundError reports a lookup by primary key that matched no row. It is
// returned by GetByID-style methods where absence is exceptional; methods
// where a miss is a normal outcome (lookups by identifier, by link id)
// return (nil, nil) instead.
type NotFoundError struct {
	Resource string
	ID       int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %d not found", e.Resource, e.ID)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
