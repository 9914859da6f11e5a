package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/FilipeAphrody/cartify/internal/domain"
)

// Postgres error codes the repositories translate into the domain taxonomy.
const (
	// uniqueViolation fires on the unique index over lower(email); it is
	// the final arbiter of the check-then-act registration race.
	uniqueViolation = "23505"

	// invalidTextRepresentation fires when a caller-supplied id cannot be
	// cast to UUID. A garbage path parameter is the client's fault, not a
	// database outage.
	invalidTextRepresentation = "22P02"
)

// mapPostgresError translates driver errors into domain sentinels. Anything
// unrecognized is a dependency failure.
func mapPostgresError(err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case uniqueViolation:
			return domain.ErrConflict
		case invalidTextRepresentation:
			return fmt.Errorf("%w: malformed identifier", domain.ErrValidation)
		}
	}

	return fmt.Errorf("%w: %s: %v", domain.ErrDependency, op, err)
}
