package domain

import "errors"

// Sentinel errors returned by repositories; services map them onto the
// apperror taxonomy.
var (
	// ErrVersionConflict means a wallet update lost an optimistic version
	// race. The enclosing operation is retried as a unit.
	ErrVersionConflict = errors.New("wallet version conflict")

	// ErrNotHeld means a hold status flip was attempted on a hold that is
	// no longer in the HELD state.
	ErrNotHeld = errors.New("hold is not in held state")
)
