package repository

import (
	"database/sql"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stanstork/taller-api/internal/apperr"
)

// Postgres SQLSTATE codes that describe bad input rather than an outage.
const (
	pqInvalidTextRepresentation = "22P02"
	pqForeignKeyViolation       = "23503"
	pqUniqueViolation           = "23505"
	pqCheckViolation            = "23514"
)

// translate maps errors from lookups keyed by id onto the shared taxonomy.
// A malformed id cannot match any row, so it reads as not found.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("%s", what)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqInvalidTextRepresentation {
		return apperr.NotFound("%s", what)
	}
	return translateWrite(err, what)
}

// translateWrite maps errors from inserts and updates. Constraint and syntax
// violations are the caller's input; anything else is treated as transient.
func translateWrite(err error, what string) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqInvalidTextRepresentation, pqForeignKeyViolation, pqUniqueViolation, pqCheckViolation:
			return apperr.Invalid("%s: %s", what, pqErr.Message)
		}
	}
	return apperr.Unavailable(err, what)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}
