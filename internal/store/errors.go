package store

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	apperr "github.com/Hadesalive/smart-attendace-tracking-sub005/pkg/errors"
)

// Translate converts a driver error into the service error taxonomy:
// missing rows become errors.ErrNotFound, everything else a *errors.PersistenceError
// carrying the Postgres SQLSTATE when there is one.
func Translate(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &apperr.PersistenceError{Op: op, Code: pgErr.Code, Err: errors.New(pgErr.Message)}
	}
	return &apperr.PersistenceError{Op: op, Err: err}
}

// RequireAffected turns a zero-row write into errors.ErrNotFound.
func RequireAffected(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return Translate(op, err)
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
