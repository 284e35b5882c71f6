// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlorm

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/canonical/sqlorm/internal/expr"
)

// ErrNoRows is returned by [Query.FindOne] and [Query.FindByID] when no row
// matched.
var ErrNoRows = sql.ErrNoRows

var (
	// ErrMissingID is returned when a record without a primary key value is
	// updated or deleted.
	ErrMissingID = errors.New("record has no primary key value")
	// ErrConfigLocked is returned when the configuration is changed after
	// the client was created.
	ErrConfigLocked = errors.New("configuration cannot change once the client is created")
	// ErrInvalidJoin is returned for join constraints with missing parts.
	ErrInvalidJoin = expr.ErrInvalidJoin
	// ErrNoFields is returned when a new record with no fields is saved.
	ErrNoFields = expr.ErrNoFields
)

// ConnectionError is returned when the database client cannot be created.
type ConnectionError struct {
	Driver string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("cannot connect to %q database: %s", e.Driver, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// QueryError is returned when the database fails to prepare or run a
// statement. Err is the driver error, unmodified.
type QueryError struct {
	SQL  string
	Args []any
	Err  error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("cannot run query %q: %s", e.SQL, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// PreconditionError is returned when an operation is used incorrectly, for
// example deleting a record that has no primary key. It signals a
// programming error rather than a problem with the data.
type PreconditionError struct {
	Op  string
	Err error
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("cannot %s: %s", e.Op, e.Err)
}

func (e *PreconditionError) Unwrap() error {
	return e.Err
}

func preconditionf(op string, format string, args ...any) *PreconditionError {
	return &PreconditionError{Op: op, Err: fmt.Errorf(format, args...)}
}

// IsConstraintViolation reports whether err was caused by the database
// rejecting a statement because of an integrity constraint (unique, not null,
// foreign key, check).
func IsConstraintViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgerrcode.IsIntegrityConstraintViolation(pgErr.Code)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pgerrcode.IsIntegrityConstraintViolation(string(pqErr.Code))
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		// ER_DUP_ENTRY, ER_BAD_NULL_ERROR, ER_NO_REFERENCED_ROW_2,
		// ER_ROW_IS_REFERENCED_2, ER_CHECK_CONSTRAINT_VIOLATED
		case 1062, 1048, 1452, 1451, 3819:
			return true
		}
	}
	return false
}
