package orm

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a query expects exactly one row but finds none.
var ErrNotFound = errors.New("orm: not found")

// ErrForeignKeyViolation wraps driver errors raised when a write breaks a
// foreign key: inserting a row whose parent does not exist, or deleting a
// parent that is still referenced under RESTRICT / NO ACTION.
var ErrForeignKeyViolation = errors.New("orm: foreign key violation")

// ErrUniqueViolation wraps driver errors raised by duplicate keys.
var ErrUniqueViolation = errors.New("orm: unique violation")

const (
	mysqlDuplicateEntry   = 1062
	mysqlRowIsReferenced  = 1451
	mysqlNoReferencedRow  = 1452
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
)

// translateError wraps constraint errors from the MySQL and PostgreSQL
// drivers with the matching sentinel. The driver error stays in the chain.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlRowIsReferenced, mysqlNoReferencedRow:
			return fmt.Errorf("%w: %w", ErrForeignKeyViolation, err)
		case mysqlDuplicateEntry:
			return fmt.Errorf("%w: %w", ErrUniqueViolation, err)
		}
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %w", ErrForeignKeyViolation, err)
		case pgUniqueViolation:
			return fmt.Errorf("%w: %w", ErrUniqueViolation, err)
		}
	}
	return err
}
