package core

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkg/errors"
)

type (
	// DBExecutor is satisfied by *sql.DB, *sql.Tx, *sqlx.DB and *sqlx.Tx.
	DBExecutor interface {
		Exec(query string, args ...interface{}) (sql.Result, error)
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
		Query(query string, args ...interface{}) (*sql.Rows, error)
		QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
		QueryRow(query string, args ...interface{}) *sql.Row
		QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	}

	DBTransactor interface {
		DBExecutor

		Commit() error
		Rollback() error
	}
)

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// ValidateOrderings rejects any ordering field that is not in allowed.
func ValidateOrderings(orderings []DBOrdering, allowed ...string) error {
	for _, ord := range orderings {
		var ok bool
		for _, a := range allowed {
			if ord.Field == a {
				ok = true
				break
			}
		}
		if !ok {
			return NewValidationError(
				errors.New("invalid ordering"),
				FieldError{Field: "ordering", Error: fmt.Sprintf("cannot order by %q", ord.Field)},
			)
		}
	}
	return nil
}

// FinishTx commits tx when err is nil and rolls it back otherwise.
func FinishTx(tx DBTransactor, err error) error {
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "rolling back: %v", rbErr)
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "committing")
}
