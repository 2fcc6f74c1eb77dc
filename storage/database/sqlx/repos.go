package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/evalink/core"
	"github.com/trezcool/evalink/storage/database"
)

// queryer is satisfied by *sqlx.DB and *sqlx.Tx.
type queryer interface {
	core.DBExecutor
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// withTx runs fn in a transaction, committed when fn succeeds.
func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return wrapError(err, "beginning transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	return core.FinishTx(tx, fn(tx))
}

// wrapError wraps err with msg, turning a lost connection into a shutdown error.
func wrapError(err error, msg string) error {
	if database.ConnectionLost(err) {
		return errors.Wrap(core.NewShutdownError("database connection lost: "+err.Error()), msg)
	}
	return errors.Wrap(err, msg)
}

// mapError turns constraint violations into domain errors. conflicts maps unique constraint names to the
// error reported when they are violated.
func mapError(err error, table, msg string, conflicts map[string]error) error {
	if err == nil {
		return nil
	}
	if constraint, ok := database.UniqueViolation(err); ok {
		if e, ok := conflicts[constraint]; ok {
			return core.NewConflictError(e)
		}
		return core.NewConflictError(errors.New("this record already exists"))
	}
	if constraint, ok := database.ForeignKeyViolation(err); ok {
		field := database.ForeignKeyField(table, constraint)
		return core.NewValidationError(
			errors.Errorf("invalid %s", field),
			core.FieldError{Field: field, Error: "does not exist"},
		)
	}
	return wrapError(err, msg)
}

// checkAffected returns notFound when res affected no row.
func checkAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "counting affected rows")
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// getOne runs a single row query, returning notFound when there is no row.
func getOne(ctx context.Context, q queryer, dest interface{}, notFound error, query string, args ...interface{}) error {
	err := q.GetContext(ctx, dest, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return wrapError(err, "selecting row")
}
