// Package pgrepos implements the core repositories on PostgreSQL with sqlx.
package pgrepos

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/inclusiva/core"
)

const uniqueViolation = "23505"

// dbError maps driver errors onto core errors. Uniqueness violations keep their code.
func dbError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return &core.DuplicateError{Code: string(pqErr.Code), Constraint: pqErr.Constraint}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errors.Wrap(err, op)
	}
	return core.NewUpstreamError(op, err)
}

// inTx runs fn in a transaction, rolling back when fn fails.
func inTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// orderBy renders a whitelisted ORDER BY clause, falling back to def.
func orderBy(ordering []core.DBOrdering, allowed map[string]bool, def string) string {
	clauses := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		if allowed[ord.Field] {
			clauses = append(clauses, ord.String())
		}
	}
	if len(clauses) == 0 {
		return " ORDER BY " + def
	}
	return " ORDER BY " + strings.Join(clauses, ", ")
}

func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}
