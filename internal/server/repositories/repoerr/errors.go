// Package repoerr maps database errors onto the sentinels in common.
package repoerr

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/vidhub/internal/common"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// Wrap classifies err: sql.ErrNoRows becomes common.ErrorNotFound, unique
// violations common.ErrConflict and everything else
// common.ErrStoreUnavailable. A nil err stays nil.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrorNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", common.ErrConflict, pgErr.ConstraintName)
	}

	return fmt.Errorf("%w: db error: %v", common.ErrStoreUnavailable, err)
}
