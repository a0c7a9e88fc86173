package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"recurring-planner/internal/repository"
)

const uniqueViolationCode = "23505"

// MapError converts driver errors into the repository sentinels. Errors
// without a mapping are returned unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %v", repository.ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return fmt.Errorf("%w: %s", repository.ErrDuplicateOccurrence, pgErr.ConstraintName)
	}
	return err
}
