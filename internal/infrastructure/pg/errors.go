package pg

import (
	"context"
	"errors"

	"cryptoprice-service/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the repositories react to.
const (
	codeUndefinedTable      = "42P01"
	codeUniqueViolation     = "23505"
	codeSerialization       = "40001"
	codeDeadlock            = "40P01"
	codeLockNotAvailable    = "55P03"
	codeTooManyConnections  = "53300"
	codeConfigLimitExceeded = "53400"
	codeQueryCanceled       = "57014"
)

// classify tags a pgx error with the storage kind the application layer
// retries on or reports.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUndefinedTable:
			return domain.E(domain.KindTableMissing, op, "", err)
		case codeUniqueViolation:
			return domain.E(domain.KindStorageConflict, op, "", err)
		case codeSerialization, codeDeadlock, codeLockNotAvailable,
			codeTooManyConnections, codeConfigLimitExceeded, codeQueryCanceled:
			return domain.E(domain.KindStorageThrottled, op, "", err)
		default:
			return domain.E(domain.KindInternal, op, "", err)
		}
	}
	if errors.Is(err, context.Canceled) {
		return domain.E(domain.KindInternal, op, "", err)
	}
	return domain.E(domain.KindStorageUnavailable, op, "", err)
}
