package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/kushtati/kushtati-immo-api/internal/domain"
)

// Postgres error codes mapped onto domain sentinels.
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqCheckViolation      = "23514"
	pqInvalidTextRepr     = "22P02"
)

// mapError translates driver errors into domain sentinels, keeping the
// original error in the chain.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return fmt.Errorf("%s: %w: %s", op, domain.ErrDuplicate, pqErr.Constraint)
		case pqForeignKeyViolation:
			return fmt.Errorf("%s: %w: %s", op, domain.ErrForeignKey, pqErr.Constraint)
		case pqCheckViolation:
			return fmt.Errorf("%s: %w: %s", op, domain.ErrConstraint, pqErr.Constraint)
		case pqInvalidTextRepr:
			// malformed UUIDs in lookups behave like unknown ids
			return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

var (
	_ domain.UserRepository     = (*PostgresUserRepository)(nil)
	_ domain.PropertyRepository = (*PostgresPropertyRepository)(nil)
	_ domain.ContractRepository = (*PostgresContractRepository)(nil)
	_ domain.PaymentRepository  = (*PostgresPaymentRepository)(nil)
)
