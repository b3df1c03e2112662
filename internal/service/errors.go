package service

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/kushtati/kushtati-immo-api/internal/domain"
)

// storageError turns a repository failure into a typed error. Typed errors
// pass through; unexpected failures are logged and become Internal.
func storageError(log *slog.Logger, op string, err error, notFound string) error {
	var de *domain.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, domain.ErrNotFound):
		return domain.NotFound(notFound)
	case errors.Is(err, domain.ErrDuplicate):
		return domain.Conflict("resource already exists")
	case errors.Is(err, domain.ErrForeignKey):
		return domain.BadRequest("referenced record does not exist")
	case errors.Is(err, domain.ErrConstraint):
		return domain.BadRequest("value violates a data constraint")
	}
	log.Error("storage operation failed",
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
	return domain.Internal(fmt.Errorf("%s: %w", op, err))
}
