package services

import (
	"errors"

	"rental-service/internal/apperr"
	"rental-service/internal/repository"
)

// translate maps repository sentinels onto service error kinds. Anything
// already categorised passes through untouched.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound("%s not found", what)
	case errors.Is(err, repository.ErrStaleRevision):
		return apperr.Conflict("%s was modified concurrently, reload and retry", what)
	case errors.Is(err, repository.ErrDuplicate):
		return apperr.Conflict("%s already exists", what)
	}
	return apperr.Unexpected(err, "%s: operation failed", what)
}
