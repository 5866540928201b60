package mysql

import (
	"errors"

	"assetloan-backend/internal/domain/failure"

	"gorm.io/gorm"
)

// translate maps driver errors onto the domain taxonomy.
func translate(op, kind, key string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return failure.NotFound(kind, key)
	default:
		return failure.Persistence(op, err)
	}
}
