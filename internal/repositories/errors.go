package repositories

import (
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound is wrapped by repository methods when a row does not exist.
var ErrNotFound = gorm.ErrRecordNotFound

// IsNotFoundError reports whether err means the requested record is absent.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
