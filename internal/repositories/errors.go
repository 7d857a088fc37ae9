package repositories

import (
	duelerr "github.com/KirkDiggler/cduello/internal/errors"
)

// ErrRecord prefixes every repository error message
const ErrRecord = "record error"

// NewRecordNotFoundError reports a missing record
func NewRecordNotFoundError(id string) error {
	return duelerr.NotFound(ErrRecord + ": " + id).WithMeta("record_id", id)
}

// NewInvalidRecordError reports a record or query the store cannot accept
func NewInvalidRecordError(msg string) error {
	return duelerr.InvalidArgumentf("%s: %s", ErrRecord, msg)
}

// IsNotFound reports whether err means the record does not exist
func IsNotFound(err error) bool {
	return duelerr.IsNotFound(err)
}
