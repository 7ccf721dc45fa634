package database

import "github.com/pkg/errors"

// errNotFound is returned by an accessor when a requested key does not
// exist. Stores distinguish this from engine errors and decode errors, per
// spec.md §4.1 ("Every store operation returns a result that distinguishes
// not-found, engine error, and decode error").
type errNotFound struct {
	key string
}

func (e *errNotFound) Error() string {
	return "key " + e.key + " not found"
}

// NewErrNotFound creates a not-found error for the given key.
func NewErrNotFound(key *Key) error {
	return &errNotFound{key: string(key.Bytes())}
}

// IsNotFoundError returns whether err represents a not-found condition,
// looking through any pkg/errors wrapping.
func IsNotFoundError(err error) bool {
	var notFound *errNotFound
	return errors.As(err, &notFound)
}
