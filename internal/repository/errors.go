package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict is a unique-key violation reported by the storage engine.
	ErrConflict = errors.New("conflict")
	// ErrReferenced is a foreign-key violation: a referenced row is missing
	// on insert, or a row is still referenced on delete.
	ErrReferenced = errors.New("referenced")
	// ErrTransient marks timeouts and connectivity failures. The whole
	// operation is safe to retry from the top.
	ErrTransient = errors.New("transient storage failure")
)

func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
