package store

import "errors"

var (
	// ErrTableNotFound indicates the table does not exist.
	ErrTableNotFound = errors.New("table not found")

	// ErrRowNotFound indicates the row does not exist.
	ErrRowNotFound = errors.New("row not found")
)
