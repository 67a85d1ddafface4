package table

import (
	"errors"

	tferrors "github.com/vnykmshr/tabflow/pkg/common/errors"
)

var (
	// ErrTypeMismatch indicates a value that does not fit its column's declared type.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrLengthMismatch indicates columns of different lengths in one table.
	ErrLengthMismatch = errors.New("column length mismatch")

	// ErrDuplicateColumn indicates two columns with the same name.
	ErrDuplicateColumn = errors.New("duplicate column")

	// ErrColumnNotFound is returned when a named column does not exist.
	ErrColumnNotFound = tferrors.ErrColumnNotFound
)
