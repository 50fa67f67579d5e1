package loader

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingSource is fatal: the baseline or description source is absent or unusable.
	ErrMissingSource = errors.New("missing source")
	// ErrNoSupplierSources is fatal: every supplier was skipped or none exist.
	ErrNoSupplierSources = errors.New("no supplier sources could be loaded")
	// ErrMissingColumn is returned when a header lacks a declared column.
	ErrMissingColumn = errors.New("missing column")
)

// SupplierError describes a supplier that was skipped. It is recoverable.
type SupplierError struct {
	Code string
	Path string
	Err  error
}

func (e *SupplierError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("supplier %s: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("supplier %s (%s): %v", e.Code, e.Path, e.Err)
}

func (e *SupplierError) Unwrap() error {
	return e.Err
}
