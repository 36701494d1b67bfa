package core

import (
	"errors"
	"fmt"
)

// Sentinel errors. Callers match them with errors.Is.
//
// ErrSchemaMismatch is fatal at startup. ErrNoDataForCountry and
// ErrNoDataForYear describe sparse reporting and are rendered as empty views.
// ErrInvalidFilterValue is reported after the offending value was replaced by
// a valid default.
var (
	ErrSchemaMismatch     = errors.New("schema mismatch")
	ErrNoDataForCountry   = errors.New("no data for country")
	ErrNoDataForYear      = errors.New("no data for year")
	ErrInvalidFilterValue = errors.New("invalid filter value")
	ErrUnknownSource      = errors.New("unknown source")
	ErrUnknownView        = errors.New("unknown view")
)

// SchemaMismatchError names the table and column that could not be resolved.
type SchemaMismatchError struct {
	Table  string
	Column string
	Reason string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch in %s: column %q %s", e.Table, e.Column, e.Reason)
}

func (e *SchemaMismatchError) Unwrap() error {
	return ErrSchemaMismatch
}

// FilterError describes a rejected filter value and the value used instead.
type FilterError struct {
	Field    string
	Value    any
	Fallback any
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("invalid filter value for %s: %v (using %v)", e.Field, e.Value, e.Fallback)
}

func (e *FilterError) Unwrap() error {
	return ErrInvalidFilterValue
}
