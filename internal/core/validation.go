package core

// validation.go checks source headers before any row is touched.
//
// Validation happens at two levels:
//  1. Column resolution: candidate names (Code vs Country Code) are resolved
//     to a single position, or the table is rejected.
//  2. Column presence: every column the schema renames, drops or measures must
//     exist, mirroring a strict dataframe rename/drop.
//
// Every failure is a *SchemaMismatchError so startup can abort with a message
// naming the table and column.

import (
	"errors"
	"strings"
)

// resolveColumn returns the position of the first candidate present in header.
func resolveColumn(header []string, candidates []string) (int, bool) {
	for _, c := range candidates {
		for i, h := range header {
			if strings.EqualFold(h, c) {
				return i, true
			}
		}
	}
	return -1, false
}

// ValidateColumns checks that every required column is present in header.
// Returns all missing columns joined into one error.
func ValidateColumns(table string, header []string, required ...string) error {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}

	var errs []error
	for _, col := range required {
		if !present[col] {
			errs = append(errs, &SchemaMismatchError{Table: table, Column: col, Reason: "not found"})
		}
	}
	return errors.Join(errs...)
}

// validateUnique rejects headers that map two source columns onto one name.
func validateUnique(table string, header []string) error {
	seen := make(map[string]bool, len(header))
	for _, h := range header {
		if h == "" {
			continue
		}
		if seen[h] {
			return &SchemaMismatchError{Table: table, Column: h, Reason: "appears more than once"}
		}
		seen[h] = true
	}
	return nil
}
