package core

// convert.go turns raw source cells into typed values.
//
// Public-health extracts are messy in predictable ways:
//   - Missing values spelled as "", "NA", "NaN", ".." or "-"
//   - Thousands separators in counts ("1,234")
//   - Excel formula prefixes (="value") and stray quotes
//   - Year columns named "2019" or "2019 [YR2019]"
//
// Numeric conversions return pgtype.Float8 with Valid=false for missing or
// unparseable input so that absence stays distinguishable from zero.

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// dataBankYearRegex matches World Bank DataBank year headers such as "2019 [YR2019]".
var dataBankYearRegex = regexp.MustCompile(`^(\d{4}) \[YR\d{4}\]$`)

// missingTokens are cell values treated as absent.
var missingTokens = map[string]bool{
	"":    true,
	"na":  true,
	"n/a": true,
	"nan": true,
	"..":  true,
	"-":   true,
}

// CleanCell removes common CSV artifacts from a cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.TrimSpace(strings.Trim(s, `"'`))
}

// IsMissing reports whether a raw cell represents a missing value.
func IsMissing(s string) bool {
	return missingTokens[strings.ToLower(CleanCell(s))]
}

// ToFloat8 converts a cell to pgtype.Float8.
// Handles thousands separators and percent signs; returns invalid for
// missing or unparseable input.
func ToFloat8(s string) pgtype.Float8 {
	if IsMissing(s) {
		return pgtype.Float8{Valid: false}
	}

	s = CleanCell(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimSpace(s)

	if !numericRegex.MatchString(s) {
		return pgtype.Float8{Valid: false}
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return pgtype.Float8{Valid: false}
	}
	return pgtype.Float8{Float64: f, Valid: true}
}

// ParseYearCell converts a Year cell in a long table to an integer.
// Accepts "2019" and "2019.0" (floats written by spreadsheet exports).
func ParseYearCell(s string) (int, bool) {
	s = CleanCell(s)
	if s == "" {
		return 0, false
	}
	if y, err := strconv.Atoi(s); err == nil {
		return y, true
	}
	f := ToFloat8(s)
	if !f.Valid || f.Float64 != float64(int(f.Float64)) {
		return 0, false
	}
	return int(f.Float64), true
}

// YearColumn classifies a header name as a year column.
// A column is a year column if its name is all digits, or a DataBank header
// such as "2019 [YR2019]". Everything else is an identifier or metadata column.
func YearColumn(name string) (int, bool) {
	name = strings.TrimSpace(name)
	if m := dataBankYearRegex.FindStringSubmatch(name); m != nil {
		name = m[1]
	}
	if name == "" {
		return 0, false
	}
	for _, r := range name {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	y, err := strconv.Atoi(name)
	if err != nil {
		return 0, false
	}
	return y, true
}
