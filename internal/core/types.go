// Package core provides the data integration layer for the HIV dashboard.
// This package has no UI dependencies and can be used by any frontend.
package core

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// Canonical column names shared by every normalized table.
const (
	ColCountry = "Country"
	ColCode    = "Code"
	ColYear    = "Year"
)

// Canonical measure names.
const (
	MeasureNewCases         = "New Cases"
	MeasureDeaths           = "Deaths"
	MeasureART              = "ART"
	MeasurePrevalenceMale   = "Prevalence_male"
	MeasurePrevalenceFemale = "Prevalence_female"
	MeasureChildren         = "Children"
	MeasureAdult            = "Adult"
)

// Layout describes how a source table stores its years.
type Layout string

const (
	// LayoutLong has one row per entity/year with a Year column.
	LayoutLong Layout = "long"
	// LayoutWide has one row per entity and one column per year.
	LayoutWide Layout = "wide"
)

// RawTable is a source table as loaded: a header row and string cells.
// Empty cells are missing values.
type RawTable struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Col returns the position of a column in the header, or -1.
func (t RawTable) Col(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Cell returns the cell at row i for the named column, or "" if absent.
func (t RawTable) Cell(i int, name string) string {
	pos := t.Col(name)
	if pos < 0 || pos >= len(t.Rows[i]) {
		return ""
	}
	return t.Rows[i][pos]
}

// Key identifies a country/year observation.
type Key struct {
	Country string
	Code    string
	Year    int
}

// FrameRow is one keyed observation with nullable measure cells.
// Values are positionally aligned with Frame.Measures.
type FrameRow struct {
	Key
	Values []pgtype.Float8
}

// Frame is a long-form table keyed by (Country, Code, Year).
type Frame struct {
	Name     string
	Measures []string
	Rows     []FrameRow
}

// MeasureIndex returns the position of a measure, or -1.
func (f Frame) MeasureIndex(name string) int {
	for i, m := range f.Measures {
		if m == name {
			return i
		}
	}
	return -1
}

// Len returns the number of rows.
func (f Frame) Len() int { return len(f.Rows) }

// YearBounds returns the inclusive min/max year of the frame.
// ok is false for an empty frame.
func (f Frame) YearBounds() (YearRange, bool) {
	if len(f.Rows) == 0 {
		return YearRange{}, false
	}
	r := YearRange{Min: f.Rows[0].Year, Max: f.Rows[0].Year}
	for _, row := range f.Rows[1:] {
		if row.Year < r.Min {
			r.Min = row.Year
		}
		if row.Year > r.Max {
			r.Max = row.Year
		}
	}
	return r, true
}

// YearRange is an inclusive year interval.
type YearRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Contains reports whether year lies within the range.
func (r YearRange) Contains(year int) bool {
	return year >= r.Min && year <= r.Max
}

// Empty reports whether the range selects no year.
func (r YearRange) Empty() bool {
	return r.Min > r.Max
}

// Cohort selects one of the newly-infected populations.
type Cohort string

const (
	CohortChildren Cohort = "children"
	CohortAdult    Cohort = "adult"
)

// Valid reports whether c is a known cohort.
func (c Cohort) Valid() bool {
	return c == CohortChildren || c == CohortAdult
}

// ParseCohort maps a cohort name to its canonical value. Matching ignores case
// and surrounding space, so "Children" and "adult" are both accepted.
func ParseCohort(s string) (Cohort, error) {
	switch c := Cohort(strings.ToLower(strings.TrimSpace(s))); c {
	case CohortChildren, CohortAdult:
		return c, nil
	}
	return "", fmt.Errorf("%w: cohort %q", ErrInvalidFilterValue, s)
}

// UnmarshalText accepts any spelling ParseCohort does. Unknown names are kept
// verbatim so filter validation can report them against the previous value.
func (c *Cohort) UnmarshalText(text []byte) error {
	parsed, err := ParseCohort(string(text))
	if err != nil {
		*c = Cohort(text)
		return nil
	}
	*c = parsed
	return nil
}

// Label returns the display label used by the geo map, or "" for an unknown
// cohort.
func (c Cohort) Label() string {
	switch c {
	case CohortChildren:
		return "Children Newly Infected"
	case CohortAdult:
		return "Adult Newly Infected"
	}
	return ""
}

// CountryYearRecord is one row of the joined deaths/new cases/ART table.
// ARTCoverage is always defined: missing coverage is zero coverage.
type CountryYearRecord struct {
	Country     string        `json:"country"`
	Code        string        `json:"code"`
	Year        int           `json:"year"`
	NewCases    pgtype.Float8 `json:"newCases"`
	Deaths      pgtype.Float8 `json:"deaths"`
	ARTCoverage float64       `json:"artCoverage"`
}

// GenderPrevalenceRecord pairs male and female teenage prevalence for a year.
type GenderPrevalenceRecord struct {
	Country          string  `json:"country"`
	Code             string  `json:"code"`
	Year             int     `json:"year"`
	PrevalenceMale   float64 `json:"prevalenceMale"`
	PrevalenceFemale float64 `json:"prevalenceFemale"`
}

// NewInfectionRecord is a newly-infected count for one cohort.
type NewInfectionRecord struct {
	Country string  `json:"country"`
	Code    string  `json:"code"`
	Year    int     `json:"year"`
	Cohort  Cohort  `json:"cohort"`
	Count   float64 `json:"count"`
}
