package views

import (
	"errors"
	"strconv"

	"github.com/JonMunkholm/hivdash/internal/core"
)

// Field names one input of the filter state.
type Field string

const (
	FieldCountry       Field = "country"
	FieldNewCasesYears Field = "new_cases_years"
	FieldDeathsYears   Field = "deaths_years"
	FieldARTYears      Field = "art_years"
	FieldScatterYear   Field = "scatter_year"
	FieldHighlight     Field = "highlight_country"
	FieldCohort        Field = "cohort"
	FieldMapYear       Field = "map_year"
)

// AllFields lists every filter field in display order.
var AllFields = []Field{
	FieldCountry,
	FieldNewCasesYears,
	FieldDeathsYears,
	FieldARTYears,
	FieldScatterYear,
	FieldHighlight,
	FieldCohort,
	FieldMapYear,
}

// FilterState is the complete set of user selections for one session.
type FilterState struct {
	Country          string         `json:"country"`
	NewCasesYears    core.YearRange `json:"new_cases_years"`
	DeathsYears      core.YearRange `json:"deaths_years"`
	ARTYears         core.YearRange `json:"art_years"`
	ScatterYear      int            `json:"scatter_year"`
	HighlightCountry string         `json:"highlight_country"`
	Cohort           core.Cohort    `json:"cohort"`
	MapYear          int            `json:"map_year"`
}

// Value renders one field as a string. It is the unit of memo keys.
func (s FilterState) Value(f Field) string {
	switch f {
	case FieldCountry:
		return s.Country
	case FieldNewCasesYears:
		return rangeString(s.NewCasesYears)
	case FieldDeathsYears:
		return rangeString(s.DeathsYears)
	case FieldARTYears:
		return rangeString(s.ARTYears)
	case FieldScatterYear:
		return strconv.Itoa(s.ScatterYear)
	case FieldHighlight:
		return s.HighlightCountry
	case FieldCohort:
		return string(s.Cohort)
	case FieldMapYear:
		return strconv.Itoa(s.MapYear)
	}
	return ""
}

// Patch is a partial filter update. Nil fields are left unchanged.
type Patch struct {
	Country          *string         `json:"country,omitempty"`
	NewCasesYears    *core.YearRange `json:"new_cases_years,omitempty"`
	DeathsYears      *core.YearRange `json:"deaths_years,omitempty"`
	ARTYears         *core.YearRange `json:"art_years,omitempty"`
	ScatterYear      *int            `json:"scatter_year,omitempty"`
	HighlightCountry *string         `json:"highlight_country,omitempty"`
	Cohort           *core.Cohort    `json:"cohort,omitempty"`
	MapYear          *int            `json:"map_year,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p == Patch{}
}

// PatchFrom returns a patch that sets every field to the values of s.
func PatchFrom(s FilterState) Patch {
	return Patch{
		Country:          &s.Country,
		NewCasesYears:    &s.NewCasesYears,
		DeathsYears:      &s.DeathsYears,
		ARTYears:         &s.ARTYears,
		ScatterYear:      &s.ScatterYear,
		HighlightCountry: &s.HighlightCountry,
		Cohort:           &s.Cohort,
		MapYear:          &s.MapYear,
	}
}

// Defaults are the preferred initial selections. Values outside the catalog
// fall back to the first valid value.
type Defaults struct {
	Country          string
	HighlightCountry string
	ScatterYear      int
	Cohort           core.Cohort
}

// DefaultState builds the initial filter state from the catalog.
// Series ranges span the full CountryYear bounds and the map year is the
// latest year reported for either cohort.
func DefaultState(cat *core.Catalog, d Defaults) FilterState {
	s := FilterState{
		NewCasesYears: cat.CountryYears,
		DeathsYears:   cat.CountryYears,
		ARTYears:      cat.CountryYears,
		ScatterYear:   core.ClampYear(d.ScatterYear, cat.ScatterBounds()),
		Cohort:        d.Cohort,
		MapYear:       cat.MapBounds().Max,
	}

	switch {
	case cat.HasCountry(d.Country):
		s.Country = d.Country
	case len(cat.Countries) > 0:
		s.Country = cat.Countries[0]
	}

	if cat.HasScatterCountry(d.HighlightCountry) {
		s.HighlightCountry = d.HighlightCountry
	}

	if c, err := core.ParseCohort(string(d.Cohort)); err == nil {
		s.Cohort = c
	} else {
		s.Cohort = core.CohortAdult
	}
	return s
}

// apply merges p into s, rejecting or clamping values outside the catalog.
// It returns the new state, the fields whose value actually changed, and a
// joined error of *core.FilterError for every value that was replaced.
func (s FilterState) apply(p Patch, cat *core.Catalog) (FilterState, []Field, error) {
	next := s
	var errs []error

	if p.Country != nil {
		if cat.HasCountry(*p.Country) {
			next.Country = *p.Country
		} else {
			errs = append(errs, &core.FilterError{Field: string(FieldCountry), Value: *p.Country, Fallback: s.Country})
		}
	}

	bounds := cat.CountryYears
	for _, r := range []struct {
		field Field
		in    *core.YearRange
		out   *core.YearRange
	}{
		{FieldNewCasesYears, p.NewCasesYears, &next.NewCasesYears},
		{FieldDeathsYears, p.DeathsYears, &next.DeathsYears},
		{FieldARTYears, p.ARTYears, &next.ARTYears},
	} {
		if r.in == nil {
			continue
		}
		clamped := core.ClampRange(*r.in, bounds)
		if clamped != *r.in {
			errs = append(errs, &core.FilterError{Field: string(r.field), Value: *r.in, Fallback: clamped})
		}
		*r.out = clamped
	}

	if p.ScatterYear != nil {
		next.ScatterYear = clampYearField(FieldScatterYear, *p.ScatterYear, cat.ScatterBounds(), &errs)
	}

	if p.HighlightCountry != nil {
		h := *p.HighlightCountry
		if h == "" || cat.HasScatterCountry(h) {
			next.HighlightCountry = h
		} else {
			errs = append(errs, &core.FilterError{Field: string(FieldHighlight), Value: h, Fallback: s.HighlightCountry})
		}
	}

	if p.Cohort != nil {
		if c, err := core.ParseCohort(string(*p.Cohort)); err == nil {
			next.Cohort = c
		} else {
			errs = append(errs, &core.FilterError{Field: string(FieldCohort), Value: *p.Cohort, Fallback: s.Cohort})
		}
	}

	if p.MapYear != nil {
		next.MapYear = clampYearField(FieldMapYear, *p.MapYear, cat.MapBounds(), &errs)
	}

	var changed []Field
	for _, f := range AllFields {
		if s.Value(f) != next.Value(f) {
			changed = append(changed, f)
		}
	}
	return next, changed, errors.Join(errs...)
}

func clampYearField(f Field, year int, bounds core.YearRange, errs *[]error) int {
	clamped := core.ClampYear(year, bounds)
	if clamped != year {
		*errs = append(*errs, &core.FilterError{Field: string(f), Value: year, Fallback: clamped})
	}
	return clamped
}

func rangeString(r core.YearRange) string {
	return strconv.Itoa(r.Min) + "-" + strconv.Itoa(r.Max)
}
