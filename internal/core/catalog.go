package core

import (
	"sort"
)

// Catalog holds the selectable domains derived from the canonical tables.
// It is computed once per Dataset and never invalidated, since the tables
// are immutable for the life of the process.
type Catalog struct {
	// Countries are the distinct countries of the joined CountryYear table.
	Countries []string `json:"countries"`

	// CountryYears is the year span of the joined CountryYear table.
	CountryYears YearRange `json:"countryYears"`

	// TableYears is the year span of every non-empty frame, by frame name.
	TableYears map[string]YearRange `json:"tableYears"`

	// ScatterYears are the distinct years of the gender prevalence table.
	ScatterYears []int `json:"scatterYears"`

	// ScatterCountries are the countries reported by either prevalence source.
	ScatterCountries []string `json:"scatterCountries"`

	// MapYears is the union of years over both newly-infected cohorts.
	MapYears []int `json:"mapYears"`

	countrySet        map[string]bool
	scatterCountrySet map[string]bool
}

// NewCatalog derives the catalog from ds.
func NewCatalog(ds *Dataset) *Catalog {
	c := &Catalog{
		TableYears:        make(map[string]YearRange),
		countrySet:        make(map[string]bool),
		scatterCountrySet: make(map[string]bool),
	}

	for _, r := range ds.CountryYears() {
		c.countrySet[r.Country] = true
	}
	c.Countries = sortedKeys(c.countrySet)

	for _, name := range ds.FrameNames() {
		f, _ := ds.Frame(name)
		if b, ok := f.YearBounds(); ok {
			c.TableYears[name] = b
		}
	}
	c.CountryYears = c.TableYears[TableCountryYear]

	scatterYears := make(map[int]bool)
	for _, r := range ds.GenderPrevalence() {
		scatterYears[r.Year] = true
	}
	c.ScatterYears = sortedInts(scatterYears)

	for _, src := range []string{SourcePrevalenceMale, SourcePrevalenceFemale} {
		f, _ := ds.Frame(src)
		for _, r := range f.Rows {
			c.scatterCountrySet[r.Country] = true
		}
	}
	c.ScatterCountries = sortedKeys(c.scatterCountrySet)

	mapYears := make(map[int]bool)
	for _, cohort := range []Cohort{CohortChildren, CohortAdult} {
		for _, r := range ds.NewInfections(cohort) {
			mapYears[r.Year] = true
		}
	}
	c.MapYears = sortedInts(mapYears)

	return c
}

// HasCountry reports whether country appears in the CountryYear table.
func (c *Catalog) HasCountry(country string) bool {
	return c.countrySet[country]
}

// HasScatterCountry reports whether country appears in either prevalence source.
func (c *Catalog) HasScatterCountry(country string) bool {
	return c.scatterCountrySet[country]
}

// ScatterBounds returns the span of ScatterYears.
func (c *Catalog) ScatterBounds() YearRange {
	return spanOf(c.ScatterYears)
}

// MapBounds returns the span of MapYears.
func (c *Catalog) MapBounds() YearRange {
	return spanOf(c.MapYears)
}

// ClampYear moves year into bounds.
func ClampYear(year int, bounds YearRange) int {
	if year < bounds.Min {
		return bounds.Min
	}
	if year > bounds.Max {
		return bounds.Max
	}
	return year
}

// ClampRange clamps both ends of r into bounds. An inverted range stays
// inverted so that it still selects nothing.
func ClampRange(r YearRange, bounds YearRange) YearRange {
	return YearRange{Min: ClampYear(r.Min, bounds), Max: ClampYear(r.Max, bounds)}
}

func spanOf(years []int) YearRange {
	if len(years) == 0 {
		return YearRange{}
	}
	return YearRange{Min: years[0], Max: years[len(years)-1]}
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedInts(set map[int]bool) []int {
	out := make([]int, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
