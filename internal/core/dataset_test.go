package core_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/hivdash/internal/core"
	"github.com/JonMunkholm/hivdash/internal/core/coretest"
	"github.com/JonMunkholm/hivdash/internal/core/sources"
)

func buildFixture(t *testing.T) *core.Dataset {
	t.Helper()
	reg, err := sources.Default()
	require.NoError(t, err)
	ds, err := core.Build(reg, coretest.Raw())
	require.NoError(t, err)
	return ds
}

func TestBuild_CountryYearTable(t *testing.T) {
	ds := buildFixture(t)

	vietnam := ds.CountryRecords("Vietnam")
	require.Len(t, vietnam, coretest.VietnamLastYear-coretest.VietnamFirstYear+1)
	for i, r := range vietnam {
		assert.Equal(t, coretest.VietnamFirstYear+i, r.Year)
		assert.Equal(t, "VNM", r.Code)
		assert.Equal(t, coretest.VietnamNewCases(r.Year), r.NewCases.Float64)
		assert.Equal(t, coretest.VietnamDeaths(r.Year), r.Deaths.Float64)
	}

	// Rows without a code never reach the canonical table.
	assert.Empty(t, ds.CountryRecords("World"))
	for _, r := range ds.CountryYears() {
		assert.NotEmpty(t, r.Code)
	}
}

func TestBuild_ARTZeroFill(t *testing.T) {
	ds := buildFixture(t)

	for _, r := range ds.CountryRecords("Vietnam") {
		if r.Year < coretest.VietnamARTFrom {
			assert.Zero(t, r.ARTCoverage, "year %d", r.Year)
		} else {
			assert.Equal(t, coretest.VietnamART(r.Year), r.ARTCoverage, "year %d", r.Year)
		}
	}

	for _, r := range ds.CountryRecords("Kenya") {
		if r.Year == 2003 || r.Year == 2011 {
			assert.Zero(t, r.ARTCoverage, "year %d", r.Year)
		}
	}
}

func TestBuild_JoinPreservesPrimaryRows(t *testing.T) {
	ds := buildFixture(t)

	primary, ok := ds.Frame(core.SourceDeathsNewCases)
	require.True(t, ok)
	joined, ok := ds.Frame(core.TableCountryYear)
	require.True(t, ok)

	assert.Equal(t, primary.Len(), joined.Len())
	assert.Len(t, ds.CountryYears(), primary.Len())
}

func TestBuild_UniqueKeys(t *testing.T) {
	ds := buildFixture(t)

	seen := make(map[core.Key]bool)
	for _, r := range ds.CountryYears() {
		k := core.Key{Country: r.Country, Code: r.Code, Year: r.Year}
		assert.False(t, seen[k], "duplicate key %v", k)
		seen[k] = true
	}
}

func TestBuild_GenderPrevalence(t *testing.T) {
	ds := buildFixture(t)

	assert.Len(t, ds.GenderPrevalence(), 3)

	y2019 := ds.GenderYear(2019)
	require.Len(t, y2019, 2)
	countries := []string{y2019[0].Country, y2019[1].Country}
	assert.ElementsMatch(t, []string{"Kenya", "Viet Nam"}, countries)

	// Kenya has no female value in 1990 and Test Land never matches on code.
	for _, r := range ds.GenderPrevalence() {
		assert.NotEqual(t, "Test Land", r.Country)
		if r.Country == "Kenya" {
			assert.Equal(t, 2019, r.Year)
		}
	}
}

func TestBuild_NewInfectionsByCohort(t *testing.T) {
	ds := buildFixture(t)

	children := ds.NewInfections(core.CohortChildren)
	adults := ds.NewInfections(core.CohortAdult)
	assert.Len(t, children, 3)
	assert.Len(t, adults, 4)

	for _, r := range children {
		assert.Equal(t, core.CohortChildren, r.Cohort)
		assert.NotEmpty(t, r.Code)
	}
	for _, r := range adults {
		assert.Equal(t, core.CohortAdult, r.Cohort)
	}

	assert.Empty(t, ds.InfectionsYear(core.CohortChildren, 2019))
	assert.Len(t, ds.InfectionsYear(core.CohortAdult, 2019), 1)
}

func TestBuild_SchemaMismatchAborts(t *testing.T) {
	reg, err := sources.Default()
	require.NoError(t, err)

	raw := coretest.Raw()
	male := raw[core.SourcePrevalenceMale]
	male.Header = append([]string(nil), male.Header...)
	male.Header[1] = "ISO3"
	raw[core.SourcePrevalenceMale] = male

	ds, err := core.Build(reg, raw)
	assert.Nil(t, ds)
	assert.True(t, errors.Is(err, core.ErrSchemaMismatch), "got %v", err)
}

func TestBuild_MissingSource(t *testing.T) {
	reg, err := sources.Default()
	require.NoError(t, err)

	raw := coretest.Raw()
	delete(raw, core.SourceAdultsInfected)

	_, err = core.Build(reg, raw)
	assert.ErrorIs(t, err, core.ErrUnknownSource)
}

func TestCatalog(t *testing.T) {
	ds := buildFixture(t)
	cat := core.NewCatalog(ds)

	assert.Equal(t, []string{"Kenya", "Vietnam"}, cat.Countries)
	assert.Equal(t, core.YearRange{Min: 1990, Max: 2020}, cat.CountryYears)
	assert.Equal(t, []int{1990, 2019}, cat.ScatterYears)
	assert.Equal(t, []string{"Kenya", "Test Land", "Viet Nam"}, cat.ScatterCountries)
	assert.Equal(t, []int{2015, 2019, 2020}, cat.MapYears)

	assert.Equal(t, core.YearRange{Min: 2018, Max: 2019}, cat.TableYears[core.SourceARTCoverage])
	assert.Equal(t, core.YearRange{Min: 2000, Max: 2020}, cat.TableYears[core.SourceARTCoveragePLHIV])
	assert.Equal(t, core.YearRange{Min: 1990, Max: 2019}, cat.TableYears[core.TableGenderPrevalence])

	assert.True(t, cat.HasCountry("Vietnam"))
	assert.False(t, cat.HasCountry("Viet Nam"))
	assert.True(t, cat.HasScatterCountry("Viet Nam"))
	assert.Equal(t, core.YearRange{Min: 1990, Max: 2019}, cat.ScatterBounds())
	assert.Equal(t, core.YearRange{Min: 2015, Max: 2020}, cat.MapBounds())
}

func TestClamp(t *testing.T) {
	bounds := core.YearRange{Min: 1990, Max: 2020}

	assert.Equal(t, 1990, core.ClampYear(1950, bounds))
	assert.Equal(t, 2020, core.ClampYear(2030, bounds))
	assert.Equal(t, 2005, core.ClampYear(2005, bounds))

	assert.Equal(t, core.YearRange{Min: 1990, Max: 2000}, core.ClampRange(core.YearRange{Min: 1900, Max: 2000}, bounds))

	inverted := core.ClampRange(core.YearRange{Min: 2010, Max: 2000}, bounds)
	assert.True(t, inverted.Empty())
}
