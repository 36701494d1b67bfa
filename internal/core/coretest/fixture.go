// Package coretest provides small, hand-checkable source tables shaped like
// the real provider exports, for use in tests.
package coretest

import (
	"strconv"

	"github.com/JonMunkholm/hivdash/internal/core"
)

// Provider column names as they appear in the raw exports.
const (
	IncidenceColumn  = "Incidence - HIV/AIDS - Sex: Both - Age: All Ages (Number)"
	DeathsColumn     = "Deaths - HIV/AIDS - Sex: Both - Age: All Ages (Number)"
	PrevalenceColumn = "Prevalence - HIV/AIDS - Sex: Both - Age: All Ages (Number)"
	ARTPLHIVColumn   = "Antiretroviral therapy coverage (% of people living with HIV)"
	ARTColumn        = "Antiretroviral therapy coverage (% of population)"
)

// Fixture facts relied on by tests.
//
// Vietnam reports deaths and new cases for 1990-2020 and ART coverage only
// from 2005. Kenya reports 2000-2010, its 2003 coverage cell is blank, and
// its 2011 row has no counts and no coverage.
// "World" has no code and is dropped at ingestion.
//
// Prevalence is reported for 1990 and 2019. "Test Land" uses code TLD in the
// male table and TLX in the female table, so it never joins.
//
// Newly-infected counts cover 2015, 2019 and 2020 across both cohorts.
const (
	VietnamFirstYear = 1990
	VietnamLastYear  = 2020
	VietnamARTFrom   = 2005
	KenyaFirstYear   = 2000
	KenyaLastYear    = 2011
)

// VietnamNewCases returns the fixture's new case count for Vietnam in year.
func VietnamNewCases(year int) float64 { return float64(1000 + 10*(year-VietnamFirstYear)) }

// VietnamDeaths returns the fixture's death count for Vietnam in year.
func VietnamDeaths(year int) float64 { return float64(100 + (year - VietnamFirstYear)) }

// VietnamART returns the fixture's ART coverage for Vietnam in year (>= 2005).
func VietnamART(year int) float64 { return float64(3 * (year - 2000)) }

// Raw returns the seven raw source tables keyed by logical source name.
func Raw() map[string]core.RawTable {
	deaths := core.RawTable{
		Name:   core.SourceDeathsNewCases,
		Header: []string{"Entity", "Code", "Year", DeathsColumn, PrevalenceColumn, IncidenceColumn},
	}
	artPLHIV := core.RawTable{
		Name:   core.SourceARTCoveragePLHIV,
		Header: []string{"Entity", "Code", "Year", ARTPLHIVColumn},
	}
	for y := VietnamFirstYear; y <= VietnamLastYear; y++ {
		deaths.Rows = append(deaths.Rows, []string{"Vietnam", "VNM", itoa(y), ftoa(VietnamDeaths(y)), "5000", ftoa(VietnamNewCases(y))})
		if y >= VietnamARTFrom {
			artPLHIV.Rows = append(artPLHIV.Rows, []string{"Vietnam", "VNM", itoa(y), ftoa(VietnamART(y))})
		}
	}
	for y := KenyaFirstYear; y < KenyaLastYear; y++ {
		deaths.Rows = append(deaths.Rows, []string{"Kenya", "KEN", itoa(y), "20000", "1500000", "90000"})
		cov := itoa(y - 1990)
		if y == 2003 {
			cov = ""
		}
		artPLHIV.Rows = append(artPLHIV.Rows, []string{"Kenya", "KEN", itoa(y), cov})
	}
	deaths.Rows = append(deaths.Rows,
		[]string{"World", "", "2020", "680000", "37700000", "1500000"},
		[]string{"Kenya", "KEN", "2011", "", "1400000", ""},
	)
	artPLHIV.Rows = append(artPLHIV.Rows, []string{"World", "", "2020", "73"})

	art := core.RawTable{
		Name:   core.SourceARTCoverage,
		Header: []string{"Entity", "Code", "Year", ARTColumn},
		Rows: [][]string{
			{"Vietnam", "VNM", "2018", "0.1"},
			{"Vietnam", "VNM", "2019", "0.12"},
			{"Kenya", "KEN", "2019", "2.6"},
		},
	}

	return map[string]core.RawTable{
		core.SourceDeathsNewCases:   deaths,
		core.SourceARTCoveragePLHIV: artPLHIV,
		core.SourceARTCoverage:      art,
		core.SourcePrevalenceMale: wide(core.SourcePrevalenceMale, []string{"1990", "2019"}, [][]string{
			{"Viet Nam", "VNM", "0.1", "0.3"},
			{"Kenya", "KEN", "..", "1.2"},
			{"Test Land", "TLD", "", "0.5"},
		}),
		core.SourcePrevalenceFemale: wide(core.SourcePrevalenceFemale, []string{"1990", "2019"}, [][]string{
			{"Viet Nam", "VNM", "0.15", "0.2"},
			{"Kenya", "KEN", "", "2.5"},
			{"Test Land", "TLX", "", "0.7"},
		}),
		core.SourceChildrenInfected: wide(core.SourceChildrenInfected, []string{"2015", "2019", "2020"}, [][]string{
			{"Viet Nam", "VNM", "500", "", "400"},
			{"Kenya", "KEN", "8000", "", ""},
			{"World", "", "150000", "", "130000"},
		}),
		core.SourceAdultsInfected: wide(core.SourceAdultsInfected, []string{"2015", "2019", "2020"}, [][]string{
			{"Viet Nam", "VNM", "5000", "4500", ""},
			{"Kenya", "KEN", "40000", "", "30000"},
		}),
	}
}

// wide builds a World Bank style export: name, code, two indicator columns,
// then one column per year.
func wide(name string, years []string, rows [][]string) core.RawTable {
	t := core.RawTable{
		Name:   name,
		Header: append([]string{"Country Name", "Country Code", "Indicator Name", "Indicator Code"}, years...),
	}
	for _, r := range rows {
		cells := []string{r[0], r[1], "HIV indicator", "SH.HIV"}
		t.Rows = append(t.Rows, append(cells, r[2:]...))
	}
	return t
}

func itoa(i int) string { return strconv.Itoa(i) }

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
