// Package views is the reactive view engine of the dashboard.
//
// The Engine exposes four pure operations over an immutable core.Dataset.
// A Session holds one user's filter state and recomputes only the views
// whose declared dependencies changed, memoizing results by the tuple of
// dependency values.
package views

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/hivdash/internal/core"
)

// Measure selects the CountryYear column plotted by a series.
type Measure string

const (
	MeasureNewCases Measure = core.MeasureNewCases
	MeasureDeaths   Measure = core.MeasureDeaths
	MeasureART      Measure = core.MeasureART
)

// ParseMeasure accepts a canonical measure name.
func ParseMeasure(s string) (Measure, error) {
	switch m := Measure(s); m {
	case MeasureNewCases, MeasureDeaths, MeasureART:
		return m, nil
	}
	return "", fmt.Errorf("%w: measure %q", core.ErrInvalidFilterValue, s)
}

// Summary is the latest CountryYear record of a country.
type Summary struct {
	Country     string        `json:"country"`
	Year        int           `json:"year"`
	NewCases    pgtype.Float8 `json:"newCases"`
	Deaths      pgtype.Float8 `json:"deaths"`
	ARTCoverage float64       `json:"artCoverage"`
}

// NewCasesText formats the new cases card, e.g. "12,000 cases | 2020".
func (s Summary) NewCasesText() string {
	return countText(s.NewCases) + " cases | " + strconv.Itoa(s.Year)
}

// DeathsText formats the deaths card.
func (s Summary) DeathsText() string {
	return countText(s.Deaths) + " cases | " + strconv.Itoa(s.Year)
}

// CoverageText formats the ART coverage card, e.g. "63% | 2020".
func (s Summary) CoverageText() string {
	return strconv.Itoa(int(s.ARTCoverage)) + "% | " + strconv.Itoa(s.Year)
}

// Point is one (year, value) pair of a series.
type Point struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
}

// Series is a country's time series for one measure.
type Series struct {
	Country string         `json:"country"`
	Measure Measure        `json:"measure"`
	Range   core.YearRange `json:"range"`
	Points  []Point        `json:"points"`
}

// GenderScatter is the prevalence cross-section for one year.
type GenderScatter struct {
	Year      int                           `json:"year"`
	Points    []core.GenderPrevalenceRecord `json:"points"`
	Highlight *core.GenderPrevalenceRecord  `json:"highlight,omitempty"`
}

// Annotation labels the highlighted point as "(male, female)".
func (g GenderScatter) Annotation() string {
	if g.Highlight == nil {
		return ""
	}
	return fmt.Sprintf("(%.2f, %.2f)", g.Highlight.PrevalenceMale, g.Highlight.PrevalenceFemale)
}

// GeoSlice holds one cohort's newly-infected counts for one year, keyed by
// country code.
type GeoSlice struct {
	Cohort core.Cohort                        `json:"cohort"`
	Year   int                                `json:"year"`
	Label  string                             `json:"label"`
	ByCode map[string]core.NewInfectionRecord `json:"byCode"`
}

// Codes returns the slice's country codes, sorted.
func (g GeoSlice) Codes() []string {
	codes := make([]string, 0, len(g.ByCode))
	for c := range g.ByCode {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// Engine evaluates views against a dataset. It holds no mutable state and is
// safe for concurrent use.
type Engine struct {
	ds *core.Dataset
}

// NewEngine creates an engine over ds.
func NewEngine(ds *core.Dataset) *Engine {
	return &Engine{ds: ds}
}

// Dataset returns the underlying dataset.
func (e *Engine) Dataset() *core.Dataset { return e.ds }

// SummaryFor returns the record with the greatest year for country.
func (e *Engine) SummaryFor(country string) (Summary, error) {
	recs := e.ds.CountryRecords(country)
	if len(recs) == 0 {
		return Summary{}, fmt.Errorf("%w: %q", core.ErrNoDataForCountry, country)
	}
	latest := recs[len(recs)-1]
	return Summary{
		Country:     latest.Country,
		Year:        latest.Year,
		NewCases:    latest.NewCases,
		Deaths:      latest.Deaths,
		ARTCoverage: latest.ARTCoverage,
	}, nil
}

// SeriesFor returns the points of measure for country with years in r,
// ascending. An inverted range, an unknown country, or a measure with no
// reported values yields an empty series.
func (e *Engine) SeriesFor(country string, r core.YearRange, m Measure) Series {
	s := Series{Country: country, Measure: m, Range: r, Points: []Point{}}
	if r.Empty() {
		return s
	}
	for _, rec := range e.ds.CountryRecords(country) {
		if !r.Contains(rec.Year) {
			continue
		}
		var v pgtype.Float8
		switch m {
		case MeasureNewCases:
			v = rec.NewCases
		case MeasureDeaths:
			v = rec.Deaths
		case MeasureART:
			v = pgtype.Float8{Float64: rec.ARTCoverage, Valid: true}
		}
		if !v.Valid {
			continue
		}
		s.Points = append(s.Points, Point{Year: rec.Year, Value: v.Float64})
	}
	return s
}

// GenderScatterFor returns every prevalence record of year. Highlight is set
// when highlight names a country with both prevalences reported that year.
func (e *Engine) GenderScatterFor(year int, highlight string) GenderScatter {
	recs := e.ds.GenderYear(year)
	g := GenderScatter{Year: year, Points: append([]core.GenderPrevalenceRecord{}, recs...)}
	if highlight == "" {
		return g
	}
	for i := range g.Points {
		if g.Points[i].Country == highlight {
			h := g.Points[i]
			g.Highlight = &h
			break
		}
	}
	return g
}

// GeoSliceFor returns cohort's records for year keyed by Code. cohort may be
// spelled in any case; an unknown cohort is an ErrInvalidFilterValue.
func (e *Engine) GeoSliceFor(cohort core.Cohort, year int) (GeoSlice, error) {
	cohort, err := core.ParseCohort(string(cohort))
	if err != nil {
		return GeoSlice{}, err
	}
	g := GeoSlice{
		Cohort: cohort,
		Year:   year,
		Label:  cohort.Label(),
		ByCode: make(map[string]core.NewInfectionRecord),
	}
	for _, r := range e.ds.InfectionsYear(cohort, year) {
		g.ByCode[r.Code] = r
	}
	return g, nil
}

// countText renders a count as an integer with thousands separators.
func countText(v pgtype.Float8) string {
	if !v.Valid {
		return "n/a"
	}
	return groupThousands(int64(v.Float64))
}

func groupThousands(n int64) string {
	sign := ""
	if n < 0 {
		sign, n = "-", -n
	}
	digits := strconv.FormatInt(n, 10)
	var b strings.Builder
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte(',')
		b.WriteString(digits[i : i+3])
	}
	return sign + b.String()
}
