package views

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/hivdash/internal/core"
)

// ViewKey names a derived view.
type ViewKey string

const (
	ViewSummary       ViewKey = "summary"
	ViewNewCases      ViewKey = "new_cases"
	ViewDeaths        ViewKey = "deaths"
	ViewARTCoverage   ViewKey = "art_coverage"
	ViewGenderScatter ViewKey = "gender_scatter"
	ViewGeoMap        ViewKey = "geo_map"
)

// Result is the outcome of computing one view. NoData is set when the
// selection matched nothing; Reason then carries the user-facing message and
// Err the underlying error.
type Result struct {
	View   ViewKey `json:"view"`
	Data   any     `json:"data"`
	NoData bool    `json:"noData"`
	Reason string  `json:"reason,omitempty"`
	Err    error   `json:"-"`
}

func noData(view ViewKey, data any, err error) Result {
	return Result{View: view, Data: data, NoData: true, Reason: core.MapError(err).Message, Err: err}
}

// ViewDef declares a view: the filter fields it reads and how to compute it.
// Compute must read only the declared fields of the state.
type ViewDef struct {
	Key     ViewKey
	Deps    []Field
	Compute func(e *Engine, s FilterState) Result
}

// DependsOn reports whether any of changed is a declared dependency.
func (d ViewDef) DependsOn(changed []Field) bool {
	for _, c := range changed {
		for _, dep := range d.Deps {
			if c == dep {
				return true
			}
		}
	}
	return false
}

// memoKey is the tuple of the view's dependency values.
func (d ViewDef) memoKey(s FilterState) string {
	parts := make([]string, len(d.Deps))
	for i, f := range d.Deps {
		parts[i] = s.Value(f)
	}
	return strings.Join(parts, "\x1f")
}

// Graph is the dependency graph of every view, in render order.
var Graph = []ViewDef{
	{
		Key:  ViewSummary,
		Deps: []Field{FieldCountry},
		Compute: func(e *Engine, s FilterState) Result {
			sum, err := e.SummaryFor(s.Country)
			if err != nil {
				return noData(ViewSummary, nil, err)
			}
			return Result{View: ViewSummary, Data: sum}
		},
	},
	{
		Key:     ViewNewCases,
		Deps:    []Field{FieldCountry, FieldNewCasesYears},
		Compute: seriesView(ViewNewCases, MeasureNewCases, func(s FilterState) core.YearRange { return s.NewCasesYears }),
	},
	{
		Key:     ViewDeaths,
		Deps:    []Field{FieldCountry, FieldDeathsYears},
		Compute: seriesView(ViewDeaths, MeasureDeaths, func(s FilterState) core.YearRange { return s.DeathsYears }),
	},
	{
		Key:     ViewARTCoverage,
		Deps:    []Field{FieldCountry, FieldARTYears},
		Compute: seriesView(ViewARTCoverage, MeasureART, func(s FilterState) core.YearRange { return s.ARTYears }),
	},
	{
		Key:  ViewGenderScatter,
		Deps: []Field{FieldScatterYear, FieldHighlight},
		Compute: func(e *Engine, s FilterState) Result {
			g := e.GenderScatterFor(s.ScatterYear, s.HighlightCountry)
			if len(g.Points) == 0 {
				return noData(ViewGenderScatter, g, fmt.Errorf("%w: %d", core.ErrNoDataForYear, s.ScatterYear))
			}
			return Result{View: ViewGenderScatter, Data: g}
		},
	},
	{
		Key:  ViewGeoMap,
		Deps: []Field{FieldCohort, FieldMapYear},
		Compute: func(e *Engine, s FilterState) Result {
			g, err := e.GeoSliceFor(s.Cohort, s.MapYear)
			if err != nil {
				return noData(ViewGeoMap, g, err)
			}
			if len(g.ByCode) == 0 {
				return noData(ViewGeoMap, g, fmt.Errorf("%w: %d", core.ErrNoDataForYear, s.MapYear))
			}
			return Result{View: ViewGeoMap, Data: g}
		},
	},
}

func seriesView(key ViewKey, m Measure, years func(FilterState) core.YearRange) func(*Engine, FilterState) Result {
	return func(e *Engine, s FilterState) Result {
		series := e.SeriesFor(s.Country, years(s), m)
		if len(series.Points) == 0 {
			err := fmt.Errorf("%w: %q", core.ErrNoDataForCountry, s.Country)
			if len(e.ds.CountryRecords(s.Country)) > 0 {
				err = fmt.Errorf("%w: %s %d-%d", core.ErrNoDataForYear, s.Country, series.Range.Min, series.Range.Max)
			}
			return noData(key, series, err)
		}
		return Result{View: key, Data: series}
	}
}

// Lookup returns the definition of a view by name.
func Lookup(name string) (ViewDef, error) {
	for _, d := range Graph {
		if string(d.Key) == name {
			return d, nil
		}
	}
	return ViewDef{}, fmt.Errorf("%w: %q", core.ErrUnknownView, name)
}

// memo is a bounded FIFO cache of one view's results keyed by dependency
// tuple.
type memo struct {
	size    int
	order   []string
	entries map[string]Result
}

func newMemo(size int) *memo {
	if size < 1 {
		size = 1
	}
	return &memo{size: size, entries: make(map[string]Result, size)}
}

func (m *memo) get(key string) (Result, bool) {
	r, ok := m.entries[key]
	return r, ok
}

func (m *memo) put(key string, r Result) {
	if _, ok := m.entries[key]; ok {
		m.entries[key] = r
		return
	}
	if len(m.order) >= m.size {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.entries, oldest)
	}
	m.order = append(m.order, key)
	m.entries[key] = r
}

func (m *memo) len() int { return len(m.entries) }
