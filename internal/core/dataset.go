package core

import (
	"fmt"
	"log/slog"
	"sort"
)

// Logical source names. These are the stable identifiers used by the
// manifest, the loaders and the catalog.
const (
	SourceDeathsNewCases   = "deaths_new_cases"
	SourceARTCoverage      = "art_coverage"
	SourceARTCoveragePLHIV = "art_coverage_plhiv"
	SourceChildrenInfected = "children_newly_infected"
	SourceAdultsInfected   = "adults_newly_infected"
	SourcePrevalenceMale   = "prevalence_male_teen"
	SourcePrevalenceFemale = "prevalence_female_teen"
	TableCountryYear       = "country_year"
	TableGenderPrevalence  = "gender_prevalence"
)

// RequiredSources lists every source Build needs.
var RequiredSources = []string{
	SourceDeathsNewCases,
	SourceARTCoverage,
	SourceARTCoveragePLHIV,
	SourceChildrenInfected,
	SourceAdultsInfected,
	SourcePrevalenceMale,
	SourcePrevalenceFemale,
}

// Dataset is the immutable data context: every canonical table, built once at
// startup and shared read-only by all sessions. Slices returned by its methods
// must not be modified.
type Dataset struct {
	frames           map[string]Frame
	countryYears     []CountryYearRecord
	genderPrevalence []GenderPrevalenceRecord
	infections       map[Cohort][]NewInfectionRecord

	byCountry  map[string][]CountryYearRecord
	genderYear map[int][]GenderPrevalenceRecord
	infectYear map[Cohort]map[int][]NewInfectionRecord
}

// Build normalizes, reshapes and joins the raw tables into a Dataset.
// Any schema problem aborts the build; a partially built dataset is never
// returned.
func Build(reg *Registry, raw map[string]RawTable) (*Dataset, error) {
	if err := reg.Require(RequiredSources...); err != nil {
		return nil, err
	}

	frames := make(map[string]Frame, reg.Count())
	for _, def := range reg.All() {
		t, ok := raw[def.Info.Key]
		if !ok {
			return nil, fmt.Errorf("%w: %s not loaded", ErrUnknownSource, def.Info.Key)
		}
		f, err := ingest(def, t)
		if err != nil {
			return nil, fmt.Errorf("ingest %s: %w", def.Info.Key, err)
		}
		slog.Debug("source ingested",
			"source", def.Info.Key,
			"layout", def.Info.Layout,
			"raw_rows", len(t.Rows),
			"rows", f.Len(),
		)
		frames[def.Info.Key] = f
	}

	ds := &Dataset{frames: frames}

	joined, err := LeftJoin(frames[SourceDeathsNewCases], JoinSpec{
		Frame:   frames[SourceARTCoveragePLHIV],
		Measure: MeasureART,
		Missing: FillZero,
	})
	if err != nil {
		return nil, fmt.Errorf("join %s: %w", TableCountryYear, err)
	}
	joined.Name = TableCountryYear
	if ds.countryYears, err = countryYearRecords(joined); err != nil {
		return nil, err
	}

	gender := InnerJoin(frames[SourcePrevalenceMale], frames[SourcePrevalenceFemale])
	gender.Name = TableGenderPrevalence
	if ds.genderPrevalence, err = genderRecords(gender); err != nil {
		return nil, err
	}

	ds.infections = make(map[Cohort][]NewInfectionRecord, 2)
	if ds.infections[CohortChildren], err = infectionRecords(frames[SourceChildrenInfected], CohortChildren); err != nil {
		return nil, err
	}
	if ds.infections[CohortAdult], err = infectionRecords(frames[SourceAdultsInfected], CohortAdult); err != nil {
		return nil, err
	}

	frames[TableCountryYear] = joined
	frames[TableGenderPrevalence] = gender
	ds.index()
	return ds, nil
}

// ingest runs a single source through the normalizer and, for wide layouts,
// the reshaper.
func ingest(def SourceDefinition, raw RawTable) (Frame, error) {
	if raw.Name == "" {
		raw.Name = def.Info.Key
	}
	t, err := Normalize(raw, def.Schema)
	if err != nil {
		return Frame{}, err
	}
	if def.Info.Layout == LayoutWide {
		return Reshape(t, def.Info.Measure)
	}
	return ToFrame(t, def.Schema.Measures...)
}

func countryYearRecords(f Frame) ([]CountryYearRecord, error) {
	nc, d, art := f.MeasureIndex(MeasureNewCases), f.MeasureIndex(MeasureDeaths), f.MeasureIndex(MeasureART)
	if nc < 0 || d < 0 || art < 0 {
		return nil, &SchemaMismatchError{Table: f.Name, Column: MeasureNewCases + "|" + MeasureDeaths + "|" + MeasureART, Reason: "not found"}
	}
	out := make([]CountryYearRecord, len(f.Rows))
	for i, r := range f.Rows {
		out[i] = CountryYearRecord{
			Country:     r.Country,
			Code:        r.Code,
			Year:        r.Year,
			NewCases:    r.Values[nc],
			Deaths:      r.Values[d],
			ARTCoverage: r.Values[art].Float64,
		}
	}
	return out, nil
}

func genderRecords(f Frame) ([]GenderPrevalenceRecord, error) {
	m, fe := f.MeasureIndex(MeasurePrevalenceMale), f.MeasureIndex(MeasurePrevalenceFemale)
	if m < 0 || fe < 0 {
		return nil, &SchemaMismatchError{Table: f.Name, Column: MeasurePrevalenceMale + "|" + MeasurePrevalenceFemale, Reason: "not found"}
	}
	out := make([]GenderPrevalenceRecord, 0, len(f.Rows))
	for _, r := range f.Rows {
		if !r.Values[m].Valid || !r.Values[fe].Valid {
			continue
		}
		out = append(out, GenderPrevalenceRecord{
			Country:          r.Country,
			Code:             r.Code,
			Year:             r.Year,
			PrevalenceMale:   r.Values[m].Float64,
			PrevalenceFemale: r.Values[fe].Float64,
		})
	}
	return out, nil
}

func infectionRecords(f Frame, cohort Cohort) ([]NewInfectionRecord, error) {
	if len(f.Measures) != 1 {
		return nil, &SchemaMismatchError{Table: f.Name, Column: string(cohort), Reason: "expected a single measure"}
	}
	out := make([]NewInfectionRecord, 0, len(f.Rows))
	for _, r := range f.Rows {
		if !r.Values[0].Valid {
			continue
		}
		out = append(out, NewInfectionRecord{
			Country: r.Country,
			Code:    r.Code,
			Year:    r.Year,
			Cohort:  cohort,
			Count:   r.Values[0].Float64,
		})
	}
	return out, nil
}

// index builds the lookup maps used by the view engine.
func (ds *Dataset) index() {
	ds.byCountry = make(map[string][]CountryYearRecord)
	for _, r := range ds.countryYears {
		ds.byCountry[r.Country] = append(ds.byCountry[r.Country], r)
	}
	for _, recs := range ds.byCountry {
		sort.SliceStable(recs, func(i, j int) bool { return recs[i].Year < recs[j].Year })
	}

	ds.genderYear = make(map[int][]GenderPrevalenceRecord)
	for _, r := range ds.genderPrevalence {
		ds.genderYear[r.Year] = append(ds.genderYear[r.Year], r)
	}

	ds.infectYear = make(map[Cohort]map[int][]NewInfectionRecord, len(ds.infections))
	for cohort, recs := range ds.infections {
		byYear := make(map[int][]NewInfectionRecord)
		for _, r := range recs {
			byYear[r.Year] = append(byYear[r.Year], r)
		}
		ds.infectYear[cohort] = byYear
	}
}

// CountryYears returns the joined deaths/new cases/ART table.
func (ds *Dataset) CountryYears() []CountryYearRecord { return ds.countryYears }

// GenderPrevalence returns the joined male/female prevalence table.
func (ds *Dataset) GenderPrevalence() []GenderPrevalenceRecord { return ds.genderPrevalence }

// NewInfections returns the newly-infected table for one cohort.
func (ds *Dataset) NewInfections(c Cohort) []NewInfectionRecord { return ds.infections[c] }

// CountryRecords returns a country's records sorted by year.
func (ds *Dataset) CountryRecords(country string) []CountryYearRecord { return ds.byCountry[country] }

// GenderYear returns the prevalence records for one year.
func (ds *Dataset) GenderYear(year int) []GenderPrevalenceRecord { return ds.genderYear[year] }

// InfectionsYear returns one cohort's records for one year.
func (ds *Dataset) InfectionsYear(c Cohort, year int) []NewInfectionRecord {
	return ds.infectYear[c][year]
}

// Frame returns a normalized source frame or a joined canonical frame by name.
func (ds *Dataset) Frame(name string) (Frame, bool) {
	f, ok := ds.frames[name]
	return f, ok
}

// FrameNames returns the names of all frames, sorted.
func (ds *Dataset) FrameNames() []string {
	names := make([]string, 0, len(ds.frames))
	for n := range ds.frames {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
