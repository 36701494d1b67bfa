// Package core is the data integration layer of the HIV dashboard.
//
// It turns seven heterogeneous provider tables into three canonical,
// immutable tables and derives the dimension catalog the dashboard's
// selectors are populated from. Nothing in this package performs I/O;
// raw tables are supplied by the source package.
//
// # Source Registry
//
// Every source is described by a [SourceDefinition]: where it is read from,
// whether it is long (one row per country and year) or wide (one column per
// year), how its columns are renamed or dropped, and which measures it
// carries. Definitions are registered in a [Registry], normally from the
// embedded manifest in the sources subpackage:
//
//	reg, err := sources.Default()
//	ds, err := core.Build(reg, raw)
//
// # Pipeline
//
// [Build] runs each raw table through the same steps:
//
//  1. [Normalize] cleans cells, applies renames and drops, and verifies the
//     identifier and measure columns exist, failing with a
//     [SchemaMismatchError] otherwise
//  2. [Reshape] unpivots wide tables on their numeric year columns, or
//     [ToFrame] reads long tables directly, producing a [Frame] keyed by
//     (country, code, year)
//  3. [LeftJoin] merges ART coverage into deaths and new cases, filling
//     missing coverage with zero; [InnerJoin] pairs male and female
//     prevalence
//
// The resulting [Dataset] is shared read-only by every session.
//
// # Missing Values
//
// Measures are [pgtype.Float8] cells. Blank cells and the markers "NA",
// "NaN", ".." and "-" are invalid. Wide tables drop invalid cells when
// unpivoting. Only ART coverage is zero-filled, and only when joined; see
// [MissingPolicy].
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - SCH001: Schema mismatch while ingesting a source
//   - SRC001-SRC003: Source loading (unknown source, unreadable file, database)
//   - DATA001-DATA002: Selections with no data
//   - FLT001: Invalid filter values replaced by a default
//   - VIEW001: Unknown view
//   - REQ001-REQ003, RATE001: Request lifecycle
package core
