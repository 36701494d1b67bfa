package core

import (
	"sort"
	"strconv"

	"github.com/jackc/pgx/v5/pgtype"
)

// yearColumn is a header position classified as holding one year's values.
type yearColumn struct {
	pos  int
	year int
}

// classifyColumns splits a normalized header into year columns. Identifier
// and metadata columns are never returned, so they cannot be read as a year.
func classifyColumns(header []string) []yearColumn {
	var cols []yearColumn
	for i, h := range header {
		if h == ColCountry || h == ColCode {
			continue
		}
		if y, ok := YearColumn(h); ok {
			cols = append(cols, yearColumn{pos: i, year: y})
		}
	}
	return cols
}

// Reshape unpivots a normalized wide table (one column per year) into a long
// frame with a single measure. Rows whose value is missing are discarded. A
// repeated (Country, Code, Year) keeps the last occurrence.
//
// A table that is already long (a Year column and no year-named columns) is
// passed through, so reshaping a reshaped table is a no-op.
func Reshape(t RawTable, measure string) (Frame, error) {
	if err := ValidateColumns(t.Name, t.Header, ColCountry, ColCode); err != nil {
		return Frame{}, err
	}

	years := classifyColumns(t.Header)
	if len(years) == 0 && t.Col(ColYear) >= 0 {
		f, err := ToFrame(t, measure)
		if err != nil {
			return Frame{}, err
		}
		return f.dropMissing(0), nil
	}

	countryPos, codePos := t.Col(ColCountry), t.Col(ColCode)
	out := Frame{Name: t.Name, Measures: []string{measure}}
	index := make(map[Key]int)

	for _, row := range t.Rows {
		country, code := cellAt(row, countryPos), cellAt(row, codePos)
		if IsMissing(code) {
			continue
		}
		for _, yc := range years {
			v := ToFloat8(cellAt(row, yc.pos))
			if !v.Valid {
				continue
			}
			out.upsert(index, Key{Country: country, Code: code, Year: yc.year}, []pgtype.Float8{v})
		}
	}

	out.sortRows()
	return out, nil
}

// ToFrame converts a normalized long table into a frame with the given
// measures. Measure cells stay nullable; rows with an unparseable Year are
// skipped. A repeated key keeps the last occurrence.
func ToFrame(t RawTable, measures ...string) (Frame, error) {
	required := append([]string{ColCountry, ColCode, ColYear}, measures...)
	if err := ValidateColumns(t.Name, t.Header, required...); err != nil {
		return Frame{}, err
	}

	countryPos, codePos, yearPos := t.Col(ColCountry), t.Col(ColCode), t.Col(ColYear)
	measurePos := make([]int, len(measures))
	for i, m := range measures {
		measurePos[i] = t.Col(m)
	}

	out := Frame{Name: t.Name, Measures: append([]string(nil), measures...)}
	index := make(map[Key]int)

	for _, row := range t.Rows {
		code := cellAt(row, codePos)
		if IsMissing(code) {
			continue
		}
		year, ok := ParseYearCell(cellAt(row, yearPos))
		if !ok {
			continue
		}
		values := make([]pgtype.Float8, len(measures))
		for i, pos := range measurePos {
			values[i] = ToFloat8(cellAt(row, pos))
		}
		out.upsert(index, Key{Country: cellAt(row, countryPos), Code: code, Year: year}, values)
	}

	out.sortRows()
	return out, nil
}

// Raw renders the frame back into a long RawTable.
func (f Frame) Raw() RawTable {
	t := RawTable{
		Name:   f.Name,
		Header: append([]string{ColCountry, ColCode, ColYear}, f.Measures...),
		Rows:   make([][]string, 0, len(f.Rows)),
	}
	for _, r := range f.Rows {
		cells := []string{r.Country, r.Code, strconv.Itoa(r.Year)}
		for _, v := range r.Values {
			if v.Valid {
				cells = append(cells, strconv.FormatFloat(v.Float64, 'g', -1, 64))
			} else {
				cells = append(cells, "")
			}
		}
		t.Rows = append(t.Rows, cells)
	}
	return t
}

// upsert appends a row or overwrites the values of an existing key.
func (f *Frame) upsert(index map[Key]int, k Key, values []pgtype.Float8) {
	if i, ok := index[k]; ok {
		f.Rows[i].Values = values
		return
	}
	index[k] = len(f.Rows)
	f.Rows = append(f.Rows, FrameRow{Key: k, Values: values})
}

// dropMissing returns a copy without rows whose measure i is missing.
func (f Frame) dropMissing(i int) Frame {
	out := Frame{Name: f.Name, Measures: f.Measures, Rows: make([]FrameRow, 0, len(f.Rows))}
	for _, r := range f.Rows {
		if r.Values[i].Valid {
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}

// sortRows orders rows by country, code, then year.
func (f *Frame) sortRows() {
	sort.SliceStable(f.Rows, func(i, j int) bool {
		a, b := f.Rows[i].Key, f.Rows[j].Key
		if a.Country != b.Country {
			return a.Country < b.Country
		}
		if a.Code != b.Code {
			return a.Code < b.Code
		}
		return a.Year < b.Year
	})
}

func cellAt(row []string, pos int) string {
	if pos < 0 || pos >= len(row) {
		return ""
	}
	return CleanCell(row[pos])
}
