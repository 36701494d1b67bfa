package core

import (
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wideTable() RawTable {
	return RawTable{
		Name:   "male",
		Header: []string{ColCountry, ColCode, "Note", "1990", "2000", "2019 [YR2019]"},
		Rows: [][]string{
			{"Viet Nam", "VNM", "2005", "0.1", "..", "0.3"},
			{"Kenya", "KEN", "", "", "", "1.2"},
		},
	}
}

func TestReshape_UnpivotsYearColumnsOnly(t *testing.T) {
	f, err := Reshape(wideTable(), MeasurePrevalenceMale)
	require.NoError(t, err)

	assert.Equal(t, []string{MeasurePrevalenceMale}, f.Measures)
	require.Len(t, f.Rows, 3)

	want := []struct {
		key   Key
		value float64
	}{
		{Key{"Kenya", "KEN", 2019}, 1.2},
		{Key{"Viet Nam", "VNM", 1990}, 0.1},
		{Key{"Viet Nam", "VNM", 2019}, 0.3},
	}
	for i, w := range want {
		assert.Equal(t, w.key, f.Rows[i].Key)
		assert.Equal(t, w.value, f.Rows[i].Values[0].Float64)
	}

	// "Note" holds a year-like value but is not a year column.
	for _, r := range f.Rows {
		assert.NotEqual(t, 2005, r.Year)
	}
}

func TestReshape_DuplicateKeyKeepsLast(t *testing.T) {
	tbl := wideTable()
	tbl.Rows = append(tbl.Rows, []string{"Viet Nam", "VNM", "", "0.9", "", ""})

	f, err := Reshape(tbl, MeasurePrevalenceMale)
	require.NoError(t, err)

	var got []float64
	for _, r := range f.Rows {
		if r.Key == (Key{"Viet Nam", "VNM", 1990}) {
			got = append(got, r.Values[0].Float64)
		}
	}
	assert.Equal(t, []float64{0.9}, got)
}

func TestReshape_Idempotent(t *testing.T) {
	once, err := Reshape(wideTable(), MeasurePrevalenceMale)
	require.NoError(t, err)

	twice, err := Reshape(once.Raw(), MeasurePrevalenceMale)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
}

func TestReshape_RequiresIdentifiers(t *testing.T) {
	_, err := Reshape(RawTable{Name: "bad", Header: []string{"Country Name", "1990"}}, "X")
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestToFrame_NullableCells(t *testing.T) {
	tbl := RawTable{
		Name:   "deaths",
		Header: []string{ColCountry, ColCode, ColYear, MeasureNewCases, MeasureDeaths},
		Rows: [][]string{
			{"Vietnam", "VNM", "2020", "5,000", ""},
			{"Vietnam", "VNM", "2019", "4800", "1000"},
			{"Vietnam", "VNM", "year", "1", "1"},
		},
	}

	f, err := ToFrame(tbl, MeasureNewCases, MeasureDeaths)
	require.NoError(t, err)
	require.Len(t, f.Rows, 2)

	assert.Equal(t, 2019, f.Rows[0].Year)
	assert.Equal(t, 2020, f.Rows[1].Year)
	assert.Equal(t, pgtype.Float8{Float64: 5000, Valid: true}, f.Rows[1].Values[0])
	assert.False(t, f.Rows[1].Values[1].Valid)
}

func TestToFrame_MissingMeasure(t *testing.T) {
	tbl := RawTable{Name: "art", Header: []string{ColCountry, ColCode, ColYear}}
	_, err := ToFrame(tbl, MeasureART)
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}
