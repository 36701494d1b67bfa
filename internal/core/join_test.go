package core

import (
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f8(v float64) pgtype.Float8 { return pgtype.Float8{Float64: v, Valid: true} }

var null8 = pgtype.Float8{}

func primaryFrame() Frame {
	return Frame{
		Name:     "deaths",
		Measures: []string{MeasureNewCases, MeasureDeaths},
		Rows: []FrameRow{
			{Key: Key{"Vietnam", "VNM", 2004}, Values: []pgtype.Float8{f8(1140), f8(114)}},
			{Key: Key{"Vietnam", "VNM", 2005}, Values: []pgtype.Float8{f8(1150), f8(115)}},
			{Key: Key{"Vietnam", "VNM", 2006}, Values: []pgtype.Float8{f8(1160), null8}},
			{Key: Key{"Kenya", "KEN", 2005}, Values: []pgtype.Float8{f8(90000), f8(20000)}},
		},
	}
}

func artFrame() Frame {
	return Frame{
		Name:     "art",
		Measures: []string{MeasureART},
		Rows: []FrameRow{
			{Key: Key{"Vietnam", "VNM", 2005}, Values: []pgtype.Float8{f8(10)}},
			{Key: Key{"Vietnam", "VNM", 2006}, Values: []pgtype.Float8{f8(12)}},
			{Key: Key{"Vietnam", "VNM", 2006}, Values: []pgtype.Float8{f8(13)}},
			{Key: Key{"Kenya", "KEN", 2005}, Values: []pgtype.Float8{null8}},
			{Key: Key{"Uganda", "UGA", 2005}, Values: []pgtype.Float8{f8(40)}},
		},
	}
}

func TestLeftJoin_KeepsEveryPrimaryRow(t *testing.T) {
	primary := primaryFrame()

	got, err := LeftJoin(primary, JoinSpec{Frame: artFrame(), Measure: MeasureART, Missing: FillZero})
	require.NoError(t, err)

	require.Equal(t, primary.Len(), got.Len())
	assert.Equal(t, []string{MeasureNewCases, MeasureDeaths, MeasureART}, got.Measures)
	for i := range primary.Rows {
		assert.Equal(t, primary.Rows[i].Key, got.Rows[i].Key)
	}
}

func TestLeftJoin_FillZero(t *testing.T) {
	got, err := LeftJoin(primaryFrame(), JoinSpec{Frame: artFrame(), Measure: MeasureART, Missing: FillZero})
	require.NoError(t, err)

	art := got.MeasureIndex(MeasureART)
	want := []pgtype.Float8{
		f8(0),  // no coverage row
		f8(10), // matched
		f8(13), // duplicate secondary key keeps the last occurrence
		f8(0),  // blank coverage cell
	}
	for i, w := range want {
		assert.Equal(t, w, got.Rows[i].Values[art], "row %d", i)
	}

	// Primary measures are untouched, including their gaps.
	assert.False(t, got.Rows[2].Values[got.MeasureIndex(MeasureDeaths)].Valid)
}

func TestLeftJoin_LeaveMissing(t *testing.T) {
	got, err := LeftJoin(primaryFrame(), JoinSpec{Frame: artFrame(), Measure: MeasureART, Missing: LeaveMissing})
	require.NoError(t, err)

	art := got.MeasureIndex(MeasureART)
	assert.False(t, got.Rows[0].Values[art].Valid)
	assert.True(t, got.Rows[1].Values[art].Valid)
}

func TestLeftJoin_DoesNotAliasPrimary(t *testing.T) {
	primary := primaryFrame()
	got, err := LeftJoin(primary, JoinSpec{Frame: artFrame(), Measure: MeasureART, Missing: FillZero})
	require.NoError(t, err)

	got.Rows[0].Values[0] = f8(-1)
	assert.Equal(t, f8(1140), primary.Rows[0].Values[0])
	assert.Len(t, primary.Rows[0].Values, 2)
}

func TestLeftJoin_Errors(t *testing.T) {
	_, err := LeftJoin(primaryFrame(), JoinSpec{Frame: artFrame(), Measure: "Coverage"})
	assert.ErrorIs(t, err, ErrSchemaMismatch)

	_, err = LeftJoin(primaryFrame(), JoinSpec{Frame: primaryFrame(), Measure: MeasureDeaths})
	assert.Error(t, err)
}

func TestLeftJoin_EmptySecondary(t *testing.T) {
	empty := Frame{Name: "art", Measures: []string{MeasureART}}
	got, err := LeftJoin(primaryFrame(), JoinSpec{Frame: empty, Measure: MeasureART, Missing: FillZero})
	require.NoError(t, err)

	for _, r := range got.Rows {
		assert.Equal(t, f8(0), r.Values[2])
	}
}

func TestInnerJoin(t *testing.T) {
	male := Frame{
		Name:     "male",
		Measures: []string{MeasurePrevalenceMale},
		Rows: []FrameRow{
			{Key: Key{"Viet Nam", "VNM", 2019}, Values: []pgtype.Float8{f8(0.3)}},
			{Key: Key{"Test Land", "TLD", 2019}, Values: []pgtype.Float8{f8(0.5)}},
		},
	}
	female := Frame{
		Name:     "female",
		Measures: []string{MeasurePrevalenceFemale},
		Rows: []FrameRow{
			{Key: Key{"Viet Nam", "VNM", 2019}, Values: []pgtype.Float8{f8(0.2)}},
			{Key: Key{"Test Land", "TLX", 2019}, Values: []pgtype.Float8{f8(0.7)}},
		},
	}

	got := InnerJoin(male, female)

	assert.Equal(t, []string{MeasurePrevalenceMale, MeasurePrevalenceFemale}, got.Measures)
	require.Len(t, got.Rows, 1)
	assert.Equal(t, Key{"Viet Nam", "VNM", 2019}, got.Rows[0].Key)
	assert.Equal(t, []pgtype.Float8{f8(0.3), f8(0.2)}, got.Rows[0].Values)
}

func TestMissingPolicy_String(t *testing.T) {
	assert.Equal(t, "fill_zero", FillZero.String())
	assert.Equal(t, "leave_missing", LeaveMissing.String())
}
