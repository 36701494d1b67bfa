package core

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
)

// MissingPolicy decides what a left join writes when a secondary table has no
// value for a primary key.
type MissingPolicy int

const (
	// LeaveMissing keeps the cell invalid (absent).
	LeaveMissing MissingPolicy = iota
	// FillZero writes 0. Only ART coverage uses it: unreported coverage is
	// treated as zero coverage. Prevalence and infection counts are never
	// zero-filled; their absent rows are dropped instead.
	FillZero
)

func (p MissingPolicy) String() string {
	if p == FillZero {
		return "fill_zero"
	}
	return "leave_missing"
}

// JoinSpec names one measure of a secondary frame to attach to the primary.
type JoinSpec struct {
	Frame   Frame
	Measure string
	Missing MissingPolicy
}

// LeftJoin attaches the requested secondary measures to every primary row on
// (Country, Code, Year). Every primary row is kept, in order, so the result
// has exactly primary.Len() rows. Duplicate keys in a secondary resolve to the
// last occurrence.
func LeftJoin(primary Frame, secondaries ...JoinSpec) (Frame, error) {
	out := Frame{
		Name:     primary.Name,
		Measures: append([]string(nil), primary.Measures...),
		Rows:     make([]FrameRow, len(primary.Rows)),
	}
	for i, r := range primary.Rows {
		out.Rows[i] = FrameRow{Key: r.Key, Values: append([]pgtype.Float8(nil), r.Values...)}
	}

	for _, sec := range secondaries {
		col := sec.Frame.MeasureIndex(sec.Measure)
		if col < 0 {
			return Frame{}, &SchemaMismatchError{Table: sec.Frame.Name, Column: sec.Measure, Reason: "not found"}
		}
		if out.MeasureIndex(sec.Measure) >= 0 {
			return Frame{}, fmt.Errorf("join %s: measure %q already present", primary.Name, sec.Measure)
		}

		lookup := make(map[Key]pgtype.Float8, len(sec.Frame.Rows))
		for _, r := range sec.Frame.Rows {
			lookup[r.Key] = r.Values[col]
		}

		out.Measures = append(out.Measures, sec.Measure)
		for i := range out.Rows {
			v, ok := lookup[out.Rows[i].Key]
			if !ok || !v.Valid {
				v = missingValue(sec.Missing)
			}
			out.Rows[i].Values = append(out.Rows[i].Values, v)
		}
	}

	return out, nil
}

// InnerJoin keeps only keys present in both frames, in left order, with the
// left measures followed by the right measures.
func InnerJoin(left, right Frame) Frame {
	lookup := make(map[Key][]pgtype.Float8, len(right.Rows))
	for _, r := range right.Rows {
		lookup[r.Key] = r.Values
	}

	out := Frame{
		Name:     left.Name,
		Measures: append(append([]string(nil), left.Measures...), right.Measures...),
	}
	for _, r := range left.Rows {
		rv, ok := lookup[r.Key]
		if !ok {
			continue
		}
		values := make([]pgtype.Float8, 0, len(r.Values)+len(rv))
		values = append(values, r.Values...)
		values = append(values, rv...)
		out.Rows = append(out.Rows, FrameRow{Key: r.Key, Values: values})
	}
	return out
}

func missingValue(p MissingPolicy) pgtype.Float8 {
	if p == FillZero {
		return pgtype.Float8{Float64: 0, Valid: true}
	}
	return pgtype.Float8{Valid: false}
}
