// Package render draws the dashboard's views as PNG charts with go-chart.
//
// Each function takes the value computed by the view engine and writes one
// PNG image. Views that computed no data are drawn with Placeholder.
package render

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/JonMunkholm/hivdash/internal/views"
)

const (
	DefaultWidth  = 960
	DefaultHeight = 420

	// MaxGeoBars caps the geo slice bar chart to the largest counts.
	MaxGeoBars = 15
)

// ErrNothingToDraw is returned when a view value has no points.
var ErrNothingToDraw = errors.New("nothing to draw")

var (
	colorNewCases  = drawing.ColorFromHex("dc3545")
	colorDeaths    = drawing.ColorFromHex("6c757d")
	colorART       = drawing.ColorFromHex("28a745")
	colorPoints    = drawing.ColorFromHex("1f77b4")
	colorHighlight = drawing.ColorFromHex("ff0000")
	colorCohort    = drawing.ColorFromHex("fd7e14")
	colorMuted     = drawing.ColorFromHex("6c757d")
)

// seriesStyle holds the per-measure line color and y axis label.
var seriesStyle = map[views.Measure]struct {
	color drawing.Color
	label string
}{
	views.MeasureNewCases: {colorNewCases, "New Cases"},
	views.MeasureDeaths:   {colorDeaths, "Deaths"},
	views.MeasureART:      {colorART, "ART (%)"},
}

// Options sizes the rendered image. Zero values use the defaults.
type Options struct {
	Width  int
	Height int
}

func (o Options) size() (int, int) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = DefaultWidth
	}
	if h <= 0 {
		h = DefaultHeight
	}
	return w, h
}

// Series draws a country time series as a line chart.
func Series(w io.Writer, s views.Series, opts Options) error {
	if len(s.Points) == 0 {
		return ErrNothingToDraw
	}
	st, ok := seriesStyle[s.Measure]
	if !ok {
		return fmt.Errorf("render series: unknown measure %q", s.Measure)
	}

	xs := make([]float64, len(s.Points))
	ys := make([]float64, len(s.Points))
	for i, p := range s.Points {
		xs[i] = float64(p.Year)
		ys[i] = p.Value
	}

	width, height := opts.size()
	ch := chart.Chart{
		Title:      fmt.Sprintf("%s: %s", s.Country, st.label),
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis: chart.XAxis{
			Name:           "Year",
			Range:          paddedRange(xs, 1),
			ValueFormatter: yearFormatter,
		},
		YAxis: chart.YAxis{
			Name:  st.label,
			Range: paddedRange(ys, 0),
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    st.label,
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeColor: st.color,
					StrokeWidth: 2,
					DotColor:    st.color,
					DotWidth:    3,
				},
			},
		},
	}
	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render series %s: %w", s.Measure, err)
	}
	return nil
}

// GenderScatter draws male against female prevalence with the highlighted
// country in red and labelled with its values.
func GenderScatter(w io.Writer, g views.GenderScatter, opts Options) error {
	if len(g.Points) == 0 {
		return ErrNothingToDraw
	}

	xs := make([]float64, 0, len(g.Points))
	ys := make([]float64, 0, len(g.Points))
	for _, p := range g.Points {
		xs = append(xs, p.PrevalenceMale)
		ys = append(ys, p.PrevalenceFemale)
	}

	series := []chart.Series{
		chart.ContinuousSeries{
			Name:    "Countries",
			XValues: xs,
			YValues: ys,
			Style:   pointStyle(colorPoints, 5),
		},
	}
	if h := g.Highlight; h != nil {
		series = append(series,
			chart.ContinuousSeries{
				Name:    h.Country,
				XValues: []float64{h.PrevalenceMale},
				YValues: []float64{h.PrevalenceFemale},
				Style:   pointStyle(colorHighlight, 8),
			},
			chart.AnnotationSeries{
				Annotations: []chart.Value2{{
					XValue: h.PrevalenceMale,
					YValue: h.PrevalenceFemale,
					Label:  g.Annotation(),
				}},
			},
		)
	}

	width, height := opts.size()
	ch := chart.Chart{
		Title:      fmt.Sprintf("HIV Prevalence by Gender in %d", g.Year),
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis: chart.XAxis{
			Name:  "Male Prevalence",
			Range: paddedRange(xs, 0),
		},
		YAxis: chart.YAxis{
			Name:  "Female Prevalence",
			Range: paddedRange(ys, 0),
		},
		Series: series,
	}
	if g.Highlight != nil {
		ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	}
	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render gender scatter: %w", err)
	}
	return nil
}

// GeoSlice draws the cohort's newly infected counts for one year as bars,
// largest first, limited to MaxGeoBars countries.
func GeoSlice(w io.Writer, g views.GeoSlice, opts Options) error {
	if len(g.ByCode) == 0 {
		return ErrNothingToDraw
	}

	codes := g.Codes()
	sort.SliceStable(codes, func(i, j int) bool {
		return g.ByCode[codes[i]].Count > g.ByCode[codes[j]].Count
	})
	if len(codes) > MaxGeoBars {
		codes = codes[:MaxGeoBars]
	}

	bars := make([]chart.Value, 0, len(codes))
	top := 0.0
	for _, c := range codes {
		v := g.ByCode[c].Count
		top = math.Max(top, v)
		bars = append(bars, chart.Value{
			Label: c,
			Value: v,
			Style: chart.Style{FillColor: colorCohort, StrokeColor: colorCohort, StrokeWidth: 1},
		})
	}
	if top == 0 {
		top = 1
	}

	width, height := opts.size()
	bc := chart.BarChart{
		Title:      fmt.Sprintf("%s - %d", g.Label, g.Year),
		Width:      width,
		Height:     height,
		BarWidth:   (width - 120) / (2 * len(bars)),
		BarSpacing: (width - 120) / (2 * len(bars)),
		Background: chart.Style{Padding: chart.Box{Top: 48}},
		XAxis:      chart.Style{FontColor: colorMuted},
		YAxis: chart.YAxis{
			Name:           g.Label,
			Range:          &chart.ContinuousRange{Min: 0, Max: top * 1.1},
			ValueFormatter: countFormatter,
		},
		Bars: bars,
	}
	if err := bc.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render geo slice: %w", err)
	}
	return nil
}

// Placeholder draws a blank chart carrying a message, used for views that
// have no data under the current filters.
func Placeholder(w io.Writer, message string, opts Options) error {
	width, height := opts.size()
	r, err := chart.PNG(width, height)
	if err != nil {
		return err
	}
	font, err := chart.GetDefaultFont()
	if err != nil {
		return err
	}

	box := chart.Box{Top: 0, Left: 0, Right: width, Bottom: height}
	chart.Draw.Box(r, box, chart.Style{
		FillColor:   drawing.ColorWhite,
		StrokeColor: drawing.ColorWhite,
		StrokeWidth: 1,
	})
	chart.Draw.TextWithin(r, message, box, chart.Style{
		Font:                font,
		FontSize:            14,
		FontColor:           colorMuted,
		TextHorizontalAlign: chart.TextHorizontalAlignCenter,
		TextVerticalAlign:   chart.TextVerticalAlignMiddle,
	})
	return r.Save(w)
}

// pointStyle renders dots only, no connecting line.
func pointStyle(col drawing.Color, size float64) chart.Style {
	return chart.Style{
		StrokeWidth: chart.Disabled,
		DotWidth:    size,
		DotColor:    col,
	}
}

// paddedRange returns a range covering vals. go-chart rejects zero-width
// ranges, so a single distinct value is widened by pad (or by 1 when pad
// is zero).
func paddedRange(vals []float64, pad float64) *chart.ContinuousRange {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range vals {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi > lo {
		return &chart.ContinuousRange{Min: lo, Max: hi}
	}
	if pad == 0 {
		pad = 1
	}
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

func yearFormatter(v interface{}) string {
	if f, ok := v.(float64); ok {
		return strconv.Itoa(int(math.Round(f)))
	}
	return ""
}

func countFormatter(v interface{}) string {
	f, ok := v.(float64)
	if !ok {
		return ""
	}
	switch {
	case f >= 1e6:
		return strconv.FormatFloat(f/1e6, 'f', 1, 64) + "M"
	case f >= 1e3:
		return strconv.FormatFloat(f/1e3, 'f', 0, 64) + "k"
	}
	return strconv.FormatFloat(f, 'f', 0, 64)
}
