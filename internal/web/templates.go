package web

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/hivdash/internal/core"
	"github.com/JonMunkholm/hivdash/internal/views"
)

// DashboardData is everything the dashboard page renders.
type DashboardData struct {
	State    views.FilterState
	Catalog  *core.Catalog
	Summary  views.Result
	Warnings []string
	// Attribution by panel: "country", "gender", "geo".
	Attribution map[string]string
}

const pageStyle = `body{font-family:system-ui,sans-serif;margin:0 auto;max-width:1100px;padding:16px;color:#222}
h2.banner{color:#800000;font-family:monospace;background:#fff3cd;padding:10px;border-radius:8px;box-shadow:2px 2px 5px rgba(0,0,0,.1)}
.well{background:#f7f7f9;border:1px solid #e3e3e3;border-radius:6px;padding:16px;margin-top:20px}
.cards{display:flex;gap:12px}.card{flex:1;border-radius:6px;padding:12px;color:#fff}
.danger{background:#dc3545}.secondary{background:#6c757d}.success{background:#28a745}
.alert{background:#f8d7da;color:#721c24;border-radius:6px;padding:10px;margin:8px 0}
.warn{background:#fff3cd;color:#856404;border-radius:6px;padding:8px;margin:4px 0}
.attribution{font-size:.9em;color:#555;margin-top:20px}
img{max-width:100%}label{margin-right:12px}`

// Dashboard renders the full page. All selections are submitted as one
// form; the charts are PNG images served per view.
func Dashboard(d DashboardData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &printer{w: w}
		p.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>HIV Dashboard</title><style>`)
		p.raw(pageStyle)
		p.raw(`</style></head><body><h2 class="banner">HIV Dashboard</h2>`)

		for _, msg := range d.Warnings {
			p.raw(`<div class="warn">`)
			p.text(msg)
			p.raw(`</div>`)
		}

		p.raw(`<form method="post" action="/">`)

		// Country panel
		p.raw(`<div class="well"><h4>HIV in the specific country</h4><label>Country `)
		p.selectInput(string(views.FieldCountry), d.Catalog.Countries, d.State.Country, false)
		p.raw(`</label>`)
		p.summaryCards(d.Summary)
		p.raw(`<hr>`)
		p.seriesPanel("New HIV Cases Over Time", views.ViewNewCases, views.FieldNewCasesYears, d.State.NewCasesYears, d.Catalog.CountryYears)
		p.seriesPanel("HIV-related Deaths Over Time", views.ViewDeaths, views.FieldDeathsYears, d.State.DeathsYears, d.Catalog.CountryYears)
		p.seriesPanel("ART Coverage Over Time", views.ViewARTCoverage, views.FieldARTYears, d.State.ARTYears, d.Catalog.CountryYears)
		p.attribution(d.Attribution["country"])
		p.raw(`</div>`)

		// Gender panel
		p.raw(`<div class="well"><h4>Prevalence of HIV by gender (teenager)</h4><label>Year `)
		p.yearSelect(string(views.FieldScatterYear), d.Catalog.ScatterYears, d.State.ScatterYear)
		p.raw(`</label><label>Highlight Country `)
		p.selectInput(string(views.FieldHighlight), d.Catalog.ScatterCountries, d.State.HighlightCountry, true)
		p.raw(`</label>`)
		p.chart(views.ViewGenderScatter)
		p.attribution(d.Attribution["gender"])
		p.raw(`</div>`)

		// Geo panel
		p.raw(`<div class="well"><h4>HIV distribution across countries</h4><label>Dataset `)
		p.raw(`<select name="cohort">`)
		for _, c := range []struct {
			value core.Cohort
			label string
		}{
			{core.CohortChildren, "Children (ages 0-14)"},
			{core.CohortAdult, "Adults (ages 15-49)"},
		} {
			p.option(string(c.value), c.label, c.value == d.State.Cohort)
		}
		p.raw(`</select></label><label>Year `)
		p.yearSelect(string(views.FieldMapYear), d.Catalog.MapYears, d.State.MapYear)
		p.raw(`</label>`)
		p.chart(views.ViewGeoMap)
		p.attribution(d.Attribution["geo"])
		p.raw(`</div>`)

		p.raw(`<p><button type="submit">Apply</button></p></form></body></html>`)
		return p.err
	})
}

// ErrorAlert renders a user-facing error with its action and support code.
func ErrorAlert(msg core.UserMessage) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &printer{w: w}
		p.raw(`<div class="alert" role="alert"><strong>`)
		p.text(msg.Message)
		p.raw(`</strong>`)
		if msg.Action != "" {
			p.raw(` `)
			p.text(msg.Action)
		}
		p.raw(` <small>(`)
		p.text(msg.Code)
		p.raw(`)</small></div>`)
		return p.err
	})
}

// printer writes HTML fragments and keeps the first write error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) raw(s string) {
	if p.err != nil {
		return
	}
	_, p.err = io.WriteString(p.w, s)
}

func (p *printer) text(s string) {
	p.raw(templ.EscapeString(s))
}

func (p *printer) option(value, label string, selected bool) {
	p.raw(`<option value="`)
	p.text(value)
	p.raw(`"`)
	if selected {
		p.raw(` selected`)
	}
	p.raw(`>`)
	p.text(label)
	p.raw(`</option>`)
}

func (p *printer) selectInput(name string, choices []string, current string, allowNone bool) {
	p.raw(`<select name="`)
	p.text(name)
	p.raw(`">`)
	if allowNone {
		p.option("", "(none)", current == "")
	}
	for _, c := range choices {
		p.option(c, c, c == current)
	}
	p.raw(`</select>`)
}

func (p *printer) yearSelect(name string, years []int, current int) {
	p.raw(`<select name="`)
	p.text(name)
	p.raw(`">`)
	for _, y := range years {
		v := strconv.Itoa(y)
		p.option(v, v, y == current)
	}
	p.raw(`</select>`)
}

func (p *printer) yearInput(name string, value int, bounds core.YearRange) {
	p.raw(fmt.Sprintf(`<input type="number" name="%s" value="%d" min="%d" max="%d" step="1">`,
		templ.EscapeString(name), value, bounds.Min, bounds.Max))
}

func (p *printer) summaryCards(r views.Result) {
	sum, ok := r.Data.(views.Summary)
	if r.NoData || !ok {
		p.raw(`<div class="alert">`)
		p.text(r.Reason)
		p.raw(`</div>`)
		return
	}
	p.raw(`<div class="cards">`)
	for _, c := range []struct{ class, title, value string }{
		{"danger", "New HIV Cases", sum.NewCasesText()},
		{"secondary", "HIV-related Deaths", sum.DeathsText()},
		{"success", "ART Coverage", sum.CoverageText()},
	} {
		p.raw(`<div class="card ` + c.class + `"><div>`)
		p.text(c.title)
		p.raw(`</div><strong>`)
		p.text(c.value)
		p.raw(`</strong></div>`)
	}
	p.raw(`</div>`)
}

func (p *printer) seriesPanel(title string, view views.ViewKey, field views.Field, current, bounds core.YearRange) {
	p.raw(`<div><h5>`)
	p.text(title)
	p.raw(`</h5>`)
	p.chart(view)
	p.raw(`<label>From `)
	p.yearInput(string(field)+"_from", current.Min, bounds)
	p.raw(`</label><label>To `)
	p.yearInput(string(field)+"_to", current.Max, bounds)
	p.raw(`</label></div>`)
}

func (p *printer) chart(view views.ViewKey) {
	p.raw(`<img src="/charts/`)
	p.text(string(view))
	p.raw(`.png" alt="`)
	p.text(string(view))
	p.raw(` chart">`)
}

func (p *printer) attribution(text string) {
	if text == "" {
		return
	}
	p.raw(`<p class="attribution">`)
	p.text(text)
	p.raw(`</p>`)
}
