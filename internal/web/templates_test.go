package web

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/hivdash/internal/core"
	"github.com/JonMunkholm/hivdash/internal/views"
)

func renderString(t *testing.T, render func(*strings.Builder) error) string {
	t.Helper()
	var b strings.Builder
	require.NoError(t, render(&b))
	return b.String()
}

func TestDashboard_EscapesUserText(t *testing.T) {
	cat := &core.Catalog{
		Countries:    []string{`<b>Land</b>`},
		CountryYears: core.YearRange{Min: 2000, Max: 2001},
	}
	out := renderString(t, func(b *strings.Builder) error {
		return Dashboard(DashboardData{
			State:       views.FilterState{Country: `<b>Land</b>`},
			Catalog:     cat,
			Summary:     views.Result{View: views.ViewSummary, NoData: true, Reason: `no "data"`},
			Warnings:    []string{`<script>alert(1)</script>`},
			Attribution: map[string]string{"country": "Data & more"},
		}).Render(context.Background(), b)
	})

	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.Contains(t, out, `<option value="&lt;b&gt;Land&lt;/b&gt;" selected>`)
	assert.Contains(t, out, "no &#34;data&#34;")
	assert.Contains(t, out, "Data &amp; more")
	assert.Equal(t, 1, strings.Count(out, `class="attribution"`), "panels without a source render no attribution")
}

func TestDashboard_SummaryCards(t *testing.T) {
	cat := &core.Catalog{Countries: []string{"Vietnam"}}
	sum := views.Summary{Country: "Vietnam"}
	out := renderString(t, func(b *strings.Builder) error {
		return Dashboard(DashboardData{
			State:   views.FilterState{Country: "Vietnam", Cohort: core.CohortChildren},
			Catalog: cat,
			Summary: views.Result{View: views.ViewSummary, Data: sum},
		}).Render(context.Background(), b)
	})

	assert.Contains(t, out, `class="card danger"`)
	assert.Contains(t, out, sum.NewCasesText())
	assert.Contains(t, out, sum.CoverageText())
	assert.Contains(t, out, `<option value="children" selected>`)
	assert.NotContains(t, out, `class="alert"`)
}

func TestErrorAlert(t *testing.T) {
	msg := core.MapError(core.ErrUnknownView)
	out := renderString(t, func(b *strings.Builder) error {
		return ErrorAlert(msg).Render(context.Background(), b)
	})

	assert.True(t, strings.HasPrefix(out, `<div class="alert" role="alert">`))
	assert.Contains(t, out, "("+msg.Code+")")
}
