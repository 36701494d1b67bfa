package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/hivdash/internal/core"
	"github.com/JonMunkholm/hivdash/internal/logging"
	"github.com/JonMunkholm/hivdash/internal/render"
	"github.com/JonMunkholm/hivdash/internal/views"
)

// maxBodyBytes caps filter update bodies.
const maxBodyBytes = 16 << 10

// Chart size bounds accepted from ?w= and ?h=.
const (
	minChartSize = 200
	maxChartSize = 2000
)

// applyResponse is returned by POST /api/filters.
type applyResponse struct {
	State     views.FilterState `json:"state"`
	Changed   []views.Field     `json:"changed"`
	Refreshed []views.Result    `json:"refreshed"`
	Warnings  []string          `json:"warnings,omitempty"`
}

// handleDashboard renders the dashboard page for the current selections.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.renderDashboard(w, r, nil)
}

// handleApplyForm applies the submitted form and renders the page with any
// adjustments reported as warnings.
func (s *Server) handleApplyForm(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	patch, err := patchFromForm(r.PostForm)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	_, warnings := s.apply(r, patch)
	s.renderDashboard(w, r, warnings)
}

func (s *Server) renderDashboard(w http.ResponseWriter, r *http.Request, warnings []string) {
	_, sess := sessionFrom(r.Context())

	summary, err := sess.View(r.Context(), views.ViewSummary)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = Dashboard(DashboardData{
		State:       sess.State(),
		Catalog:     s.catalog,
		Summary:     summary,
		Warnings:    warnings,
		Attribution: s.attribution,
	}).Render(r.Context(), w)
	if err != nil {
		logging.FromContext(r.Context()).Error("render dashboard", "error", err)
	}
}

// handleCatalog returns the dimension catalog.
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog)
}

// handleGetFilters returns the session's filter state.
func (s *Server) handleGetFilters(w http.ResponseWriter, r *http.Request) {
	_, sess := sessionFrom(r.Context())
	writeJSON(w, http.StatusOK, sess.State())
}

// handleApplyFilters applies a JSON patch and returns the refreshed views.
func (s *Server) handleApplyFilters(w http.ResponseWriter, r *http.Request) {
	var patch views.Patch
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	changed, warnings := s.apply(r, patch)

	_, sess := sessionFrom(r.Context())
	refreshed, err := sess.Refresh(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, applyResponse{
		State:     sess.State(),
		Changed:   changed,
		Refreshed: refreshed,
		Warnings:  warnings,
	})
}

// apply updates the session and writes the new state through to the store.
// Adjusted values come back as warnings; they never fail the request.
func (s *Server) apply(r *http.Request, p views.Patch) ([]views.Field, []string) {
	id, sess := sessionFrom(r.Context())
	logger := logging.FromContext(r.Context())

	changed, err := sess.Apply(p)
	warnings := warningsFrom(err)
	if err != nil {
		logger.Warn("filter values adjusted", "error", err)
	}

	if len(changed) > 0 {
		if err := s.sessions.Save(r.Context(), id, sess); err != nil {
			logger.Warn("session save failed", "error", err)
		}
		logger.Debug("filters applied", "changed", changed, "dirty", sess.Dirty())
	}
	return changed, warnings
}

// handleViews returns every view's current result.
func (s *Server) handleViews(w http.ResponseWriter, r *http.Request) {
	_, sess := sessionFrom(r.Context())
	results, err := sess.Results(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// handleView returns one view's current result. A view with no data is
// still a 200; the result carries NoData and the reason.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	_, sess := sessionFrom(r.Context())
	res, err := sess.View(r.Context(), views.ViewKey(chi.URLParam(r, "view")))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleChart renders one view as a PNG image.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "view")
	if views.ViewKey(name) == views.ViewSummary {
		s.respondError(w, r, fmt.Errorf("%w: %q has no chart", core.ErrUnknownView, name))
		return
	}

	_, sess := sessionFrom(r.Context())
	res, err := sess.View(r.Context(), views.ViewKey(name))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	opts := render.Options{
		Width:  sizeParam(r, "w", render.DefaultWidth),
		Height: sizeParam(r, "h", render.DefaultHeight),
	}

	if err := s.renders.Acquire(r.Context()); err != nil {
		s.respondError(w, r, err)
		return
	}
	defer s.renders.Release()

	var buf bytes.Buffer
	err = render.ErrNothingToDraw
	if !res.NoData {
		err = drawResult(&buf, res, opts)
	}
	if errors.Is(err, render.ErrNothingToDraw) {
		reason := res.Reason
		if reason == "" {
			reason = core.MapError(core.ErrNoDataForYear).Message
		}
		buf.Reset()
		err = render.Placeholder(&buf, reason, opts)
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

func drawResult(buf *bytes.Buffer, res views.Result, opts render.Options) error {
	switch data := res.Data.(type) {
	case views.Series:
		return render.Series(buf, data, opts)
	case views.GenderScatter:
		return render.GenderScatter(buf, data, opts)
	case views.GeoSlice:
		return render.GeoSlice(buf, data, opts)
	}
	return render.ErrNothingToDraw
}

// handleResetSession forgets the session and its stored state.
func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	id, _ := sessionFrom(r.Context())
	if err := s.sessions.Delete(r.Context(), id); err != nil {
		logging.FromContext(r.Context()).Warn("session delete failed", "error", err)
	}
	// Replaces the refreshed cookie withSession already queued.
	w.Header().Del("Set-Cookie")
	http.SetCookie(w, &http.Cookie{Name: s.cfg.Session.CookieName, Value: "", Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}

// handleHealth reports dataset size and backend health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(s.health))
	status := http.StatusOK
	for name, check := range s.health {
		if err := check(r.Context()); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	writeJSON(w, status, map[string]any{
		"status":    state,
		"countries": len(s.catalog.Countries),
		"sessions":  s.sessions.Len(),
		"renders":   s.renders.Status(),
		"checks":    checks,
	})
}

// patchFromForm reads the dashboard form. Absent fields are left nil;
// year ranges need both ends.
func patchFromForm(form url.Values) (views.Patch, error) {
	var p views.Patch

	if form.Has(string(views.FieldCountry)) {
		v := form.Get(string(views.FieldCountry))
		p.Country = &v
	}
	if form.Has(string(views.FieldHighlight)) {
		v := form.Get(string(views.FieldHighlight))
		p.HighlightCountry = &v
	}
	if form.Has(string(views.FieldCohort)) {
		raw := form.Get(string(views.FieldCohort))
		v, err := core.ParseCohort(raw)
		if err != nil {
			v = core.Cohort(raw)
		}
		p.Cohort = &v
	}

	var err error
	if p.ScatterYear, err = formInt(form, string(views.FieldScatterYear)); err != nil {
		return views.Patch{}, err
	}
	if p.MapYear, err = formInt(form, string(views.FieldMapYear)); err != nil {
		return views.Patch{}, err
	}
	if p.NewCasesYears, err = formRange(form, views.FieldNewCasesYears); err != nil {
		return views.Patch{}, err
	}
	if p.DeathsYears, err = formRange(form, views.FieldDeathsYears); err != nil {
		return views.Patch{}, err
	}
	if p.ARTYears, err = formRange(form, views.FieldARTYears); err != nil {
		return views.Patch{}, err
	}
	return p, nil
}

func formInt(form url.Values, name string) (*int, error) {
	if !form.Has(name) {
		return nil, nil
	}
	n, err := strconv.Atoi(form.Get(name))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errBadRequest, name, err)
	}
	return &n, nil
}

func formRange(form url.Values, f views.Field) (*core.YearRange, error) {
	from, err := formInt(form, string(f)+"_from")
	if err != nil {
		return nil, err
	}
	to, err := formInt(form, string(f)+"_to")
	if err != nil {
		return nil, err
	}
	if from == nil || to == nil {
		return nil, nil
	}
	return &core.YearRange{Min: *from, Max: *to}, nil
}

// sizeParam reads a chart dimension, falling back to def when absent or
// out of bounds.
func sizeParam(r *http.Request, name string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || n < minChartSize || n > maxChartSize {
		return def
	}
	return n
}

// warningsFrom flattens a joined filter error into one message per value.
func warningsFrom(err error) []string {
	if err == nil {
		return nil
	}
	var errs []error
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		errs = j.Unwrap()
	} else {
		errs = []error{err}
	}
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Error())
	}
	return out
}
