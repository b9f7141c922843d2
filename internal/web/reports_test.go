package web

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/sparkylabs/sparky/internal/analytics"
	"github.com/sparkylabs/sparky/internal/profile"
)

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func sampleReport() *analytics.Report {
	return &analytics.Report{
		DimensionHeaders: []string{"sessionSourceMedium"},
		MetricHeaders:    []string{"sessions", "totalUsers", "averageSessionDuration"},
		Rows: []analytics.Row{
			{Dimensions: []string{"google / organic"}, Metrics: []string{"90", "70", "120.5"}},
			{Dimensions: []string{"(direct) / (none)"}, Metrics: []string{"30", "25", "60.0"}},
		},
	}
}

func TestFetchData_RequiresAuth(t *testing.T) {
	app := newTestApp(t)

	rec := doRequest(app, postForm("/analytics/fetch-data", url.Values{"property_id": {"123"}}), nil)
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/" {
		t.Fatalf("status = %d, Location = %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestFetchData_FullPipeline(t *testing.T) {
	app := newTestApp(t)
	app.fetcher.report = sampleReport()
	name := "Acme"
	goals := []string{"grow traffic"}
	if err := app.Profiles.Upsert("owner@example.com", profile.Update{BusinessName: &name, Goals: &goals}); err != nil {
		t.Fatal(err)
	}
	cookies := authedCookies(t, app)

	form := url.Values{"property_id": {"123"}, "date_range": {"7daysAgo"}}
	rec := doRequest(app, postForm("/analytics/fetch-data", form), cookies)

	if loc := rec.Header().Get("Location"); loc != "/reports/report" {
		t.Fatalf("Location = %q, want /reports/report", loc)
	}
	if app.fetcher.gotProperty != "properties/123" {
		t.Errorf("fetched property = %q", app.fetcher.gotProperty)
	}
	if app.fetcher.gotRange.StartDate != "7daysAgo" || app.fetcher.gotRange.EndDate != "today" {
		t.Errorf("date range = %+v", app.fetcher.gotRange)
	}
	if !strings.Contains(app.generator.gotSummary, "Total Sessions: 120") {
		t.Errorf("prompt summary = %q", app.generator.gotSummary)
	}
	if app.generator.gotProfile.BusinessName != "Acme" {
		t.Errorf("profile context = %+v", app.generator.gotProfile)
	}

	s := sessionFor(app, cookies)
	if s.InsightsText != sampleInsightsText {
		t.Errorf("insights text = %q", s.InsightsText)
	}
	if s.SelectedProperty != "properties/123" {
		t.Errorf("selected property = %q", s.SelectedProperty)
	}
}

func TestFetchData_UnknownDateRangeFallsBack(t *testing.T) {
	app := newTestApp(t)
	app.fetcher.report = sampleReport()
	cookies := authedCookies(t, app)

	form := url.Values{"property_id": {"123"}, "date_range": {"9999daysAgo"}}
	doRequest(app, postForm("/analytics/fetch-data", form), cookies)

	if app.fetcher.gotRange.StartDate != "30daysAgo" {
		t.Errorf("start date = %q, want the default", app.fetcher.gotRange.StartDate)
	}
}

func TestFetchData_LegacyPropertyRejected(t *testing.T) {
	app := newTestApp(t)
	cookies := authedCookies(t, app)

	form := url.Values{"property_id": {"UA-12345-1"}}
	rec := doRequest(app, postForm("/analytics/fetch-data", form), cookies)
	if rec.Header().Get("Location") != "/" {
		t.Fatalf("Location = %q", rec.Header().Get("Location"))
	}
	if app.fetcher.gotProperty != "" {
		t.Errorf("legacy property must not be fetched, got %q", app.fetcher.gotProperty)
	}
	s := sessionFor(app, cookies)
	flashes := s.ConsumeFlashes()
	if len(flashes) != 1 || flashes[0].Level != "error" {
		t.Errorf("flashes = %v", flashes)
	}
}

func TestFetchData_MissingPropertyID(t *testing.T) {
	app := newTestApp(t)
	cookies := authedCookies(t, app)

	rec := doRequest(app, postForm("/analytics/fetch-data", url.Values{}), cookies)
	if rec.Header().Get("Location") != "/" {
		t.Fatalf("Location = %q", rec.Header().Get("Location"))
	}
	s := sessionFor(app, cookies)
	if s.InsightsText != "" {
		t.Error("no insights should be generated without a property")
	}
}

func TestFetchData_AllBatchesFailed(t *testing.T) {
	app := newTestApp(t)
	app.fetcher.failures = []analytics.BatchError{
		{Batch: "traffic", Err: errors.New("status 500")},
		{Batch: "events", Err: errors.New("status 500")},
	}
	cookies := authedCookies(t, app)

	rec := doRequest(app, postForm("/analytics/fetch-data", url.Values{"property_id": {"123"}}), cookies)
	if rec.Header().Get("Location") != "/" {
		t.Fatalf("Location = %q", rec.Header().Get("Location"))
	}
	s := sessionFor(app, cookies)
	if s.InsightsText != "" {
		t.Error("total batch failure must not reach the generator")
	}
	flashes := s.ConsumeFlashes()
	if len(flashes) != 1 || flashes[0].Level != "error" {
		t.Errorf("flashes = %v", flashes)
	}
}

func TestFetchData_PartialBatchFailureStillGenerates(t *testing.T) {
	app := newTestApp(t)
	app.fetcher.report = sampleReport()
	app.fetcher.failures = []analytics.BatchError{{Batch: "ecommerce", Err: errors.New("status 500")}}
	cookies := authedCookies(t, app)

	rec := doRequest(app, postForm("/analytics/fetch-data", url.Values{"property_id": {"123"}}), cookies)
	if loc := rec.Header().Get("Location"); loc != "/reports/report" {
		t.Fatalf("Location = %q", loc)
	}
	s := sessionFor(app, cookies)
	if s.InsightsText == "" {
		t.Error("partial data should still produce a report")
	}
	var warned bool
	for _, f := range s.ConsumeFlashes() {
		if f.Level == "warning" {
			warned = true
		}
	}
	if !warned {
		t.Error("expected a warning flash about partial data")
	}
}

func TestFetchData_GeneratorFailure(t *testing.T) {
	app := newTestApp(t)
	app.fetcher.report = sampleReport()
	app.generator.err = errors.New("status 429")
	cookies := authedCookies(t, app)

	rec := doRequest(app, postForm("/analytics/fetch-data", url.Values{"property_id": {"123"}}), cookies)
	if rec.Header().Get("Location") != "/" {
		t.Fatalf("Location = %q", rec.Header().Get("Location"))
	}
	s := sessionFor(app, cookies)
	if s.InsightsText != "" {
		t.Error("failed generation must not store insights")
	}
}

func TestReport_RendersParsedSections(t *testing.T) {
	app := newTestApp(t)
	cookies := authedCookies(t, app)

	s := sessionFor(app, cookies)
	s.InsightsText = sampleInsightsText
	rec := httptest.NewRecorder()
	if err := app.Sessions.Save(rec, s); err != nil {
		t.Fatal(err)
	}

	resp := doRequest(app, httptest.NewRequest(http.MethodGet, "/reports/report", nil), cookies)
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}
	body := resp.Body.String()
	for _, want := range []string{
		"Traffic held steady over the period.",
		"Traffic",
		"21.5k",
		"Enhance SEO to leverage organic traffic.",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("report body missing %q", want)
		}
	}
}

func TestReport_WithoutInsightsRedirects(t *testing.T) {
	app := newTestApp(t)
	cookies := authedCookies(t, app)

	rec := doRequest(app, httptest.NewRequest(http.MethodGet, "/reports/report", nil), cookies)
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/" {
		t.Fatalf("status = %d, Location = %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestResetAndFetch_ClearsSelection(t *testing.T) {
	app := newTestApp(t)
	cookies := authedCookies(t, app)

	s := sessionFor(app, cookies)
	s.SelectedProperty = "properties/123"
	s.InsightsText = sampleInsightsText
	if err := app.Sessions.Save(httptest.NewRecorder(), s); err != nil {
		t.Fatal(err)
	}

	rec := doRequest(app, httptest.NewRequest(http.MethodGet, "/reset_and_fetch", nil), cookies)
	if rec.Header().Get("Location") != "/" {
		t.Fatalf("Location = %q", rec.Header().Get("Location"))
	}

	s = sessionFor(app, cookies)
	if s.SelectedProperty != "" || s.InsightsText != "" {
		t.Errorf("selection should be cleared: %+v", s.Data)
	}
	if s.Email == "" {
		t.Error("reset must keep the user signed in")
	}
}
