package web

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/sparkylabs/sparky/internal/analytics"
	"github.com/sparkylabs/sparky/internal/auth/google"
	"github.com/sparkylabs/sparky/internal/db/models"
	"github.com/sparkylabs/sparky/internal/insights"
	"github.com/sparkylabs/sparky/internal/profile"
	"github.com/sparkylabs/sparky/internal/session"
)

type stubFlow struct {
	state   string
	authURL string
	creds   *google.Credentials
	email   string

	completeErr error
	refreshErr  error
}

func (f *stubFlow) BeginAuthorization() (string, string) {
	return f.state, f.authURL
}

func (f *stubFlow) CompleteAuthorization(_ context.Context, _, callbackState, storedState string) (*google.Credentials, string, error) {
	if storedState == "" || callbackState != storedState {
		return nil, "", google.ErrStateMismatch
	}
	if f.completeErr != nil {
		return nil, "", f.completeErr
	}
	return f.creds, f.email, nil
}

func (f *stubFlow) Client(context.Context, *google.Credentials) *http.Client {
	return http.DefaultClient
}

func (f *stubFlow) Refresh(_ context.Context, creds *google.Credentials) (*google.Credentials, error) {
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	refreshed := *creds
	refreshed.AccessToken = "refreshed"
	refreshed.Expiry = time.Now().Add(time.Hour)
	return &refreshed, nil
}

type stubLister struct {
	props []analytics.Property
	err   error
}

func (l *stubLister) ListProperties(context.Context, *http.Client) ([]analytics.Property, error) {
	return l.props, l.err
}

type stubFetcher struct {
	report   *analytics.Report
	failures []analytics.BatchError

	gotProperty string
	gotRange    analytics.DateRange
}

func (f *stubFetcher) FetchReport(_ context.Context, _ *http.Client, propertyID string, dr analytics.DateRange) (*analytics.Report, []analytics.BatchError) {
	f.gotProperty = propertyID
	f.gotRange = dr
	if f.report == nil {
		return &analytics.Report{}, f.failures
	}
	return f.report, f.failures
}

type stubGenerator struct {
	text string
	err  error

	gotSummary string
	gotProfile insights.ProfileContext
}

func (g *stubGenerator) Generate(_ context.Context, summaryText string, pc insights.ProfileContext) (string, error) {
	g.gotSummary = summaryText
	g.gotProfile = pc
	if g.err != nil {
		return "", g.err
	}
	return g.text, nil
}

type stubAvatars struct {
	enabled bool
	url     string
	err     error

	gotFilename string
}

func (a *stubAvatars) Enabled() bool { return a.enabled }

func (a *stubAvatars) Upload(_ context.Context, filename string, _ io.Reader, _ string) (string, error) {
	a.gotFilename = filename
	if a.err != nil {
		return "", a.err
	}
	return a.url, nil
}

type testApp struct {
	*App
	flow      *stubFlow
	lister    *stubLister
	fetcher   *stubFetcher
	generator *stubGenerator
	avatars   *stubAvatars
	router    http.Handler
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.UserProfile{}, &models.Session{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	flow := &stubFlow{
		state:   "st-1",
		authURL: "https://accounts.google.com/o/oauth2/auth?state=st-1",
		creds: &google.Credentials{
			AccessToken: "tok",
			Expiry:      time.Now().Add(time.Hour),
			Scopes:      google.Scopes,
		},
		email: "owner@example.com",
	}
	lister := &stubLister{props: []analytics.Property{
		{Account: "accounts/1", ID: "properties/123", DisplayName: "Acme Store", Kind: analytics.KindCurrent},
	}}
	fetcher := &stubFetcher{}
	generator := &stubGenerator{text: sampleInsightsText}
	avatars := &stubAvatars{}

	app := &App{
		Sessions:  session.NewManager(db, "test-secret"),
		Profiles:  profile.NewStore(db),
		Flow:      flow,
		Admin:     lister,
		Data:      fetcher,
		Generator: generator,
		Avatars:   avatars,
	}
	return &testApp{
		App:       app,
		flow:      flow,
		lister:    lister,
		fetcher:   fetcher,
		generator: generator,
		avatars:   avatars,
		router:    Router(app),
	}
}

const sampleInsightsText = "### Summary:\nTraffic held steady over the period.\n" +
	"### Key Insights:\n- Traffic - 21.5k - Consistent growth in site visits\n" +
	"### Actionable Strategies:\n- 📈 Enhance SEO to leverage organic traffic."

// authedCookies signs in a session directly and returns its cookies.
func authedCookies(t *testing.T, app *testApp) []*http.Cookie {
	t.Helper()
	s := app.Sessions.Load(httptest.NewRequest(http.MethodGet, "/", nil))
	s.Email = "owner@example.com"
	s.Credentials = &google.Credentials{
		AccessToken: "tok",
		Expiry:      time.Now().Add(time.Hour),
		Scopes:      google.Scopes,
	}
	s.Properties = app.lister.props
	rec := httptest.NewRecorder()
	if err := app.Sessions.Save(rec, s); err != nil {
		t.Fatalf("save session: %v", err)
	}
	return rec.Result().Cookies()
}

func doRequest(app *testApp, req *http.Request, cookies []*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	return rec
}

// sessionFor reloads the session behind the given cookies.
func sessionFor(app *testApp, cookies []*http.Cookie) *session.Session {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return app.Sessions.Load(req)
}
