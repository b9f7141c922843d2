// Package web wires the HTTP surface: login and OAuth callback pages,
// the report pipeline endpoints, and the profile/onboarding routes.
// Handlers load the browser session at the top, pass it explicitly
// through the pipeline, and save it before responding.
package web

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sparkylabs/sparky/internal/analytics"
	"github.com/sparkylabs/sparky/internal/auth/google"
	"github.com/sparkylabs/sparky/internal/insights"
	"github.com/sparkylabs/sparky/internal/logging"
	"github.com/sparkylabs/sparky/internal/profile"
	"github.com/sparkylabs/sparky/internal/session"
)

// AuthFlow is the OAuth2 authorization-code flow surface the handlers
// need. *google.Flow implements it.
type AuthFlow interface {
	BeginAuthorization() (state, authURL string)
	CompleteAuthorization(ctx context.Context, code, callbackState, storedState string) (*google.Credentials, string, error)
	Client(ctx context.Context, creds *google.Credentials) *http.Client
	Refresh(ctx context.Context, creds *google.Credentials) (*google.Credentials, error)
}

// PropertyLister lists the analytics properties an identity can read.
type PropertyLister interface {
	ListProperties(ctx context.Context, client *http.Client) ([]analytics.Property, error)
}

// ReportFetcher runs the batched report queries for one property.
type ReportFetcher interface {
	FetchReport(ctx context.Context, client *http.Client, propertyID string, dr analytics.DateRange) (*analytics.Report, []analytics.BatchError)
}

// InsightGenerator turns summarized report data into narrative text.
type InsightGenerator interface {
	Generate(ctx context.Context, summaryText string, pc insights.ProfileContext) (string, error)
}

// AvatarUploader stores avatar images and returns public URLs.
type AvatarUploader interface {
	Enabled() bool
	Upload(ctx context.Context, filename string, body io.Reader, contentType string) (string, error)
}

// App bundles the services every handler draws on.
type App struct {
	Sessions  *session.Manager
	Profiles  *profile.Store
	Flow      AuthFlow
	Admin     PropertyLister
	Data      ReportFetcher
	Generator InsightGenerator
	Avatars   AvatarUploader
}

// Router builds the full route table.
func Router(app *App) chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(logging.Middleware)

	r.Get("/", IndexHandler(app))
	r.Get("/auth/authorize", AuthorizeHandler(app))
	r.Get("/auth/oauth2callback", CallbackHandler(app))
	r.Get("/auth/logout", LogoutHandler(app))

	r.Get("/select_property", SelectPropertyHandler(app))
	r.Post("/analytics/fetch-data", FetchDataHandler(app))
	r.Get("/reports/report", ReportHandler(app))
	r.Get("/reset_and_fetch", ResetAndFetchHandler(app))

	r.Get("/onboarding", OnboardingHandler(app))
	r.Post("/complete_onboarding", CompleteOnboardingHandler(app))
	r.Post("/abandon_onboarding", AbandonOnboardingHandler(app))
	r.Get("/edit_profile", EditProfileHandler(app))
	r.Post("/edit_profile", EditProfileSubmitHandler(app))
	r.Post("/update_profile", UpdateProfileHandler(app))
	r.Post("/update_complete_profile", UpdateCompleteProfileHandler(app))
	r.Get("/account", AccountHandler(app))
	r.Post("/delete_account", DeleteAccountHandler(app))
	r.Post("/upload_avatar", UploadAvatarHandler(app))

	return r
}

// flashAndRedirect queues a message, saves the session and redirects.
func flashAndRedirect(app *App, w http.ResponseWriter, r *http.Request, s *session.Session, level, message, target string) {
	s.Flash(level, message)
	saveSession(app, w, r, s)
	http.Redirect(w, r, target, http.StatusFound)
}

func saveSession(app *App, w http.ResponseWriter, r *http.Request, s *session.Session) {
	if err := app.Sessions.Save(w, s); err != nil {
		log.Printf("[%s] save session: %v", logging.RequestID(r.Context()), err)
	}
}

// requireAuth acquires the session and hands it to the handler when
// the user is authenticated; otherwise it bounces to the login page.
// The session lock is held until the wrapped handler returns.
func requireAuth(app *App, next func(w http.ResponseWriter, r *http.Request, s *session.Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, release := app.Sessions.Acquire(r)
		defer release()
		if s.State() != session.Authenticated {
			flashAndRedirect(app, w, r, s, "error", "Your session has expired, please sign in again.", "/")
			return
		}
		next(w, r, s)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func decodeJSONBody(r *http.Request, dst interface{}) error {
	return json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst)
}

func jsonError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// splitCSV parses a comma-separated form field into a trimmed list.
func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
