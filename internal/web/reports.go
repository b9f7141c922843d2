package web

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/sparkylabs/sparky/internal/analytics"
	"github.com/sparkylabs/sparky/internal/insights"
	"github.com/sparkylabs/sparky/internal/logging"
	"github.com/sparkylabs/sparky/internal/profile"
	"github.com/sparkylabs/sparky/internal/session"
)

// allowedRanges are the relative start dates a report may cover. The
// end date is always today.
var allowedRanges = map[string]bool{
	"7daysAgo":  true,
	"30daysAgo": true,
	"90daysAgo": true,
}

// IndexHandler routes the user to whatever the session state calls
// for: the login page, property selection, or the last report.
func IndexHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, release := app.Sessions.Acquire(r)
		defer release()
		flashes := s.ConsumeFlashes()
		saveSession(app, w, r, s)

		if s.State() != session.Authenticated {
			renderPage(w, "login", map[string]interface{}{"Flashes": flashes})
			return
		}
		if s.InsightsText == "" {
			renderPage(w, "select_property", map[string]interface{}{
				"Flashes":    flashes,
				"AvatarURL":  s.AvatarURL,
				"Properties": s.Properties,
			})
			return
		}
		renderReport(w, s, flashes)
	}
}

// SelectPropertyHandler shows the property picker.
func SelectPropertyHandler(app *App) http.HandlerFunc {
	return requireAuth(app, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		flashes := s.ConsumeFlashes()
		saveSession(app, w, r, s)
		renderPage(w, "select_property", map[string]interface{}{
			"Flashes":    flashes,
			"AvatarURL":  s.AvatarURL,
			"Properties": s.Properties,
		})
	})
}

// FetchDataHandler runs the full report pipeline for the selected
// property: batched fetch, summarization, one model call. Credential
// validity is re-checked here because expiry mutates out of band.
func FetchDataHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		s, release := app.Sessions.Acquire(r)
		defer release()
		reqID := logging.RequestID(ctx)

		if s.State() != session.Authenticated {
			if s.Credentials != nil && s.Credentials.RefreshToken != "" {
				if updated, err := app.Flow.Refresh(ctx, s.Credentials); err == nil {
					s.Credentials = updated
				} else {
					log.Printf("[%s] token refresh failed: %v", reqID, err)
				}
			}
			if s.State() != session.Authenticated {
				s.ClearAuth()
				flashAndRedirect(app, w, r, s, "error", "Your session has expired, please sign in again.", "/")
				return
			}
		}

		propertyID := strings.TrimSpace(r.FormValue("property_id"))
		if propertyID == "" {
			flashAndRedirect(app, w, r, s, "error", "Select a property first.", "/")
			return
		}
		if analytics.KindFor(propertyID) == analytics.KindLegacy {
			flashAndRedirect(app, w, r, s, "error", "Universal Analytics properties are no longer supported; pick a GA4 property.", "/")
			return
		}
		if !strings.HasPrefix(propertyID, "properties/") {
			propertyID = "properties/" + propertyID
		}
		s.SelectedProperty = propertyID

		dr := analytics.DefaultDateRange()
		if v := r.FormValue("date_range"); allowedRanges[v] {
			dr.StartDate = v
		}

		client := app.Flow.Client(ctx, s.Credentials)
		report, failures := app.Data.FetchReport(ctx, client, propertyID, dr)
		if len(failures) > 0 && len(report.Rows) == 0 && len(report.MetricHeaders) == 0 {
			log.Printf("[%s] all report batches failed for %s", reqID, propertyID)
			flashAndRedirect(app, w, r, s, "error", "Analytics data could not be fetched, please try again.", "/")
			return
		}
		if len(failures) > 0 {
			log.Printf("[%s] %d report batches failed for %s", reqID, len(failures), propertyID)
			s.Flash("warning", "Some analytics data could not be fetched; the report covers the rest.")
		}

		summary := analytics.Summarize(report)

		pc := insights.ProfileContext{}
		p, err := app.Profiles.Get(s.Email)
		if err == nil {
			pc = insights.ProfileContext{
				BusinessName:        p.BusinessName,
				BusinessDescription: p.BusinessDescription,
				Goals:               p.Goals,
			}
		} else if !errors.Is(err, profile.ErrNotFound) {
			log.Printf("[%s] load profile for prompt: %v", reqID, err)
		}

		text, err := app.Generator.Generate(ctx, summary.Text(), pc)
		if err != nil {
			log.Printf("[%s] insight generation: %v", reqID, err)
			flashAndRedirect(app, w, r, s, "error", "Insight generation failed, please try again.", "/")
			return
		}

		s.InsightsText = text
		saveSession(app, w, r, s)
		http.Redirect(w, r, "/reports/report", http.StatusFound)
	}
}

// ReportHandler renders the parsed report from the session's raw
// model text. Without generated text there is nothing to show.
func ReportHandler(app *App) http.HandlerFunc {
	return requireAuth(app, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		if s.InsightsText == "" {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		flashes := s.ConsumeFlashes()
		saveSession(app, w, r, s)
		renderReport(w, s, flashes)
	})
}

// ResetAndFetchHandler clears the current report so another property
// can be analyzed.
func ResetAndFetchHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, release := app.Sessions.Acquire(r)
		defer release()
		s.SelectedProperty = ""
		s.InsightsText = ""
		if s.State() != session.Authenticated {
			flashAndRedirect(app, w, r, s, "error", "Your session has expired, please sign in again.", "/")
			return
		}
		saveSession(app, w, r, s)
		http.Redirect(w, r, "/", http.StatusFound)
	}
}

func renderReport(w http.ResponseWriter, s *session.Session, flashes []session.Flash) {
	parsed := insights.ParseReport(s.InsightsText)
	if parsed.SkippedLines > 0 {
		log.Printf("report render skipped %d malformed lines", parsed.SkippedLines)
	}
	renderPage(w, "report", map[string]interface{}{
		"Flashes":    flashes,
		"AvatarURL":  s.AvatarURL,
		"Summary":    parsed.Summary,
		"Insights":   parsed.Insights,
		"Strategies": parsed.Strategies,
	})
}
