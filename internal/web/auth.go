package web

import (
	"errors"
	"log"
	"net/http"

	"github.com/sparkylabs/sparky/internal/auth/google"
	"github.com/sparkylabs/sparky/internal/logging"
	"github.com/sparkylabs/sparky/internal/profile"
)

// AuthorizeHandler starts the OAuth2 consent flow. The anti-forgery
// state is stored server-side and matched on callback.
func AuthorizeHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, release := app.Sessions.Acquire(r)
		defer release()
		state, authURL := app.Flow.BeginAuthorization()
		s.OAuthState = state
		saveSession(app, w, r, s)
		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// CallbackHandler completes the OAuth2 flow: state check, code
// exchange, identity verification, then profile bootstrap and property
// listing. A callback without a stored state is rejected, never
// silently authenticated.
func CallbackHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		s, release := app.Sessions.Acquire(r)
		defer release()
		reqID := logging.RequestID(ctx)

		if errParam := r.URL.Query().Get("error"); errParam != "" {
			log.Printf("[%s] consent denied: %s", reqID, errParam)
			s.OAuthState = ""
			flashAndRedirect(app, w, r, s, "error", "Google sign-in was cancelled.", "/")
			return
		}

		// The state is single-use regardless of outcome.
		storedState := s.OAuthState
		s.OAuthState = ""

		creds, email, err := app.Flow.CompleteAuthorization(ctx,
			r.URL.Query().Get("code"), r.URL.Query().Get("state"), storedState)
		if err != nil {
			log.Printf("[%s] oauth callback failed: %v", reqID, err)
			message := "Google sign-in failed, please try again."
			switch {
			case errors.Is(err, google.ErrStateMismatch):
				message = "This sign-in request could not be verified, please try again."
			case errors.Is(err, google.ErrIdentityVerification):
				message = "Your Google identity could not be verified, please try again."
			}
			flashAndRedirect(app, w, r, s, "error", message, "/")
			return
		}

		s.Credentials = creds
		s.Email = email

		needsOnboarding := false
		p, err := app.Profiles.Get(email)
		switch {
		case errors.Is(err, profile.ErrNotFound):
			if err := app.Profiles.Create(email); err != nil {
				log.Printf("[%s] bootstrap profile: %v", reqID, err)
			}
			needsOnboarding = true
		case err != nil:
			log.Printf("[%s] load profile: %v", reqID, err)
		default:
			s.AvatarURL = p.AvatarURL
			needsOnboarding = !p.OnboardingCompleted
		}

		props, err := app.Admin.ListProperties(ctx, app.Flow.Client(ctx, creds))
		if err != nil {
			log.Printf("[%s] list properties: %v", reqID, err)
			s.Flash("warning", "Your analytics properties could not be listed, please try again.")
		} else {
			s.Properties = props
		}

		saveSession(app, w, r, s)
		if needsOnboarding {
			http.Redirect(w, r, "/onboarding", http.StatusFound)
			return
		}
		http.Redirect(w, r, "/", http.StatusFound)
	}
}

// LogoutHandler destroys the session and returns to the login page.
func LogoutHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, release := app.Sessions.Acquire(r)
		defer release()
		if err := app.Sessions.Destroy(w, s); err != nil {
			log.Printf("[%s] destroy session: %v", logging.RequestID(r.Context()), err)
		}
		http.Redirect(w, r, "/", http.StatusFound)
	}
}
