package web

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/sparkylabs/sparky/internal/logging"
	"github.com/sparkylabs/sparky/internal/profile"
	"github.com/sparkylabs/sparky/internal/session"
)

// maxAvatarBytes caps avatar uploads at 5 MiB.
const maxAvatarBytes = 5 << 20

// OnboardingHandler shows the first-login business questionnaire.
func OnboardingHandler(app *App) http.HandlerFunc {
	return requireAuth(app, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		flashes := s.ConsumeFlashes()
		saveSession(app, w, r, s)
		renderPage(w, "onboarding", map[string]interface{}{"Flashes": flashes})
	})
}

// CompleteOnboardingHandler persists the questionnaire and marks
// onboarding done.
func CompleteOnboardingHandler(app *App) http.HandlerFunc {
	return requireAuth(app, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		name := strings.TrimSpace(r.FormValue("business_name"))
		description := strings.TrimSpace(r.FormValue("business_description"))
		goals := splitCSV(r.FormValue("goals"))
		preferences := splitCSV(r.FormValue("preferences"))
		completed := true

		err := app.Profiles.Upsert(s.Email, profile.Update{
			BusinessName:        &name,
			BusinessDescription: &description,
			Goals:               &goals,
			Preferences:         &preferences,
			OnboardingCompleted: &completed,
		})
		if err != nil {
			log.Printf("[%s] complete onboarding: %v", logging.RequestID(r.Context()), err)
			flashAndRedirect(app, w, r, s, "error", "Your answers could not be saved, please try again.", "/onboarding")
			return
		}
		flashAndRedirect(app, w, r, s, "info", "Welcome aboard!", "/")
	})
}

// AbandonOnboardingHandler removes the half-created profile and signs
// the user out. A completed profile is never deleted here.
func AbandonOnboardingHandler(app *App) http.HandlerFunc {
	return requireAuth(app, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		p, err := app.Profiles.Get(s.Email)
		if err == nil && !p.OnboardingCompleted {
			if err := app.Profiles.Delete(s.Email); err != nil {
				log.Printf("[%s] abandon onboarding: %v", logging.RequestID(r.Context()), err)
			}
		}
		if err := app.Sessions.Destroy(w, s); err != nil {
			log.Printf("[%s] destroy session: %v", logging.RequestID(r.Context()), err)
		}
		http.Redirect(w, r, "/", http.StatusFound)
	})
}

// EditProfileHandler shows the profile form prefilled with the stored
// document.
func EditProfileHandler(app *App) http.HandlerFunc {
	return requireAuth(app, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		p, err := app.Profiles.Get(s.Email)
		if err != nil {
			if !errors.Is(err, profile.ErrNotFound) {
				log.Printf("[%s] load profile: %v", logging.RequestID(r.Context()), err)
			}
			p = &profile.Profile{Email: s.Email}
		}
		flashes := s.ConsumeFlashes()
		saveSession(app, w, r, s)
		renderPage(w, "edit_profile", map[string]interface{}{
			"Flashes":        flashes,
			"Profile":        p,
			"GoalsCSV":       strings.Join(p.Goals, ", "),
			"PreferencesCSV": strings.Join(p.Preferences, ", "),
		})
	})
}

// EditProfileSubmitHandler applies the profile form. Every field is
// present in the form, so all of them are written.
func EditProfileSubmitHandler(app *App) http.HandlerFunc {
	return requireAuth(app, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		name := strings.TrimSpace(r.FormValue("business_name"))
		description := strings.TrimSpace(r.FormValue("business_description"))
		goals := splitCSV(r.FormValue("goals"))
		preferences := splitCSV(r.FormValue("preferences"))

		err := app.Profiles.Upsert(s.Email, profile.Update{
			BusinessName:        &name,
			BusinessDescription: &description,
			Goals:               &goals,
			Preferences:         &preferences,
		})
		if err != nil {
			log.Printf("[%s] edit profile: %v", logging.RequestID(r.Context()), err)
			flashAndRedirect(app, w, r, s, "error", "Your profile could not be saved, please try again.", "/edit_profile")
			return
		}
		flashAndRedirect(app, w, r, s, "info", "Profile updated.", "/account")
	})
}

// profileUpdateRequest is the JSON body of the partial-update
// endpoints. Absent fields stay untouched.
type profileUpdateRequest struct {
	BusinessName        *string   `json:"business_name"`
	BusinessDescription *string   `json:"business_description"`
	Goals               *[]string `json:"goals"`
	Preferences         *[]string `json:"preferences"`
	OnboardingCompleted *bool     `json:"onboarding_completed"`
}

func (req profileUpdateRequest) toUpdate() profile.Update {
	return profile.Update{
		BusinessName:        req.BusinessName,
		BusinessDescription: req.BusinessDescription,
		Goals:               req.Goals,
		Preferences:         req.Preferences,
		OnboardingCompleted: req.OnboardingCompleted,
	}
}

// UpdateProfileHandler applies a partial JSON update. Fields absent
// from the body are left as they are; onboarding status cannot be
// flipped through this endpoint.
func UpdateProfileHandler(app *App) http.HandlerFunc {
	return requireAuth(app, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		var req profileUpdateRequest
		if err := decodeJSONBody(r, &req); err != nil {
			jsonError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.OnboardingCompleted = nil

		if err := app.Profiles.Upsert(s.Email, req.toUpdate()); err != nil {
			log.Printf("[%s] update profile: %v", logging.RequestID(r.Context()), err)
			jsonError(w, http.StatusInternalServerError, "profile update failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

// UpdateCompleteProfileHandler replaces the whole editable document in
// one write, onboarding status included.
func UpdateCompleteProfileHandler(app *App) http.HandlerFunc {
	return requireAuth(app, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		var req profileUpdateRequest
		if err := decodeJSONBody(r, &req); err != nil {
			jsonError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		// Absent fields are written as their zero values.
		if req.BusinessName == nil {
			req.BusinessName = new(string)
		}
		if req.BusinessDescription == nil {
			req.BusinessDescription = new(string)
		}
		if req.Goals == nil {
			req.Goals = &[]string{}
		}
		if req.Preferences == nil {
			req.Preferences = &[]string{}
		}
		if req.OnboardingCompleted == nil {
			req.OnboardingCompleted = new(bool)
		}

		if err := app.Profiles.Upsert(s.Email, req.toUpdate()); err != nil {
			log.Printf("[%s] update complete profile: %v", logging.RequestID(r.Context()), err)
			jsonError(w, http.StatusInternalServerError, "profile update failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

// AccountHandler shows the account page.
func AccountHandler(app *App) http.HandlerFunc {
	return requireAuth(app, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		p, err := app.Profiles.Get(s.Email)
		if err != nil {
			if !errors.Is(err, profile.ErrNotFound) {
				log.Printf("[%s] load profile: %v", logging.RequestID(r.Context()), err)
			}
			p = &profile.Profile{Email: s.Email}
		}
		flashes := s.ConsumeFlashes()
		saveSession(app, w, r, s)
		renderPage(w, "account", map[string]interface{}{
			"Flashes": flashes,
			"Profile": p,
		})
	})
}

// DeleteAccountHandler removes the profile document and ends the
// session. Analytics data lives with Google and is untouched.
func DeleteAccountHandler(app *App) http.HandlerFunc {
	return requireAuth(app, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		if err := app.Profiles.Delete(s.Email); err != nil {
			log.Printf("[%s] delete account: %v", logging.RequestID(r.Context()), err)
			flashAndRedirect(app, w, r, s, "error", "Your account could not be deleted, please try again.", "/account")
			return
		}
		if err := app.Sessions.Destroy(w, s); err != nil {
			log.Printf("[%s] destroy session: %v", logging.RequestID(r.Context()), err)
		}
		http.Redirect(w, r, "/", http.StatusFound)
	})
}

// UploadAvatarHandler stores a new avatar image and records its URL on
// the profile.
func UploadAvatarHandler(app *App) http.HandlerFunc {
	return requireAuth(app, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		if !app.Avatars.Enabled() {
			flashAndRedirect(app, w, r, s, "error", "Avatar uploads are not available.", "/account")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxAvatarBytes)
		file, header, err := r.FormFile("avatar")
		if err != nil {
			flashAndRedirect(app, w, r, s, "error", "Choose an image file to upload.", "/account")
			return
		}
		defer file.Close()

		url, err := app.Avatars.Upload(r.Context(), header.Filename, file, header.Header.Get("Content-Type"))
		if err != nil {
			log.Printf("[%s] upload avatar: %v", logging.RequestID(r.Context()), err)
			flashAndRedirect(app, w, r, s, "error", "The image could not be uploaded, please try again.", "/account")
			return
		}

		if err := app.Profiles.Upsert(s.Email, profile.Update{AvatarURL: &url}); err != nil {
			log.Printf("[%s] record avatar url: %v", logging.RequestID(r.Context()), err)
			flashAndRedirect(app, w, r, s, "error", "The image could not be saved, please try again.", "/account")
			return
		}
		s.AvatarURL = url
		flashAndRedirect(app, w, r, s, "info", "Avatar updated.", "/account")
	})
}
