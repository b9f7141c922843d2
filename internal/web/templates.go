package web

import (
	"html/template"
	"log"
	"net/http"
)

// Page templates are compiled once at init. Each page defines a
// "content" block rendered inside the shared layout.
var pageTemplates = map[string]*template.Template{}

func init() {
	pages := map[string]string{
		"login":           loginHTML,
		"select_property": selectPropertyHTML,
		"report":          reportHTML,
		"onboarding":      onboardingHTML,
		"edit_profile":    editProfileHTML,
		"account":         accountHTML,
	}
	for name, content := range pages {
		t := template.Must(template.New("layout").Parse(layoutHTML))
		template.Must(t.New("content").Parse(content))
		pageTemplates[name] = t
	}
}

func renderPage(w http.ResponseWriter, name string, data interface{}) {
	t, ok := pageTemplates[name]
	if !ok {
		log.Printf("unknown page template %q", name)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.ExecuteTemplate(w, "layout", data); err != nil {
		log.Printf("render %s: %v", name, err)
	}
}

const layoutHTML = `<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="UTF-8">
	<title>Sparky</title>
	<style>
		body { font-family: -apple-system, BlinkMacSystemFont, sans-serif; max-width: 720px; margin: 40px auto; padding: 0 20px; background: #1a1a2e; color: #eee; }
		a { color: #60a5fa; }
		.flash-error { background: #7f1d1d; padding: 10px 14px; border-radius: 6px; margin-bottom: 12px; }
		.flash-warning { background: #78350f; padding: 10px 14px; border-radius: 6px; margin-bottom: 12px; }
		.flash-info { background: #1e3a5f; padding: 10px 14px; border-radius: 6px; margin-bottom: 12px; }
		.card { background: #16213e; border-radius: 10px; padding: 18px; margin-bottom: 14px; }
		.avatar { float: right; border-radius: 50%; }
		.insight-data { color: #4ade80; font-weight: bold; }
		button, .btn { background: #2563eb; color: white; border: none; padding: 8px 16px; border-radius: 6px; cursor: pointer; text-decoration: none; display: inline-block; }
		.btn-danger { background: #dc2626; }
		input, textarea, select { width: 100%; padding: 8px; margin: 6px 0 12px; border-radius: 6px; border: 1px solid #374151; background: #0f172a; color: #eee; }
	</style>
</head>
<body>
	{{if .AvatarURL}}<img class="avatar" src="{{.AvatarURL}}" alt="avatar" width="36">{{end}}
	{{range .Flashes}}<div class="flash-{{.Level}}">{{.Message}}</div>{{end}}
	{{template "content" .}}
</body>
</html>`

const loginHTML = `<h1>Sparky</h1>
<p>Understand your site's analytics in plain language.</p>
<a class="btn" href="/auth/authorize">Sign in with Google</a>`

const selectPropertyHTML = `<h1>Select a property</h1>
{{if .Properties}}
<form method="POST" action="/analytics/fetch-data">
	<select name="property_id">
		{{range .Properties}}<option value="{{.ID}}">{{.FormattedName}}</option>{{end}}
	</select>
	<select name="date_range">
		<option value="30daysAgo">Last 30 days</option>
		<option value="7daysAgo">Last 7 days</option>
		<option value="90daysAgo">Last 90 days</option>
	</select>
	<button type="submit">Generate report</button>
</form>
{{else}}
<p>No analytics properties are available for this account.</p>
{{end}}
<p><a href="/auth/logout">Sign out</a> · <a href="/account">Account</a></p>`

const reportHTML = `<h1>Your report</h1>
{{if .Summary}}<div class="card"><p>{{.Summary}}</p></div>{{end}}
{{if .Insights}}
<h2>Key insights</h2>
{{range .Insights}}
<div class="card"><strong>{{.Title}}</strong> <span class="insight-data">{{.Data}}</span><p>{{.Comment}}</p></div>
{{end}}
{{end}}
{{if .Strategies}}
<h2>Actionable strategies</h2>
{{range .Strategies}}
<div class="card">{{.Emoji}} {{.Text}}</div>
{{end}}
{{end}}
<p><a href="/reset_and_fetch">Analyze another property</a> · <a href="/auth/logout">Sign out</a></p>`

const onboardingHTML = `<h1>Tell us about your business</h1>
<form method="POST" action="/complete_onboarding">
	<label>Business name</label>
	<input name="business_name" required>
	<label>What does your business do?</label>
	<textarea name="business_description" rows="3"></textarea>
	<label>Goals (comma separated, most important first)</label>
	<input name="goals" placeholder="grow traffic, improve conversion">
	<label>What do you care about most? (comma separated)</label>
	<input name="preferences" placeholder="acquisition, engagement, audience">
	<button type="submit">Finish setup</button>
</form>
<form method="POST" action="/abandon_onboarding">
	<button type="submit" class="btn-danger">Cancel and sign out</button>
</form>`

const editProfileHTML = `<h1>Edit profile</h1>
<form method="POST" action="/edit_profile">
	<label>Business name</label>
	<input name="business_name" value="{{.Profile.BusinessName}}">
	<label>Description</label>
	<textarea name="business_description" rows="3">{{.Profile.BusinessDescription}}</textarea>
	<label>Goals (comma separated)</label>
	<input name="goals" value="{{.GoalsCSV}}">
	<label>Preferences (comma separated)</label>
	<input name="preferences" value="{{.PreferencesCSV}}">
	<button type="submit">Save</button>
</form>
<p><a href="/account">Back to account</a></p>`

const accountHTML = `<h1>Account</h1>
<div class="card">
	<p><strong>{{.Profile.Email}}</strong></p>
	{{if .Profile.AvatarURL}}<img src="{{.Profile.AvatarURL}}" alt="avatar" width="96" style="border-radius: 50%;">{{end}}
	<p>{{.Profile.BusinessName}}</p>
	<p>{{.Profile.BusinessDescription}}</p>
</div>
<form method="POST" action="/upload_avatar" enctype="multipart/form-data">
	<label>Avatar image</label>
	<input type="file" name="avatar" accept="image/*">
	<button type="submit">Upload</button>
</form>
<p><a class="btn" href="/edit_profile">Edit profile</a></p>
<form method="POST" action="/delete_account" onsubmit="return confirm('Delete your account? This cannot be undone.')">
	<button type="submit" class="btn-danger">Delete account</button>
</form>
<p><a href="/">Home</a> · <a href="/auth/logout">Sign out</a></p>`
