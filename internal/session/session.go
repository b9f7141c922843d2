// Package session implements server-side browser sessions. The cookie
// carries only an HMAC-signed session ID; credentials, the property
// list, insight text and flash messages live in a database row.
//
// A session walks the login state machine: anonymous (no credentials),
// awaiting callback (OAuth state stored), authenticated (credentials
// plus verified email). A callback that arrives without a stored state
// must be bounced back to anonymous, never silently authenticated.
package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sparkylabs/sparky/internal/analytics"
	"github.com/sparkylabs/sparky/internal/auth/google"
	"github.com/sparkylabs/sparky/internal/db/models"
	"gorm.io/gorm"
)

const (
	cookieName = "sparky_session"
	sessionTTL = 24 * time.Hour
)

// State is the login-flow state of a session.
type State int

const (
	Anonymous State = iota
	AwaitingCallback
	Authenticated
)

// Flash is a one-shot message surfaced on the next rendered page.
type Flash struct {
	Level   string `json:"level"` // "error", "warning", "info"
	Message string `json:"message"`
}

// Data is everything a session carries between requests.
type Data struct {
	OAuthState       string                `json:"oauth_state,omitempty"`
	Credentials      *google.Credentials   `json:"credentials,omitempty"`
	Email            string                `json:"email,omitempty"`
	AvatarURL        string                `json:"avatar_url,omitempty"`
	Properties       []analytics.Property  `json:"properties,omitempty"`
	SelectedProperty string                `json:"selected_property,omitempty"`
	InsightsText     string                `json:"insights_text,omitempty"`
	Flashes          []Flash               `json:"flashes,omitempty"`
}

// Session is one browser session, loaded per request and saved after
// mutation. Handlers pass it explicitly through the pipeline instead
// of reading ambient state.
type Session struct {
	ID    string
	isNew bool
	Data
}

// State derives the login-flow state from the session contents.
func (s *Session) State() State {
	if s.Credentials != nil && s.Credentials.Valid() && s.Email != "" {
		return Authenticated
	}
	if s.OAuthState != "" {
		return AwaitingCallback
	}
	return Anonymous
}

// Flash queues a one-shot message.
func (s *Session) Flash(level, message string) {
	s.Flashes = append(s.Flashes, Flash{Level: level, Message: message})
}

// ConsumeFlashes returns queued messages and clears them.
func (s *Session) ConsumeFlashes() []Flash {
	f := s.Flashes
	s.Flashes = nil
	return f
}

// ClearAuth drops credentials and everything derived from them,
// returning the session to anonymous.
func (s *Session) ClearAuth() {
	s.OAuthState = ""
	s.Credentials = nil
	s.Email = ""
	s.AvatarURL = ""
	s.Properties = nil
	s.SelectedProperty = ""
	s.InsightsText = ""
}

// Manager loads and persists sessions. Each session ID has a mutex so
// overlapping requests for one browser serialize their
// read-modify-write cycles instead of discarding each other's Save.
type Manager struct {
	db     *gorm.DB
	secret []byte

	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// NewManager creates a session manager signing cookies with secret.
func NewManager(db *gorm.DB, secret string) *Manager {
	return &Manager{db: db, secret: []byte(secret), locks: map[string]*sessionLock{}}
}

// Acquire loads the request's session with its per-ID lock held.
// Handlers use this instead of Load and call release once the response
// is written; a concurrent request for the same cookie blocks in
// Acquire until then.
func (m *Manager) Acquire(r *http.Request) (*Session, func()) {
	id := m.cookieSessionID(r)
	if id == "" {
		s := m.newSession()
		return s, m.lock(s.ID)
	}
	release := m.lock(id)
	return m.Load(r), release
}

// Load returns the session for the request's cookie, or a fresh empty
// session when the cookie is absent, tampered with, or expired.
func (m *Manager) Load(r *http.Request) *Session {
	id := m.cookieSessionID(r)
	if id == "" {
		return m.newSession()
	}

	var row models.Session
	if err := m.db.First(&row, "id = ?", id).Error; err != nil {
		return m.newSession()
	}
	if time.Now().After(row.ExpiresAt) {
		m.db.Delete(&models.Session{}, "id = ?", id)
		return m.newSession()
	}

	s := &Session{ID: id}
	if err := json.Unmarshal([]byte(row.Data), &s.Data); err != nil {
		return m.newSession()
	}
	return s
}

// Save persists the session and sets the cookie on new sessions.
func (m *Manager) Save(w http.ResponseWriter, s *Session) error {
	blob, err := json.Marshal(s.Data)
	if err != nil {
		return err
	}
	row := models.Session{
		ID:        s.ID,
		Data:      string(blob),
		ExpiresAt: time.Now().Add(sessionTTL),
	}
	if err := m.db.Save(&row).Error; err != nil {
		return err
	}
	if s.isNew {
		http.SetCookie(w, &http.Cookie{
			Name:     cookieName,
			Value:    m.signCookie(s.ID),
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   int(sessionTTL / time.Second),
		})
		s.isNew = false
	}
	return nil
}

// Destroy deletes the session row and expires the cookie.
func (m *Manager) Destroy(w http.ResponseWriter, s *Session) error {
	err := m.db.Delete(&models.Session{}, "id = ?", s.ID).Error
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	s.Data = Data{}
	s.isNew = true
	s.ID = uuid.New().String()
	return err
}

// PurgeExpired removes sessions past their expiry. Called on startup.
func (m *Manager) PurgeExpired() error {
	return m.db.Delete(&models.Session{}, "expires_at < ?", time.Now()).Error
}

func (m *Manager) newSession() *Session {
	return &Session{ID: uuid.New().String(), isNew: true}
}

// cookieSessionID extracts and verifies the session ID carried by the
// request's cookie, or "".
func (m *Manager) cookieSessionID(r *http.Request) string {
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return ""
	}
	id, ok := m.verifyCookie(cookie.Value)
	if !ok {
		return ""
	}
	return id
}

// lock takes the mutex for one session ID. Entries are reference
// counted so the map does not accumulate dead sessions.
func (m *Manager) lock(id string) func() {
	m.mu.Lock()
	e := m.locks[id]
	if e == nil {
		e = &sessionLock{}
		m.locks[id] = e
	}
	e.refs++
	m.mu.Unlock()

	e.mu.Lock()
	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			m.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(m.locks, id)
			}
			m.mu.Unlock()
		})
	}
}

// signCookie encodes "id.hex(hmac-sha256(id))".
func (m *Manager) signCookie(id string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(id))
	return id + "." + hex.EncodeToString(mac.Sum(nil))
}

// verifyCookie checks the signature and returns the embedded ID.
func (m *Manager) verifyCookie(value string) (string, bool) {
	id, sig, ok := strings.Cut(value, ".")
	if !ok || id == "" {
		return "", false
	}
	want, err := hex.DecodeString(sig)
	if err != nil {
		return "", false
	}
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(id))
	if !hmac.Equal(mac.Sum(nil), want) {
		return "", false
	}
	return id, true
}
