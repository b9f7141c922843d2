// Package profile stores one document per user, keyed by email.
// Concurrent edits follow last-writer-wins; no optimistic concurrency
// token is kept.
package profile

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sparkylabs/sparky/internal/db/models"
	"gorm.io/gorm"
)

// ErrNotFound means no profile document exists for the email.
var ErrNotFound = errors.New("profile not found")

// Profile is the decoded user document.
type Profile struct {
	Email               string   `json:"email"`
	BusinessName        string   `json:"business_name"`
	BusinessDescription string   `json:"business_description"`
	AvatarURL           string   `json:"avatar_url"`
	Goals               []string `json:"goals"`
	Preferences         []string `json:"preferences"`
	OnboardingCompleted bool     `json:"onboarding_completed"`
}

// Update is a partial edit. Nil fields are left unchanged; a non-nil
// pointer to a zero value clears the field.
type Update struct {
	BusinessName        *string
	BusinessDescription *string
	AvatarURL           *string
	Goals               *[]string
	Preferences         *[]string
	OnboardingCompleted *bool
}

// Store reads and writes profile documents.
type Store struct {
	db *gorm.DB
}

// NewStore wraps the database handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Get returns the profile for email, or ErrNotFound.
func (s *Store) Get(email string) (*Profile, error) {
	var row models.UserProfile
	if err := s.db.First(&row, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return fromModel(&row), nil
}

// Create inserts a bare document for a first-time login. It is a
// no-op when the profile already exists.
func (s *Store) Create(email string) error {
	var existing models.UserProfile
	err := s.db.First(&existing, "email = ?", email).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("check profile: %w", err)
	}
	if err := s.db.Create(&models.UserProfile{Email: email}).Error; err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

// Upsert applies a partial update, creating the document when absent.
// Last writer wins.
func (s *Store) Upsert(email string, u Update) error {
	var row models.UserProfile
	err := s.db.First(&row, "email = ?", email).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("load profile: %w", err)
		}
		row = models.UserProfile{Email: email}
	}

	if u.BusinessName != nil {
		row.BusinessName = *u.BusinessName
	}
	if u.BusinessDescription != nil {
		row.BusinessDescription = *u.BusinessDescription
	}
	if u.AvatarURL != nil {
		row.AvatarURL = *u.AvatarURL
	}
	if u.Goals != nil {
		row.Goals = marshalList(*u.Goals)
	}
	if u.Preferences != nil {
		row.Preferences = marshalList(*u.Preferences)
	}
	if u.OnboardingCompleted != nil {
		row.OnboardingCompleted = *u.OnboardingCompleted
	}

	if err := s.db.Save(&row).Error; err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// Delete removes the document. Deleting an absent profile is not an
// error; a later Get still reports NotFound.
func (s *Store) Delete(email string) error {
	if err := s.db.Delete(&models.UserProfile{}, "email = ?", email).Error; err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}

func fromModel(row *models.UserProfile) *Profile {
	return &Profile{
		Email:               row.Email,
		BusinessName:        row.BusinessName,
		BusinessDescription: row.BusinessDescription,
		AvatarURL:           row.AvatarURL,
		Goals:               unmarshalList(row.Goals),
		Preferences:         unmarshalList(row.Preferences),
		OnboardingCompleted: row.OnboardingCompleted,
	}
}

func marshalList(values []string) string {
	if values == nil {
		values = []string{}
	}
	raw, _ := json.Marshal(values)
	return string(raw)
}

func unmarshalList(raw string) []string {
	if raw == "" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil
	}
	return values
}
