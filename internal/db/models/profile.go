package models

import "time"

// UserProfile is the single document stored per user, keyed by email.
// Goals and Preferences are JSON-encoded string arrays; order is the
// user's ranking.
type UserProfile struct {
	Email               string `gorm:"primaryKey"`
	BusinessName        string
	BusinessDescription string
	AvatarURL           string
	Goals               string // JSON array of ranked goal strings
	Preferences         string // JSON array of ranked preference strings
	OnboardingCompleted bool   `gorm:"default:false"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
