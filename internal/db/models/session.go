package models

import "time"

// Session is a server-side browser session. The cookie carries only
// the signed ID; all state (OAuth tokens included) stays in this row.
type Session struct {
	ID        string `gorm:"primaryKey"` // UUID
	Data      string // JSON blob of session values
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
