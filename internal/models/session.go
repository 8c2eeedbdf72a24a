// internal/models/session.go
package models

import "time"

// Session backs the session store when Redis is not configured.
type Session struct {
	SessionKey string    `gorm:"primaryKey;size:64"`
	ExpiresAt  time.Time `gorm:"not null;index"`
	CreatedAt  time.Time
}
