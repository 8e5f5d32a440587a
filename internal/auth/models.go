package auth

import "time"

// SessionLifetime is how long a login stays valid.
const SessionLifetime = 6 * time.Hour

type User struct {
	UserID         string    `gorm:"primaryKey" json:"user_id"`
	Email          string    `gorm:"not null;uniqueIndex" json:"email"`
	DisplayName    string    `gorm:"not null" json:"display_name"`
	HashedPassword string    `gorm:"not null" json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

type Session struct {
	SessionID string    `gorm:"primaryKey" json:"-"`
	UserID    string    `gorm:"not null;index" json:"-"`
	ExpiresAt time.Time `gorm:"not null"`
}

func (Session) TableName() string { return "app_auth.sessions" }
func (User) TableName() string    { return "app_auth.users" }

// Event reports a sign-in or sign-out of one user.
type Event struct {
	UserID   string
	SignedIn bool
}
